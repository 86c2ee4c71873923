package optimizer

import (
	"sort"

	"github.com/samber/lo"
)

// ValueScore is the mean score of every combination sharing Value.
type ValueScore struct {
	Value     float64 `json:"value"`
	MeanScore float64 `json:"mean_score"`
	Count     int     `json:"count"`
}

// Sensitivity is the marginal effect of one parameter. Values is ranked by
// descending mean score; ties keep ascending value order.
type Sensitivity struct {
	BestValue float64      `json:"best_value"`
	Values    []ValueScore `json:"values"`
}

// Analyze groups results by each parameter's value independently and
// averages the score within each group. Interactions between parameters
// are ignored.
func Analyze(results []Result) map[string]Sensitivity {
	names := lo.Uniq(lo.FlatMap(results, func(r Result, _ int) []string {
		return lo.Keys(r.Parameters)
	}))

	out := make(map[string]Sensitivity, len(names))
	for _, name := range names {
		having := lo.Filter(results, func(r Result, _ int) bool {
			_, ok := r.Parameters[name]
			return ok
		})
		groups := lo.GroupBy(having, func(r Result) float64 {
			return r.Parameters[name]
		})

		ranked := make([]ValueScore, 0, len(groups))
		for v, rs := range groups {
			sum := lo.SumBy(rs, func(r Result) float64 { return r.Score })
			ranked = append(ranked, ValueScore{Value: v, MeanScore: sum / float64(len(rs)), Count: len(rs)})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].MeanScore != ranked[j].MeanScore {
				return ranked[i].MeanScore > ranked[j].MeanScore
			}
			return ranked[i].Value < ranked[j].Value
		})

		out[name] = Sensitivity{BestValue: ranked[0].Value, Values: ranked}
	}
	return out
}
