package walkforward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGenerateWindows_Rolling(t *testing.T) {
	t.Parallel()

	from, to := day("2024-01-01"), day("2024-12-31")
	ws := GenerateWindows(from, to, 90, 30, Rolling)
	require.NotEmpty(t, ws)

	assert.Equal(t, from.AddDate(0, 0, 91), ws[0].OutOfSampleStart)
	assert.Equal(t, from, ws[0].InSampleStart)
	assert.Equal(t, day("2024-03-31"), ws[0].InSampleEnd)
	assert.Equal(t, day("2024-04-30"), ws[0].OutOfSampleEnd)

	for i, w := range ws {
		assert.Equal(t, i, w.Index)
		assert.False(t, w.OutOfSampleEnd.After(to), "window %d ends after range", i)
		assert.Equal(t, w.InSampleEnd.AddDate(0, 0, 1), w.OutOfSampleStart)
		if i > 0 {
			assert.Equal(t, ws[i-1].OutOfSampleStart, w.InSampleStart)
		}
	}

	// the next window would overrun the range
	last := ws[len(ws)-1]
	next := last.OutOfSampleStart.AddDate(0, 0, 90+1+29)
	assert.True(t, next.After(to))
}

func TestGenerateWindows_Expanding(t *testing.T) {
	t.Parallel()

	from, to := day("2024-01-01"), day("2024-12-31")
	rolling := GenerateWindows(from, to, 90, 30, Rolling)
	ws := GenerateWindows(from, to, 90, 30, Expanding)
	require.Len(t, ws, len(rolling))

	for i, w := range ws {
		assert.Equal(t, from, w.InSampleStart)
		assert.Equal(t, rolling[i].InSampleEnd, w.InSampleEnd)
		assert.Equal(t, rolling[i].OutOfSampleStart, w.OutOfSampleStart)
		assert.Equal(t, rolling[i].OutOfSampleEnd, w.OutOfSampleEnd)
	}
}

func TestGenerateWindows_Degenerate(t *testing.T) {
	t.Parallel()

	from := day("2024-01-01")
	assert.Empty(t, GenerateWindows(from, day("2024-02-01"), 90, 30, Rolling))
	assert.Empty(t, GenerateWindows(from, day("2024-12-31"), 0, 30, Rolling))
	assert.Empty(t, GenerateWindows(from, day("2024-12-31"), 90, 0, Rolling))

	ws := GenerateWindows(from, day("2024-04-30"), 90, 30, Rolling)
	assert.Len(t, ws, 1, "out-of-sample may end on the last day")
}

func TestParseWindowType(t *testing.T) {
	t.Parallel()

	wt, err := ParseWindowType(" Expanding")
	require.NoError(t, err)
	assert.Equal(t, Expanding, wt)

	_, err = ParseWindowType("anchored")
	assert.Error(t, err)
}
