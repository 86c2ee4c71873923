// Package walkforward validates a configuration on sequential in-sample and
// out-of-sample windows.
package walkforward

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

// WindowType selects how the in-sample start moves between windows.
type WindowType string

const (
	// Rolling moves the in-sample start to the previous out-of-sample start.
	Rolling WindowType = "rolling"
	// Expanding pins the in-sample start to the first day of the range.
	Expanding WindowType = "expanding"
)

// ParseWindowType parses "rolling" or "expanding".
func ParseWindowType(s string) (WindowType, error) {
	switch WindowType(strings.ToLower(strings.TrimSpace(s))) {
	case Rolling:
		return Rolling, nil
	case Expanding:
		return Expanding, nil
	}
	return "", fmt.Errorf("unknown window type %q", s)
}

// Window is one in-sample / out-of-sample pair. All bounds are inclusive
// calendar days.
type Window struct {
	Index            int       `json:"index"`
	InSampleStart    time.Time `json:"in_sample_start"`
	InSampleEnd      time.Time `json:"in_sample_end"`
	OutOfSampleStart time.Time `json:"out_of_sample_start"`
	OutOfSampleEnd   time.Time `json:"out_of_sample_end"`
}

func (w Window) String() string {
	return fmt.Sprintf("#%d IS %s..%s OOS %s..%s", w.Index,
		w.InSampleStart.Format(time.DateOnly), w.InSampleEnd.Format(time.DateOnly),
		w.OutOfSampleStart.Format(time.DateOnly), w.OutOfSampleEnd.Format(time.DateOnly))
}

// GenerateWindows splits [from, to] into windows. The in-sample span of each
// window is [cursor, cursor+isDays] and its out-of-sample span starts the day
// after and lasts oosDays. Generation stops before the first window whose
// out-of-sample end falls after to. The cursor advances to each
// out-of-sample start.
func GenerateWindows(from, to time.Time, isDays, oosDays int, wt WindowType) []Window {
	if isDays <= 0 || oosDays <= 0 {
		return nil
	}
	from, to = market.DateOf(from), market.DateOf(to)

	var out []Window
	for cursor := from; ; {
		isEnd := cursor.AddDate(0, 0, isDays)
		oosStart := isEnd.AddDate(0, 0, 1)
		oosEnd := oosStart.AddDate(0, 0, oosDays-1)
		if oosEnd.After(to) {
			break
		}

		isStart := cursor
		if wt == Expanding {
			isStart = from
		}
		out = append(out, Window{
			Index:            len(out),
			InSampleStart:    isStart,
			InSampleEnd:      isEnd,
			OutOfSampleStart: oosStart,
			OutOfSampleEnd:   oosEnd,
		})
		cursor = oosStart
	}
	return out
}
