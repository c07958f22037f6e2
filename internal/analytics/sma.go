// Package analytics computes derived metrics from price points that are
// already in memory. Nothing here touches storage.
package analytics

import (
	"errors"
	"slices"
	"time"
)

// DefaultSMAPeriod is the window used when a caller does not choose one.
const DefaultSMAPeriod = 5

// ErrInvalidPeriod is returned for a window size below one.
var ErrInvalidPeriod = errors.New("period must be a positive integer")

// Point is the minimal view of a price needed by the evaluators.
type Point struct {
	Date  time.Time
	Close float64
}

// SimpleMovingAverage returns the arithmetic mean of the close prices of the
// period most recent points by date.
//
// ok is false when fewer than period points exist. points is never reordered;
// sorting happens on a copy. Points sharing a date have no defined order among
// themselves.
func SimpleMovingAverage(points []Point, period int) (avg float64, ok bool, err error) {
	if period <= 0 {
		return 0, false, ErrInvalidPeriod
	}
	if len(points) < period {
		return 0, false, nil
	}

	recent := slices.Clone(points)
	slices.SortFunc(recent, func(a, b Point) int {
		return b.Date.Compare(a.Date)
	})

	var sum float64
	for _, p := range recent[:period] {
		sum += p.Close
	}
	return sum / float64(period), true, nil
}
