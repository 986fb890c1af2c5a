package alerts

import (
	"time"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/timeseries"
)

// aggregate reduces the most recent window-wide slice of series to a
// single value using fn, anchored at the series' own last timestamp
// (not wall-clock now) so callers can feed in a static snapshot.
func aggregate(series []timeseries.Point, fn timeseries.AggFunc, window time.Duration) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}

	last := series[len(series)-1].Timestamp
	cutoff := last.Add(-window)

	var sum, min, max, first, lastVal float64
	var count int
	haveFirst := false

	for _, p := range series {
		if p.Timestamp.Before(cutoff) {
			continue
		}
		if !haveFirst {
			first = p.Value
			min = p.Value
			max = p.Value
			haveFirst = true
		}
		sum += p.Value
		count++
		if p.Value < min {
			min = p.Value
		}
		if p.Value > max {
			max = p.Value
		}
		lastVal = p.Value
	}
	if count == 0 {
		return 0, false
	}

	switch fn {
	case timeseries.AggMin:
		return min, true
	case timeseries.AggMax:
		return max, true
	case timeseries.AggSum:
		return sum, true
	case timeseries.AggCount:
		return float64(count), true
	case timeseries.AggFirst:
		return first, true
	case timeseries.AggLast:
		return lastVal, true
	default:
		return sum / float64(count), true
	}
}
