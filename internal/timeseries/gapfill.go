package timeseries

import (
	"sort"
	"time"
)

func sortPointsByTime(points []Point) {
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
}

// fillGaps densifies sparse points onto a fixed grid [start, end) at
// interval, per method. Points outside existing data are synthesized
// with Quality=Interpolated (or carried/held for Forward/Backward/
// Constant); grid points that coincide with a real point keep that
// point's original quality.
func fillGaps(points []Point, start, end time.Time, interval time.Duration, method FillMethod) []Point {
	if len(points) == 0 || interval <= 0 {
		return points
	}
	sortPointsByTime(points)

	byTime := make(map[int64]Point, len(points))
	for _, p := range points {
		byTime[p.Timestamp.UnixNano()] = p
	}

	var grid []time.Time
	for t := start; t.Before(end); t = t.Add(interval) {
		grid = append(grid, t)
	}
	if len(grid) == 0 {
		return points
	}

	out := make([]Point, 0, len(grid))
	for _, t := range grid {
		if p, ok := byTime[t.UnixNano()]; ok {
			out = append(out, p)
			continue
		}

		switch method {
		case FillForward:
			if v, ok := lastAtOrBefore(points, t); ok {
				out = append(out, Point{Timestamp: t, Value: v, Quality: QualityInterpolated})
			}
		case FillBackward:
			if v, ok := firstAtOrAfter(points, t); ok {
				out = append(out, Point{Timestamp: t, Value: v, Quality: QualityInterpolated})
			}
		case FillLinear:
			if v, ok := interpolateLinear(points, t); ok {
				out = append(out, Point{Timestamp: t, Value: v, Quality: QualityInterpolated})
			}
		case FillConstant:
			out = append(out, Point{Timestamp: t, Value: points[0].Value, Quality: QualityInterpolated})
		default:
			// FillNone: leave the gap, emit nothing for this grid slot.
		}
	}
	return out
}

func lastAtOrBefore(points []Point, t time.Time) (float64, bool) {
	var best *Point
	for i := range points {
		if !points[i].Timestamp.After(t) {
			best = &points[i]
		} else {
			break
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Value, true
}

func firstAtOrAfter(points []Point, t time.Time) (float64, bool) {
	for i := range points {
		if !points[i].Timestamp.Before(t) {
			return points[i].Value, true
		}
	}
	return 0, false
}

func interpolateLinear(points []Point, t time.Time) (float64, bool) {
	var before, after *Point
	for i := range points {
		if points[i].Timestamp.Before(t) {
			before = &points[i]
		}
		if points[i].Timestamp.After(t) && after == nil {
			after = &points[i]
		}
	}
	switch {
	case before != nil && after != nil:
		span := after.Timestamp.Sub(before.Timestamp).Seconds()
		frac := t.Sub(before.Timestamp).Seconds() / span
		return before.Value + (after.Value-before.Value)*frac, true
	case before != nil:
		return before.Value, true
	case after != nil:
		return after.Value, true
	default:
		return 0, false
	}
}
