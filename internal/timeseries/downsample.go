package timeseries

import (
	"encoding/binary"
	"hash/fnv"
	"time"

	"github.com/tmthrgd/go-hex"
)

// downsampleTask asks the worker to re-read raw points for key in
// [Start, End) at Level and replace any overlapping rollup rows.
type downsampleTask struct {
	ID    string
	Key   SeriesKey
	Level AggregationLevel
	Start time.Time
	End   time.Time
}

// taskID hashes (series key, level, bucketed start/end) so repeated
// enqueues of the same span are idempotent and cheap to compare.
func taskID(key SeriesKey, level AggregationLevel, start, end time.Time) string {
	h := fnv.New64a()
	h.Write([]byte(key.String()))
	h.Write([]byte(level.Name))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(start.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(end.UnixNano()))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// bucketStart returns the start of the level-sized bucket containing ts.
func bucketStart(ts time.Time, level AggregationLevel) time.Time {
	if level.Duration <= 0 {
		return ts
	}
	unix := ts.Unix()
	size := int64(level.Duration.Seconds())
	bucket := (unix / size) * size
	return time.Unix(bucket, 0).UTC()
}

// computeRollups groups points into level-sized buckets and produces one
// rollupRow per non-empty bucket.
func computeRollups(points []Point, level AggregationLevel) map[int64]rollupRow {
	buckets := make(map[int64]rollupRow)
	for _, p := range points {
		if !p.IsValid() {
			continue
		}
		bs := bucketStart(p.Timestamp, level)
		key := bs.Unix()
		row, ok := buckets[key]
		if !ok {
			row = rollupRow{
				BucketStart: bs,
				Min:         p.Value,
				Max:         p.Value,
				First:       p.Value,
				FirstTS:     p.Timestamp,
				Last:        p.Value,
				LastTS:      p.Timestamp,
			}
		}
		row.Sum += p.Value
		row.Count++
		if p.Value < row.Min {
			row.Min = p.Value
		}
		if p.Value > row.Max {
			row.Max = p.Value
		}
		if p.Timestamp.Before(row.FirstTS) {
			row.First = p.Value
			row.FirstTS = p.Timestamp
		}
		if p.Timestamp.After(row.LastTS) {
			row.Last = p.Value
			row.LastTS = p.Timestamp
		}
		row.Avg = row.Sum / float64(row.Count)
		buckets[key] = row
	}
	return buckets
}
