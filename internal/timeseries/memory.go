package timeseries

import (
	"context"
	"sync"
	"time"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/infrastructure/tracing"
	"github.com/rs/zerolog"
)

// MemoryStore is a process-local Store implementation: a map of series
// key to in-memory state guarded by a single RWMutex, plus a bounded
// downsample queue drained by one worker goroutine. Suitable for tests
// and for a single-node deployment without Postgres.
type MemoryStore struct {
	log zerolog.Logger

	mu     sync.RWMutex
	series map[string]*seriesState

	queue chan downsampleTask
	seen  map[string]bool
	done  chan struct{}
}

// NewMemoryStore starts the downsample worker and returns a ready store.
func NewMemoryStore(log zerolog.Logger, queueCapacity int) *MemoryStore {
	s := &MemoryStore{
		log:    log,
		series: make(map[string]*seriesState),
		queue:  make(chan downsampleTask, queueCapacity),
		seen:   make(map[string]bool),
		done:   make(chan struct{}),
	}
	go s.drainQueue()
	return s
}

// Close stops the downsample worker.
func (s *MemoryStore) Close() {
	close(s.done)
}

func (s *MemoryStore) enqueue(task downsampleTask) {
	s.mu.Lock()
	if s.seen[task.ID] {
		s.mu.Unlock()
		return
	}
	s.seen[task.ID] = true
	s.mu.Unlock()

	select {
	case s.queue <- task:
	default:
		s.mu.Lock()
		delete(s.seen, task.ID)
		s.mu.Unlock()
		s.log.Warn().Str("series", task.Key.String()).Str("level", task.Level.Name).
			Msg("downsample queue full, dropping enqueue")
	}
}

func (s *MemoryStore) drainQueue() {
	for {
		select {
		case <-s.done:
			return
		case task := <-s.queue:
			s.runDownsample(task)
		}
	}
}

func (s *MemoryStore) runDownsample(task downsampleTask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.series[task.Key.String()]
	if !ok {
		return
	}

	var points []Point
	for _, p := range st.raw {
		if !p.Timestamp.Before(task.Start) && p.Timestamp.Before(task.End) {
			points = append(points, p)
		}
	}

	rows := computeRollups(points, task.Level)
	if st.rollups[task.Level.Name] == nil {
		st.rollups[task.Level.Name] = make(map[int64]rollupRow)
	}
	for bucket, row := range rows {
		st.rollups[task.Level.Name][bucket] = row
	}
}

func (s *MemoryStore) Register(ctx context.Context, in RegisterInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := in.Key.String()
	st, exists := s.series[key]
	if !exists {
		st = newSeriesState(in.Key, now)
		s.series[key] = st
	}

	st.catalog.DisplayName = in.DisplayName
	st.catalog.Units = in.Units
	if in.DataType != "" {
		st.catalog.DataType = in.DataType
	}
	st.catalog.SourceType = in.SourceType
	st.catalog.MinBound = in.MinBound
	st.catalog.MaxBound = in.MaxBound
	st.catalog.RetentionDays = in.RetentionDays
	st.catalog.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Write(ctx context.Context, batch WriteBatch) (WriteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "timeseries.Write")
	defer span.End()

	s.mu.Lock()

	now := time.Now()
	key := batch.Key.String()
	st, exists := s.series[key]
	if !exists {
		st = newSeriesState(batch.Key, now)
		s.series[key] = st
	}

	var result WriteResult
	for _, p := range batch.Points {
		if !p.IsValid() && p.Quality != QualityMissing {
			result.Rejected++
			continue
		}
		nano := p.Timestamp.UnixNano()
		if _, existed := st.raw[nano]; existed {
			result.Updated++
		} else {
			result.Written++
		}
		st.raw[nano] = p

		if st.catalog.FirstTS.IsZero() || p.Timestamp.Before(st.catalog.FirstTS) {
			st.catalog.FirstTS = p.Timestamp
		}
		if p.Timestamp.After(st.catalog.LastTS) {
			st.catalog.LastTS = p.Timestamp
		}
		if result.FirstTS.IsZero() || p.Timestamp.Before(result.FirstTS) {
			result.FirstTS = p.Timestamp
		}
		if p.Timestamp.After(result.LastTS) {
			result.LastTS = p.Timestamp
		}
	}
	st.catalog.Count += int64(result.Written)
	st.catalog.UpdatedAt = now

	s.mu.Unlock()

	if result.Written+result.Updated > 0 {
		for _, level := range Levels {
			start := bucketStart(result.FirstTS, level)
			end := bucketStart(result.LastTS, level).Add(level.Duration)
			s.enqueue(downsampleTask{
				ID:    taskID(batch.Key, level, start, end),
				Key:   batch.Key,
				Level: level,
				Start: start,
				End:   end,
			})
		}
	}

	return result, nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) (QueryResult, error) {
	_, span := tracing.StartSpan(ctx, "timeseries.Query")
	defer span.End()

	if !q.Start.Before(q.End) {
		return QueryResult{}, domain.Invalidf("query start (%v) must be before end (%v)", q.Start, q.End)
	}
	if q.Aggregation != nil && q.Function == "" {
		return QueryResult{}, domain.Invalidf("aggregation level set without a function")
	}

	s.mu.RLock()
	st, ok := s.series[q.Key.String()]
	s.mu.RUnlock()
	if !ok {
		return QueryResult{}, nil
	}

	var points []Point
	if q.Aggregation != nil && q.Aggregation.Duration > 0 {
		s.mu.RLock()
		rows := st.rollups[q.Aggregation.Name]
		s.mu.RUnlock()
		points = rowsToPoints(rows, q.Function, q.Start, q.End)
	} else {
		s.mu.RLock()
		for _, p := range st.sortedPoints() {
			if !p.Timestamp.Before(q.Start) && p.Timestamp.Before(q.End) {
				points = append(points, p)
			}
		}
		s.mu.RUnlock()
	}

	if q.FillGaps != FillNone && q.FillGaps != "" && q.Interval > 0 {
		points = fillGaps(points, q.Start, q.End, q.Interval, q.FillGaps)
	}

	return QueryResult{Points: points}, nil
}

func rowsToPoints(rows map[int64]rollupRow, fn AggFunc, start, end time.Time) []Point {
	var out []Point
	for _, row := range rows {
		if row.BucketStart.Before(start) || !row.BucketStart.Before(end) {
			continue
		}
		var v float64
		switch fn {
		case AggMin:
			v = row.Min
		case AggMax:
			v = row.Max
		case AggSum:
			v = row.Sum
		case AggCount:
			v = float64(row.Count)
		case AggFirst:
			v = row.First
		case AggLast:
			v = row.Last
		default:
			v = row.Avg
		}
		out = append(out, Point{Timestamp: row.BucketStart, Value: v, Quality: QualityGood})
	}
	sortPointsByTime(out)
	return out
}

func (s *MemoryStore) GetMetadata(ctx context.Context, key SeriesKey) (CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.series[key.String()]
	if !ok {
		return CatalogEntry{}, domain.NotFoundf("series %s not found", key)
	}
	return st.catalog, nil
}

func (s *MemoryStore) ListSeries(ctx context.Context, sourceType string, limit int) ([]CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []CatalogEntry
	for _, st := range s.series {
		if sourceType != "" && st.catalog.SourceType != sourceType {
			continue
		}
		out = append(out, st.catalog)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Sweep deletes raw rows older than now-retention_days for every series
// with a retention policy, re-bases FirstTS, and prunes rollup rows
// whose bucket end falls before the cutoff.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.series {
		if st.catalog.RetentionDays <= 0 {
			continue
		}
		cutoff := now.AddDate(0, 0, -st.catalog.RetentionDays)

		for nano, p := range st.raw {
			if p.Timestamp.Before(cutoff) {
				delete(st.raw, nano)
			}
		}

		remaining := st.sortedPoints()
		if len(remaining) > 0 {
			st.catalog.FirstTS = remaining[0].Timestamp
		}

		for levelName, rows := range st.rollups {
			level := levelByName(levelName)
			for bucket, row := range rows {
				bucketEnd := row.BucketStart.Add(level.Duration)
				if bucketEnd.Before(cutoff) {
					delete(rows, bucket)
				}
			}
		}
	}
	return nil
}

func levelByName(name string) AggregationLevel {
	for _, l := range Levels {
		if l.Name == name {
			return l
		}
	}
	return LevelRaw
}
