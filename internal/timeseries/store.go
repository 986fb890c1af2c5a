package timeseries

import (
	"context"
	"sort"
	"time"
)

// RegisterInput is the metadata accepted by Register. Identity fields
// (Key) are immutable once a catalog entry exists; all other fields are
// upserted.
type RegisterInput struct {
	Key           SeriesKey
	DisplayName   string
	Units         string
	DataType      DataType
	SourceType    string
	MinBound      *float64
	MaxBound      *float64
	RetentionDays int
}

// WriteBatch is one call's worth of points for a single series.
type WriteBatch struct {
	Key    SeriesKey
	Points []Point
}

// WriteResult reports per-batch outcome counts.
type WriteResult struct {
	Written  int
	Updated  int
	Rejected int
	FirstTS  time.Time
	LastTS   time.Time
}

// Query describes a range read.
type Query struct {
	Key         SeriesKey
	Start       time.Time
	End         time.Time
	Aggregation *AggregationLevel
	Function    AggFunc
	FillGaps    FillMethod
	Interval    time.Duration
}

// QueryResult is the outcome of a range read.
type QueryResult struct {
	Points []Point
}

// Store is the full contract for the time-series subsystem: catalog
// register, write, range query, and listing.
type Store interface {
	Register(ctx context.Context, in RegisterInput) error
	Write(ctx context.Context, batch WriteBatch) (WriteResult, error)
	Query(ctx context.Context, q Query) (QueryResult, error)
	GetMetadata(ctx context.Context, key SeriesKey) (CatalogEntry, error)
	ListSeries(ctx context.Context, sourceType string, limit int) ([]CatalogEntry, error)
	Sweep(ctx context.Context, now time.Time) error
}

// seriesState is a series key's in-memory state: raw points, rollups
// per level, and catalog metadata. The zero value is not meaningful;
// use newSeriesState.
type seriesState struct {
	catalog CatalogEntry
	raw     map[int64]Point // keyed by UnixNano for stable ordering
	rollups map[string]map[int64]rollupRow
}

type rollupRow struct {
	BucketStart time.Time
	Avg, Min, Max, Sum float64
	Count              int64
	First, Last        float64
	FirstTS, LastTS    time.Time
}

func newSeriesState(key SeriesKey, now time.Time) *seriesState {
	return &seriesState{
		catalog: CatalogEntry{
			Key:       key,
			DataType:  DataTypeInstantaneous,
			CreatedAt: now,
			UpdatedAt: now,
		},
		raw:     make(map[int64]Point),
		rollups: make(map[string]map[int64]rollupRow),
	}
}

func (s *seriesState) sortedPoints() []Point {
	keys := make([]int64, 0, len(s.raw))
	for k := range s.raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]Point, len(keys))
	for i, k := range keys {
		out[i] = s.raw[k]
	}
	return out
}
