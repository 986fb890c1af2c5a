package timeseries

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(zerolog.Nop(), 64)
}

func TestStore_WriteAndCatalogCounts(t *testing.T) {
	s := newTestStore()
	defer s.Close()
	ctx := context.Background()
	key := SeriesKey{LocationID: "PG001", Parameter: "waterlevel"}

	base := time.Unix(0, 0).UTC()
	var points []Point
	for i := 0; i < 5; i++ {
		points = append(points, Point{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: float64(i), Quality: QualityGood})
	}

	res, err := s.Write(ctx, WriteBatch{Key: key, Points: points})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Written)
	assert.Equal(t, 0, res.Rejected)

	meta, err := s.GetMetadata(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Count)
	assert.True(t, !meta.FirstTS.After(meta.LastTS))
}

func TestStore_MissingFlagIsAcceptedNotRejected(t *testing.T) {
	s := newTestStore()
	defer s.Close()
	ctx := context.Background()
	key := SeriesKey{LocationID: "PG001", Parameter: "flow"}

	res, err := s.Write(ctx, WriteBatch{Key: key, Points: []Point{
		{Timestamp: time.Unix(0, 0), Value: 0, Quality: QualityMissing},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 0, res.Rejected)
}

func TestStore_QueryEmptyRangeReturnsEmptyNotError(t *testing.T) {
	s := newTestStore()
	defer s.Close()
	ctx := context.Background()
	key := SeriesKey{LocationID: "PG001", Parameter: "waterlevel"}

	res, err := s.Query(ctx, Query{Key: key, Start: time.Unix(0, 0), End: time.Unix(100, 0)})
	require.NoError(t, err)
	assert.Empty(t, res.Points)
}

func TestStore_QueryRejectsStartNotBeforeEnd(t *testing.T) {
	s := newTestStore()
	defer s.Close()
	ctx := context.Background()
	_, err := s.Query(ctx, Query{Start: time.Unix(10, 0), End: time.Unix(10, 0)})
	assert.Error(t, err)
}

func TestGapFill_LinearOverThreeInteriorPoints(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	points := []Point{
		{Timestamp: base, Value: 10, Quality: QualityGood},
		{Timestamp: base.Add(3600 * time.Second), Value: 20, Quality: QualityGood},
	}

	filled := fillGaps(points, base, base.Add(3601*time.Second), 900*time.Second, FillLinear)
	require.Len(t, filled, 5)

	assert.Equal(t, 10.0, filled[0].Value)
	assert.InDelta(t, 12.5, filled[1].Value, 1e-9)
	assert.InDelta(t, 15.0, filled[2].Value, 1e-9)
	assert.InDelta(t, 17.5, filled[3].Value, 1e-9)
	assert.Equal(t, 20.0, filled[4].Value)

	for _, p := range filled[1:4] {
		assert.Equal(t, QualityInterpolated, p.Quality)
	}
}

func TestSeriesKey_RoundTrip(t *testing.T) {
	k := SeriesKey{LocationID: "PG001", Parameter: "waterlevel", Qualifier: "forecast"}
	parsed, err := ParseSeriesKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)
}

func TestPoint_ValidityRules(t *testing.T) {
	assert.True(t, Point{Value: 1, Quality: QualityGood}.IsValid())
	assert.False(t, Point{Value: 1, Quality: QualityBad}.IsValid())
	assert.False(t, Point{Value: 1, Quality: QualityMissing}.IsValid())
}

func TestSweep_RemovesRawOlderThanRetention(t *testing.T) {
	s := newTestStore()
	defer s.Close()
	ctx := context.Background()
	key := SeriesKey{LocationID: "PG001", Parameter: "waterlevel"}

	now := time.Now().UTC()
	require.NoError(t, s.Register(ctx, RegisterInput{Key: key, RetentionDays: 1}))
	_, err := s.Write(ctx, WriteBatch{Key: key, Points: []Point{
		{Timestamp: now.AddDate(0, 0, -5), Value: 1, Quality: QualityGood},
		{Timestamp: now, Value: 2, Quality: QualityGood},
	}})
	require.NoError(t, err)

	require.NoError(t, s.Sweep(ctx, now))

	meta, err := s.GetMetadata(ctx, key)
	require.NoError(t, err)
	assert.True(t, meta.FirstTS.After(now.AddDate(0, 0, -2)))
}
