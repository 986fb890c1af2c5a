package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrend_FewerThanTwoPointsIsNone(t *testing.T) {
	w := NewWindow(10 * time.Minute)
	_, ok := w.Trend()
	assert.False(t, ok)

	w.Add(time.Unix(0, 0), 1.0)
	_, ok = w.Trend()
	assert.False(t, ok)
}

func TestTrend_Increasing(t *testing.T) {
	w := NewWindow(time.Hour)
	base := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		w.Add(base.Add(time.Duration(i)*time.Minute), float64(i)*0.1)
	}

	res, ok := w.Trend()
	require.True(t, ok)
	assert.Equal(t, DirectionIncreasing, res.Direction)
	assert.Greater(t, res.RSquared, 0.99)
}

func TestTrend_StableForFlatValues(t *testing.T) {
	w := NewWindow(time.Hour)
	base := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		w.Add(base.Add(time.Duration(i)*time.Minute), 1.0)
	}
	res, ok := w.Trend()
	require.True(t, ok)
	assert.Equal(t, DirectionStable, res.Direction)
	assert.Equal(t, StrengthWeak, res.Strength)
}

func TestWindow_EvictsExactlyWindowOldPoint(t *testing.T) {
	w := NewWindow(10 * time.Minute)
	base := time.Unix(0, 0)
	w.Add(base, 1.0)
	w.Add(base.Add(5*time.Minute), 2.0)
	// This insert makes the first sample exactly window-old, so it must
	// be evicted.
	w.Add(base.Add(10*time.Minute), 3.0)

	samples := w.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, base.Add(5*time.Minute), samples[0].Timestamp)
	assert.Equal(t, base.Add(10*time.Minute), samples[1].Timestamp)
}

func TestWindow_Decreasing(t *testing.T) {
	w := NewWindow(time.Hour)
	base := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		w.Add(base.Add(time.Duration(i)*time.Minute), 10-float64(i)*0.5)
	}
	res, ok := w.Trend()
	require.True(t, ok)
	assert.Equal(t, DirectionDecreasing, res.Direction)
	assert.Equal(t, StrengthModerate, res.Strength)
}
