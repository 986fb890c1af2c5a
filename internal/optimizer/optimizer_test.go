package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams() Params {
	return Params{
		TargetLevelM:    -0.60,
		MaxDischargeM3s: 0.5,
		AreaM2:          100000,
		HeadM:           2.0,
		Efficiency:      0.70,
		MarginM:         0.20,
		StorageFactor:   0.10,
	}
}

func flatPrices(v float64) [24]float64 {
	var out [24]float64
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSolve_PumpPowerFormula(t *testing.T) {
	p := pumpPowerKW(0.5, 2.0, 0.70)
	assert.InDelta(t, 14.014, p, 0.1)
}

func TestSolve_FlatPriceNoRain(t *testing.T) {
	p := baseParams()
	p.PricesEURkWh = flatPrices(0.10)

	res, err := Solve(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res.TotalCostOptimalEUR, 0.01)
	assert.InDelta(t, 0.0, res.TotalCostNaiveEUR, 0.01)
	for _, h := range res.Hours {
		assert.Equal(t, 0.0, h.OptimalFraction)
		assert.Equal(t, 0.0, h.NaiveFraction)
	}
}

func TestSolve_FlatPriceWithRainNaiveCostsMore(t *testing.T) {
	p := baseParams()
	p.PricesEURkWh = flatPrices(0.10)
	p.RainfallMMh[6] = 5.0
	p.RainfallMMh[7] = 10.0
	p.RainfallMMh[8] = 5.0

	res, err := Solve(context.Background(), p)
	require.NoError(t, err)

	assert.Greater(t, res.TotalCostNaiveEUR, 0.0)
	assert.GreaterOrEqual(t, res.TotalCostOptimalEUR, 0.0)
	assert.LessOrEqual(t, res.TotalCostOptimalEUR, res.TotalCostNaiveEUR+0.01)
}

func TestSolve_VariablePriceRespectsMarginAndBeatsNaive(t *testing.T) {
	p := baseParams()
	prices := flatPrices(0.05)
	prices[10] = 0.30
	prices[11] = 0.30
	prices[12] = 0.25
	p.PricesEURkWh = prices
	p.RainfallMMh[10] = 8.0
	p.RainfallMMh[11] = 8.0
	p.RainfallMMh[12] = 5.0

	res, err := Solve(context.Background(), p)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.TotalCostOptimalEUR, res.TotalCostNaiveEUR+0.01)
	assert.LessOrEqual(t, res.MaxDeviationOptimalCm, p.MarginM*100+1)
}

func TestSolve_ConstraintNeverViolatedUnderHeavyRain(t *testing.T) {
	p := baseParams()
	p.PricesEURkWh = flatPrices(0.15)
	p.RainfallMMh[3] = 5.0
	p.RainfallMMh[4] = 10.0
	p.RainfallMMh[5] = 5.0

	res, err := Solve(context.Background(), p)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.MaxDeviationOptimalCm, p.MarginM*100+1)
}

func TestSolve_TwentyFourHourShape(t *testing.T) {
	p := baseParams()
	p.PricesEURkWh = flatPrices(0.10)

	res, err := Solve(context.Background(), p)
	require.NoError(t, err)

	assert.Len(t, res.Hours, 24)
	assert.Len(t, res.MinutesOptimal, 24*60)
	assert.Len(t, res.MinutesNaive, 24*60)
}

func TestSolve_RejectsInvalidParams(t *testing.T) {
	p := baseParams()
	p.AreaM2 = 0
	_, err := Solve(context.Background(), p)
	assert.Error(t, err)

	p2 := baseParams()
	p2.StorageFactor = 0
	_, err = Solve(context.Background(), p2)
	assert.Error(t, err)
}

func TestSolve_CancellationLeavesNoPartialResult(t *testing.T) {
	p := baseParams()
	p.PricesEURkWh = flatPrices(0.10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	time.Sleep(time.Millisecond)

	_, err := Solve(ctx, p)
	assert.Error(t, err)
}
