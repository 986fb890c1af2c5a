// Package optimizer solves the day-ahead pump schedule: a 24-hour
// backward dynamic program over discretized water levels and pump
// fractions, minimizing electricity cost subject to a soft band
// constraint. See Params for the contract.
package optimizer

import (
	"context"
	"math"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/infrastructure/tracing"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/waterbalance"
)

// PumpFractions is the finite discretization of pump duty the DP
// chooses from each hour.
var PumpFractions = []float64{0.0, 0.05, 0.10, 0.25, 0.40, 0.50, 0.75, 0.90, 1.0}

const (
	levelStepM    = 0.005 // 5 mm state discretization
	penaltyPerCm  = 100.0 // euro per cm per hour outside the band
	tieEpsilon    = 1e-9
	minStorage    = 0.01
	minRiseM      = 0.20
	maxRiseM      = 5.0
)

// Params describes one polder's optimization problem for a 24-hour
// horizon.
type Params struct {
	TargetLevelM    float64
	MaxDischargeM3s float64
	AreaM2          float64
	EvaporationMMh  float64
	InfiltrationMMh float64
	HeadM           float64
	Efficiency      float64
	MarginM         float64
	StorageFactor   float64 // (0,1], open-water fraction
	RainfallMMh     [24]float64
	PricesEURkWh    [24]float64
}

// Validate rejects the request eagerly, before allocating DP state, per
// the error taxonomy's propagation rule for this component.
func (p Params) Validate() error {
	if p.AreaM2 <= 0 {
		return domain.Invalidf("area must be > 0, got %v", p.AreaM2)
	}
	if p.MaxDischargeM3s <= 0 {
		return domain.Invalidf("max discharge must be > 0, got %v", p.MaxDischargeM3s)
	}
	if p.StorageFactor <= 0 || p.StorageFactor > 1 {
		return domain.Invalidf("storage factor must be in (0,1], got %v", p.StorageFactor)
	}
	return nil
}

// HourResult is one hour's worth of detail in the final report.
type HourResult struct {
	Hour             int
	PriceEURkWh      float64
	RainfallMMh      float64
	OptimalFraction  float64
	NaiveFraction    float64
	LevelEndOptimal  float64
	LevelEndNaive    float64
	CostOptimalEUR   float64
	CostNaiveEUR     float64
}

// MinuteSample is one minute of detailed simulation under a schedule.
type MinuteSample struct {
	MinuteIndex      int
	Hour             int
	LevelM           float64
	CumulativeCostEUR float64
}

// Result is the complete optimizer output.
type Result struct {
	Hours                []HourResult
	MinutesOptimal       []MinuteSample
	MinutesNaive         []MinuteSample
	TotalCostOptimalEUR  float64
	TotalCostNaiveEUR    float64
	SavingsEUR           float64
	SavingsPct           float64
	MaxDeviationOptimalCm float64
	MaxDeviationNaiveCm   float64
}

// pumpPowerKW computes P = rho*g*Q*H/eta/1000.
func pumpPowerKW(flowM3s, headM, efficiency float64) float64 {
	eff := efficiency
	if eff <= 0 {
		eff = 0.70
	}
	return 1000.0 * 9.81 * flowM3s * headM / eff / 1000.0
}

// simulateOneHour runs 60 one-minute water-balance steps at a fixed
// pump fraction and returns the level at the end of the hour.
func simulateOneHour(levelStart, fraction, maxDischarge, effectiveRain, area, evap, infil float64) float64 {
	discharge := fraction * maxDischarge
	level := levelStart
	for i := 0; i < 60; i++ {
		res := waterbalance.Step(waterbalance.Inputs{
			RainfallMMh:     effectiveRain,
			AreaM2:          area,
			LevelM:          level,
			DischargeM3s:    discharge,
			EvaporationMMh:  evap,
			InfiltrationMMh: infil,
		})
		level = res.NewLevel
	}
	return level
}

func wsToIndex(level, levelMin, step float64) (int, bool) {
	idx := math.Round((level - levelMin) / step)
	if idx < 0 {
		return 0, false
	}
	return int(idx), true
}

func indexToWs(idx int, levelMin, step float64) float64 {
	return levelMin + float64(idx)*step
}

func bandPenalty(level, levelMin, levelMax float64) float64 {
	var overshootCm float64
	switch {
	case level < levelMin:
		overshootCm = (levelMin - level) * 100
	case level > levelMax:
		overshootCm = (level - levelMax) * 100
	}
	return overshootCm * penaltyPerCm
}

// naivePumpFractions implements the reactive baseline: pump at 100% if
// currently above target, or if a no-pump simulation of the hour would
// overshoot target; otherwise 0%.
func naivePumpFractions(p Params, storage float64) [24]float64 {
	var fractions [24]float64
	level := p.TargetLevelM

	for hour := 0; hour < 24; hour++ {
		effectiveRain := p.RainfallMMh[hour] / storage

		noPumpEnd := simulateOneHour(level, 0.0, p.MaxDischargeM3s, effectiveRain, p.AreaM2, p.EvaporationMMh, p.InfiltrationMMh)

		switch {
		case level > p.TargetLevelM+0.001:
			fractions[hour] = 1.0
		case noPumpEnd > p.TargetLevelM+0.001:
			fractions[hour] = 1.0
		default:
			fractions[hour] = 0.0
		}

		level = simulateOneHour(level, fractions[hour], p.MaxDischargeM3s, effectiveRain, p.AreaM2, p.EvaporationMMh, p.InfiltrationMMh)
	}
	return fractions
}

// simulate24hDetailed replays a fixed 24-hour fraction schedule minute
// by minute, recording level and cumulative cost.
func simulate24hDetailed(p Params, storage float64, fractions [24]float64) ([]MinuteSample, float64) {
	samples := make([]MinuteSample, 0, 24*60)
	level := p.TargetLevelM
	cumCost := 0.0

	for hour := 0; hour < 24; hour++ {
		fraction := fractions[hour]
		discharge := fraction * p.MaxDischargeM3s
		effectiveRain := p.RainfallMMh[hour] / storage
		price := p.PricesEURkWh[hour]
		powerKW := pumpPowerKW(discharge, p.HeadM, p.Efficiency)

		for minute := 0; minute < 60; minute++ {
			res := waterbalance.Step(waterbalance.Inputs{
				RainfallMMh:     effectiveRain,
				AreaM2:          p.AreaM2,
				LevelM:          level,
				DischargeM3s:    discharge,
				EvaporationMMh:  p.EvaporationMMh,
				InfiltrationMMh: p.InfiltrationMMh,
			})
			cumCost += powerKW * price / 60.0

			samples = append(samples, MinuteSample{
				MinuteIndex:       hour*60 + minute,
				Hour:              hour,
				LevelM:            level,
				CumulativeCostEUR: cumCost,
			})
			level = res.NewLevel
		}
	}
	return samples, cumCost
}

// Solve runs the backward DP and forward reconstruction, then replays
// both schedules minute by minute to build the full report. It checks
// ctx at the start of each hour column (going backward) so a
// cancellation leaves no partial schedule: the caller's job is marked
// Cancelled and this returns a Cancelled error.
func Solve(ctx context.Context, p Params) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "optimizer.Solve")
	defer span.End()

	if err := p.Validate(); err != nil {
		tracing.RecordError(ctx, err)
		return Result{}, err
	}

	storage := p.StorageFactor
	levelMin := p.TargetLevelM - p.MarginM
	levelMax := p.TargetLevelM + p.MarginM

	var totalRain float64
	for _, r := range p.RainfallMMh {
		totalRain += r
	}
	maxRise := clamp(totalRain/storage/1000.0, minRiseM, maxRiseM)

	dpMin := levelMin - maxRise
	dpMax := levelMax + maxRise
	nLevels := int(math.Round((dpMax-dpMin)/levelStepM)) + 1

	nextCost := make([]float64, nLevels)
	for i := range nextCost {
		nextCost[i] = bandPenalty(indexToWs(i, dpMin, levelStepM), levelMin, levelMax)
	}

	bestFraction := make([][]float64, 24)
	for h := range bestFraction {
		bestFraction[h] = make([]float64, nLevels)
	}

	for hour := 23; hour >= 0; hour-- {
		select {
		case <-ctx.Done():
			return Result{}, domain.Cancelledf("optimization cancelled at hour %d", hour)
		default:
		}

		currentCost := make([]float64, nLevels)
		for i := range currentCost {
			currentCost[i] = math.Inf(1)
		}

		effectiveRain := p.RainfallMMh[hour] / storage
		price := p.PricesEURkWh[hour]

		for idx := 0; idx < nLevels; idx++ {
			level := indexToWs(idx, dpMin, levelStepM)

			for _, fraction := range PumpFractions {
				discharge := fraction * p.MaxDischargeM3s
				levelEnd := simulateOneHour(level, fraction, p.MaxDischargeM3s, effectiveRain, p.AreaM2, p.EvaporationMMh, p.InfiltrationMMh)

				endIdx, ok := wsToIndex(levelEnd, dpMin, levelStepM)
				if !ok || endIdx >= nLevels {
					continue
				}

				powerKW := pumpPowerKW(discharge, p.HeadM, p.Efficiency)
				hourCost := powerKW * price
				penalty := bandPenalty(levelEnd, levelMin, levelMax)
				total := hourCost + penalty + nextCost[endIdx]

				// PumpFractions is ascending, so the first fraction to reach
				// a given minimum is already the smallest one achieving it;
				// a strict improvement threshold preserves that tie-break
				// without extra bookkeeping.
				if total < currentCost[idx]-tieEpsilon {
					currentCost[idx] = total
					bestFraction[hour][idx] = fraction
				}
			}
		}
		nextCost = currentCost
	}

	startIdx, ok := wsToIndex(p.TargetLevelM, dpMin, levelStepM)
	if !ok || startIdx >= nLevels {
		return Result{}, domain.Invalidf("target level falls outside the DP state space")
	}

	var optimalFractions [24]float64
	level := p.TargetLevelM
	idx := startIdx
	for hour := 0; hour < 24; hour++ {
		fraction := bestFraction[hour][idx]
		optimalFractions[hour] = fraction

		effectiveRain := p.RainfallMMh[hour] / storage
		level = simulateOneHour(level, fraction, p.MaxDischargeM3s, effectiveRain, p.AreaM2, p.EvaporationMMh, p.InfiltrationMMh)
		next, ok := wsToIndex(level, dpMin, levelStepM)
		if !ok {
			next = 0
		}
		if next >= nLevels {
			next = nLevels - 1
		}
		idx = next
	}

	naiveFractions := naivePumpFractions(p, storage)

	minutesOptimal, costOptimal := simulate24hDetailed(p, storage, optimalFractions)
	minutesNaive, costNaive := simulate24hDetailed(p, storage, naiveFractions)

	hours := make([]HourResult, 24)
	var maxDevOptimal, maxDevNaive float64

	for hour := 0; hour < 24; hour++ {
		minuteEnd := (hour+1)*60 - 1
		levelEndOptimal := p.TargetLevelM
		levelEndNaive := p.TargetLevelM
		if minuteEnd < len(minutesOptimal) {
			levelEndOptimal = minutesOptimal[minuteEnd].LevelM
		}
		if minuteEnd < len(minutesNaive) {
			levelEndNaive = minutesNaive[minuteEnd].LevelM
		}

		dischargeOptimal := optimalFractions[hour] * p.MaxDischargeM3s
		dischargeNaive := naiveFractions[hour] * p.MaxDischargeM3s
		costOptHour := pumpPowerKW(dischargeOptimal, p.HeadM, p.Efficiency) * p.PricesEURkWh[hour]
		costNaiveHour := pumpPowerKW(dischargeNaive, p.HeadM, p.Efficiency) * p.PricesEURkWh[hour]

		for m := hour * 60; m < (hour+1)*60; m++ {
			if m < len(minutesOptimal) {
				dev := math.Abs(minutesOptimal[m].LevelM-p.TargetLevelM) * 100
				if dev > maxDevOptimal {
					maxDevOptimal = dev
				}
			}
			if m < len(minutesNaive) {
				dev := math.Abs(minutesNaive[m].LevelM-p.TargetLevelM) * 100
				if dev > maxDevNaive {
					maxDevNaive = dev
				}
			}
		}

		hours[hour] = HourResult{
			Hour:            hour,
			PriceEURkWh:     p.PricesEURkWh[hour],
			RainfallMMh:     p.RainfallMMh[hour],
			OptimalFraction: optimalFractions[hour],
			NaiveFraction:   naiveFractions[hour],
			LevelEndOptimal: levelEndOptimal,
			LevelEndNaive:   levelEndNaive,
			CostOptimalEUR:  costOptHour,
			CostNaiveEUR:    costNaiveHour,
		}
	}

	savings := costNaive - costOptimal
	var savingsPct float64
	if costNaive > 0.001 {
		savingsPct = savings / costNaive * 100
	}

	return Result{
		Hours:                 hours,
		MinutesOptimal:        minutesOptimal,
		MinutesNaive:          minutesNaive,
		TotalCostOptimalEUR:   costOptimal,
		TotalCostNaiveEUR:     costNaive,
		SavingsEUR:            savings,
		SavingsPct:            savingsPct,
		MaxDeviationOptimalCm: maxDevOptimal,
		MaxDeviationNaiveCm:   maxDevNaive,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
