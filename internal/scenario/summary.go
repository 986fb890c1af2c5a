package scenario

import (
	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
)

// PolderSummary is the per-polder slice of Summary.
type PolderSummary struct {
	PolderID     string
	MinLevelM    float64
	MaxLevelM    float64
	AvgLevelM    float64
	TotalDischargeM3 float64
	PumpHours    float64
	MeanRainfallMMh float64
}

// Summary aggregates a replayed scenario into per-polder statistics.
type Summary struct {
	ScenarioID string
	Polders    map[string]PolderSummary
}

// Summarize derives min/max/avg level, total discharge volume,
// pump-hours, and mean rainfall per polder. An empty result set returns
// a NoData error rather than a zero-valued summary.
func Summarize(r Result) (Summary, error) {
	if len(r.Steps) == 0 {
		return Summary{}, domain.NoDataf("scenario %s: cannot summarize an empty result set", r.Scenario.ID)
	}

	type acc struct {
		min, max, sum     float64
		n                 int
		totalDischargeM3  float64
		pumpSeconds       float64
		rainSum           float64
		rainN             int
		haveLevel         bool
	}
	accs := make(map[string]*acc)

	const stepSeconds = 60.0

	for stepIdx, step := range r.Steps {
		rainfall := r.Scenario.rainfallAt(stepIdx)
		for _, st := range step.Statuses {
			a, ok := accs[st.PolderID]
			if !ok {
				a = &acc{}
				accs[st.PolderID] = a
			}
			if !a.haveLevel {
				a.min, a.max = st.LevelM, st.LevelM
				a.haveLevel = true
			}
			if st.LevelM < a.min {
				a.min = st.LevelM
			}
			if st.LevelM > a.max {
				a.max = st.LevelM
			}
			a.sum += st.LevelM
			a.n++

			a.totalDischargeM3 += st.ExternalDischarge * stepSeconds
			if st.ExternalDischarge > pumpActiveThreshold {
				a.pumpSeconds += stepSeconds
			}
			if rate, ok := rainfall[st.PolderID]; ok {
				a.rainSum += rate
				a.rainN++
			}
		}
	}

	polders := make(map[string]PolderSummary, len(accs))
	for id, a := range accs {
		ps := PolderSummary{
			PolderID:         id,
			MinLevelM:        a.min,
			MaxLevelM:        a.max,
			TotalDischargeM3: a.totalDischargeM3,
			PumpHours:        a.pumpSeconds / 3600.0,
		}
		if a.n > 0 {
			ps.AvgLevelM = a.sum / float64(a.n)
		}
		if a.rainN > 0 {
			ps.MeanRainfallMMh = a.rainSum / float64(a.rainN)
		}
		polders[id] = ps
	}

	return Summary{ScenarioID: r.Scenario.ID, Polders: polders}, nil
}
