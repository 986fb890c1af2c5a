// Package scenario bundles a topology, per-polder rainfall series, and
// simulation parameters into a document that can be saved, reloaded,
// replayed, and exported for offline "what-if" analysis.
package scenario

import (
	"time"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/network"
)

// TopologySnapshot is the serializable form of a network.Topology: a
// flat list of polders and connections rather than the live id-keyed
// maps, so it round-trips cleanly through JSON.
type TopologySnapshot struct {
	Polders     []network.PolderConfig `json:"polders"`
	Connections []network.Connection   `json:"connections"`
}

// Snapshot captures a topology's current contents.
func Snapshot(t *network.Topology) TopologySnapshot {
	ids := t.PolderIDs()
	polders := make([]network.PolderConfig, 0, len(ids))
	for _, id := range ids {
		cfg, _ := t.Polder(id)
		polders = append(polders, cfg)
	}
	conns := t.Connections()
	return TopologySnapshot{Polders: polders, Connections: conns}
}

// Build reconstructs a live Topology, re-running every validation that
// AddPolder/AddConnection perform on insert.
func (s TopologySnapshot) Build() (*network.Topology, error) {
	topo := network.NewTopology()
	for _, p := range s.Polders {
		if err := topo.AddPolder(p); err != nil {
			return nil, err
		}
	}
	for _, c := range s.Connections {
		if err := topo.AddConnection(c); err != nil {
			return nil, err
		}
	}
	return topo, nil
}

// Strategy names a DischargeStrategy to use when replaying a scenario.
type Strategy string

const (
	StrategySimple   Strategy = "simple"
	StrategyBalanced Strategy = "balanced"
)

// Scenario is the full serializable unit: topology, one rainfall series
// per polder (one entry per hour), and the parameters governing replay.
type Scenario struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	CreatedAt     time.Time           `json:"created_at"`
	Topology      TopologySnapshot    `json:"topology"`
	RainfallMMh   map[string][]float64 `json:"rainfall_mmh"`
	DurationHours int                 `json:"duration_hours"`
	Strategy      Strategy            `json:"strategy"`
	BlendFactor   float64             `json:"blend_factor"`
	Metadata      map[string]string   `json:"metadata"`
}

// Validate checks that the topology is internally consistent and that
// every rainfall series references a known polder id and does not
// exceed the scenario's declared duration.
func (s Scenario) Validate() error {
	if s.ID == "" {
		return domain.Invalidf("scenario id must not be empty")
	}
	if s.DurationHours <= 0 {
		return domain.Invalidf("scenario %s: duration_hours must be > 0, got %d", s.ID, s.DurationHours)
	}

	topo, err := s.Topology.Build()
	if err != nil {
		return err
	}
	if err := topo.Validate(); err != nil {
		return err
	}

	known := make(map[string]bool, len(s.Topology.Polders))
	for _, p := range s.Topology.Polders {
		known[p.ID] = true
	}
	for polderID, series := range s.RainfallMMh {
		if !known[polderID] {
			return domain.Invalidf("scenario %s: rainfall series references unknown polder %s", s.ID, polderID)
		}
		if len(series) > s.DurationHours {
			return domain.Invalidf(
				"scenario %s: rainfall series for polder %s has length %d, exceeds duration_hours %d",
				s.ID, polderID, len(series), s.DurationHours)
		}
	}

	switch s.Strategy {
	case StrategySimple, StrategyBalanced, "":
	default:
		return domain.Invalidf("scenario %s: unknown discharge strategy %q", s.ID, s.Strategy)
	}

	return nil
}

func (s Scenario) strategy() network.DischargeStrategy {
	if s.Strategy == StrategyBalanced {
		return network.Balanced{BlendFactor: s.BlendFactor}
	}
	return network.Simple{}
}

// rainfallAt returns the per-polder rainfall rate applying at a given
// one-minute step index, holding the hour's rate constant across its
// 60 steps and treating a series shorter than DurationHours as zero
// beyond its last entry.
func (s Scenario) rainfallAt(step int) map[string]float64 {
	hour := step / 60
	out := make(map[string]float64, len(s.RainfallMMh))
	for polderID, series := range s.RainfallMMh {
		if hour < len(series) {
			out[polderID] = series[hour]
		}
	}
	return out
}
