package network

import (
	"context"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/infrastructure/tracing"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/waterbalance"
)

// DischargeStrategy decides how much external discharge (beyond the
// connection flows) a polder applies during one simulation step.
type DischargeStrategy interface {
	Discharge(cfg PolderConfig, level, rainfallMMh, incomingFlowM3s float64) float64
}

// Simple pumps at max discharge capacity whenever the level exceeds
// target, otherwise discharges nothing.
type Simple struct{}

func (Simple) Discharge(cfg PolderConfig, level, _, _ float64) float64 {
	if level > cfg.TargetLevelM {
		return cfg.MaxDischargeM3s
	}
	return 0
}

// Balanced scales discharge by how far above target the level sits,
// clamped to [0,1] of max capacity, and blends in a fraction f of the
// incoming connection flow to anticipate upstream inflow.
type Balanced struct {
	BlendFactor float64 // f in [0,1]
}

func (b Balanced) Discharge(cfg PolderConfig, level, _, incomingFlowM3s float64) float64 {
	var fraction float64
	if cfg.MarginM > 0 {
		fraction = (level - cfg.TargetLevelM) / cfg.MarginM
	}
	fraction = clamp01(fraction)

	base := fraction * cfg.MaxDischargeM3s
	blended := base*(1-b.BlendFactor) + incomingFlowM3s*b.BlendFactor
	if blended < 0 {
		return 0
	}
	if blended > cfg.MaxDischargeM3s {
		return cfg.MaxDischargeM3s
	}
	return blended
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Simulator owns a mutable level map over a borrowed topology snapshot.
type Simulator struct {
	topology *Topology
	levels   map[string]float64
	clockS   float64
}

// NewSimulator seeds every polder at its target level unless overridden
// by initialLevels.
func NewSimulator(topo *Topology, initialLevels map[string]float64) *Simulator {
	levels := make(map[string]float64, len(topo.polders))
	for id, cfg := range topo.polders {
		if v, ok := initialLevels[id]; ok {
			levels[id] = v
		} else {
			levels[id] = cfg.TargetLevelM
		}
	}
	return &Simulator{topology: topo, levels: levels}
}

// Levels returns a copy of the current per-polder levels.
func (s *Simulator) Levels() map[string]float64 {
	out := make(map[string]float64, len(s.levels))
	for k, v := range s.levels {
		out[k] = v
	}
	return out
}

// PolderStatus is the per-polder snapshot returned by one Step.
type PolderStatus struct {
	PolderID          string
	LevelM            float64
	InBand            bool
	IncomingFlowM3s   float64
	OutgoingFlowM3s   float64
	ExternalDischarge float64
}

// StepResult is returned by one call to Step.
type StepResult struct {
	Statuses []PolderStatus
	Flows    []Flow
	Warnings []string
	ClockS   float64
}

// Step advances the simulation by one waterbalance.StepSeconds tick
// given per-polder rainfall and a discharge strategy. Iteration order
// over polders is sorted by id for determinism.
func (s *Simulator) Step(rainfallMMh map[string]float64, strategy DischargeStrategy) (StepResult, error) {
	ids := s.topology.PolderIDs()
	connections := s.topology.Connections()

	flows := make([]Flow, 0, len(connections))
	incoming := make(map[string]float64, len(ids))
	outgoing := make(map[string]float64, len(ids))

	for _, c := range connections {
		hSrc := s.levels[c.SourceID]
		hDst := s.levels[c.DestinationID]
		flow := c.Evaluate(hSrc, hDst)
		flows = append(flows, flow)

		switch flow.Direction {
		case FlowForward:
			outgoing[c.SourceID] += flow.ValueM3s
			incoming[c.DestinationID] += flow.ValueM3s
		case FlowReverse:
			outgoing[c.DestinationID] += flow.ValueM3s
			incoming[c.SourceID] += flow.ValueM3s
		}
	}

	statuses := make([]PolderStatus, 0, len(ids))
	var warnings []string
	newLevels := make(map[string]float64, len(ids))

	for _, id := range ids {
		cfg, err := s.topology.Polder(id)
		if err != nil {
			return StepResult{}, err
		}
		level := s.levels[id]
		rain := rainfallMMh[id]

		external := strategy.Discharge(cfg, level, rain, incoming[id])
		totalDischarge := outgoing[id] + external

		res := waterbalance.Step(waterbalance.Inputs{
			RainfallMMh:     rain,
			AreaM2:          cfg.AreaM2,
			LevelM:          level,
			DischargeM3s:    totalDischarge,
			EvaporationMMh:  cfg.EvaporationMMh,
			InfiltrationMMh: cfg.InfiltrationMMh,
		})

		newLevels[id] = res.NewLevel
		inBand := cfg.InBand(res.NewLevel)
		if !inBand {
			warnings = append(warnings, "polder "+id+" left its regulatory band")
		}

		statuses = append(statuses, PolderStatus{
			PolderID:          id,
			LevelM:            res.NewLevel,
			InBand:            inBand,
			IncomingFlowM3s:   incoming[id],
			OutgoingFlowM3s:   outgoing[id],
			ExternalDischarge: external,
		})
	}

	s.levels = newLevels
	s.clockS += waterbalance.StepSeconds

	return StepResult{Statuses: statuses, Flows: flows, Warnings: warnings, ClockS: s.clockS}, nil
}

// Run validates the topology once, then steps the simulation nSteps
// times, returning one StepResult per step. ctx is checked for
// cancellation between steps; a cancelled ctx aborts the run with no
// partial result.
func Run(ctx context.Context, topo *Topology, initialLevels map[string]float64, rainfallMMh func(step int) map[string]float64, strategy DischargeStrategy, nSteps int) ([]StepResult, error) {
	ctx, span := tracing.StartSpan(ctx, "network.Run")
	defer span.End()

	if err := topo.Validate(); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	if nSteps < 0 {
		return nil, domain.Invalidf("nSteps must be >= 0, got %d", nSteps)
	}

	sim := NewSimulator(topo, initialLevels)
	results := make([]StepResult, 0, nSteps)
	for i := 0; i < nSteps; i++ {
		select {
		case <-ctx.Done():
			return nil, domain.Cancelledf("network simulation cancelled after %d of %d steps", i, nSteps)
		default:
		}
		res, err := sim.Step(rainfallMMh(i), strategy)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
