package scenario

import (
	"context"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/network"
)

// Result is the replayed outcome of a scenario: one StepResult per
// one-minute tick across the full duration.
type Result struct {
	Scenario Scenario
	Steps    []network.StepResult
}

// Run validates and replays a scenario at waterbalance's native
// one-minute resolution (DurationHours * 60 steps), using the
// scenario's own discharge strategy.
func Run(ctx context.Context, s Scenario) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	topo, err := s.Topology.Build()
	if err != nil {
		return Result{}, err
	}

	steps, err := network.Run(ctx, topo, nil, s.rainfallAt, s.strategy(), s.DurationHours*60)
	if err != nil {
		return Result{}, err
	}

	return Result{Scenario: s, Steps: steps}, nil
}
