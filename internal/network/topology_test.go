package network

import (
	"testing"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func polderA() PolderConfig {
	return PolderConfig{ID: "A", AreaM2: 100000, TargetLevelM: -0.5, MarginM: 0.2, MaxDischargeM3s: 0.5}
}

func polderB() PolderConfig {
	return PolderConfig{ID: "B", AreaM2: 100000, TargetLevelM: -0.5, MarginM: 0.2, MaxDischargeM3s: 0.5}
}

func TestTopology_RejectsNonPositiveArea(t *testing.T) {
	topo := NewTopology()
	err := topo.AddPolder(PolderConfig{ID: "A", AreaM2: 0})
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.ErrCodeInvalid))
}

func TestTopology_RejectsSelfLoop(t *testing.T) {
	topo := NewTopology()
	require.NoError(t, topo.AddPolder(polderA()))
	err := topo.AddConnection(Connection{ID: "c1", Kind: ConnectionOpenLink, SourceID: "A", DestinationID: "A", CapacityM3s: 1})
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.ErrCodeInvalid))
}

func TestTopology_RejectsAntiParallelConnection(t *testing.T) {
	topo := NewTopology()
	require.NoError(t, topo.AddPolder(polderA()))
	require.NoError(t, topo.AddPolder(polderB()))
	require.NoError(t, topo.AddConnection(Connection{ID: "c1", Kind: ConnectionOpenLink, SourceID: "A", DestinationID: "B", CapacityM3s: 1}))

	err := topo.AddConnection(Connection{ID: "c2", Kind: ConnectionOpenLink, SourceID: "B", DestinationID: "A", CapacityM3s: 1})
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.ErrCodeConstraintViolation))
}

func TestTopology_ValidateRequiresConnectivity(t *testing.T) {
	topo := NewTopology()
	require.NoError(t, topo.AddPolder(polderA()))
	require.NoError(t, topo.AddPolder(polderB()))

	err := topo.Validate()
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.ErrCodeConstraintViolation))

	require.NoError(t, topo.AddConnection(Connection{ID: "c1", Kind: ConnectionOpenLink, SourceID: "A", DestinationID: "B", CapacityM3s: 1}))
	assert.NoError(t, topo.Validate())
}

func TestConnection_OverflowPassivityScenario(t *testing.T) {
	overflow := Connection{
		ID: "weir", Kind: ConnectionOverflow, SourceID: "A", DestinationID: "B",
		CapacityM3s: 0.3, OverflowThresholdM: -0.50,
	}

	flowAbove := overflow.Evaluate(-0.45, -0.70)
	assert.Greater(t, flowAbove.ValueM3s, 0.0)
	assert.Equal(t, FlowForward, flowAbove.Direction)

	flowBelow := overflow.Evaluate(-0.55, -0.70)
	assert.Equal(t, 0.0, flowBelow.ValueM3s)
	assert.Equal(t, FlowNone, flowBelow.Direction)
}

func TestConnection_CheckValveOneWay(t *testing.T) {
	valve := Connection{ID: "v1", Kind: ConnectionCheckValve, SourceID: "A", DestinationID: "B", CapacityM3s: 1}
	assert.True(t, valve.Kind.IsOneWay())
	assert.True(t, valve.Kind.IsPassive())

	flow := valve.Evaluate(-0.3, -0.5)
	assert.Greater(t, flow.ValueM3s, 0.0)

	reverse := valve.Evaluate(-0.5, -0.3)
	assert.Equal(t, 0.0, reverse.ValueM3s)
}

func TestConnection_PumpPowerKW(t *testing.T) {
	pump := Connection{ID: "p1", Kind: ConnectionPump, HeadM: 2, Efficiency: 0.7, CapacityM3s: 0.5}
	power, ok := pump.PumpPowerKW(0.5)
	require.True(t, ok)
	assert.InDelta(t, 1000*9.81*0.5*2/0.7/1000, power, 1e-9)

	_, ok = (Connection{Kind: ConnectionOpenLink}).PumpPowerKW(0.2)
	assert.False(t, ok)
}
