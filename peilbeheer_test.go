package peilbeheer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopology_RejectsDisconnectedNetwork(t *testing.T) {
	topo := NewTopology()
	require.NoError(t, topo.AddPolder(PolderConfig{
		ID: "p1", AreaM2: 100000, TargetLevelM: -0.5, MarginM: 0.2, MaxDischargeM3s: 0.5,
	}))
	require.NoError(t, topo.AddPolder(PolderConfig{
		ID: "p2", AreaM2: 100000, TargetLevelM: -0.6, MarginM: 0.2, MaxDischargeM3s: 0.5,
	}))

	assert.Error(t, topo.Validate())
}

func TestOptimize_RejectsInvalidParams(t *testing.T) {
	_, err := Optimize(context.Background(), OptimizerParams{})
	assert.Error(t, err)
}

func TestRunScenario_RejectsEmptyID(t *testing.T) {
	_, err := RunScenario(context.Background(), Scenario{})
	assert.Error(t, err)
}

func TestAlertEngine_CreateThenGetRule(t *testing.T) {
	engine := NewAlertEngine(NewLogger("error", "test"), nil)

	rule := AlertRule{
		ID:       "rule-1",
		Name:     "high level",
		Category: "level",
		Severity: "warning",
		Conditions: []AlertCondition{
			{Field: "level_m", Operator: OpGt, Expected: ExpectedValue{Number: -0.3}},
		},
		Combinator:      "all",
		Enabled:         true,
		TitleTemplate:   "high level",
		MessageTemplate: "level exceeded",
	}
	require.NoError(t, engine.CreateRule(rule))

	fetched, err := engine.GetRule("rule-1")
	require.NoError(t, err)
	assert.Equal(t, rule.Name, fetched.Name)
}

func TestJobRuntime_SubmitAndGet(t *testing.T) {
	runtime := NewJobRuntime(NewLogger("error", "test"), 4)
	defer runtime.Shutdown()

	id, err := runtime.Submit(func(ctx Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
