package scenario

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePolder(id string, target float64) network.PolderConfig {
	return network.PolderConfig{
		ID:              id,
		AreaM2:          100000,
		TargetLevelM:    target,
		MarginM:         0.20,
		GroundLevelM:    target + 1,
		MaxDischargeM3s: 0.5,
	}
}

func twoPolderScenario() Scenario {
	return Scenario{
		ID:   "sc-1",
		Name: "two polder test",
		Topology: TopologySnapshot{
			Polders: []network.PolderConfig{samplePolder("p1", -0.60), samplePolder("p2", -0.50)},
			Connections: []network.Connection{
				{ID: "c1", Kind: network.ConnectionOpenLink, SourceID: "p1", DestinationID: "p2", CapacityM3s: 0.1},
			},
		},
		RainfallMMh: map[string][]float64{
			"p1": {0, 0, 5, 5},
			"p2": {0, 0, 0, 0},
		},
		DurationHours: 4,
		Strategy:      StrategySimple,
		Metadata:      map[string]string{"source": "test"},
	}
}

func TestScenario_ValidateRejectsUnknownRainfallPolder(t *testing.T) {
	s := twoPolderScenario()
	s.RainfallMMh["p3"] = []float64{1}
	err := s.Validate()
	assert.Error(t, err)
}

func TestScenario_ValidateRejectsOverlongRainfallSeries(t *testing.T) {
	s := twoPolderScenario()
	s.RainfallMMh["p1"] = make([]float64, s.DurationHours+1)
	err := s.Validate()
	assert.Error(t, err)
}

func TestScenario_ValidateRejectsDisconnectedTopology(t *testing.T) {
	s := twoPolderScenario()
	s.Topology.Polders = append(s.Topology.Polders, samplePolder("p3", -0.40))
	err := s.Validate()
	assert.Error(t, err)
}

func TestScenario_SerializeDeserializeRoundTrip(t *testing.T) {
	s := twoPolderScenario()
	s.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out Scenario
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, s, out)
}

func TestRun_ProducesOneStepPerMinute(t *testing.T) {
	s := twoPolderScenario()
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, result.Steps, s.DurationHours*60)
}

func TestExportCSV_HeaderRoundTripsToConfiguredDecimals(t *testing.T) {
	s := twoPolderScenario()
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	out, err := ExportCSV(result, CSVOptions{Header: true, Decimals: 4})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, len(result.Steps)+1, len(lines))
	assert.Contains(t, lines[0], "p1_level_m")
	assert.Contains(t, lines[0], "p2_pump_active")
}

func TestExportCSV_RejectsEmptyResult(t *testing.T) {
	_, err := ExportCSV(Result{Scenario: twoPolderScenario()}, CSVOptions{})
	assert.Error(t, err)
}

func TestExportJSON_ProducesParseableDocument(t *testing.T) {
	s := twoPolderScenario()
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	data, err := ExportJSON(result)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "scenario")
	assert.Contains(t, doc, "steps")
}

func TestSummarize_RejectsEmptyResult(t *testing.T) {
	_, err := Summarize(Result{Scenario: twoPolderScenario()})
	assert.Error(t, err)
}

func TestSummarize_ComputesPerPolderStats(t *testing.T) {
	s := twoPolderScenario()
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	summary, err := Summarize(result)
	require.NoError(t, err)

	p1 := summary.Polders["p1"]
	assert.LessOrEqual(t, p1.MinLevelM, p1.AvgLevelM)
	assert.LessOrEqual(t, p1.AvgLevelM, p1.MaxLevelM)
	assert.Greater(t, p1.MeanRainfallMMh, 0.0)
}

// p1 starts at its target level, gains water over the open link from
// p2 (whose target is higher), and gets two hours of rain at the end.
// The Simple strategy pumps only on steps where p1 sits above its target
// level, so PumpHours must show some discharging, but not for the whole
// scenario.
func TestSummarize_PumpHoursTracksActualDischarge(t *testing.T) {
	s := twoPolderScenario()
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	summary, err := Summarize(result)
	require.NoError(t, err)

	p1 := summary.Polders["p1"]
	assert.Greater(t, p1.PumpHours, 0.0)
	assert.Less(t, p1.PumpHours, float64(s.DurationHours))
}

func TestExportCSV_PumpActiveColumnVariesPerStep(t *testing.T) {
	s := twoPolderScenario()
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	out, err := ExportCSV(result, CSVOptions{Header: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	header := strings.Split(lines[0], ",")
	col := -1
	for i, name := range header {
		if name == "p1_pump_active" {
			col = i
			break
		}
	}
	require.GreaterOrEqual(t, col, 0)

	sawInactive, sawActive := false, false
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		switch fields[col] {
		case "0":
			sawInactive = true
		case "1":
			sawActive = true
		}
	}
	assert.True(t, sawInactive, "expected at least one step with no discharge")
	assert.True(t, sawActive, "expected at least one step with discharge")
}
