package scenario

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/network"
)

// CSVOptions configures ExportCSV. A zero value is valid: comma
// separator, no header row, 3 decimals.
type CSVOptions struct {
	Separator rune
	Header    bool
	Decimals  int
}

func (o CSVOptions) withDefaults() CSVOptions {
	if o.Separator == 0 {
		o.Separator = ','
	}
	if o.Decimals == 0 {
		o.Decimals = 3
	}
	return o
}

// pumpActiveThreshold is the minimum discharge, in m3/s, below which a
// step's outflow is treated as no pump running.
const pumpActiveThreshold = 0.001

// ExportCSV renders one row per time step, with one column block per
// polder (level, in-flow, out-flow, external discharge, rainfall, pump
// active), with the polder blocks sorted by polder id.
func ExportCSV(r Result, opts CSVOptions) (string, error) {
	if len(r.Steps) == 0 {
		return "", domain.NoDataf("scenario %s: cannot export an empty result set", r.Scenario.ID)
	}
	opts = opts.withDefaults()

	polderIDs := make([]string, 0, len(r.Scenario.Topology.Polders))
	for _, p := range r.Scenario.Topology.Polders {
		polderIDs = append(polderIDs, p.ID)
	}
	sort.Strings(polderIDs)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Comma = opts.Separator

	if opts.Header {
		header := []string{"step"}
		for _, id := range polderIDs {
			header = append(header,
				id+"_level_m", id+"_in_m3s", id+"_out_m3s", id+"_discharge_m3s", id+"_rainfall_mmh", id+"_pump_active")
		}
		if err := w.Write(header); err != nil {
			return "", err
		}
	}

	for stepIdx, step := range r.Steps {
		byPolder := make(map[string]network.PolderStatus, len(step.Statuses))
		for _, st := range step.Statuses {
			byPolder[st.PolderID] = st
		}

		row := []string{strconv.Itoa(stepIdx)}
		for _, id := range polderIDs {
			st := byPolder[id]
			rainfall := r.Scenario.rainfallAt(stepIdx)[id]
			pumpActive := "0"
			if st.ExternalDischarge > pumpActiveThreshold {
				pumpActive = "1"
			}
			row = append(row,
				formatDecimal(st.LevelM, opts.Decimals),
				formatDecimal(st.IncomingFlowM3s, opts.Decimals),
				formatDecimal(st.OutgoingFlowM3s, opts.Decimals),
				formatDecimal(st.ExternalDischarge, opts.Decimals),
				formatDecimal(rainfall, opts.Decimals),
				pumpActive,
			)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatDecimal(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// exportDoc is the JSON export shape: scenario metadata alongside the
// full per-step replay.
type exportDoc struct {
	Scenario Scenario              `json:"scenario"`
	Steps    []network.StepResult  `json:"steps"`
}

// ExportJSON renders the scenario and its replayed steps as a single
// JSON document.
func ExportJSON(r Result) ([]byte, error) {
	if len(r.Steps) == 0 {
		return nil, domain.NoDataf("scenario %s: cannot export an empty result set", r.Scenario.ID)
	}
	data, err := json.Marshal(exportDoc{Scenario: r.Scenario, Steps: r.Steps})
	if err != nil {
		return nil, fmt.Errorf("marshal scenario export: %w", err)
	}
	return data, nil
}
