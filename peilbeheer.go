// Package peilbeheer is the public facade over the polder water-level
// management subsystems: network simulation, pump-schedule
// optimization, the time-series store, the alert rule engine, scenario
// replay, and background job execution.
package peilbeheer

import (
	"context"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/alerts"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/jobs"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/network"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/optimizer"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/scenario"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/timeseries"
	"github.com/rs/zerolog"
)

// Topology is a polder network: polders plus the connections between
// them.
type Topology = network.Topology

// PolderConfig describes one polder's geometry and target band.
type PolderConfig = network.PolderConfig

// Connection is a directed link between two polders of a topology.
type Connection = network.Connection

// ConnectionKind tags a connection's physical behavior.
type ConnectionKind = network.ConnectionKind

// Connection kind constants, re-exported for callers that only import
// the facade package.
const (
	ConnectionPump       = network.ConnectionPump
	ConnectionOverflow   = network.ConnectionOverflow
	ConnectionCheckValve = network.ConnectionCheckValve
	ConnectionOpenLink   = network.ConnectionOpenLink
)

// DischargeStrategy decides a polder's discharge rate for one step.
type DischargeStrategy = network.DischargeStrategy

// Discharge strategies.
type (
	SimpleStrategy   = network.Simple
	BalancedStrategy = network.Balanced
)

// StepResult is one simulated minute's outcome.
type StepResult = network.StepResult

// PolderStatus is one polder's state within a StepResult.
type PolderStatus = network.PolderStatus

// NewTopology returns an empty network topology.
func NewTopology() *Topology { return network.NewTopology() }

// OptimizerParams configures a 24-hour pump-schedule optimization.
type OptimizerParams = optimizer.Params

// OptimizerResult is the outcome of Optimize.
type OptimizerResult = optimizer.Result

// Optimize runs the dynamic-program pump-schedule solve described in
// component C5.
func Optimize(ctx Context, p OptimizerParams) (OptimizerResult, error) {
	return optimizer.Solve(ctx, p)
}

// Context is the standard context type, re-exported for convenience.
type Context = context.Context

// SeriesKey identifies one time series by location, parameter, and an
// optional qualifier.
type SeriesKey = timeseries.SeriesKey

// Point is a single time-series observation.
type Point = timeseries.Point

// RegisterInput describes a series to register in the catalog.
type RegisterInput = timeseries.RegisterInput

// WriteBatch is one call's worth of points for a single series.
type WriteBatch = timeseries.WriteBatch

// Query describes a range read against a Store.
type Query = timeseries.Query

// Store is the full time-series persistence contract: catalog
// register, write, range query, listing, and retention sweep.
type Store = timeseries.Store

// Quality re-exports the point quality tags.
type Quality = timeseries.Quality

// Quality tag constants.
const (
	QualityGood         = timeseries.QualityGood
	QualityQuestionable = timeseries.QualityQuestionable
	QualityBad          = timeseries.QualityBad
	QualityMissing      = timeseries.QualityMissing
	QualityInterpolated = timeseries.QualityInterpolated
)

// NewMemoryStore returns an in-memory Store, suitable for testing and
// single-process deployments without Postgres.
func NewMemoryStore(log Logger, queueCapacity int) Store {
	return timeseries.NewMemoryStore(log, queueCapacity)
}

// Logger is the structured logger every component accepts.
type Logger = zerolog.Logger

// AlertRule is a CRUD entity describing when to raise an alert.
type AlertRule = alerts.AlertRule

// AlertCondition is one clause of a rule.
type AlertCondition = alerts.Condition

// ExpectedValue is a condition's tagged comparison operand.
type ExpectedValue = alerts.ExpectedValue

// Operator re-exports the condition comparison operators.
type Operator = alerts.Operator

// Operator constants.
const (
	OpEq          = alerts.OpEq
	OpNe          = alerts.OpNe
	OpGt          = alerts.OpGt
	OpGte         = alerts.OpGte
	OpLt          = alerts.OpLt
	OpLte         = alerts.OpLte
	OpContains    = alerts.OpContains
	OpNotContains = alerts.OpNotContains
	OpIsNull      = alerts.OpIsNull
	OpIsNotNull   = alerts.OpIsNotNull
)

// Alert is a triggered rule instance.
type Alert = alerts.Alert

// AlertEngine holds the rule catalog and cooldown clock described in
// component C6.
type AlertEngine = alerts.Engine

// NewAlertEngine returns an empty alert engine. A nil sink receives no
// notifications.
func NewAlertEngine(log Logger, sink alerts.NotificationSink) *AlertEngine {
	return alerts.NewEngine(log, sink)
}

// Scenario bundles a topology, per-polder rainfall series, and
// simulation parameters for replay, per component C7.
type Scenario = scenario.Scenario

// ScenarioResult is the replayed outcome of a Scenario.
type ScenarioResult = scenario.Result

// RunScenario validates and replays a scenario at one-minute
// resolution.
func RunScenario(ctx Context, s Scenario) (ScenarioResult, error) {
	return scenario.Run(ctx, s)
}

// Job is a submitted unit of background work and its terminal state.
type Job = jobs.Job

// JobRuntime executes submitted functions on a single worker goroutine
// fed by a bounded queue.
type JobRuntime = jobs.Runtime

// NewJobRuntime returns a job runtime backed by a single worker reading
// off a queue of the given capacity.
func NewJobRuntime(log Logger, queueCapacity int) *JobRuntime {
	return jobs.NewRuntime(log, queueCapacity)
}
