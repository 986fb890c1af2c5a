package alerts

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rs/zerolog"
)

// Engine keeps the in-memory rule catalog and per-rule cooldown clock.
// Reads dominate writes (every Evaluate call reads every enabled rule),
// so both maps are xsync.MapOf rather than map+sync.RWMutex.
type Engine struct {
	log          zerolog.Logger
	rules        *xsync.MapOf[string, AlertRule]
	lastTrigger  *xsync.MapOf[string, time.Time]
	filterCache  *xsync.MapOf[string, *vm.Program]
	notify       NotificationSink
}

// NotificationSink receives triggered alerts for delivery to the rule's
// configured channels. Transport is out of scope; this is the seam.
type NotificationSink interface {
	Notify(alert Alert, channels []string)
}

type nopSink struct{}

func (nopSink) Notify(Alert, []string) {}

// NewEngine returns an empty engine. A nil sink is replaced with a
// no-op.
func NewEngine(log zerolog.Logger, sink NotificationSink) *Engine {
	if sink == nil {
		sink = nopSink{}
	}
	return &Engine{
		log:         log,
		rules:       xsync.NewMapOf[string, AlertRule](),
		lastTrigger: xsync.NewMapOf[string, time.Time](),
		filterCache: xsync.NewMapOf[string, *vm.Program](),
		notify:      sink,
	}
}

// CreateRule validates and inserts a new rule, rejecting a duplicate id.
func (e *Engine) CreateRule(rule AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if _, exists := e.rules.Load(rule.ID); exists {
		return domain.AlreadyExistsf("alert rule %s already exists", rule.ID)
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	e.rules.Store(rule.ID, rule)
	return nil
}

// UpdateRule validates and replaces an existing rule.
func (e *Engine) UpdateRule(rule AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	existing, ok := e.rules.Load(rule.ID)
	if !ok {
		return domain.NotFoundf("alert rule %s not found", rule.ID)
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	e.rules.Store(rule.ID, rule)
	return nil
}

// DeleteRule removes a rule by id.
func (e *Engine) DeleteRule(id string) error {
	if _, ok := e.rules.Load(id); !ok {
		return domain.NotFoundf("alert rule %s not found", id)
	}
	e.rules.Delete(id)
	return nil
}

// GetRule looks up a rule by id.
func (e *Engine) GetRule(id string) (AlertRule, error) {
	rule, ok := e.rules.Load(id)
	if !ok {
		return AlertRule{}, domain.NotFoundf("alert rule %s not found", id)
	}
	return rule, nil
}

// EvalOutcome reports what happened for one rule during an Evaluate
// call.
type EvalOutcome struct {
	RuleID    string
	Triggered bool
	Alert     *Alert
	SkipReason string
}

// Evaluate iterates every enabled rule against ctx at instant now,
// minting an Alert for each rule whose conditions are met and whose
// cooldown has elapsed.
func (e *Engine) Evaluate(ctx Context, now time.Time) []EvalOutcome {
	var outcomes []EvalOutcome

	e.rules.Range(func(id string, rule AlertRule) bool {
		if !rule.Enabled {
			return true
		}

		if rule.SourceFilterFails(e, ctx) {
			outcomes = append(outcomes, EvalOutcome{RuleID: id, SkipReason: "source filter not met"})
			return true
		}

		met := e.evaluateConditions(rule, ctx)
		if !met {
			outcomes = append(outcomes, EvalOutcome{RuleID: id, SkipReason: "conditions not met"})
			return true
		}

		if last, ok := e.lastTrigger.Load(id); ok {
			elapsed := now.Sub(last)
			if elapsed < time.Duration(rule.CooldownSeconds)*time.Second {
				outcomes = append(outcomes, EvalOutcome{RuleID: id, SkipReason: "in cooldown"})
				return true
			}
		}

		alert := e.mintAlert(rule, ctx, now)
		e.lastTrigger.Store(id, now)
		e.notify.Notify(alert, rule.NotificationChans)

		outcomes = append(outcomes, EvalOutcome{RuleID: id, Triggered: true, Alert: &alert})
		return true
	})

	return outcomes
}

// SourceFilterFails reports whether the rule's optional expr-lang
// source filter is configured and evaluates to false for ctx.Source.
// A rule without a filter always passes.
func (r AlertRule) SourceFilterFails(e *Engine, ctx Context) bool {
	for _, c := range r.Conditions {
		if c.SourceFilter == "" {
			continue
		}
		ok, err := e.evalSourceFilter(c.SourceFilter, ctx.Source)
		if err != nil {
			e.log.Warn().Err(err).Str("filter", c.SourceFilter).Msg("source filter evaluation failed")
			return true
		}
		if !ok {
			return true
		}
	}
	return false
}

func (e *Engine) evalSourceFilter(filterExpr, source string) (bool, error) {
	program, ok := e.filterCache.Load(filterExpr)
	if !ok {
		compiled, err := expr.Compile(filterExpr, expr.Env(map[string]any{"source": ""}), expr.AsBool())
		if err != nil {
			return false, fmt.Errorf("compile source filter: %w", err)
		}
		program = compiled
		e.filterCache.Store(filterExpr, program)
	}

	out, err := expr.Run(program, map[string]any{"source": source})
	if err != nil {
		return false, fmt.Errorf("run source filter: %w", err)
	}
	result, _ := out.(bool)
	return result, nil
}

func (e *Engine) evaluateConditions(rule AlertRule, ctx Context) bool {
	results := make([]bool, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		results = append(results, e.evaluateCondition(c, ctx))
	}

	switch rule.Combinator {
	case CombinatorAny:
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	default: // CombinatorAll
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	}
}

func (e *Engine) evaluateCondition(c Condition, ctx Context) bool {
	actual, present := ctx.Values[c.Field]
	if !present && c.Window > 0 {
		if series, ok := ctx.TimeSeries[c.Field]; ok {
			if v, ok := aggregate(series, c.Aggregation, c.Window); ok {
				actual, present = v, true
			}
		}
	}
	return evaluateOperator(c.Operator, actual, present, c.Expected)
}

func (e *Engine) mintAlert(rule AlertRule, ctx Context, now time.Time) Alert {
	vars := templateVars(rule, ctx)
	alertCtx := make(map[string]any, len(ctx.Values))
	for k, v := range ctx.Values {
		alertCtx[k] = v
	}

	return Alert{
		ID:          fmt.Sprintf("ALT_%s_%d", rule.ID, now.Unix()),
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Category:    rule.Category,
		Severity:    rule.Severity,
		Title:       renderTemplate(rule.TitleTemplate, vars),
		Message:     renderTemplate(rule.MessageTemplate, vars),
		Status:      StatusActive,
		TriggeredAt: now,
		Context:     alertCtx,
	}
}
