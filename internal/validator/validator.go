// Package validator runs rules against their data sources and aggregates the
// detections of one validation run.
package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/detection"
	"github.com/sbenjam1n/validb/internal/rule"
	"github.com/sbenjam1n/validb/internal/vars"
)

// State is the lifecycle state of a run.
type State int

const (
	Running State = iota
	Finished
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RuleReport describes what one rule contributed to a run.
type RuleReport struct {
	Rule       string
	Level      int
	Detections int
	// Truncated is set on the rule whose detections hit the limit.
	Truncated bool
}

// Result is the outcome of a run.
type Result struct {
	State   State
	Data    *detection.Data
	Reports []RuleReport
	// Skipped lists, in execution order, the rules never run because the
	// detection limit was reached.
	Skipped []string
}

// Validator executes rules in descending level order.
type Validator struct {
	sources      *datasource.Set
	embedders    map[string]vars.Extender
	limit        detection.Limit
	newDetection detection.Constructor
	logger       hclog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithEmbedders sets the extenders rules refer to by name.
func WithEmbedders(embedders map[string]vars.Extender) Option {
	return func(v *Validator) { v.embedders = embedders }
}

// WithLimit caps the number of detections of a run.
func WithLimit(limit detection.Limit) Option {
	return func(v *Validator) { v.limit = limit }
}

// WithConstructor sets how detections are built.
func WithConstructor(c detection.Constructor) Option {
	return func(v *Validator) {
		if c != nil {
			v.newDetection = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a Validator over sources.
func New(sources *datasource.Set, opts ...Option) *Validator {
	v := &Validator{
		sources:      sources,
		limit:        detection.Unlimited(),
		newDetection: detection.New,
		logger:       hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every rule once, highest level first, in a single pass.
//
// Reaching the detection limit ends the run successfully: remaining rules
// are skipped and Result.Data reports TooManyDetection. Any other failure,
// such as a *errs.DataAccessError, aborts the run and is returned as is.
func (v *Validator) Validate(ctx context.Context, rules []rule.Rule) (*Result, error) {
	res := &Result{State: Running, Data: detection.NewData(v.limit)}
	v.logger.Info("validation started", "state", res.State, "rules", len(rules), "limit", v.limit)

	ordered := rule.SortByLevel(rules)
	for i, r := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := rule.Describe(r)
		v.logger.Debug("running rule", "rule", name, "level", r.Level(), "datasource", r.DataSourceName())

		dets, err := r.Exec(ctx, v.sources, v.embedders, v.newDetection)
		if err != nil {
			v.logger.Error("rule failed", "rule", name, "error", err)
			return nil, err
		}

		report := RuleReport{Rule: name, Level: r.Level()}
		for _, d := range dets {
			if err := res.Data.Append(d); err != nil {
				if !errors.Is(err, detection.ErrCapacityExceeded) {
					return nil, err
				}
				report.Truncated = true
				break
			}
			report.Detections++
		}
		res.Reports = append(res.Reports, report)
		v.logger.Info("rule finished", "rule", name, "level", r.Level(), "detections", report.Detections)

		if report.Truncated {
			for _, rest := range ordered[i+1:] {
				res.Skipped = append(res.Skipped, rule.Describe(rest))
			}
			v.logger.Warn("detection limit reached, stopping",
				"limit", v.limit, "rule", name, "skipped_rules", len(res.Skipped))
			break
		}
	}

	res.State = Finished
	v.logger.Info("validation finished", "state", res.State,
		"detections", res.Data.Count(), "too_many_detection", res.Data.TooManyDetection())
	return res, nil
}
