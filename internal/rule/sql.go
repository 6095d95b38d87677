package rule

import (
	"context"
	"fmt"
	"slices"

	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/detection"
	"github.com/sbenjam1n/validb/internal/errs"
	"github.com/sbenjam1n/validb/internal/vars"
)

// BagFunc computes a value from a row's variables.
type BagFunc func(b vars.Bag) (string, error)

// SQLRuleConfig configures a SQLRule.
type SQLRuleConfig struct {
	Name          string
	SQL           string
	ID            BagFunc
	Level         int
	DetectionType string
	Message       BagFunc
	DataSource    string
	Embedders     []string
}

// SQLRule runs its query on an Executor data source and computes ids and
// messages with functions.
type SQLRule struct {
	name          string
	sql           string
	id            BagFunc
	level         int
	detectionType string
	message       BagFunc
	datasource    string
	embedders     []string
}

// NewSQLRule validates cfg and builds the rule.
func NewSQLRule(cfg SQLRuleConfig) (*SQLRule, error) {
	switch {
	case cfg.SQL == "":
		return nil, fmt.Errorf("sql is required")
	case cfg.ID == nil:
		return nil, fmt.Errorf("id is required")
	case cfg.Message == nil:
		return nil, fmt.Errorf("msg is required")
	case cfg.DataSource == "":
		return nil, fmt.Errorf("datasource is required")
	}
	return &SQLRule{
		name:          cfg.Name,
		sql:           cfg.SQL,
		id:            cfg.ID,
		level:         cfg.Level,
		detectionType: cfg.DetectionType,
		message:       cfg.Message,
		datasource:    cfg.DataSource,
		embedders:     slices.Clone(cfg.Embedders),
	}, nil
}

func (r *SQLRule) Name() string { return r.name }
func (r *SQLRule) SQL() string { return r.sql }
func (r *SQLRule) DataSourceName() string { return r.datasource }
func (r *SQLRule) Level() int { return r.level }
func (r *SQLRule) DetectionType() string { return r.detectionType }
func (r *SQLRule) IDOfRow(b vars.Bag) (string, error) { return r.id(b) }
func (r *SQLRule) Message(b vars.Bag) (string, error) { return r.message(b) }
func (r *SQLRule) Embedders() []string { return slices.Clone(r.embedders) }

// Exec implements Rule.
func (r *SQLRule) Exec(ctx context.Context, sources *datasource.Set, embedders map[string]vars.Extender, newDetection detection.Constructor) ([]*detection.Detection, error) {
	return ExecSQL(ctx, r, sources, embedders, newDetection)
}

// ExecSQL is the Exec of any rule whose query runs on an Executor. Lookup and
// query failures are returned as *errs.DataAccessError.
func ExecSQL(ctx context.Context, r Rule, sources *datasource.Set, embedders map[string]vars.Extender, newDetection detection.Constructor) ([]*detection.Detection, error) {
	name := Describe(r)
	dataAccess := func(err error) error {
		return &errs.DataAccessError{Rule: name, DataSource: r.DataSourceName(), Err: err}
	}

	ex, err := sources.Executor(r.DataSourceName())
	if err != nil {
		return nil, dataAccess(err)
	}
	rows, err := ex.Execute(ctx, r.SQL())
	if err != nil {
		return nil, dataAccess(fmt.Errorf("execute query: %w", err))
	}

	out := make([]*detection.Detection, 0, len(rows))
	for i, row := range rows {
		d, err := Detect(r, vars.FromRow(row.Columns, row.Values), embedders, newDetection)
		if err != nil {
			return nil, fmt.Errorf("rule %s, row %d: %w", name, i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
