// Package builtin registers the classes shipped with validb.
package builtin

import (
	"errors"

	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/detection"
	"github.com/sbenjam1n/validb/internal/embedder"
	"github.com/sbenjam1n/validb/internal/mapping"
	"github.com/sbenjam1n/validb/internal/registry"
	"github.com/sbenjam1n/validb/internal/rule"
)

// References of the built-in classes.
const (
	TemplateRule = "validb.rules.TemplateRule"
	DefaultLevel = "validb.rules.DEFAULT_LEVEL"

	Postgres = "validb.datasources.Postgres"
	SQL      = "validb.datasources.SQL"
	Redis    = "validb.datasources.Redis"

	Today = "validb.embedders.Today"
	Const = "validb.embedders.Const"
	Env   = "validb.embedders.Env"

	SimpleMapping  = "validb.csvmappings.Simple"
	ColumnsMapping = "validb.csvmappings.Columns"
)

// Register adds every built-in class to r.
func Register(r *registry.Registry) error {
	return errors.Join(
		registry.Register(r, TemplateRule, rule.NewTemplateRule),
		r.RegisterValue(DefaultLevel, detection.DefaultLevel),

		registry.Register(r, Postgres, datasource.NewPostgres),
		registry.Register(r, SQL, datasource.NewSQL),
		registry.Register(r, Redis, datasource.NewRedis),

		registry.Register(r, Today, func(p embedder.TodayParams) (*embedder.Today, error) {
			return embedder.NewToday(p), nil
		}),
		registry.Register(r, Const, embedder.NewConst),
		registry.Register(r, Env, embedder.NewEnv),

		registry.Register(r, SimpleMapping, mapping.NewSimple),
		registry.Register(r, ColumnsMapping, mapping.NewColumns),
	)
}

// New returns a registry holding the built-in classes.
func New() *registry.Registry {
	r := registry.New()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}
