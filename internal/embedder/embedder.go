// Package embedder provides extenders that inject values which do not come
// from the query result.
package embedder

import (
	"fmt"
	"os"
	"time"
)

// TodayParams configures Today.
type TodayParams struct {
	KeyName string `mapstructure:"key_name"`
	Shift   int    `mapstructure:"shift"`
}

// Today adds the current date, shifted by a number of days.
type Today struct {
	key   string
	shift int
	now   func() time.Time
}

// NewToday creates a Today embedder. The key defaults to "today".
func NewToday(p TodayParams) *Today {
	if p.KeyName == "" {
		p.KeyName = "today"
	}
	return &Today{key: p.KeyName, shift: p.Shift, now: time.Now}
}

// Extend implements vars.Extender.
func (e *Today) Extend(_ []any, named map[string]any) map[string]any {
	y, m, d := e.now().Date()
	named[e.key] = time.Date(y, m, d+e.shift, 0, 0, 0, 0, time.Local)
	return named
}

// ConstParams configures Const.
type ConstParams struct {
	Values map[string]any `mapstructure:"values"`
}

// Const adds fixed values.
type Const struct {
	values map[string]any
}

// NewConst creates a Const embedder.
func NewConst(p ConstParams) (*Const, error) {
	if len(p.Values) == 0 {
		return nil, fmt.Errorf("const embedder: values must not be empty")
	}
	return &Const{values: p.Values}, nil
}

// Extend implements vars.Extender.
func (e *Const) Extend(_ []any, named map[string]any) map[string]any {
	for k, v := range e.values {
		named[k] = v
	}
	return named
}

// EnvParams configures Env.
type EnvParams struct {
	// Vars maps a variable name to the environment variable it is read from.
	Vars map[string]string `mapstructure:"vars"`
	// Required fails construction when a listed variable is unset.
	Required bool `mapstructure:"required"`
}

// Env adds environment variables, read once at construction.
type Env struct {
	values map[string]string
}

// NewEnv reads the configured environment variables.
func NewEnv(p EnvParams) (*Env, error) {
	if len(p.Vars) == 0 {
		return nil, fmt.Errorf("env embedder: vars must not be empty")
	}
	values := make(map[string]string, len(p.Vars))
	for name, env := range p.Vars {
		v, ok := os.LookupEnv(env)
		if !ok && p.Required {
			return nil, fmt.Errorf("env embedder: environment variable %s is not set", env)
		}
		values[name] = v
	}
	return &Env{values: values}, nil
}

// Extend implements vars.Extender.
func (e *Env) Extend(_ []any, named map[string]any) map[string]any {
	for k, v := range e.values {
		named[k] = v
	}
	return named
}
