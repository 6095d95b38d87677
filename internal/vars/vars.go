// Package vars holds the variables a rule can embed into ids and messages.
package vars

import (
	"errors"
	"fmt"
	"maps"
)

// ErrKeyNotFound is returned when a positional index or a name is absent from a Bag.
var ErrKeyNotFound = errors.New("key not found")

// Extender derives additional named variables from the positional and named
// variables of a row. Extend may modify and return named; Bag.Extended hands
// it a private copy.
type Extender interface {
	Extend(positional []any, named map[string]any) map[string]any
}

// ExtenderFunc adapts a plain function to Extender.
type ExtenderFunc func(positional []any, named map[string]any) map[string]any

// Extend calls f.
func (f ExtenderFunc) Extend(positional []any, named map[string]any) map[string]any {
	return f(positional, named)
}

// Bag is an immutable set of positional and named variables built from one
// result row.
type Bag struct {
	positional []any
	named      map[string]any
}

// New creates a Bag. The caller must not modify positional or named afterwards.
func New(positional []any, named map[string]any) Bag {
	if named == nil {
		named = map[string]any{}
	}
	return Bag{positional: positional, named: named}
}

// FromRow builds a Bag from column names and values in column order.
// A repeated column name keeps its last value in the named view.
func FromRow(columns []string, values []any) Bag {
	named := make(map[string]any, len(columns))
	for i, c := range columns {
		if i < len(values) {
			named[c] = values[i]
		}
	}
	return New(values, named)
}

// Len returns the number of positional variables.
func (b Bag) Len() int {
	return len(b.positional)
}

// At returns the positional variable at index i.
func (b Bag) At(i int) (any, error) {
	if i < 0 || i >= len(b.positional) {
		return nil, fmt.Errorf("index %d of %d: %w", i, len(b.positional), ErrKeyNotFound)
	}
	return b.positional[i], nil
}

// Get returns the named variable.
func (b Bag) Get(name string) (any, error) {
	v, ok := b.named[name]
	if !ok {
		return nil, fmt.Errorf("name %q: %w", name, ErrKeyNotFound)
	}
	return v, nil
}

// Positional returns a copy of the positional variables.
func (b Bag) Positional() []any {
	out := make([]any, len(b.positional))
	copy(out, b.positional)
	return out
}

// Named returns a copy of the named variables.
func (b Bag) Named() map[string]any {
	return maps.Clone(b.named)
}

// Extended returns a new Bag whose named variables are the left-to-right fold
// of the extenders over this bag. The positional variables are shared and
// never change; b itself is left untouched.
func (b Bag) Extended(extenders ...Extender) Bag {
	if len(extenders) == 0 {
		return b
	}
	named := maps.Clone(b.named)
	for _, ex := range extenders {
		named = ex.Extend(b.positional, named)
		if named == nil {
			named = map[string]any{}
		}
	}
	return Bag{positional: b.positional, named: named}
}
