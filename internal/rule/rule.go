// Package rule defines validation rules and how they turn result rows into detections.
package rule

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/detection"
	"github.com/sbenjam1n/validb/internal/vars"
)

// Rule is a query against a named data source plus the logic that classifies
// every returned row as a detection. A Rule is immutable once built.
type Rule interface {
	// SQL is the query whose rows are anomalies.
	SQL() string
	// DataSourceName names the data source the query runs on.
	DataSourceName() string
	// Level is the severity of the rule's detections; higher is more severe.
	Level() int
	// DetectionType distinguishes the anomalies of this rule from others.
	DetectionType() string
	// IDOfRow identifies the record a row refers to, usually from its primary key.
	IDOfRow(b vars.Bag) (string, error)
	// Message renders the detection message.
	Message(b vars.Bag) (string, error)
	// Embedders lists, in order, the extenders applied to each row's variables.
	Embedders() []string
	// Exec runs the rule and returns its detections in row order.
	Exec(ctx context.Context, sources *datasource.Set, embedders map[string]vars.Extender, newDetection detection.Constructor) ([]*detection.Detection, error)
}

// Named is implemented by rules that carry a display name.
type Named interface {
	Name() string
}

// Describe returns the name used for r in logs and errors.
func Describe(r Rule) string {
	if n, ok := r.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return r.DetectionType()
}

// ResolveEmbedders looks up the named extenders in order.
func ResolveEmbedders(names []string, available map[string]vars.Extender) ([]vars.Extender, error) {
	out := make([]vars.Extender, 0, len(names))
	for _, name := range names {
		ex, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("embedder %q is not defined", name)
		}
		out = append(out, ex)
	}
	return out, nil
}

// Detect extends bag with the rule's embedders and builds the detection for it.
func Detect(r Rule, bag vars.Bag, embedders map[string]vars.Extender, newDetection detection.Constructor) (*detection.Detection, error) {
	exts, err := ResolveEmbedders(r.Embedders(), embedders)
	if err != nil {
		return nil, err
	}
	bag = bag.Extended(exts...)

	id, err := r.IDOfRow(bag)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	msg, err := r.Message(bag)
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	if newDetection == nil {
		newDetection = detection.New
	}
	return newDetection(id, r.Level(), r.DetectionType(), msg, bag), nil
}

// SortByLevel returns the rules ordered by descending level. Rules of equal
// level keep their configured order.
func SortByLevel(rules []Rule) []Rule {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b Rule) int {
		return cmp.Compare(b.Level(), a.Level())
	})
	return sorted
}
