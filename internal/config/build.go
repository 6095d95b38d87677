package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/go-hclog"

	"github.com/sbenjam1n/validb/internal/builtin"
	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/errs"
	"github.com/sbenjam1n/validb/internal/mapping"
	"github.com/sbenjam1n/validb/internal/registry"
	"github.com/sbenjam1n/validb/internal/rule"
	"github.com/sbenjam1n/validb/internal/vars"
)

// DetectedMapping is the csvmappings entry used for exporting detections.
const DetectedMapping = "detected"

// Config is a fully built rules document.
type Config struct {
	Rules       []rule.Rule
	DataSources *datasource.Set
	Embedders   map[string]vars.Extender
	CSVMappings map[string]mapping.OutputMapper
}

// Detected returns the mapper for exported detections, Simple when none is configured.
func (c *Config) Detected() mapping.OutputMapper {
	if m, ok := c.CSVMappings[DetectedMapping]; ok {
		return m
	}
	m, _ := mapping.NewSimple(mapping.SimpleParams{})
	return m
}

// Build instantiates every entry of doc through reg. Any failure is a
// *errs.ConfigError naming the entry, and nothing is connected yet: data
// sources are opened later with Config.DataSources.Open.
func Build(doc *Document, reg *registry.Registry, logger hclog.Logger) (*Config, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	embedders := make(map[string]vars.Extender, len(doc.Embedders))
	for _, name := range sortedKeys(doc.Embedders) {
		ex, err := load[vars.Extender](reg, doc.Embedders[name], "")
		if err != nil {
			return nil, errs.NewConfigError("embedders."+name, err)
		}
		embedders[name] = ex
	}

	mappings := make(map[string]mapping.OutputMapper, len(doc.CSVMappings))
	for _, name := range sortedKeys(doc.CSVMappings) {
		m, err := load[mapping.OutputMapper](reg, doc.CSVMappings[name], "")
		if err != nil {
			return nil, errs.NewConfigError("csvmappings."+name, err)
		}
		if name != DetectedMapping {
			logger.Warn("csv mapping is not used", "csvmapping", name)
		}
		mappings[name] = m
	}

	rules := make([]rule.Rule, 0, len(doc.Rules))
	for i, entry := range doc.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		r, err := load[rule.Rule](reg, entry, builtin.TemplateRule)
		if err != nil {
			return nil, errs.NewConfigError(path, err)
		}
		for _, name := range r.Embedders() {
			if _, ok := embedders[name]; !ok {
				return nil, errs.NewConfigError(path, fmt.Errorf("embedder %q is not defined", name))
			}
		}
		rules = append(rules, r)
	}

	sources := datasource.NewSet(logger.Named("datasource"))
	for _, name := range sortedKeys(doc.DataSources) {
		src, err := load[datasource.DataSource](reg, doc.DataSources[name], "")
		if err == nil {
			err = sources.Add(name, src)
		}
		if err != nil {
			sources.Close()
			return nil, errs.NewConfigError("datasources."+name, err)
		}
	}

	logger.Debug("configuration built",
		"rules", len(rules), "datasources", len(doc.DataSources),
		"embedders", len(embedders), "csvmappings", len(mappings))

	return &Config{
		Rules:       rules,
		DataSources: sources,
		Embedders:   embedders,
		CSVMappings: mappings,
	}, nil
}

func load[T any](reg *registry.Registry, entry map[string]any, fallback string) (T, error) {
	ref, args, err := splitClass(entry, fallback)
	if err != nil {
		var zero T
		return zero, err
	}
	return registry.Load[T](reg, ref, args)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
