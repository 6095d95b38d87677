package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sbenjam1n/validb/internal/errs"
)

// ClassKey is the entry key holding a class reference.
const ClassKey = "class"

// Document is the rules file as written by users.
type Document struct {
	Rules       []map[string]any          `yaml:"rules"`
	DataSources map[string]map[string]any `yaml:"datasources"`
	Embedders   map[string]map[string]any `yaml:"embedders"`
	CSVMappings map[string]map[string]any `yaml:"csvmappings"`
}

// LoadDocument reads and parses the rules file at path.
func LoadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError(path, err)
	}
	doc, err := ParseDocument(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.NewConfigError(path, err)
	}
	return doc, nil
}

// ParseDocument decodes a YAML rules document. Unknown top-level keys are rejected.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("document is empty")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules: at least one rule is required")
	}
	return &doc, nil
}

// splitClass separates the class reference from the constructor arguments.
func splitClass(entry map[string]any, fallback string) (string, map[string]any, error) {
	args := make(map[string]any, len(entry))
	for k, v := range entry {
		if k != ClassKey {
			args[k] = v
		}
	}
	raw, ok := entry[ClassKey]
	if !ok || raw == nil {
		if fallback == "" {
			return "", nil, fmt.Errorf("%s is required", ClassKey)
		}
		return fallback, args, nil
	}
	ref, ok := raw.(string)
	if !ok {
		return "", nil, fmt.Errorf("%s must be a string like 'module.Class', got %T", ClassKey, raw)
	}
	return ref, args, nil
}
