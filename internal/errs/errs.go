// Package errs classifies the failures that abort a validation run.
package errs

import (
	"errors"
	"fmt"
)

// ConfigError is a failure to turn a configuration entry into a live object.
// It is always raised before any rule executes.
type ConfigError struct {
	Path string // e.g. "rules[2]" or "datasources.main"
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err with the path of the offending entry.
func NewConfigError(path string, err error) error {
	return &ConfigError{Path: path, Err: err}
}

// DataAccessError is a failure while a rule talks to its data source.
type DataAccessError struct {
	Rule       string
	DataSource string
	Err        error
}

func (e *DataAccessError) Error() string {
	switch {
	case e.Rule != "":
		return fmt.Sprintf("rule %s on data source %q: %v", e.Rule, e.DataSource, e.Err)
	case e.DataSource != "":
		return fmt.Sprintf("data source %q: %v", e.DataSource, e.Err)
	default:
		return fmt.Sprintf("data access: %v", e.Err)
	}
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// IsConfig reports whether err is, or wraps, a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsDataAccess reports whether err is, or wraps, a DataAccessError.
func IsDataAccess(err error) bool {
	var de *DataAccessError
	return errors.As(err, &de)
}
