// Package datasource defines the data sources rules run their queries against.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/go-hclog"
)

var (
	// ErrUnknownDataSource is returned when no source is registered under a name.
	ErrUnknownDataSource = errors.New("unknown data source")
	// ErrTypeMismatch is returned when a source cannot execute SQL queries.
	ErrTypeMismatch = errors.New("data source cannot execute SQL")
	// ErrNotOpen is returned when a source is queried before Open.
	ErrNotOpen = errors.New("data source is not open")
)

// Row is one result row. Columns is shared by all rows of a result.
type Row struct {
	Columns []string
	Values  []any
}

// DataSource is anything a configuration can name under datasources.
type DataSource interface {
	Close() error
}

// Opener is implemented by sources that connect lazily.
type Opener interface {
	Open(ctx context.Context) error
}

// Executor is a data source that runs SQL and returns the full, ordered result.
type Executor interface {
	DataSource
	Execute(ctx context.Context, sql string) ([]Row, error)
}

// Set is the collection of named data sources of one run.
type Set struct {
	sources map[string]DataSource
	order   []string
	logger  hclog.Logger
}

// NewSet creates an empty Set. A nil logger discards output.
func NewSet(logger hclog.Logger) *Set {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Set{sources: map[string]DataSource{}, logger: logger}
}

// Add registers src under name.
func (s *Set) Add(name string, src DataSource) error {
	if _, ok := s.sources[name]; ok {
		return fmt.Errorf("data source %q already registered", name)
	}
	s.sources[name] = src
	s.order = append(s.order, name)
	return nil
}

// Get returns the source registered under name.
func (s *Set) Get(name string) (DataSource, error) {
	src, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataSource, name)
	}
	return src, nil
}

// Executor returns the source registered under name if it can run SQL.
func (s *Set) Executor(name string) (Executor, error) {
	src, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	ex, ok := src.(Executor)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T", ErrTypeMismatch, name, src)
	}
	return ex, nil
}

// Names returns the registered names in registration order.
func (s *Set) Names() []string {
	return slices.Clone(s.order)
}

// Open opens every source that needs it. If one fails, the sources opened so
// far are closed again.
func (s *Set) Open(ctx context.Context) error {
	return s.OpenOnly(ctx, s.order...)
}

// OpenOnly is Open restricted to the named sources. Unknown names are
// skipped; using them fails later with ErrUnknownDataSource.
func (s *Set) OpenOnly(ctx context.Context, names ...string) error {
	for _, name := range s.order {
		if !slices.Contains(names, name) {
			continue
		}
		op, ok := s.sources[name].(Opener)
		if !ok {
			continue
		}
		if err := op.Open(ctx); err != nil {
			s.logger.Error("failed to open data source", "datasource", name, "error", err)
			s.Close()
			return fmt.Errorf("open data source %q: %w", name, err)
		}
		s.logger.Debug("data source opened", "datasource", name)
	}
	return nil
}

// Close closes every source, even when some fail.
func (s *Set) Close() error {
	var errs []error
	for _, name := range s.order {
		if err := s.sources[name].Close(); err != nil {
			s.logger.Warn("failed to close data source", "datasource", name, "error", err)
			errs = append(errs, fmt.Errorf("close data source %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
