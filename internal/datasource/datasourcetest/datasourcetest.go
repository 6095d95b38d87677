// Package datasourcetest provides an in-memory Executor for tests.
package datasourcetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sbenjam1n/validb/internal/datasource"
)

// Executor answers queries from canned results.
type Executor struct {
	mu      sync.Mutex
	results map[string][]datasource.Row
	errs    map[string]error
	queries []string
	closed  bool
}

// New returns an empty Executor.
func New() *Executor {
	return &Executor{results: map[string][]datasource.Row{}, errs: map[string]error{}}
}

// Result registers the rows returned for query. Every row shares columns.
func (e *Executor) Result(query string, columns []string, rows ...[]any) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]datasource.Row, 0, len(rows))
	for _, values := range rows {
		out = append(out, datasource.Row{Columns: columns, Values: values})
	}
	e.results[query] = out
	return e
}

// Fail makes query return err.
func (e *Executor) Fail(query string, err error) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[query] = err
	return e
}

// Execute implements datasource.Executor. Unknown queries are an error.
func (e *Executor) Execute(_ context.Context, query string) ([]datasource.Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, query)
	if err, ok := e.errs[query]; ok {
		return nil, err
	}
	rows, ok := e.results[query]
	if !ok {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	return rows, nil
}

// Queries returns the executed queries in order.
func (e *Executor) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

// Close implements datasource.DataSource.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Closed reports whether Close was called.
func (e *Executor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
