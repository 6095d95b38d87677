package datasource

import (
	"context"
	"database/sql"
	"fmt"

	// registers the "pgx" driver
	_ "github.com/jackc/pgx/v5/stdlib"
	// registers the "postgres" driver
	_ "github.com/lib/pq"
)

// SQLParams configures a database/sql source.
type SQLParams struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SQL runs rule queries through database/sql with any registered driver.
type SQL struct {
	driver string
	dsn    string
	db     *sql.DB
}

// NewSQL checks that the driver is registered.
func NewSQL(p SQLParams) (*SQL, error) {
	if p.Driver == "" {
		p.Driver = "pgx"
	}
	if p.DSN == "" {
		return nil, fmt.Errorf("sql: dsn is required")
	}
	found := false
	for _, d := range sql.Drivers() {
		if d == p.Driver {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("sql: driver %q is not registered", p.Driver)
	}
	return &SQL{driver: p.Driver, dsn: p.DSN}, nil
}

// NewSQLFromDB wraps an already open handle.
func NewSQLFromDB(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// Open opens and pings the database.
func (s *SQL) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("open %s database: %w", s.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping %s database: %w", s.driver, err)
	}
	s.db = db
	return nil
}

// Execute runs query and reads the whole result.
func (s *SQL) Execute(ctx context.Context, query string) ([]Row, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database handle.
func (s *SQL) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
