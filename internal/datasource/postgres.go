package datasource

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresParams configures a Postgres source.
type PostgresParams struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// Postgres runs rule queries on a pgx connection pool.
type Postgres struct {
	config *pgxpool.Config
	pool   *pgxpool.Pool
}

// NewPostgres validates the connection string. No connection is made until Open.
func NewPostgres(p PostgresParams) (*Postgres, error) {
	if p.URL == "" {
		return nil, fmt.Errorf("postgres: url is required")
	}
	cfg, err := pgxpool.ParseConfig(p.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url: %w", err)
	}
	if p.MaxConns > 0 {
		cfg.MaxConns = p.MaxConns
	}
	return &Postgres{config: cfg}, nil
}

// Connect creates a connection pool to PostgreSQL.
func Connect(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Open connects the pool.
func (p *Postgres) Open(ctx context.Context) error {
	if p.pool != nil {
		return nil
	}
	pool, err := Connect(ctx, p.config)
	if err != nil {
		return err
	}
	p.pool = pool
	return nil
}

// Execute runs sql and reads the whole result.
func (p *Postgres) Execute(ctx context.Context, sql string) ([]Row, error) {
	if p.pool == nil {
		return nil, ErrNotOpen
	}
	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		out = append(out, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue turns pgx's decoded forms of uuid, numeric and similar
// types into the plain values their text form shows.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return v
		}
		return dv
	}
	return v
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}
