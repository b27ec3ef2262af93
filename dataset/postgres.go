package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
)

var ErrNoTable = errors.New("postgres location needs a table query parameter")

type RowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error)
	Close() error
}

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Columns() ([]string, error) {
	return r.rows.Columns()
}

func (r *sqlRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *sqlRows) Err() error {
	return r.rows.Err()
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}

type sqlDB struct {
	db *sql.DB
}

func NewSQLDB(db *sql.DB) DB {
	return &sqlDB{db: db}
}

func (s *sqlDB) QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (s *sqlDB) Close() error {
	return s.db.Close()
}

// OpenPostgres opens a lib/pq connection pool for dsn.
func OpenPostgres(dsn string) (DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLDB(db), nil
}

type pgSource struct {
	location string
	dsn      string
	table    string
	open     func(dsn string) (DB, error)
}

// newPGSource splits the table parameter off a postgres URL. The remaining
// URL is handed to the driver unchanged.
func newPGSource(location string, open func(string) (DB, error)) pgSource {
	s := pgSource{location: location, dsn: location, open: open}
	u, err := url.Parse(location)
	if err != nil {
		return s
	}
	q := u.Query()
	s.table = q.Get("table")
	q.Del("table")
	u.RawQuery = q.Encode()
	s.dsn = u.String()
	return s
}

// String hides credentials.
func (s pgSource) String() string {
	u, err := url.Parse(s.location)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}

func (s pgSource) query() string {
	parts := strings.Split(s.table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return "SELECT * FROM " + strings.Join(parts, ".")
}

func (s pgSource) Fetch(ctx context.Context) ([]Row, error) {
	if s.table == "" {
		return nil, ErrNoTable
	}
	open := s.open
	if open == nil {
		open = OpenPostgres
	}
	db, err := open(s.dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}

	var out []Row
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s.table, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i].String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
