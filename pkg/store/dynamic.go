package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/decoder"
)

// pgUndefinedTable is the PostgreSQL error code raised when an INSERT hits a
// table that was dropped after we cached it as known.
const pgUndefinedTable = "42P01"

// tableCache remembers which telemetry tables have been created so the
// EnsureTable DDL runs once per table per process.
type tableCache struct {
	mu    sync.Mutex
	known map[string]bool
}

func newTableCache() *tableCache {
	return &tableCache{known: make(map[string]bool)}
}

func (c *tableCache) has(table string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.known[table]
}

func (c *tableCache) add(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[table] = true
}

func (c *tableCache) drop(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.known, table)
}

// EnsureTable creates the telemetry table for a packet if it does not exist,
// inferring column types from the first row. Every table gets a serial id
// and an insertion timestamp.
func (s *Store) EnsureTable(ctx context.Context, table string, sample *decoder.Row) error {
	if s.tables.has(table) {
		return nil
	}

	var ddl strings.Builder
	ddl.WriteString("CREATE TABLE IF NOT EXISTS ")
	ddl.WriteString(quoteIdent(table))
	ddl.WriteString(" (id BIGSERIAL PRIMARY KEY, created_at TIMESTAMPTZ NOT NULL DEFAULT now()")

	for _, col := range sample.Columns() {
		v, _ := sample.Get(col)
		ddl.WriteString(", ")
		ddl.WriteString(quoteIdent(col))
		ddl.WriteString(" ")
		ddl.WriteString(inferColumnType(v))
	}
	ddl.WriteString(")")

	if err := s.db.WithContext(ctx).Exec(ddl.String()).Error; err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	s.tables.add(table)
	logger.Debug("telemetry table ready", logger.Table(table))
	return nil
}

// InsertRows writes a decoded batch into its packet table with a single
// multi-row INSERT. If the table vanished underneath us the cache entry is
// invalidated, the table recreated, and the insert retried once.
func (s *Store) InsertRows(ctx context.Context, table string, rows []*decoder.Row) error {
	if len(rows) == 0 {
		return nil
	}

	if err := s.EnsureTable(ctx, table, rows[0]); err != nil {
		return err
	}

	err := s.insert(ctx, table, rows)
	if isUndefinedTable(err) {
		logger.Warn("telemetry table disappeared, recreating", logger.Table(table))
		s.tables.drop(table)
		if err := s.EnsureTable(ctx, table, rows[0]); err != nil {
			return err
		}
		err = s.insert(ctx, table, rows)
	}
	if err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(rows), table, err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, table string, rows []*decoder.Row) error {
	cols := rows[0].Columns()

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(quoteIdent(table))
	sql.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString(quoteIdent(col))
	}
	sql.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(cols))
	for i, row := range rows {
		if i > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString("?")
			v, _ := row.Get(col)
			args = append(args, bindValue(v))
		}
		sql.WriteString(")")
	}

	return s.db.WithContext(ctx).Exec(sql.String(), args...).Error
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

// quoteIdent double-quotes an SQL identifier. Packet and column names come
// from schemas and decoded payloads, not operators, but quoting keeps mixed
// case and the odd space intact.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// inferColumnType maps a row value to a column type. Unknowns, including
// nils on the first row, land on TEXT.
func inferColumnType(v any) string {
	switch v.(type) {
	case bool:
		return "BOOLEAN"
	case int, int64, uint64:
		return "BIGINT"
	case float64:
		return "DOUBLE PRECISION"
	case time.Time:
		return "TIMESTAMPTZ"
	case json.Number:
		if n, ok := v.(json.Number); ok && isIntegral(n) {
			return "BIGINT"
		}
		return "DOUBLE PRECISION"
	case string:
		if _, err := parseTimestamp(v.(string)); err == nil {
			return "TIMESTAMPTZ"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

// bindValue normalizes a row value for binding: JSON numbers become native
// integers or floats, timestamp strings become time.Time.
func bindValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if isIntegral(n) {
			if i, err := n.Int64(); err == nil {
				return i
			}
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case string:
		if ts, err := parseTimestamp(n); err == nil {
			return ts
		}
		return n
	default:
		return v
	}
}

func isIntegral(n json.Number) bool {
	return !strings.ContainsAny(n.String(), ".eE")
}

// parseTimestamp accepts the formats the decoder and the bus emit.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a timestamp: %q", s)
}
