// Package marketdata reads daily close prices from a local sqlite database
// holding one table per instrument. Two column-naming schemas exist in the
// wild (an English one and a localized one); each table is probed once and
// the detected schema is cached.
package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"etfbot/internal/logger"
)

// Provider is the price interface consumed by the cycle driver and the guard.
// The bool reports whether a valid price exists; plain absence is not an error.
type Provider interface {
	LatestClose(ctx context.Context, code string, asOf time.Time) (float64, bool, error)
}

type schema struct {
	dateCol  string
	closeCol string
}

var (
	schemaEnglish   = schema{dateCol: "date", closeCol: "close"}
	schemaLocalized = schema{dateCol: "日期", closeCol: "收盘"}
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type Store struct {
	db *sql.DB

	mu      sync.Mutex
	schemas map[string]schema
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("marketdata: price db path cannot be empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, schemas: make(map[string]schema)}, nil
}

// OpenWritable is used by tests and backfill tooling that need to create
// price tables.
func OpenWritable(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("marketdata: price db path cannot be empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, schemas: make(map[string]schema)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the raw handle for maintenance tooling.
func (s *Store) DB() *sql.DB { return s.db }

func tableFor(code string) (string, error) {
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("marketdata: invalid instrument code %q", code)
	}
	return "etf_" + code, nil
}

// detectSchema probes a table's columns once and caches the result.
func (s *Store) detectSchema(ctx context.Context, table string) (schema, error) {
	s.mu.Lock()
	if sc, ok := s.schemas[table]; ok {
		s.mu.Unlock()
		return sc, nil
	}
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return schema{}, fmt.Errorf("marketdata: probe %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return schema{}, err
		}
		cols[strings.ToLower(name)] = true
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return schema{}, err
	}
	if len(cols) == 0 {
		return schema{}, fmt.Errorf("marketdata: table %s does not exist", table)
	}

	var sc schema
	switch {
	case cols[schemaEnglish.dateCol] && cols[schemaEnglish.closeCol]:
		sc = schemaEnglish
	case cols[schemaLocalized.dateCol] && cols[schemaLocalized.closeCol]:
		sc = schemaLocalized
	default:
		return schema{}, fmt.Errorf("marketdata: table %s matches no known schema", table)
	}

	s.mu.Lock()
	s.schemas[table] = sc
	s.mu.Unlock()
	return sc, nil
}

// LatestClose returns the most recent close with date <= asOf. Non-positive
// closes are invalid: when the nominally latest row carries one, the lookup
// falls back to the most recent prior valid close and logs that it did so.
// (0, false, nil) means no valid price exists at all.
func (s *Store) LatestClose(ctx context.Context, code string, asOf time.Time) (float64, bool, error) {
	table, err := tableFor(code)
	if err != nil {
		return 0, false, err
	}
	sc, err := s.detectSchema(ctx, table)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			logger.Warnf("marketdata: no price table for %s", code)
			return 0, false, nil
		}
		return 0, false, err
	}

	query := fmt.Sprintf("SELECT %q, %q FROM %q WHERE %q <= ? ORDER BY %q DESC LIMIT 30",
		sc.dateCol, sc.closeCol, table, sc.dateCol, sc.dateCol)
	rows, err := s.db.QueryContext(ctx, query, asOf.Format("2006-01-02"))
	if err != nil {
		return 0, false, fmt.Errorf("marketdata: query %s: %w", table, err)
	}
	defer rows.Close()

	first := true
	var skippedDate string
	for rows.Next() {
		var (
			date  string
			close sql.NullFloat64
		)
		if err := rows.Scan(&date, &close); err != nil {
			return 0, false, err
		}
		if close.Valid && close.Float64 > 0 {
			if !first {
				logger.Warnf("marketdata: %s close on %s invalid, falling back to %s", code, skippedDate, date)
			}
			return close.Float64, true, nil
		}
		if first {
			skippedDate = date
			first = false
		}
	}
	if err := rows.Err(); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}

// Closes returns up to n daily closes with date <= asOf in ascending date
// order, skipping invalid (<= 0) rows. Used by the rule engine, which needs a
// history window rather than a single price.
func (s *Store) Closes(ctx context.Context, code string, asOf time.Time, n int) ([]float64, error) {
	table, err := tableFor(code)
	if err != nil {
		return nil, err
	}
	sc, err := s.detectSchema(ctx, table)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, err
	}

	query := fmt.Sprintf("SELECT %q FROM %q WHERE %q <= ? ORDER BY %q DESC LIMIT ?",
		sc.closeCol, table, sc.dateCol, sc.dateCol)
	rows, err := s.db.QueryContext(ctx, query, asOf.Format("2006-01-02"), n)
	if err != nil {
		return nil, fmt.Errorf("marketdata: query %s closes: %w", table, err)
	}
	defer rows.Close()

	var desc []float64
	for rows.Next() {
		var close sql.NullFloat64
		if err := rows.Scan(&close); err != nil {
			return nil, err
		}
		if close.Valid && close.Float64 > 0 {
			desc = append(desc, close.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]float64, len(desc))
	for i, v := range desc {
		out[len(desc)-1-i] = v
	}
	return out, nil
}

// Preheat probes every instrument's table concurrently so the per-table
// schema detection does not happen lazily in the middle of a cycle. Probe
// failures are logged, not fatal: a missing table just means no price later.
func (s *Store) Preheat(ctx context.Context, codes []string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, code := range codes {
		code := code
		table, err := tableFor(code)
		if err != nil {
			logger.Warnf("marketdata: preheat skipped %s: %v", code, err)
			continue
		}
		g.Go(func() error {
			if _, err := s.detectSchema(ctx, table); err != nil {
				logger.Debugf("marketdata: preheat %s: %v", code, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
