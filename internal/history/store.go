// Package history keeps an append-only log of past risk results, used for
// the "compare to last visit" feature. Snapshots are keyed loosely by
// patient name; nothing is ever updated or deleted.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"alive/internal/predict"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		risk REAL NOT NULL,
		category TEXT NOT NULL,
		date TEXT NOT NULL,
		ts INTEGER NOT NULL,
		payload_json TEXT NOT NULL
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_results_name_ts ON results(name, ts DESC);`)
	return err
}

// Append stores one immutable snapshot.
func (s *Store) Append(ctx context.Context, res predict.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results(id, name, risk, category, date, ts, payload_json) VALUES(?,?,?,?,?,?,?)`,
		uuid.NewString(), res.Name, res.RiskProbability, res.RiskCategory, res.Date, res.Timestamp, string(payload))
	return err
}

// Latest returns the most recent snapshot of any patient, or nil when the
// store is empty.
func (s *Store) Latest(ctx context.Context) (*predict.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload_json FROM results ORDER BY ts DESC LIMIT 1`)
	return scanResult(row)
}

// Previous returns the newest snapshot for the same patient taken at a
// different time, matching names case-insensitively. Returns nil when this
// is the first visit.
func (s *Store) Previous(ctx context.Context, name string, ts int64) (*predict.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM results WHERE lower(name) = lower(?) AND ts != ? ORDER BY ts DESC LIMIT 1`,
		name, ts)
	return scanResult(row)
}

// List returns up to limit snapshots for a patient, newest first.
func (s *Store) List(ctx context.Context, name string, limit int) ([]predict.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload_json FROM results WHERE lower(name) = lower(?) ORDER BY ts DESC LIMIT ?`,
		name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []predict.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var res predict.Result
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResult(row *sql.Row) (*predict.Result, error) {
	var payload string
	switch err := row.Scan(&payload); err {
	case nil:
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
	var res predict.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &res, nil
}

// Comparison relates the current result to a previous visit.
type Comparison struct {
	PrevDate string
	PrevRisk float64 // percent
	Diff     float64 // percentage points, positive when risk went down
	Improved bool
}

// Compare computes the visit-over-visit delta in percentage points.
func Compare(prev, cur predict.Result) Comparison {
	diff := prev.RiskPercent() - cur.RiskPercent()
	return Comparison{
		PrevDate: prev.Date,
		PrevRisk: round1(prev.RiskPercent()),
		Diff:     round1(diff),
		Improved: diff > 0,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
