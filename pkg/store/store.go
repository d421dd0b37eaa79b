// Package store persists generated transitions in a sqlite database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-motionblend/pkg/transition"
)

// ErrNotFound is returned when no transition has the requested id.
var ErrNotFound = errors.New("store: transition not found")

// schema.sql creates the transitions table and its index.
//
//go:embed schema.sql
var schemaSQL string

// Record is one stored transition.
type Record struct {
	ID            string             `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	Length        int                `json:"length"`
	FrameTime     float64            `json:"frame_time"`
	PhaseSchedule float64            `json:"phase_schedule"`
	Stochastic    bool               `json:"stochastic"`
	Seed          uint64             `json:"seed"`
	Metrics       transition.Metrics `json:"quality_metrics"`

	// BVH is the serialized transition. List leaves it empty.
	BVH string `json:"bvh,omitempty"`
}

// Store wraps a sqlite database of transitions.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts rec, replacing any record with the same id.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("store: record has no id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT OR REPLACE INTO transitions (
			id, created_ns, length, frame_time, phase_schedule, stochastic, seed,
			smoothness, naturalness, style_preservation, temporal_consistency, bvh
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.CreatedAt.UnixNano(), rec.Length, rec.FrameTime, rec.PhaseSchedule,
		rec.Stochastic, int64(rec.Seed),
		rec.Metrics.Smoothness, rec.Metrics.Naturalness,
		rec.Metrics.StylePreservation, rec.Metrics.TemporalConsistency,
		rec.BVH,
	)
	if err != nil {
		return fmt.Errorf("failed to save transition %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the transition with the given id, including its BVH.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, created_ns, length, frame_time, phase_schedule, stochastic, seed,
			smoothness, naturalness, style_preservation, temporal_consistency, bvh
		FROM transitions
		WHERE id = ?
	`
	var r row
	err := s.db.QueryRowContext(ctx, query, id).Scan(append(r.fields(), &r.rec.BVH)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transition %s: %w", id, err)
	}
	rec := r.record()
	return &rec, nil
}

// List returns the most recent transitions without their BVH, newest first.
// A limit of zero or less returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, created_ns, length, frame_time, phase_schedule, stochastic, seed,
			smoothness, naturalness, style_preservation, temporal_consistency
		FROM transitions
		ORDER BY created_ns DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r row
		if err := rows.Scan(r.fields()...); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		out = append(out, r.record())
	}
	return out, rows.Err()
}

// Delete removes the transition with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transition %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete transition %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of stored transitions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transitions: %w", err)
	}
	return n, nil
}

// row holds the scan targets of one transitions row.
type row struct {
	rec     Record
	created int64
	seed    int64
}

func (r *row) fields() []any {
	return []any{
		&r.rec.ID, &r.created, &r.rec.Length, &r.rec.FrameTime, &r.rec.PhaseSchedule,
		&r.rec.Stochastic, &r.seed,
		&r.rec.Metrics.Smoothness, &r.rec.Metrics.Naturalness,
		&r.rec.Metrics.StylePreservation, &r.rec.Metrics.TemporalConsistency,
	}
}

func (r *row) record() Record {
	rec := r.rec
	rec.CreatedAt = time.Unix(0, r.created).UTC()
	rec.Seed = uint64(r.seed)
	return rec
}
