// Package snapshotstore persists snapshot lifecycle records in a local
// SQLite database. A single upsert statement per write keeps register and
// update atomic: a crash mid-write never leaves a partial record visible.
package snapshotstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id             TEXT PRIMARY KEY,
	fingerprint    TEXT NOT NULL,
	status         TEXT NOT NULL,
	usernames      TEXT NOT NULL,
	total_accounts INTEGER NOT NULL,
	results_count  INTEGER NOT NULL DEFAULT 0,
	result_sample  TEXT NOT NULL DEFAULT '[]',
	created_at     TIMESTAMP NOT NULL,
	completed_at   TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_snapshots_fingerprint ON snapshots(fingerprint, status);
`

// Store is a SQLite-backed ports.SnapshotStore.
type Store struct {
	db *sqlx.DB
}

// row mirrors the snapshots table; usernames and the result sample travel
// as JSON columns.
type row struct {
	ID            string       `db:"id"`
	Fingerprint   string       `db:"fingerprint"`
	Status        string       `db:"status"`
	Usernames     string       `db:"usernames"`
	TotalAccounts int          `db:"total_accounts"`
	ResultsCount  int          `db:"results_count"`
	ResultSample  string       `db:"result_sample"`
	CreatedAt     time.Time    `db:"created_at"`
	CompletedAt   sql.NullTime `db:"completed_at"`
}

// Open creates the database file (and parent directory) if needed and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	// SQLite allows one writer; the pipeline is single-writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves a snapshot by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Snapshot, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM snapshots WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return r.toDomain()
}

// FindByFingerprint returns the newest snapshot matching fingerprint and
// status, or domain.ErrSnapshotNotFound.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string, status domain.SnapshotStatus) (*domain.Snapshot, error) {
	var r row
	err := s.db.GetContext(ctx, &r,
		`SELECT * FROM snapshots WHERE fingerprint = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		fingerprint, string(status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot by fingerprint: %w", err)
	}
	return r.toDomain()
}

// Put upserts a snapshot record in one statement.
func (s *Store) Put(ctx context.Context, snap *domain.Snapshot) error {
	usernames, err := json.Marshal(snap.Usernames)
	if err != nil {
		return fmt.Errorf("marshal usernames: %w", err)
	}
	sample := snap.ResultSample
	if sample == nil {
		sample = []domain.Profile{}
	}
	resultSample, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal result sample: %w", err)
	}

	var completedAt sql.NullTime
	if snap.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *snap.CompletedAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, fingerprint, status, usernames, total_accounts, results_count, result_sample, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			results_count = excluded.results_count,
			result_sample = excluded.result_sample,
			completed_at = excluded.completed_at`,
		snap.ID, snap.Fingerprint, string(snap.Status), string(usernames),
		snap.TotalAccounts, snap.ResultsCount, string(resultSample), snap.CreatedAt, completedAt)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// List returns all snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.Snapshot, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	snaps := make([]*domain.Snapshot, 0, len(rows))
	for _, r := range rows {
		snap, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (r row) toDomain() (*domain.Snapshot, error) {
	var usernames []string
	if err := json.Unmarshal([]byte(r.Usernames), &usernames); err != nil {
		return nil, fmt.Errorf("decode usernames for snapshot %s: %w", r.ID, err)
	}
	var sample []domain.Profile
	if err := json.Unmarshal([]byte(r.ResultSample), &sample); err != nil {
		return nil, fmt.Errorf("decode result sample for snapshot %s: %w", r.ID, err)
	}
	if len(sample) == 0 {
		sample = nil
	}

	snap := &domain.Snapshot{
		ID:            r.ID,
		Fingerprint:   r.Fingerprint,
		Status:        domain.SnapshotStatus(r.Status),
		Usernames:     usernames,
		TotalAccounts: r.TotalAccounts,
		ResultsCount:  r.ResultsCount,
		ResultSample:  sample,
		CreatedAt:     r.CreatedAt,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		snap.CompletedAt = &t
	}
	return snap, nil
}

var _ ports.SnapshotStore = (*Store)(nil)
