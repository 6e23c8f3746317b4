// Package snapshot manages the lifecycle of remote scraping jobs:
// registering new snapshots, finding reusable ones by input fingerprint,
// and recording their terminal outcome.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// Manager owns snapshot lifecycle records. All state lives in the injected
// store; the manager itself is stateless.
type Manager struct {
	store  ports.SnapshotStore
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager over the given store.
func NewManager(store ports.SnapshotStore, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger, now: time.Now}
}

// Fingerprint derives a deterministic identifier from a username set:
// lowercase, trimmed, deduplicated, sorted, then hashed. Any difference in
// set membership yields a different fingerprint.
func Fingerprint(usernames []string) string {
	seen := make(map[string]struct{}, len(usernames))
	normalized := make([]string, 0, len(usernames))
	for _, u := range usernames {
		n := strings.ToLower(strings.TrimSpace(u))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	sort.Strings(normalized)

	sum := sha256.Sum256([]byte(strings.Join(normalized, "\n")))
	return hex.EncodeToString(sum[:])
}

// FindReusable returns a completed snapshot covering exactly the given
// username set, or nil when none exists.
func (m *Manager) FindReusable(ctx context.Context, usernames []string) (*domain.Snapshot, error) {
	fp := Fingerprint(usernames)
	snap, err := m.store.FindByFingerprint(ctx, fp, domain.SnapshotCompleted)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		m.logger.Info("no reusable snapshot for username set", "usernames", len(usernames))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.logger.Info("found reusable snapshot",
		"id", snap.ID, "created_at", snap.CreatedAt, "accounts", snap.TotalAccounts)
	return snap, nil
}

// FindInFlight returns a still-pending snapshot for the same set, if any.
// The driver can resume polling it instead of triggering a duplicate job.
func (m *Manager) FindInFlight(ctx context.Context, usernames []string) (*domain.Snapshot, error) {
	fp := Fingerprint(usernames)
	snap, err := m.store.FindByFingerprint(ctx, fp, domain.SnapshotPending)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Register persists a new pending snapshot for the accounts sent to it.
func (m *Manager) Register(ctx context.Context, snapshotID string, accounts []domain.Account) error {
	usernames := make([]string, 0, len(accounts))
	for _, a := range accounts {
		usernames = append(usernames, a.Username)
	}

	snap := &domain.Snapshot{
		ID:            snapshotID,
		Fingerprint:   Fingerprint(usernames),
		Status:        domain.SnapshotPending,
		Usernames:     usernames,
		TotalAccounts: len(accounts),
		CreatedAt:     m.now().UTC(),
	}

	if err := m.store.Put(ctx, snap); err != nil {
		return fmt.Errorf("register snapshot %s: %w", snapshotID, err)
	}
	m.logger.Info("snapshot registered", "id", snapshotID, "accounts", len(accounts))
	return nil
}

// resultSampleLimit bounds how many downloaded records a snapshot keeps.
const resultSampleLimit = 3

// UpdateStatus records the terminal outcome of a snapshot: the result
// count and a bounded sample of the records. It refuses to re-transition
// a snapshot that already reached a terminal status, and a failed outcome
// never erases the registered account metadata.
func (m *Manager) UpdateStatus(ctx context.Context, snapshotID string, status domain.SnapshotStatus, profiles []domain.Profile) error {
	snap, err := m.store.Get(ctx, snapshotID)
	if err != nil {
		return fmt.Errorf("update snapshot %s: %w", snapshotID, err)
	}
	if snap.Status.Terminal() {
		return fmt.Errorf("snapshot %s already %s, refusing transition to %s", snapshotID, snap.Status, status)
	}
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	snap.Status = status
	snap.ResultsCount = len(profiles)
	snap.ResultSample = profiles[:min(len(profiles), resultSampleLimit)]
	completedAt := m.now().UTC()
	snap.CompletedAt = &completedAt

	if err := m.store.Put(ctx, snap); err != nil {
		return fmt.Errorf("update snapshot %s: %w", snapshotID, err)
	}
	m.logger.Info("snapshot status updated", "id", snapshotID, "status", status, "results", len(profiles))
	return nil
}

// Summary returns per-status snapshot counts from the registry.
func (m *Manager) Summary(ctx context.Context) (map[domain.SnapshotStatus]int, error) {
	snaps, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.SnapshotStatus]int)
	for _, s := range snaps {
		counts[s.Status]++
	}
	return counts, nil
}
