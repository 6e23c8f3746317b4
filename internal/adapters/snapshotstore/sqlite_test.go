package snapshotstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepipe/internal/core/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot(id, fingerprint string, created time.Time) *domain.Snapshot {
	return &domain.Snapshot{
		ID:            id,
		Fingerprint:   fingerprint,
		Status:        domain.SnapshotPending,
		Usernames:     []string{"alice", "bob"},
		TotalAccounts: 2,
		CreatedAt:     created,
	}
}

func TestPutAndGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, sampleSnapshot("s1", "fp1", created)))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "fp1", got.Fingerprint)
	assert.Equal(t, domain.SnapshotPending, got.Status)
	assert.Equal(t, []string{"alice", "bob"}, got.Usernames)
	assert.Equal(t, 2, got.TotalAccounts)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestGetMissingSnapshot(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestPutUpsertsExistingRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	snap := sampleSnapshot("s1", "fp1", created)
	require.NoError(t, store.Put(ctx, snap))

	completed := created.Add(5 * time.Minute)
	snap.Status = domain.SnapshotCompleted
	snap.ResultsCount = 7
	snap.ResultSample = []domain.Profile{{"user_name": "p1"}, {"user_name": "p2"}}
	snap.CompletedAt = &completed
	require.NoError(t, store.Put(ctx, snap))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SnapshotCompleted, got.Status)
	assert.Equal(t, 7, got.ResultsCount)
	require.Len(t, got.ResultSample, 2)
	assert.Equal(t, "p1", got.ResultSample[0]["user_name"])
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(completed))

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestFindByFingerprintFiltersStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, sampleSnapshot("s1", "fp1", created)))

	_, err := store.FindByFingerprint(ctx, "fp1", domain.SnapshotCompleted)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	got, err := store.FindByFingerprint(ctx, "fp1", domain.SnapshotPending)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}

func TestFindByFingerprintPrefersNewest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := sampleSnapshot("s-old", "fp1", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	newer := sampleSnapshot("s-new", "fp1", time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Put(ctx, older))
	require.NoError(t, store.Put(ctx, newer))

	got, err := store.FindByFingerprint(ctx, "fp1", domain.SnapshotPending)
	require.NoError(t, err)
	assert.Equal(t, "s-new", got.ID)
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleSnapshot("s1", "fp1", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, store.Put(ctx, sampleSnapshot("s2", "fp2", time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, store.Put(ctx, sampleSnapshot("s3", "fp3", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))))

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "s2", snaps[0].ID)
	assert.Equal(t, "s3", snaps[1].ID)
	assert.Equal(t, "s1", snaps[2].ID)
}
