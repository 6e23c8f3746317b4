package checker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepipe/internal/config"
	"voicepipe/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"@alice", "alice"},
		{"  @Bob_123  ", "Bob_123"},
		{"", ""},
		{"@", ""},
		{"way_too_long_username", ""},
		{"bad name", ""},
		{"dash-name", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUsername(tt.in), "input %q", tt.in)
	}
}

// fakeChecker maps usernames to canned statuses.
type fakeChecker struct {
	statuses map[string]string
	checks   []string
}

func (f *fakeChecker) Check(ctx context.Context, username string) (domain.Account, error) {
	f.checks = append(f.checks, username)
	status, ok := f.statuses[username]
	if !ok {
		return domain.Account{Username: username, Status: domain.AccountError},
			fmt.Errorf("no canned status for %s", username)
	}
	return domain.Account{Username: username, Status: status}, nil
}

func newTestValidator(t *testing.T, fc *fakeChecker) (*Validator, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "processed_accounts.json")
	v, err := NewValidator(fc, config.ValidationConfig{}, logPath, testLogger())
	require.NoError(t, err)
	return v, logPath
}

func TestValidateKeepsOnlyExistingAccounts(t *testing.T) {
	fc := &fakeChecker{statuses: map[string]string{
		"alice": domain.AccountExists,
		"bob":   domain.AccountDoesNotExist,
		"carol": domain.AccountSuspended,
	}}
	v, _ := newTestValidator(t, fc)

	valid, err := v.Validate(context.Background(), []string{"alice", "bob", "carol"}, false)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "alice", valid[0].Username)
}

func TestValidateSkipsInvalidUsernames(t *testing.T) {
	fc := &fakeChecker{statuses: map[string]string{"alice": domain.AccountExists}}
	v, _ := newTestValidator(t, fc)

	valid, err := v.Validate(context.Background(), []string{"not a handle", "@alice", ""}, false)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, []string{"alice"}, fc.checks)
}

func TestValidateUsesCachedResults(t *testing.T) {
	fc := &fakeChecker{statuses: map[string]string{"alice": domain.AccountExists}}
	v, logPath := newTestValidator(t, fc)

	_, err := v.Validate(context.Background(), []string{"alice"}, false)
	require.NoError(t, err)
	require.Len(t, fc.checks, 1)

	// A fresh validator over the same log must not re-check.
	fc2 := &fakeChecker{statuses: map[string]string{"alice": domain.AccountExists}}
	v2, err := NewValidator(fc2, config.ValidationConfig{}, logPath, testLogger())
	require.NoError(t, err)

	valid, err := v2.Validate(context.Background(), []string{"alice"}, false)
	require.NoError(t, err)
	assert.Len(t, valid, 1)
	assert.Empty(t, fc2.checks)
}

func TestValidateForceRecheck(t *testing.T) {
	fc := &fakeChecker{statuses: map[string]string{"alice": domain.AccountExists}}
	v, _ := newTestValidator(t, fc)

	_, err := v.Validate(context.Background(), []string{"alice"}, false)
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), []string{"alice"}, true)
	require.NoError(t, err)
	assert.Len(t, fc.checks, 2)
}

func TestNewValidatorSurvivesCorruptLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "processed_accounts.json")
	require.NoError(t, os.WriteFile(logPath, []byte("{not json"), 0644))

	fc := &fakeChecker{statuses: map[string]string{"alice": domain.AccountExists}}
	v, err := NewValidator(fc, config.ValidationConfig{}, logPath, testLogger())
	require.NoError(t, err)

	valid, err := v.Validate(context.Background(), []string{"alice"}, false)
	require.NoError(t, err)
	assert.Len(t, valid, 1)
}

func TestValidateRecordsFailedChecks(t *testing.T) {
	fc := &fakeChecker{statuses: map[string]string{}}
	v, logPath := newTestValidator(t, fc)

	valid, err := v.Validate(context.Background(), []string{"alice"}, false)
	require.NoError(t, err)
	assert.Empty(t, valid)

	// The error outcome is persisted so re-runs skip the account.
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), domain.AccountError)
}
