// Package checker validates that social-media accounts exist, with a
// persistent log so re-runs skip accounts already checked.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"voicepipe/internal/config"
	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

const profileBaseURL = "https://x.com/"

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// NormalizeUsername trims whitespace, strips a leading @, and validates
// against platform username rules. Returns "" for invalid input.
func NormalizeUsername(username string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(username), "@")
	if !usernameRe.MatchString(normalized) {
		return ""
	}
	return normalized
}

// HTTPChecker checks account existence with plain HTTP requests.
type HTTPChecker struct {
	client *http.Client
}

// NewHTTPChecker creates an HTTPChecker with the configured timeout.
func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		client: &http.Client{Timeout: timeout},
	}
}

// Check fetches the profile page and classifies the account by response.
func (c *HTTPChecker) Check(ctx context.Context, username string) (domain.Account, error) {
	account := domain.Account{
		Username:   username,
		ProfileURL: profileBaseURL + username,
		CheckedAt:  time.Now().UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, account.ProfileURL, nil)
	if err != nil {
		account.Status = domain.AccountError
		return account, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		account.Status = domain.AccountError
		return account, fmt.Errorf("check %s: %w", username, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		account.Status = domain.AccountDoesNotExist
	case resp.StatusCode == http.StatusForbidden:
		account.Status = domain.AccountSuspended
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		account.Status = domain.AccountExists
	default:
		account.Status = domain.AccountUnknown
	}
	return account, nil
}

var _ ports.AccountChecker = (*HTTPChecker)(nil)

// Validator runs existence checks over a username list with rate limiting
// and a persistent JSON log of already-processed accounts.
type Validator struct {
	checker ports.AccountChecker
	cfg     config.ValidationConfig
	logPath string
	logger  *slog.Logger
	rng     *rand.Rand

	processed map[string]domain.Account
}

// NewValidator loads the persisted check log (if any) and returns a
// ready-to-use Validator.
func NewValidator(checker ports.AccountChecker, cfg config.ValidationConfig, logPath string, logger *slog.Logger) (*Validator, error) {
	v := &Validator{
		checker:   checker,
		cfg:       cfg,
		logPath:   logPath,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		processed: make(map[string]domain.Account),
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read check log: %w", err)
	}
	if err := json.Unmarshal(data, &v.processed); err != nil {
		// A corrupt log is rebuilt from scratch rather than aborting the run.
		logger.Warn("check log unreadable, starting fresh", "path", logPath, "error", err)
		v.processed = make(map[string]domain.Account)
	}
	return v, nil
}

// Validate checks every username and returns only existing accounts.
// Already-logged accounts are skipped unless forceRecheck is set.
func (v *Validator) Validate(ctx context.Context, usernames []string, forceRecheck bool) ([]domain.Account, error) {
	var valid []domain.Account

	for i, raw := range usernames {
		username := NormalizeUsername(raw)
		if username == "" {
			v.logger.Warn("skipping invalid username", "input", raw)
			continue
		}

		account, cached := v.processed[username]
		if cached && !forceRecheck {
			v.logger.Info("account check cached", "username", username, "status", account.Status)
		} else {
			if i > 0 {
				if err := v.pause(ctx); err != nil {
					return valid, err
				}
			}
			checked, err := v.checker.Check(ctx, username)
			if err != nil {
				v.logger.Warn("account check failed", "username", username, "error", err)
			}
			account = checked
			v.processed[username] = account
			if err := v.saveLog(); err != nil {
				v.logger.Warn("could not persist check log", "error", err)
			}
			v.logger.Info("account checked", "username", username, "status", account.Status)
		}

		if account.Status == domain.AccountExists {
			valid = append(valid, account)
		}
	}
	return valid, nil
}

// pause waits a randomized delay in [DelayMin, DelayMax].
func (v *Validator) pause(ctx context.Context) error {
	spread := v.cfg.DelayMax - v.cfg.DelayMin
	delay := v.cfg.DelayMin
	if spread > 0 {
		delay += time.Duration(v.rng.Int63n(int64(spread)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (v *Validator) saveLog() error {
	data, err := json.MarshalIndent(v.processed, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(v.logPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(v.logPath, data, 0644)
}
