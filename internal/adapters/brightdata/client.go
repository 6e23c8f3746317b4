package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"voicepipe/internal/config"
	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// Polling starts fast and backs off as the snapshot ages.
const (
	initialPollInterval = 3 * time.Second
	maxPollInterval     = 20 * time.Second
	pollIntervalStep    = 2 * time.Second
)

func nextPollInterval(d time.Duration) time.Duration {
	d += pollIntervalStep
	if d > maxPollInterval {
		return maxPollInterval
	}
	return d
}

// Client implements ports.SnapshotClient against the Bright Data
// datasets v3 API: trigger a collection snapshot, poll it, download it.
type Client struct {
	baseURL   string
	apiToken  string
	datasetID string
	client    *http.Client
}

// New creates a Client from configuration.
func New(cfg config.BrightDataConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiToken:  cfg.APIToken,
		datasetID: cfg.DatasetID,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Trigger submits a discover-by-username snapshot and returns its ID.
func (c *Client) Trigger(ctx context.Context, usernames []string) (string, error) {
	payload := make([]map[string]string, 0, len(usernames))
	for _, u := range usernames {
		payload = append(payload, map[string]string{"user_name": u})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal trigger payload: %w", err)
	}

	params := url.Values{}
	params.Set("dataset_id", c.datasetID)
	params.Set("type", "discover_new")
	params.Set("discover_by", "user_name")

	endpoint := fmt.Sprintf("%s/trigger?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("trigger snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("trigger failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode trigger response: %w", err)
	}
	if result.SnapshotID == "" {
		return "", fmt.Errorf("trigger response contained no snapshot_id")
	}
	return result.SnapshotID, nil
}

// Download polls the snapshot endpoint until results are ready or maxWait
// elapses, then decodes the profile records.
func (c *Client) Download(ctx context.Context, snapshotID string, maxWait time.Duration) ([]domain.Profile, error) {
	deadline := time.Now().Add(maxWait)
	interval := initialPollInterval

	for {
		profiles, ready, err := c.fetchOnce(ctx, snapshotID)
		if err != nil {
			return nil, err
		}
		if ready {
			return profiles, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("snapshot %s not ready after %s", snapshotID, maxWait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval = nextPollInterval(interval)
	}
}

// fetchOnce performs one snapshot GET. Bright Data answers a not-yet-ready
// snapshot with 202 or a {"status": "running"} body instead of data.
func (c *Client) fetchOnce(ctx context.Context, snapshotID string) ([]domain.Profile, bool, error) {
	endpoint := fmt.Sprintf("%s/snapshot/%s?format=json", c.baseURL, snapshotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil, false, nil
	case http.StatusOK:
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("snapshot fetch failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot body: %w", err)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &status); err == nil && status.Status != "" && status.Status != "ready" {
		return nil, false, nil
	}

	profiles, err := decodeProfiles(body)
	if err != nil {
		return nil, false, err
	}
	return profiles, true, nil
}

// decodeProfiles flattens the snapshot payload into string-keyed records.
// Nested values are kept as their JSON encoding so no field is dropped.
func decodeProfiles(body []byte) ([]domain.Profile, error) {
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot records: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(raw))
	for _, rec := range raw {
		profile := make(domain.Profile, len(rec))
		for k, v := range rec {
			switch val := v.(type) {
			case nil:
				continue
			case string:
				profile[k] = val
			case float64:
				profile[k] = formatNumber(val)
			case bool:
				profile[k] = fmt.Sprintf("%t", val)
			default:
				encoded, err := json.Marshal(val)
				if err != nil {
					continue
				}
				profile[k] = string(encoded)
			}
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

var _ ports.SnapshotClient = (*Client)(nil)
