package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// PlatformResolver normalizes platform-specific URL shapes before
// extraction. Its one real job is resolving a Twitch channel page to that
// channel's most recent video-on-demand.
type PlatformResolver struct {
	runner         ports.ToolRunner
	listingTimeout time.Duration
	logger         *slog.Logger
}

// NewPlatformResolver creates a resolver bounded by listingTimeout per
// listing query.
func NewPlatformResolver(runner ports.ToolRunner, listingTimeout time.Duration, logger *slog.Logger) *PlatformResolver {
	return &PlatformResolver{runner: runner, listingTimeout: listingTimeout, logger: logger}
}

// Resolve maps url to the URL extraction should actually run against.
// Non-Twitch URLs and direct VOD/clip URLs pass through unchanged. A
// channel URL with no recent VOD is an error; it never falls back to the
// channel URL itself.
func (p *PlatformResolver) Resolve(ctx context.Context, url string, platform domain.Platform) (string, error) {
	if platform != domain.PlatformTwitch || isDirectTwitchURL(url) {
		return url, nil
	}

	listURL := url
	if !strings.HasSuffix(strings.TrimRight(url, "/"), "/videos") {
		listURL = strings.TrimRight(url, "/") + "/videos"
	}

	p.logger.Info("resolving recent VOD for channel", "channel", url)

	listCtx, cancel := context.WithTimeout(ctx, p.listingTimeout)
	defer cancel()

	out, err := p.runner.ListRecent(listCtx, listURL)
	if err != nil {
		return "", fmt.Errorf("%w: listing failed: %v", domain.ErrNoRecentContent, err)
	}

	entry, err := parseFirstEntry(out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoRecentContent, err)
	}

	vodURL := entry.WebpageURL
	if vodURL == "" {
		vodURL = entry.URL
	}
	if vodURL == "" {
		return "", fmt.Errorf("%w: listing entry has no URL", domain.ErrNoRecentContent)
	}

	p.logger.Info("found recent VOD", "title", truncate(entry.Title, 30), "url", vodURL)
	return vodURL, nil
}

// isDirectTwitchURL reports whether url already points at a VOD or clip.
func isDirectTwitchURL(url string) bool {
	return strings.Contains(url, "/videos/") || strings.Contains(url, "/clip/")
}

type listingEntry struct {
	WebpageURL string `json:"webpage_url"`
	URL        string `json:"url"`
	Title      string `json:"title"`
}

// parseFirstEntry decodes the first non-empty line of a one-record-per-line
// JSON dump.
func parseFirstEntry(out []byte) (*listingEntry, error) {
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var entry listingEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parse listing entry: %v", err)
		}
		return &entry, nil
	}
	return nil, fmt.Errorf("listing returned no entries")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
