// Package filter narrows external links down to confirmed voice content:
// platform classification, then lightweight audio and voice heuristics.
package filter

import (
	"log/slog"
	"net/url"
	"strings"

	"voicepipe/internal/core/domain"
)

// audioPlatforms maps known host fragments to their platform.
var audioPlatforms = []struct {
	host     string
	platform domain.Platform
}{
	{"youtube.com", domain.PlatformYouTube},
	{"youtu.be", domain.PlatformYouTube},
	{"twitch.tv", domain.PlatformTwitch},
	{"tiktok.com", domain.PlatformTikTok},
}

// PlatformStats counts classification outcomes per platform.
type PlatformStats map[domain.Platform]int

// FilterAudioLinks keeps only links on recognized media platforms,
// annotating each with its platform.
func FilterAudioLinks(links []domain.LinkRecord, logger *slog.Logger) ([]domain.LinkRecord, PlatformStats) {
	stats := make(PlatformStats)
	var kept []domain.LinkRecord

	for _, link := range links {
		platform := ClassifyURL(link.URL)
		if platform == domain.PlatformUnknown {
			stats[domain.PlatformUnknown]++
			continue
		}
		link.Platform = platform
		kept = append(kept, link)
		stats[platform]++
	}

	logger.Info("platform filtering done",
		"youtube", stats[domain.PlatformYouTube],
		"twitch", stats[domain.PlatformTwitch],
		"tiktok", stats[domain.PlatformTikTok],
		"filtered_out", stats[domain.PlatformUnknown])
	return kept, stats
}

// ClassifyURL maps a URL to its media platform by host.
func ClassifyURL(rawURL string) domain.Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.PlatformUnknown
	}
	host := strings.ToLower(u.Host)
	for _, p := range audioPlatforms {
		if host == p.host || strings.HasSuffix(host, "."+p.host) {
			return p.platform
		}
	}
	return domain.PlatformUnknown
}
