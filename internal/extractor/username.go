package extractor

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"voicepipe/internal/core/domain"
)

// Username resolution walks an ordered list of strategies and takes the
// first hit. URL-derived identity wins because it is the most stable
// signature across duplicated or aliased profile fields.

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/channel/([^/?]+)`),
	regexp.MustCompile(`/user/([^/?]+)`),
	regexp.MustCompile(`/c/([^/?]+)`),
	regexp.MustCompile(`/@([^/?]+)`),
	regexp.MustCompile(`/watch\?v=([^&]+)`),
	regexp.MustCompile(`youtu\.be/([^/?]+)`),
}

var twitchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`twitch\.tv/([^/?]+)/videos`),
	regexp.MustCompile(`twitch\.tv/([^/?]+)`),
}

// Twitch path segments that are site sections, not channel names.
var twitchReserved = map[string]bool{
	"videos":      true,
	"clips":       true,
	"collections": true,
}

var descriptiveWords = []string{
	"check", "pinned", "moved", "see", "bio", "link", "follow", "subscribe",
}

// BestUsername picks the identity to label a link's sample with:
// URL-derived first, then identity fields, then a deterministic pseudo-id
// from the URL, then a time-based fallback.
func BestUsername(link domain.LinkRecord) string {
	if u := UsernameFromURL(link.URL); u != "" && len(u) > 2 {
		return u
	}

	for _, candidate := range []string{link.Username, link.ProfileName} {
		u := strings.TrimSpace(candidate)
		if u != "" && !isEmptyValue(u) && !isDescriptiveText(u) {
			return u
		}
	}

	if link.URL != "" {
		return fmt.Sprintf("user_%d", urlPseudoID(link.URL))
	}
	return fmt.Sprintf("user_%d", time.Now().Unix()%10000)
}

// UsernameFromURL extracts a username-ish token from a YouTube or Twitch
// URL. Returns "" when no pattern matches.
func UsernameFromURL(url string) string {
	if url == "" {
		return ""
	}

	if strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be") {
		for _, pattern := range youtubePatterns {
			if m := pattern.FindStringSubmatch(url); m != nil {
				username := truncate(m[1], 20)
				// Channel IDs are opaque; derive a short alias instead.
				if strings.HasPrefix(username, "UC") {
					return "yt_" + username[max(0, len(username)-8):]
				}
				return username
			}
		}
		return ""
	}

	if strings.Contains(url, "twitch.tv") {
		for _, pattern := range twitchPatterns {
			if m := pattern.FindStringSubmatch(url); m != nil {
				if twitchReserved[strings.ToLower(m[1])] {
					continue
				}
				return truncate(m[1], 20)
			}
		}
	}
	return ""
}

// urlPseudoID derives a stable numeric id from a URL (FNV-1a, bounded).
func urlPseudoID(url string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(url))
	return h.Sum32() % 10000
}

func isEmptyValue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}

// isDescriptiveText reports whether s looks like bio prose rather than an
// actual handle.
func isDescriptiveText(s string) bool {
	if s == "" || len(s) > 30 {
		return true
	}
	lower := strings.ToLower(s)
	for _, w := range descriptiveWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return strings.Count(s, " ") >= 2
}

var nonFilenameChars = regexp.MustCompile(`[^a-z0-9_]`)
var multiUnderscore = regexp.MustCompile(`_+`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeFilename reduces a name to lowercase alphanumerics and
// underscores, capped at 20 characters. Sanitizing an already-sanitized
// name returns it unchanged. Names that collapse to nothing get a
// time-based fallback.
func SanitizeFilename(name string) string {
	if isEmptyValue(name) {
		return timeFallbackName()
	}

	cleaned := strings.ToLower(name)
	cleaned = whitespaceRun.ReplaceAllString(cleaned, "_")
	cleaned = nonFilenameChars.ReplaceAllString(cleaned, "")
	cleaned = multiUnderscore.ReplaceAllString(cleaned, "_")
	cleaned = truncate(cleaned, 20)
	cleaned = strings.Trim(cleaned, "_")

	if len(cleaned) < 2 {
		return timeFallbackName()
	}
	return cleaned
}

func timeFallbackName() string {
	return fmt.Sprintf("user_%d", time.Now().Unix()%10000)
}
