package brightdata

import (
	"strings"

	"voicepipe/internal/core/domain"
)

// linkFields are the profile fields that may carry an external link,
// checked in order. Dataset versions disagree on the column name.
var linkFields = []string{
	"external_link",
	"url",
	"website",
	"profile_external_link",
	"bio_link",
}

var usernameFields = []string{"username", "user_name", "screen_name", "handle"}

var profileNameFields = []string{"profile_name", "name", "full_name"}

// ExtractExternalLinks pulls external profile links out of scraped profile
// records. Profiles without a usable link are skipped.
func ExtractExternalLinks(profiles []domain.Profile) []domain.LinkRecord {
	links := make([]domain.LinkRecord, 0, len(profiles))
	for _, p := range profiles {
		link := firstNonEmpty(p, linkFields)
		if link == "" {
			continue
		}
		links = append(links, domain.LinkRecord{
			URL:         link,
			Username:    firstNonEmpty(p, usernameFields),
			ProfileName: firstNonEmpty(p, profileNameFields),
		})
	}
	return links
}

func firstNonEmpty(p domain.Profile, fields []string) string {
	for _, f := range fields {
		if v := strings.TrimSpace(p[f]); v != "" {
			return v
		}
	}
	return ""
}
