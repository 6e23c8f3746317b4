package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"voicepipe/internal/core/domain"
)

func TestUsernameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://youtube.com/@somecreator", "somecreator"},
		{"https://youtube.com/c/GoodChannel", "GoodChannel"},
		{"https://youtube.com/user/olduser", "olduser"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ"},
		{"https://twitch.tv/somechannel", "somechannel"},
		{"https://twitch.tv/somechannel/videos", "somechannel"},
		{"https://example.com/profile", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UsernameFromURL(tt.url), "url %q", tt.url)
	}
}

func TestUsernameFromURLChannelIDAlias(t *testing.T) {
	got := UsernameFromURL("https://youtube.com/channel/UCabcdefghij12345678")
	assert.True(t, strings.HasPrefix(got, "yt_"), "got %q", got)
	assert.LessOrEqual(t, len(got), 11)
}

func TestUsernameFromURLSkipsTwitchSections(t *testing.T) {
	for _, url := range []string{
		"https://twitch.tv/videos",
		"https://twitch.tv/clips",
		"https://twitch.tv/collections",
	} {
		assert.Empty(t, UsernameFromURL(url), "url %q", url)
	}
}

func TestBestUsernameURLWins(t *testing.T) {
	link := domain.LinkRecord{
		URL:      "https://twitch.tv/urlhandle",
		Username: "fieldhandle",
	}
	assert.Equal(t, "urlhandle", BestUsername(link))
}

func TestBestUsernameFallsBackToIdentityFields(t *testing.T) {
	link := domain.LinkRecord{
		URL:         "https://example.com/somewhere",
		Username:    "nan",
		ProfileName: "realperson",
	}
	assert.Equal(t, "realperson", BestUsername(link))
}

func TestBestUsernameRejectsDescriptiveText(t *testing.T) {
	link := domain.LinkRecord{
		URL:      "https://example.com/somewhere",
		Username: "check my pinned post",
	}
	got := BestUsername(link)
	assert.True(t, strings.HasPrefix(got, "user_"), "got %q", got)
}

func TestBestUsernamePseudoIDIsStable(t *testing.T) {
	link := domain.LinkRecord{URL: "https://example.com/somewhere"}
	first := BestUsername(link)
	second := BestUsername(link)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "user_"))
}

func TestIsDescriptiveText(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"goodhandle", false},
		{"two words", false},
		{"three word phrase", true},
		{"check pinned", true},
		{"Follow me", true},
		{strings.Repeat("x", 31), true},
		{"", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isDescriptiveText(tt.s), "input %q", tt.s)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Some Creator!", "some_creator"},
		{"UPPER_case", "upper_case"},
		{"tabs\tand  spaces", "tabs_and_spaces"},
		{"__wrapped__", "wrapped"},
		{"dots.and-dashes", "dotsanddashes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestSanitizeFilenameIsIdempotent(t *testing.T) {
	inputs := []string{
		"Some Creator!",
		"a_very_long_username_that_keeps_going",
		"ends_with_underscore_",
		"Mixed CASE and $ymbols",
	}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		assert.Equal(t, once, SanitizeFilename(once), "input %q", in)
		assert.LessOrEqual(t, len(once), 20)
	}
}

func TestSanitizeFilenameFallsBackOnEmpty(t *testing.T) {
	for _, in := range []string{"", "nan", "None", "!!!", "_"} {
		got := SanitizeFilename(in)
		assert.True(t, strings.HasPrefix(got, "user_"), "input %q got %q", in, got)
	}
}

func TestTimeFallbackNameShape(t *testing.T) {
	got := timeFallbackName()
	var n int
	_, err := fmt.Sscanf(got, "user_%d", &n)
	assert.NoError(t, err)
	assert.Less(t, n, 10000)
}
