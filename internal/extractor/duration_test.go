package extractor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepipe/internal/core/domain"
)

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"1:02:03", 3723},
		{"02:03", 123},
		{"0:45", 45},
		{"45", 45},
		{"45.9", 45},
		{" 10:00 ", 600},
	}
	for _, tt := range tests {
		got, err := ParseDurationString(tt.raw)
		require.NoError(t, err, "raw %q", tt.raw)
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
	}
}

func TestParseDurationStringRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "1:2:3:4", "mm:ss", "1:xx"} {
		_, err := ParseDurationString(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestResolveClampsToRange(t *testing.T) {
	spec := domain.DurationSpec{Min: 30, Max: 3600}
	resolver := NewDurationResolver(&fakeRunner{probeResult: "0:45"}, time.Second, testLogger())

	got := resolver.Resolve(context.Background(), "https://youtube.com/watch?v=abc", spec)
	assert.Equal(t, 45, got)
}

func TestResolveShortContentPadsUpToMin(t *testing.T) {
	spec := domain.DurationSpec{Min: 30, Max: 3600}
	resolver := NewDurationResolver(&fakeRunner{probeResult: "12"}, time.Second, testLogger())

	got := resolver.Resolve(context.Background(), "https://youtube.com/watch?v=abc", spec)
	assert.Equal(t, 30, got)
}

func TestResolveLongContentCapsAtMax(t *testing.T) {
	spec := domain.DurationSpec{Min: 30, Max: 3600}
	resolver := NewDurationResolver(&fakeRunner{probeResult: "2:30:00"}, time.Second, testLogger())

	got := resolver.Resolve(context.Background(), "https://twitch.tv/videos/123", spec)
	assert.Equal(t, 3600, got)
}

func TestResolveFailsOpenOnProbeError(t *testing.T) {
	spec := domain.DurationSpec{Min: 30, Max: 3600}
	resolver := NewDurationResolver(&fakeRunner{probeErr: fmt.Errorf("yt-dlp exploded")}, time.Second, testLogger())

	got := resolver.Resolve(context.Background(), "https://youtube.com/watch?v=abc", spec)
	assert.Equal(t, 3600, got)
}

func TestResolveFailsOpenOnUnparseableOutput(t *testing.T) {
	spec := domain.DurationSpec{Min: 30, Max: 3600}
	resolver := NewDurationResolver(&fakeRunner{probeResult: "N/A"}, time.Second, testLogger())

	got := resolver.Resolve(context.Background(), "https://youtube.com/watch?v=abc", spec)
	assert.Equal(t, 3600, got)
}

func TestClampIsIdempotent(t *testing.T) {
	spec := domain.DurationSpec{Min: 30, Max: 3600}
	for _, v := range []int{1, 30, 45, 3600, 9999} {
		once := spec.Clamp(v)
		assert.Equal(t, once, spec.Clamp(once), "value %d", v)
		assert.GreaterOrEqual(t, once, spec.Min)
		assert.LessOrEqual(t, once, spec.Max)
	}
}
