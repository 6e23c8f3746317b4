package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// fakeRunner is a scriptable ports.ToolRunner for tests.
type fakeRunner struct {
	probeResult string
	probeErr    error

	listJSON []byte
	listErr  error

	extractCalls []ports.ExtractRequest
	extract      func(req ports.ExtractRequest) error
}

func (f *fakeRunner) ProbeDuration(ctx context.Context, url string) (string, error) {
	return f.probeResult, f.probeErr
}

func (f *fakeRunner) ExtractAudio(ctx context.Context, req ports.ExtractRequest) error {
	f.extractCalls = append(f.extractCalls, req)
	if f.extract != nil {
		return f.extract(req)
	}
	return nil
}

func (f *fakeRunner) ListRecent(ctx context.Context, listURL string) ([]byte, error) {
	return f.listJSON, f.listErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeOutput(req ports.ExtractRequest) error {
	return os.WriteFile(req.OutputPath, []byte("audio"), 0644)
}

func TestLadderAllRungsFail(t *testing.T) {
	runner := &fakeRunner{
		extract: func(req ports.ExtractRequest) error {
			return fmt.Errorf("simulated timeout at %s kbps", req.Quality)
		},
	}
	ladder := NewQualityLadder(runner, "192", testLogger())

	result := ladder.Extract(context.Background(), "https://youtube.com/watch?v=abc",
		filepath.Join(t.TempDir(), "out.mp3"), 45, domain.PlatformYouTube)

	assert.False(t, result.Success)
	assert.Equal(t, domain.FailAllQualitiesExhausted, result.Code)
	assert.Len(t, runner.extractCalls, 4)
}

func TestLadderSecondRungWins(t *testing.T) {
	runner := &fakeRunner{
		extract: func(req ports.ExtractRequest) error {
			if req.Quality == "192" {
				return fmt.Errorf("first rung fails")
			}
			return writeOutput(req)
		},
	}
	ladder := NewQualityLadder(runner, "192", testLogger())

	result := ladder.Extract(context.Background(), "https://youtube.com/watch?v=abc",
		filepath.Join(t.TempDir(), "out.mp3"), 45, domain.PlatformYouTube)

	require.True(t, result.Success)
	assert.Equal(t, "128", result.QualityUsed)
	assert.Equal(t, 45, result.ActualDuration)
	assert.Len(t, runner.extractCalls, 2)
}

func TestLadderDurationCutoffPassedThrough(t *testing.T) {
	runner := &fakeRunner{extract: writeOutput}
	ladder := NewQualityLadder(runner, "192", testLogger())

	ladder.Extract(context.Background(), "https://youtube.com/watch?v=abc",
		filepath.Join(t.TempDir(), "out.mp3"), 600, domain.PlatformYouTube)

	require.Len(t, runner.extractCalls, 1)
	assert.Equal(t, 600, runner.extractCalls[0].DurationSeconds)
}

func TestLadderUnsupportedPlatform(t *testing.T) {
	runner := &fakeRunner{}
	ladder := NewQualityLadder(runner, "192", testLogger())

	result := ladder.Extract(context.Background(), "https://tiktok.com/@u/video/1",
		filepath.Join(t.TempDir(), "out.mp3"), 45, domain.PlatformTikTok)

	assert.False(t, result.Success)
	assert.Equal(t, domain.FailUnsupportedPlatform, result.Code)
	assert.Empty(t, runner.extractCalls)
}

func TestLadderSuccessRequiresFileOnDisk(t *testing.T) {
	// Every rung exits cleanly but never writes the file.
	runner := &fakeRunner{extract: func(req ports.ExtractRequest) error { return nil }}
	ladder := NewQualityLadder(runner, "192", testLogger())

	result := ladder.Extract(context.Background(), "https://youtube.com/watch?v=abc",
		filepath.Join(t.TempDir(), "out.mp3"), 45, domain.PlatformYouTube)

	assert.False(t, result.Success)
	assert.Equal(t, domain.FailFilesystemInconsistency, result.Code)
	assert.Len(t, runner.extractCalls, 4)
}

func TestTimeoutMultiplier(t *testing.T) {
	tests := []struct {
		duration int
		want     int
	}{
		{30, 1},
		{299, 1},
		{300, 1},
		{600, 2},
		{3600, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, timeoutMultiplier(tt.duration), "duration %d", tt.duration)
	}
}

func TestTwitchRungsHaveLargerBudgets(t *testing.T) {
	yt := rungsFor(domain.PlatformYouTube, "192")
	tw := rungsFor(domain.PlatformTwitch, "192")
	require.Len(t, yt, 4)
	require.Len(t, tw, 4)
	assert.Equal(t, 300*time.Second, yt[0].BaseTimeout)
	assert.Equal(t, 400*time.Second, tw[0].BaseTimeout)
	assert.Equal(t, "192", yt[0].Quality)
	assert.Equal(t, "64", yt[3].Quality)
}
