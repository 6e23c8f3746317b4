package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"voicepipe/internal/core/ports"
)

// Tool drives the local yt-dlp binary. All calls are synchronous and
// bounded by the caller's context deadline.
type Tool struct {
	binaryPath string
}

// New creates a Tool. The binary is resolved from PATH; callers get a
// usable Tool either way and failures surface on first invocation.
func New() *Tool {
	path, err := exec.LookPath("yt-dlp")
	if err != nil {
		path = "yt-dlp"
	}
	return &Tool{binaryPath: path}
}

// ProbeDuration asks yt-dlp for the content duration string.
func (t *Tool) ProbeDuration(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binaryPath,
		"--get-duration",
		"--quiet",
		"--no-warnings",
		url,
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp --get-duration failed: %w, stderr: %s", err, stderr.String())
	}

	duration := strings.TrimSpace(out.String())
	if duration == "" {
		return "", fmt.Errorf("yt-dlp returned empty duration")
	}
	return duration, nil
}

// ExtractAudio extracts an mp3 at the requested bitrate, hard-cut to the
// requested duration via ffmpeg postprocessor args.
func (t *Tool) ExtractAudio(ctx context.Context, req ports.ExtractRequest) error {
	// yt-dlp appends the real extension itself, so hand it a template.
	outputTemplate := strings.TrimSuffix(req.OutputPath, ".mp3") + ".%(ext)s"

	cmd := exec.CommandContext(ctx, t.binaryPath,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", req.Quality,
		"--postprocessor-args", fmt.Sprintf("ffmpeg:-t %d", req.DurationSeconds),
		"--output", outputTemplate,
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--ignore-errors",
		"--fragment-retries", "5",
		"--retries", "5",
		"--socket-timeout", "30",
		req.URL,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp extraction failed: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

// ListRecent dumps metadata for the first entry of a channel listing.
func (t *Tool) ListRecent(ctx context.Context, listURL string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.binaryPath,
		"--dump-json",
		"--playlist-end", "1",
		"--quiet",
		"--no-warnings",
		listURL,
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp listing failed: %w, stderr: %s", err, stderr.String())
	}
	return out.Bytes(), nil
}

var _ ports.ToolRunner = (*Tool)(nil)
