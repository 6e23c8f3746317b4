package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// Rung is one attempt in the quality ladder: a target bitrate and the base
// wall-clock budget for extracting at it.
type Rung struct {
	Quality     string
	BaseTimeout time.Duration
}

// rungsFor returns the ordered ladder for a platform, highest quality
// first. Twitch rungs get larger budgets because VOD segment fetches are
// slower than YouTube's.
func rungsFor(platform domain.Platform, topQuality string) []Rung {
	switch platform {
	case domain.PlatformYouTube:
		return []Rung{
			{topQuality, 300 * time.Second},
			{"128", 240 * time.Second},
			{"96", 180 * time.Second},
			{"64", 120 * time.Second},
		}
	case domain.PlatformTwitch:
		return []Rung{
			{topQuality, 400 * time.Second},
			{"128", 350 * time.Second},
			{"96", 300 * time.Second},
			{"64", 250 * time.Second},
		}
	default:
		return nil
	}
}

// timeoutMultiplier scales a rung's budget with the requested duration:
// every full 5 minutes of target audio extends the budget proportionally.
func timeoutMultiplier(durationSeconds int) int {
	m := durationSeconds / 300
	if m < 1 {
		return 1
	}
	return m
}

// QualityLadder attempts extraction at descending bitrates, stopping at
// the first rung that both exits cleanly and leaves a file on disk.
type QualityLadder struct {
	runner     ports.ToolRunner
	topQuality string
	logger     *slog.Logger
}

// NewQualityLadder creates a ladder whose top rung uses topQuality kbps.
func NewQualityLadder(runner ports.ToolRunner, topQuality string, logger *slog.Logger) *QualityLadder {
	return &QualityLadder{runner: runner, topQuality: topQuality, logger: logger}
}

// Extract walks the ladder for url. Timeouts and nonzero exits move to the
// next rung; exhausting every rung is a per-link failure, never a crash.
func (l *QualityLadder) Extract(ctx context.Context, url, outputPath string, duration int, platform domain.Platform) domain.ExtractionResult {
	rungs := rungsFor(platform, l.topQuality)
	if rungs == nil {
		return domain.Failed(domain.FailUnsupportedPlatform, fmt.Sprintf("platform %q", platform))
	}

	mult := timeoutMultiplier(duration)
	sawInconsistency := false

	for _, rung := range rungs {
		timeout := rung.BaseTimeout * time.Duration(mult)
		l.logger.Info("trying quality rung",
			"platform", platform, "quality", rung.Quality, "duration", duration, "timeout", timeout)

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := l.runner.ExtractAudio(attemptCtx, ports.ExtractRequest{
			URL:             url,
			OutputPath:      outputPath,
			Quality:         rung.Quality,
			DurationSeconds: duration,
		})
		cancel()

		if err != nil {
			l.logger.Warn("rung failed, trying next", "quality", rung.Quality, "error", err)
			continue
		}

		// Exit code zero is not proof of output; the file must exist.
		info, statErr := os.Stat(outputPath)
		if statErr != nil {
			sawInconsistency = true
			l.logger.Warn("tool reported success but output file is missing",
				"quality", rung.Quality, "path", outputPath)
			continue
		}

		return domain.Extracted(outputPath, duration, info.Size(), rung.Quality)
	}

	if sawInconsistency {
		return domain.Failed(domain.FailFilesystemInconsistency,
			fmt.Sprintf("tool exited cleanly but %s was never written", outputPath))
	}
	return domain.Failed(domain.FailAllQualitiesExhausted,
		fmt.Sprintf("%s: all %d qualities failed for %ds sample", platform, len(rungs), duration))
}
