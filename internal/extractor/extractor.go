// Package extractor turns verified voice links into bounded-duration audio
// samples via an external media tool, negotiating quality, timeout, and
// duration per link.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"voicepipe/internal/config"
	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// Extractor runs one extraction attempt per link, sequentially. Failures
// are recorded on the link and never abort the batch.
type Extractor struct {
	durations *DurationResolver
	resolver  *PlatformResolver
	ladder    *QualityLadder
	cfg       config.SampleConfig
	outputDir string
	logger    *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// New wires the duration resolver, platform resolver, and quality ladder
// around one ToolRunner.
func New(runner ports.ToolRunner, cfg config.SampleConfig, outputDir string, logger *slog.Logger) *Extractor {
	return &Extractor{
		durations: NewDurationResolver(runner, cfg.ProbeTimeout, logger),
		resolver:  NewPlatformResolver(runner, cfg.ListingTimeout, logger),
		ladder:    NewQualityLadder(runner, cfg.Quality, logger),
		cfg:       cfg,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// ExtractAll processes every link in order, enriching each record in place
// with its extraction outcome, and returns the enriched slice. Every input
// link ends up either extracted or carrying a recorded failure.
func (e *Extractor) ExtractAll(ctx context.Context, links []domain.LinkRecord) []domain.LinkRecord {
	if len(links) == 0 {
		e.logger.Info("no confirmed voice links to extract samples from")
		return links
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		e.logger.Error("cannot create samples directory", "dir", e.outputDir, "error", err)
	}

	e.logger.Info("starting voice sample extraction",
		"links", len(links), "dir", e.outputDir,
		"min_duration", e.cfg.MinDuration, "max_duration", e.cfg.MaxDuration)

	for i := range links {
		if ctx.Err() != nil {
			break
		}
		e.extractOne(ctx, &links[i], i+1, len(links))
		// Throttle outbound requests regardless of outcome.
		e.sleep(ctx, e.cfg.InterItemDelay)
	}

	e.logSummary(Summarize(links))
	return links
}

// extractOne is the per-link state machine: resolve username, resolve
// duration, extract, record. Any unexpected fault downgrades to a
// recorded failure so the batch continues.
func (e *Extractor) extractOne(ctx context.Context, link *domain.LinkRecord, index, total int) {
	defer func() {
		if r := recover(); r != nil {
			link.SampleExtracted = false
			link.ExtractionStatus = string(domain.FailExtractionError) + ": " + fmt.Sprint(r)
			e.logger.Error("extraction fault recovered", "url", link.URL, "fault", r)
		}
	}()

	if link.URL == "" {
		link.ExtractionStatus = string(domain.FailExtractionError) + ": no URL provided"
		e.logger.Warn("skipping entry with no URL", "index", index)
		return
	}

	username := BestUsername(*link)
	e.logger.Info("processing link",
		"progress", fmt.Sprintf("%d/%d", index, total), "username", username, "platform", link.Platform)

	spec := domain.DurationSpec{Min: e.cfg.MinDuration, Max: e.cfg.MaxDuration}
	duration := e.durations.Resolve(ctx, link.URL, spec)

	safeUsername := SanitizeFilename(username)
	filename := fmt.Sprintf("%s_%s_%ds_%d", safeUsername, link.Platform, duration, e.now().Unix())
	outputPath := filepath.Join(e.outputDir, filename+".mp3")

	result := e.attempt(ctx, link.URL, outputPath, duration, link.Platform)

	link.RequestedDuration = duration
	link.ProcessedUsername = safeUsername
	link.SampleExtracted = result.Success
	if result.Success {
		link.SampleFile = result.FilePath
		link.SampleFilename = filename + ".mp3"
		link.ActualDuration = result.ActualDuration
		link.Quality = result.QualityUsed
		link.ExtractionStatus = fmt.Sprintf("%s_success_%s_quality_%s_duration_%ds",
			link.Platform, safeUsername, result.QualityUsed, duration)
		e.logger.Info("sample saved",
			"file", link.SampleFilename, "duration", duration, "size", result.FileSizeBytes)
	} else {
		link.ExtractionStatus = string(result.Code) + ": " + result.Detail
		e.logger.Warn("extraction failed", "url", link.URL, "code", result.Code, "detail", result.Detail)
	}
}

// attempt resolves the target URL for the platform and walks the ladder.
func (e *Extractor) attempt(ctx context.Context, url, outputPath string, duration int, platform domain.Platform) domain.ExtractionResult {
	target, err := e.resolver.Resolve(ctx, url, platform)
	if err != nil {
		return domain.Failed(domain.FailNoRecentContent, err.Error())
	}
	return e.ladder.Extract(ctx, target, outputPath, duration, platform)
}

func (e *Extractor) logSummary(s Summary) {
	e.logger.Info("voice sample extraction completed",
		"total", s.Total, "extracted", s.Extracted, "failed", s.Failed,
		"success_rate", fmt.Sprintf("%.1f%%", s.SuccessRate))
	if s.Extracted > 0 {
		e.logger.Info("duration statistics",
			"total_seconds", s.TotalSeconds,
			"total_hours", fmt.Sprintf("%.1f", float64(s.TotalSeconds)/3600),
			"avg_seconds", fmt.Sprintf("%.1f", s.AvgSeconds),
			"shortest", s.MinSeconds, "longest", s.MaxSeconds)
		for platform, count := range s.ByPlatform {
			e.logger.Info("platform breakdown", "platform", platform, "samples", count)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
