// Package service sequences the full pipeline: validation, snapshot
// management, link filtering, voice heuristics, sample extraction, and
// noise reduction. Each stage persists its output and a stage that yields
// nothing short-circuits the run.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"voicepipe/internal/adapters/brightdata"
	"voicepipe/internal/adapters/checker"
	"voicepipe/internal/config"
	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
	"voicepipe/internal/extractor"
	"voicepipe/internal/filter"
	"voicepipe/internal/snapshot"
	"voicepipe/internal/stage"
)

// Pipeline wires every stage of the voice content pipeline.
type Pipeline struct {
	cfg       *config.Config
	validator *checker.Validator
	client    ports.SnapshotClient
	snapshots *snapshot.Manager
	detector  *filter.Detector
	extractor *extractor.Extractor
	denoiser  ports.Denoiser
	voiceProc ports.VoiceOnlyProcessor
	logger    *slog.Logger
}

// New creates a Pipeline from its collaborators.
func New(
	cfg *config.Config,
	validator *checker.Validator,
	client ports.SnapshotClient,
	snapshots *snapshot.Manager,
	detector *filter.Detector,
	ext *extractor.Extractor,
	denoiser ports.Denoiser,
	voiceProc ports.VoiceOnlyProcessor,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		validator: validator,
		client:    client,
		snapshots: snapshots,
		detector:  detector,
		extractor: ext,
		denoiser:  denoiser,
		voiceProc: voiceProc,
		logger:    logger,
	}
}

// Run executes the whole pipeline for the usernames in inputFile.
func (p *Pipeline) Run(ctx context.Context, inputFile string, forceRecheck bool) error {
	runID := uuid.New().String()
	p.logger.Info("pipeline starting", "run_id", runID, "input", inputFile)

	if err := os.MkdirAll(p.cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Stage 1: account validation.
	usernames, err := stage.ReadUsernames(inputFile)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	accounts, err := p.validator.Validate(ctx, usernames, forceRecheck)
	if err != nil {
		return fmt.Errorf("validate accounts: %w", err)
	}
	if err := stage.WriteAccounts(p.stagePath("1_existing_accounts.csv"), accounts); err != nil {
		return err
	}
	if len(accounts) == 0 {
		p.logger.Info("no valid accounts found, stopping")
		return nil
	}
	p.logger.Info("accounts validated", "input", len(usernames), "existing", len(accounts))

	// Stage 2: snapshot reuse-or-create.
	snapshotID, fresh, err := p.resolveSnapshot(ctx, accounts)
	if err != nil {
		return err
	}

	// Stage 3: download profiles and extract external links.
	profiles, err := p.client.Download(ctx, snapshotID, p.cfg.BrightData.MaxSnapshotWait)
	if err != nil {
		if fresh {
			if updateErr := p.snapshots.UpdateStatus(ctx, snapshotID, domain.SnapshotFailed, nil); updateErr != nil {
				p.logger.Warn("could not mark snapshot failed", "id", snapshotID, "error", updateErr)
			}
		}
		return fmt.Errorf("download snapshot %s: %w", snapshotID, err)
	}
	if fresh {
		if err := p.snapshots.UpdateStatus(ctx, snapshotID, domain.SnapshotCompleted, profiles); err != nil {
			p.logger.Warn("could not mark snapshot completed", "id", snapshotID, "error", err)
		}
	}
	if err := stage.WriteProfiles(p.stagePath("2_snapshot_"+snapshotID+"_results.csv"), profiles); err != nil {
		return err
	}
	p.logger.Info("profiles downloaded", "snapshot", snapshotID, "profiles", len(profiles))

	links := brightdata.ExtractExternalLinks(profiles)
	if err := stage.WriteLinks(p.stagePath("3_snapshot_"+snapshotID+"_external_links.csv"), links); err != nil {
		return err
	}
	if len(links) == 0 {
		p.logger.Info("no external links found in profiles, stopping")
		return nil
	}
	p.logger.Info("external links extracted", "links", len(links))

	// Stage 4: platform filtering.
	audioLinks, _ := filter.FilterAudioLinks(links, p.logger)
	if err := stage.WriteLinks(p.stagePath("4_snapshot_"+snapshotID+"_audio_links.csv"), audioLinks); err != nil {
		return err
	}
	if len(audioLinks) == 0 {
		p.logger.Info("no media platform links found, stopping")
		return nil
	}

	// Stage 4.5: audio content detection.
	detected := p.detector.DetectAudio(ctx, audioLinks)
	if err := stage.WriteLinks(p.stagePath("4_5_snapshot_"+snapshotID+"_audio_detected.csv"), detected); err != nil {
		return err
	}
	if len(detected) == 0 {
		p.logger.Info("no audio content detected, stopping")
		return nil
	}

	// Stage 5: voice verification.
	verified := p.detector.VerifyVoice(ctx, detected)
	if err := stage.WriteLinks(p.stagePath("5_snapshot_"+snapshotID+"_verified_voice.csv"), verified); err != nil {
		return err
	}
	confirmed := filter.ConfirmedVoice(verified)
	if err := stage.WriteLinks(p.stagePath("5_snapshot_"+snapshotID+"_confirmed_voice.csv"), confirmed); err != nil {
		return err
	}
	if len(confirmed) == 0 {
		p.logger.Info("no voice content confirmed, stopping")
		return nil
	}
	p.logger.Info("voice content confirmed", "links", len(confirmed))

	// Stage 6: voice sample extraction.
	enriched := p.extractor.ExtractAll(ctx, confirmed)
	if err := stage.WriteLinks(p.stagePath("6_snapshot_"+snapshotID+"_voice_samples.csv"), enriched); err != nil {
		return err
	}
	if reportPath, err := extractor.WriteReport(p.cfg.Output.SamplesDir(), enriched, p.cfg.Sample); err != nil {
		p.logger.Warn("could not write extraction report", "error", err)
	} else {
		p.logger.Info("extraction report written", "path", reportPath)
	}

	// Stage 8: noise reduction over successful samples.
	denoised := p.denoiseSamples(ctx, enriched)
	if err := stage.WriteLinks(p.stagePath("8_snapshot_"+snapshotID+"_denoised.csv"), denoised); err != nil {
		return err
	}

	// Stage 7: voice-only isolation, after noise reduction.
	voiceOnly := p.isolateVoiceOnly(ctx, denoised)
	if err := stage.WriteVoiceOnly(p.stagePath("7_snapshot_"+snapshotID+"_voice_only.csv"), voiceOnly); err != nil {
		return err
	}

	p.logFinalSummary(ctx, snapshotID, accounts, links, denoised, voiceOnly)
	return nil
}

// resolveSnapshot reuses a completed or in-flight snapshot for the same
// account set, or triggers and registers a new one. The second return
// value reports whether this run owns the snapshot's terminal transition.
func (p *Pipeline) resolveSnapshot(ctx context.Context, accounts []domain.Account) (string, bool, error) {
	usernames := make([]string, 0, len(accounts))
	for _, a := range accounts {
		usernames = append(usernames, a.Username)
	}

	if snap, err := p.snapshots.FindReusable(ctx, usernames); err != nil {
		return "", false, err
	} else if snap != nil {
		p.logger.Info("reusing completed snapshot", "id", snap.ID)
		return snap.ID, false, nil
	}

	if snap, err := p.snapshots.FindInFlight(ctx, usernames); err != nil {
		return "", false, err
	} else if snap != nil {
		p.logger.Info("resuming in-flight snapshot", "id", snap.ID)
		return snap.ID, true, nil
	}

	p.logger.Info("triggering new snapshot", "usernames", len(usernames))
	snapshotID, err := p.client.Trigger(ctx, usernames)
	if err != nil {
		return "", false, fmt.Errorf("trigger snapshot: %w", err)
	}
	if err := p.snapshots.Register(ctx, snapshotID, accounts); err != nil {
		return "", false, err
	}
	return snapshotID, true, nil
}

// denoiseSamples runs noise reduction over each extracted sample and
// re-points the record at the denoised file. Failures leave the original
// sample in place.
func (p *Pipeline) denoiseSamples(ctx context.Context, links []domain.LinkRecord) []domain.LinkRecord {
	processed := 0
	for i := range links {
		link := &links[i]
		if !link.SampleExtracted || link.SampleFile == "" {
			continue
		}
		out, err := p.denoiser.Denoise(ctx, link.SampleFile)
		if err != nil {
			p.logger.Warn("noise reduction failed, keeping original sample",
				"file", link.SampleFile, "error", err)
			continue
		}
		link.SampleFile = out
		link.IsDenoised = true
		processed++
	}
	p.logger.Info("noise reduction completed", "denoised", processed)
	return links
}

// isolateVoiceOnly runs the voice-only pass over every extracted sample
// and keeps the results that clear the confidence floor.
func (p *Pipeline) isolateVoiceOnly(ctx context.Context, links []domain.LinkRecord) []domain.VoiceOnlyRecord {
	var kept []domain.VoiceOnlyRecord
	processed := 0
	for _, link := range links {
		if !link.SampleExtracted || link.SampleFile == "" {
			continue
		}
		processed++

		rec, err := p.voiceProc.Isolate(ctx, link.SampleFile)
		if err != nil {
			p.logger.Warn("voice isolation failed", "file", link.SampleFile, "error", err)
			continue
		}
		if rec.Confidence < p.cfg.VoiceOnly.MinConfidence {
			p.logger.Info("sample below voice confidence floor",
				"file", link.SampleFile,
				"confidence", fmt.Sprintf("%.2f", rec.Confidence),
				"floor", p.cfg.VoiceOnly.MinConfidence)
			continue
		}

		rec.ProcessedUsername = link.ProcessedUsername
		rec.Platform = link.Platform
		kept = append(kept, rec)
	}
	p.logger.Info("voice-only isolation completed", "processed", processed, "kept", len(kept))
	return kept
}

func (p *Pipeline) logFinalSummary(ctx context.Context, snapshotID string, accounts []domain.Account, links, samples []domain.LinkRecord, voiceOnly []domain.VoiceOnlyRecord) {
	s := extractor.Summarize(samples)
	p.logger.Info("pipeline completed",
		"snapshot", snapshotID,
		"accounts", len(accounts),
		"external_links", len(links),
		"samples_extracted", s.Extracted,
		"voice_only_samples", len(voiceOnly),
		"success_rate", fmt.Sprintf("%.1f%%", s.SuccessRate),
		"total_audio_hours", fmt.Sprintf("%.2f", float64(s.TotalSeconds)/3600),
		"output_dir", p.cfg.Output.Dir)

	if counts, err := p.snapshots.Summary(ctx); err == nil {
		p.logger.Info("snapshot registry",
			"pending", counts[domain.SnapshotPending],
			"completed", counts[domain.SnapshotCompleted],
			"failed", counts[domain.SnapshotFailed])
	}
}

func (p *Pipeline) stagePath(name string) string {
	return filepath.Join(p.cfg.Output.Dir, name)
}
