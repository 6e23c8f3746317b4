// Package voiceonly isolates the voiced portion of extracted samples:
// ffmpeg silenceremove strips non-speech gaps, ffprobe measures what
// survived, and a local transcriber (when installed) fills in the spoken
// text.
package voiceonly

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"voicepipe/internal/config"
	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// FFmpeg runs the voice-only pass via the local ffmpeg/ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	// whisperPath is empty when no transcriber is on PATH; speech fields
	// then stay empty.
	whisperPath string
	cfg         config.VoiceOnlyConfig
	outputDir   string
	logger      *slog.Logger
}

// New creates a processor writing into outputDir/voice_only_audio.
func New(cfg config.VoiceOnlyConfig, outputDir string, logger *slog.Logger) *FFmpeg {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		ffmpeg = "ffmpeg"
	}
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		ffprobe = "ffprobe"
	}
	whisper, _ := exec.LookPath("whisper")
	return &FFmpeg{
		ffmpegPath:  ffmpeg,
		ffprobePath: ffprobe,
		whisperPath: whisper,
		cfg:         cfg,
		outputDir:   filepath.Join(outputDir, "voice_only_audio"),
		logger:      logger,
	}
}

// Isolate processes one sample and returns its voice-only analysis. The
// confidence is the voiced share of the input duration.
func (f *FFmpeg) Isolate(ctx context.Context, inputPath string) (domain.VoiceOnlyRecord, error) {
	var rec domain.VoiceOnlyRecord

	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return rec, fmt.Errorf("create voice-only dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(f.outputDir, base+"_voice_only.wav")

	filter := fmt.Sprintf("silenceremove=start_periods=1:stop_periods=-1:stop_duration=%g:stop_threshold=%ddB",
		f.cfg.MinSegmentSeconds, f.cfg.SilenceThresholdDB)

	runCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, f.ffmpegPath,
		"-i", inputPath,
		"-af", filter,
		"-y",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return rec, fmt.Errorf("ffmpeg voice isolation failed: %w, stderr: %s", err, stderr.String())
	}
	if _, err := os.Stat(outputPath); err != nil {
		return rec, fmt.Errorf("ffmpeg exited cleanly but %s was not written", outputPath)
	}

	total, err := f.probeDuration(runCtx, inputPath)
	if err != nil {
		return rec, err
	}
	voiced, err := f.probeDuration(runCtx, outputPath)
	if err != nil {
		return rec, err
	}

	confidence := 0.0
	if total > 0 {
		confidence = voiced / total
	}
	if confidence > 1 {
		confidence = 1
	}

	rec.VoiceOnlyFile = outputPath
	rec.VoiceDuration = voiced
	rec.Confidence = confidence
	rec.SpeechText, rec.WordCount = f.transcribe(runCtx, outputPath)

	f.logger.Info("voice isolation done",
		"input", filepath.Base(inputPath),
		"voiced_seconds", fmt.Sprintf("%.1f", voiced),
		"confidence", fmt.Sprintf("%.2f", confidence))
	return rec, nil
}

func (f *FFmpeg) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable ffprobe duration %q for %s", strings.TrimSpace(string(out)), filepath.Base(path))
	}
	return d, nil
}

// transcribe is best effort; isolation succeeds without it.
func (f *FFmpeg) transcribe(ctx context.Context, path string) (string, int) {
	if f.whisperPath == "" {
		return "", 0
	}

	cmd := exec.CommandContext(ctx, f.whisperPath, path,
		"--model", "base",
		"--output_format", "txt",
		"--output_dir", f.outputDir,
		"--fp16", "False",
	)
	if err := cmd.Run(); err != nil {
		f.logger.Warn("transcription failed", "file", filepath.Base(path), "error", err)
		return "", 0
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(filepath.Join(f.outputDir, base+".txt"))
	if err != nil {
		return "", 0
	}
	words := strings.Fields(string(data))
	return strings.Join(words, " "), len(words)
}

var _ ports.VoiceOnlyProcessor = (*FFmpeg)(nil)
