// Package denoise applies a background noise reduction pass to extracted
// voice samples using ffmpeg's afftdn filter with band-pass framing.
package denoise

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"voicepipe/internal/config"
	"voicepipe/internal/core/ports"
)

// FFmpeg denoises audio files via the local ffmpeg binary.
type FFmpeg struct {
	binaryPath string
	cfg        config.DenoiseConfig
	outputDir  string
	logger     *slog.Logger
}

// New creates an FFmpeg denoiser writing into outputDir/denoised_audio.
func New(cfg config.DenoiseConfig, outputDir string, logger *slog.Logger) *FFmpeg {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		path = "ffmpeg"
	}
	return &FFmpeg{
		binaryPath: path,
		cfg:        cfg,
		outputDir:  filepath.Join(outputDir, "denoised_audio"),
		logger:     logger,
	}
}

// Denoise processes one file and returns the path of the denoised WAV.
func (f *FFmpeg) Denoise(ctx context.Context, inputPath string) (string, error) {
	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create denoised dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(f.outputDir, base+"_denoised.wav")

	filter := fmt.Sprintf("highpass=f=%d,lowpass=f=%d,afftdn=nr=%g:nf=-%g",
		f.cfg.HighpassHz, f.cfg.LowpassHz, f.cfg.NoiseDB, f.cfg.FloorDB)

	runCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, f.binaryPath,
		"-i", inputPath,
		"-af", filter,
		"-ar", fmt.Sprintf("%d", f.cfg.SampleRate),
		"-ac", "1",
		"-y",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg denoise failed: %w, stderr: %s", err, stderr.String())
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("ffmpeg exited cleanly but %s was not written", outputPath)
	}

	f.logger.Info("denoised sample", "input", filepath.Base(inputPath), "output", outputPath)
	return outputPath, nil
}

var _ ports.Denoiser = (*FFmpeg)(nil)
