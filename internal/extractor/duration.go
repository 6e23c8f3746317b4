package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"voicepipe/internal/core/domain"
	"voicepipe/internal/core/ports"
)

// DurationResolver discovers how long a piece of content is and clamps it
// into the admissible sample range. When the probe fails the resolver fails
// open to the longest permitted sample.
type DurationResolver struct {
	runner  ports.ToolRunner
	timeout time.Duration
	logger  *slog.Logger
}

// NewDurationResolver creates a resolver with the given probe bound.
func NewDurationResolver(runner ports.ToolRunner, timeout time.Duration, logger *slog.Logger) *DurationResolver {
	return &DurationResolver{runner: runner, timeout: timeout, logger: logger}
}

// Resolve returns the sample duration to request for url, always within
// [spec.Min, spec.Max].
func (r *DurationResolver) Resolve(ctx context.Context, url string, spec domain.DurationSpec) int {
	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.runner.ProbeDuration(probeCtx, url)
	if err != nil {
		r.logger.Warn("duration probe failed, using maximum", "url", url, "max", spec.Max, "error", err)
		return spec.Max
	}

	total, err := ParseDurationString(raw)
	if err != nil || total <= 0 {
		r.logger.Warn("unparseable duration, using maximum", "url", url, "raw", raw, "max", spec.Max)
		return spec.Max
	}

	optimal := spec.Clamp(total)
	switch {
	case total < spec.Min:
		r.logger.Info("content shorter than minimum, padding request up",
			"url", url, "content", total, "using", optimal)
	case total > spec.Max:
		r.logger.Info("content longer than maximum, capping",
			"url", url, "content", total, "using", optimal)
	default:
		r.logger.Info("content duration resolved", "url", url, "seconds", optimal)
	}
	return optimal
}

// ParseDurationString parses H:MM:SS, MM:SS, or a bare second count
// (fractions truncated) into whole seconds.
func ParseDurationString(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 3:
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		sec, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, fmt.Errorf("invalid H:MM:SS duration %q", s)
		}
		return h*3600 + m*60 + sec, nil
	case 2:
		m, err1 := strconv.Atoi(parts[0])
		sec, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("invalid MM:SS duration %q", s)
		}
		return m*60 + sec, nil
	case 1:
		f, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("invalid duration %q", s)
	}
}
