package filter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"voicepipe/internal/core/domain"
)

// Detector runs the audio-presence and voice-content heuristics over page
// content. Both are cheap signal checks, not media analysis.
type Detector struct {
	client *http.Client
	logger *slog.Logger
	delay  time.Duration
}

// NewDetector creates a Detector with the given per-request timeout.
func NewDetector(timeout time.Duration, logger *slog.Logger) *Detector {
	return &Detector{
		client: &http.Client{Timeout: timeout},
		logger: logger,
		delay:  500 * time.Millisecond,
	}
}

var audioIndicators = []*regexp.Regexp{
	regexp.MustCompile(`"hasaudio":true`),
	regexp.MustCompile(`"audiotrack"`),
	regexp.MustCompile(`itag.*?audio`),
	regexp.MustCompile(`audio/.*?webm`),
	regexp.MustCompile(`audio/.*?mp4`),
}

var voiceKeywords = []string{
	"podcast", "interview", "talk", "speech", "conversation",
	"discussion", "lecture", "presentation", "webinar",
	"audiobook", "storytelling", "radio", "show", "episode",
	"host", "guest", "speaking", "voice", "commentary",
	"analysis", "debate", "panel", "dialogue",
}

// DetectAudio annotates links with audio-presence signals and returns
// those with detected audio.
func (d *Detector) DetectAudio(ctx context.Context, links []domain.LinkRecord) []domain.LinkRecord {
	var detected []domain.LinkRecord

	for i := range links {
		link := &links[i]
		if ctx.Err() != nil {
			break
		}

		switch link.Platform {
		case domain.PlatformTikTok:
			// Short-form video virtually always carries an audio track.
			link.HasAudio = true
			link.AudioConfidence = "high"
			link.DetectionStatus = "tiktok_audio_assumed"
		case domain.PlatformYouTube, domain.PlatformTwitch:
			d.detectFromPage(ctx, link)
		default:
			continue
		}

		if link.HasAudio {
			detected = append(detected, *link)
		}
		sleep(ctx, d.delay)
	}

	d.logger.Info("audio detection done", "checked", len(links), "detected", len(detected))
	return detected
}

func (d *Detector) detectFromPage(ctx context.Context, link *domain.LinkRecord) {
	content, err := d.fetch(ctx, link.URL)
	if err != nil {
		// Unreachable pages keep a weak assumed-audio signal; the
		// extraction stage is the real arbiter.
		link.HasAudio = true
		link.AudioConfidence = "low"
		link.DetectionStatus = "fetch_failed_audio_assumed"
		return
	}

	hits := 0
	for _, pattern := range audioIndicators {
		if pattern.MatchString(content) {
			hits++
		}
	}
	hasVideoElement := strings.Contains(content, "<video") || strings.Contains(content, "video")

	switch {
	case hits >= 2:
		link.HasAudio = true
		link.AudioConfidence = "high"
		link.DetectionStatus = "audio_indicators_found"
	case hits >= 1 || hasVideoElement:
		link.HasAudio = true
		link.AudioConfidence = "medium"
		link.DetectionStatus = "audio_likely"
	default:
		link.HasAudio = false
		link.AudioConfidence = "low"
		link.DetectionStatus = "no_audio_indicators"
	}
}

// VerifyVoice annotates links with voice-content signals. All links are
// returned; callers filter on HasVoice.
func (d *Detector) VerifyVoice(ctx context.Context, links []domain.LinkRecord) []domain.LinkRecord {
	confirmed := 0

	for i := range links {
		link := &links[i]
		if ctx.Err() != nil {
			break
		}

		content, err := d.fetch(ctx, link.URL)
		if err != nil {
			link.HasVoice = false
			link.VoiceConfidence = "unknown"
			link.VerificationStatus = "fetch_failed"
			continue
		}

		matches := 0
		for _, kw := range voiceKeywords {
			if strings.Contains(content, kw) {
				matches++
			}
		}

		switch {
		case matches >= 3:
			link.HasVoice = true
			link.VoiceConfidence = "high"
			link.ContentType = "voice"
		case matches >= 1:
			link.HasVoice = true
			link.VoiceConfidence = "medium"
			link.ContentType = "likely_voice"
		default:
			link.HasVoice = false
			link.VoiceConfidence = "low"
			link.ContentType = "unverified"
		}
		link.VerificationStatus = "checked"

		if link.HasVoice {
			confirmed++
		}
		sleep(ctx, d.delay)
	}

	d.logger.Info("voice verification done", "checked", len(links), "confirmed", confirmed)
	return links
}

// ConfirmedVoice returns the subset of links with confirmed voice content.
func ConfirmedVoice(links []domain.LinkRecord) []domain.LinkRecord {
	var out []domain.LinkRecord
	for _, l := range links {
		if l.HasVoice {
			out = append(out, l)
		}
	}
	return out
}

func (d *Detector) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VoiceBot/1.0)")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Page heads carry all the metadata signals we look for.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", err
	}
	return strings.ToLower(string(body)), nil
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
