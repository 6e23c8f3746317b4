package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicepipe/internal/config"
	"voicepipe/internal/core/domain"
)

// Summary aggregates the outcome of one extraction batch.
type Summary struct {
	Total        int
	Extracted    int
	Failed       int
	SuccessRate  float64
	TotalSeconds int
	AvgSeconds   float64
	MinSeconds   int
	MaxSeconds   int
	ByPlatform   map[domain.Platform]int
}

// Summarize computes batch statistics over enriched link records.
func Summarize(links []domain.LinkRecord) Summary {
	s := Summary{
		Total:      len(links),
		ByPlatform: make(map[domain.Platform]int),
	}

	for _, l := range links {
		if !l.SampleExtracted {
			continue
		}
		s.Extracted++
		s.TotalSeconds += l.ActualDuration
		s.ByPlatform[l.Platform]++
		if s.MinSeconds == 0 || l.ActualDuration < s.MinSeconds {
			s.MinSeconds = l.ActualDuration
		}
		if l.ActualDuration > s.MaxSeconds {
			s.MaxSeconds = l.ActualDuration
		}
	}

	s.Failed = s.Total - s.Extracted
	if s.Total > 0 {
		s.SuccessRate = float64(s.Extracted) / float64(s.Total) * 100
	}
	if s.Extracted > 0 {
		s.AvgSeconds = float64(s.TotalSeconds) / float64(s.Extracted)
	}
	return s
}

// WriteReport writes the human-readable extraction report and returns its
// path.
func WriteReport(outputDir string, links []domain.LinkRecord, cfg config.SampleConfig) (string, error) {
	path := filepath.Join(outputDir, "voice_samples_report.txt")
	s := Summarize(links)

	var b strings.Builder
	b.WriteString("VOICE SAMPLES EXTRACTION REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total samples extracted: %d\n", s.Extracted)
	fmt.Fprintf(&b, "Duration range: %ds - %ds\n", cfg.MinDuration, cfg.MaxDuration)
	fmt.Fprintf(&b, "Audio quality: %s kbps\n", cfg.Quality)
	fmt.Fprintf(&b, "Output directory: %s\n\n", outputDir)

	if s.Extracted > 0 {
		b.WriteString("DURATION STATISTICS:\n")
		fmt.Fprintf(&b, "Total audio time: %d seconds (%.2f hours)\n", s.TotalSeconds, float64(s.TotalSeconds)/3600)
		fmt.Fprintf(&b, "Average duration: %.1f seconds\n", s.AvgSeconds)
		fmt.Fprintf(&b, "Shortest sample: %d seconds\n", s.MinSeconds)
		fmt.Fprintf(&b, "Longest sample: %d seconds\n\n", s.MaxSeconds)

		b.WriteString("PLATFORM BREAKDOWN:\n")
		for platform, count := range s.ByPlatform {
			fmt.Fprintf(&b, "%s: %d samples\n", platform, count)
		}
		b.WriteString("\n")

		b.WriteString("SAMPLE LIST:\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		i := 0
		for _, l := range links {
			if !l.SampleExtracted {
				continue
			}
			i++
			fmt.Fprintf(&b, "%2d. %s\n", i, l.SampleFilename)
			fmt.Fprintf(&b, "    User: @%s\n", l.ProcessedUsername)
			fmt.Fprintf(&b, "    Platform: %s\n", l.Platform)
			fmt.Fprintf(&b, "    Duration: %d seconds\n", l.ActualDuration)
			fmt.Fprintf(&b, "    URL: %s\n\n", truncate(l.URL, 50))
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
