// Package stage reads pipeline input and persists per-stage CSV artifacts
// so a run can be audited and resumed from any stage's output.
package stage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"voicepipe/internal/core/domain"
)

// ReadUsernames reads a username list from a .txt (one per line) or .csv
// file. For CSV, the username column is guessed from common names, falling
// back to the first column.
func ReadUsernames(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return readUsernamesTxt(path)
	case ".csv":
		return readUsernamesCSV(path)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", filepath.Ext(path))
	}
}

func readUsernamesTxt(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	var usernames []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			usernames = append(usernames, line)
		}
	}
	return usernames, nil
}

var usernameColumns = []string{"username", "user", "handle", "account"}

func readUsernamesCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse input csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("input csv has no data rows")
	}

	col := 0
	for _, candidate := range usernameColumns {
		for i, header := range rows[0] {
			if strings.EqualFold(strings.TrimSpace(header), candidate) {
				col = i
				goto found
			}
		}
	}
found:
	var usernames []string
	for _, row := range rows[1:] {
		if col < len(row) {
			if u := strings.TrimSpace(row[col]); u != "" {
				usernames = append(usernames, u)
			}
		}
	}
	return usernames, nil
}

// WriteAccounts persists validated accounts.
func WriteAccounts(path string, accounts []domain.Account) error {
	rows := [][]string{{"username", "profile_url", "status"}}
	for _, a := range accounts {
		rows = append(rows, []string{a.Username, a.ProfileURL, a.Status})
	}
	return writeCSV(path, rows)
}

// WriteProfiles persists raw profile records. The header is the sorted
// union of every field seen, so no record loses a field.
func WriteProfiles(path string, profiles []domain.Profile) error {
	fieldSet := make(map[string]struct{})
	for _, p := range profiles {
		for k := range p {
			fieldSet[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(fieldSet))
	for k := range fieldSet {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := [][]string{header}
	for _, p := range profiles {
		row := make([]string, len(header))
		for i, k := range header {
			row[i] = p[k]
		}
		rows = append(rows, row)
	}
	return writeCSV(path, rows)
}

// linkHeader lists every enrichment field a LinkRecord can carry. Readers
// key on field names, so appending new fields is always safe.
var linkHeader = []string{
	"url", "username", "profile_name", "platform_type",
	"has_audio", "audio_confidence", "detection_status",
	"has_voice", "voice_confidence", "content_type", "verification_status",
	"sample_extracted", "sample_file", "sample_filename", "extraction_status",
	"sample_duration", "actual_duration", "sample_quality",
	"processed_username", "is_denoised",
}

// WriteLinks persists link records with every enrichment field present.
func WriteLinks(path string, links []domain.LinkRecord) error {
	rows := [][]string{linkHeader}
	for _, l := range links {
		rows = append(rows, linkToRow(l))
	}
	return writeCSV(path, rows)
}

func linkToRow(l domain.LinkRecord) []string {
	return []string{
		l.URL, l.Username, l.ProfileName, string(l.Platform),
		strconv.FormatBool(l.HasAudio), l.AudioConfidence, l.DetectionStatus,
		strconv.FormatBool(l.HasVoice), l.VoiceConfidence, l.ContentType, l.VerificationStatus,
		strconv.FormatBool(l.SampleExtracted), l.SampleFile, l.SampleFilename, l.ExtractionStatus,
		strconv.Itoa(l.RequestedDuration), strconv.Itoa(l.ActualDuration), l.Quality,
		l.ProcessedUsername, strconv.FormatBool(l.IsDenoised),
	}
}

// WriteVoiceOnly persists voice-only isolation results.
func WriteVoiceOnly(path string, records []domain.VoiceOnlyRecord) error {
	rows := [][]string{{
		"processed_username", "platform_source", "voice_only_file",
		"speech_text", "voice_confidence", "word_count", "voice_duration",
	}}
	for _, r := range records {
		rows = append(rows, []string{
			r.ProcessedUsername, string(r.Platform), r.VoiceOnlyFile,
			r.SpeechText,
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			strconv.Itoa(r.WordCount),
			strconv.FormatFloat(r.VoiceDuration, 'f', 1, 64),
		})
	}
	return writeCSV(path, rows)
}

// ReadLinks loads link records back from a stage CSV, keyed by field name.
func ReadLinks(path string) ([]domain.LinkRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stage file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse stage file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var links []domain.LinkRecord
	for _, row := range rows[1:] {
		duration, _ := strconv.Atoi(field(row, "sample_duration"))
		actual, _ := strconv.Atoi(field(row, "actual_duration"))
		links = append(links, domain.LinkRecord{
			URL:                field(row, "url"),
			Username:           field(row, "username"),
			ProfileName:        field(row, "profile_name"),
			Platform:           domain.Platform(field(row, "platform_type")),
			HasAudio:           field(row, "has_audio") == "true",
			AudioConfidence:    field(row, "audio_confidence"),
			DetectionStatus:    field(row, "detection_status"),
			HasVoice:           field(row, "has_voice") == "true",
			VoiceConfidence:    field(row, "voice_confidence"),
			ContentType:        field(row, "content_type"),
			VerificationStatus: field(row, "verification_status"),
			SampleExtracted:    field(row, "sample_extracted") == "true",
			SampleFile:         field(row, "sample_file"),
			SampleFilename:     field(row, "sample_filename"),
			ExtractionStatus:   field(row, "extraction_status"),
			RequestedDuration:  duration,
			ActualDuration:     actual,
			Quality:            field(row, "sample_quality"),
			ProcessedUsername:  field(row, "processed_username"),
			IsDenoised:         field(row, "is_denoised") == "true",
		})
	}
	return links, nil
}

func writeCSV(path string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create stage directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create stage file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write stage file: %w", err)
	}
	w.Flush()
	return w.Error()
}
