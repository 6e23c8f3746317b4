package domain

import "time"

// Platform identifies a supported media platform.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTwitch  Platform = "twitch"
	PlatformTikTok  Platform = "tiktok"
	PlatformUnknown Platform = "unknown"
)

// Account is the result of an existence check for one username.
type Account struct {
	Username   string    `json:"username"`
	ProfileURL string    `json:"profile_url"`
	Status     string    `json:"status"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Account status values.
const (
	AccountExists       = "exists"
	AccountDoesNotExist = "does_not_exist"
	AccountSuspended    = "suspended"
	AccountUnknown      = "unknown"
	AccountError        = "error"
)

// Profile is one raw scraped profile record. Field names vary between
// dataset versions, so it stays a flat string map.
type Profile map[string]string

// LinkRecord is one external link found on a profile, enriched as it moves
// through the pipeline. Fields are only ever appended, never removed.
type LinkRecord struct {
	URL         string
	Username    string
	ProfileName string
	Platform    Platform

	// Audio detection (stage 4.5)
	HasAudio        bool
	AudioConfidence string
	DetectionStatus string

	// Voice verification (stage 5)
	HasVoice           bool
	VoiceConfidence    string
	ContentType        string
	VerificationStatus string

	// Sample extraction (stage 6)
	SampleExtracted   bool
	SampleFile        string
	SampleFilename    string
	ExtractionStatus  string
	RequestedDuration int
	ActualDuration    int
	Quality           string
	ProcessedUsername string

	// Noise reduction (stage 8)
	IsDenoised bool
}

// VoiceOnlyRecord is one sample after the voice-only isolation pass. The
// processor fills the file and analysis fields; the pipeline attaches the
// identity fields from the source link.
type VoiceOnlyRecord struct {
	ProcessedUsername string
	Platform          Platform
	VoiceOnlyFile     string
	SpeechText        string
	Confidence        float64
	WordCount         int
	VoiceDuration     float64
}

// FailureCode classifies a failed extraction attempt.
type FailureCode string

const (
	FailUnsupportedPlatform     FailureCode = "unsupported_platform"
	FailAllQualitiesExhausted   FailureCode = "all_qualities_exhausted"
	FailNoRecentContent         FailureCode = "no_recent_content"
	FailFilesystemInconsistency FailureCode = "filesystem_inconsistency"
	FailExtractionError         FailureCode = "extraction_error"
)

// ExtractionResult is the outcome of one extraction attempt. Success implies
// the output file exists on disk; a failure carries a code and detail.
type ExtractionResult struct {
	Success        bool
	FilePath       string
	ActualDuration int
	FileSizeBytes  int64
	QualityUsed    string
	Code           FailureCode
	Detail         string
}

// Extracted builds a successful result.
func Extracted(filePath string, actualDuration int, sizeBytes int64, quality string) ExtractionResult {
	return ExtractionResult{
		Success:        true,
		FilePath:       filePath,
		ActualDuration: actualDuration,
		FileSizeBytes:  sizeBytes,
		QualityUsed:    quality,
	}
}

// Failed builds a failed result.
func Failed(code FailureCode, detail string) ExtractionResult {
	return ExtractionResult{Code: code, Detail: detail}
}

// SnapshotStatus is the lifecycle state of a remote scraping job.
type SnapshotStatus string

const (
	SnapshotPending   SnapshotStatus = "pending"
	SnapshotCompleted SnapshotStatus = "completed"
	SnapshotFailed    SnapshotStatus = "failed"
)

// Terminal reports whether the status is a terminal one.
func (s SnapshotStatus) Terminal() bool {
	return s == SnapshotCompleted || s == SnapshotFailed
}

// Snapshot is the lifecycle record of one remote scraping job, keyed by the
// fingerprint of its input username set. ResultSample keeps a bounded
// preview of the downloaded records for auditing, never the full payload.
type Snapshot struct {
	ID            string         `db:"id"`
	Fingerprint   string         `db:"fingerprint"`
	Status        SnapshotStatus `db:"status"`
	Usernames     []string       `db:"-"`
	TotalAccounts int            `db:"total_accounts"`
	ResultsCount  int            `db:"results_count"`
	ResultSample  []Profile      `db:"-"`
	CreatedAt     time.Time      `db:"created_at"`
	CompletedAt   *time.Time     `db:"completed_at"`
}

// DurationSpec bounds an admissible sample duration, in seconds.
type DurationSpec struct {
	Min       int
	Max       int
	Requested int
}

// Clamp forces v into [Min, Max] inclusive.
func (s DurationSpec) Clamp(v int) int {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}
