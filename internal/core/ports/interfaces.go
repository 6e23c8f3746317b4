package ports

import (
	"context"
	"time"

	"voicepipe/internal/core/domain"
)

// ExtractRequest describes one audio extraction attempt against the
// external media tool.
type ExtractRequest struct {
	URL             string
	OutputPath      string
	Quality         string // target bitrate in kbps, e.g. "192"
	DurationSeconds int    // hard cutoff; shorter sources yield shorter files
}

// ToolRunner abstracts the external media tool (yt-dlp). Every call is
// synchronous and bounded by the context deadline; expiry is a normal,
// recoverable outcome for the caller.
type ToolRunner interface {
	// ProbeDuration returns the raw duration string for a URL
	// (H:MM:SS, MM:SS, or bare seconds).
	ProbeDuration(ctx context.Context, url string) (string, error)

	// ExtractAudio produces an audio file at req.OutputPath, cut to
	// req.DurationSeconds. A nil error does not guarantee the file
	// exists; callers must verify.
	ExtractAudio(ctx context.Context, req ExtractRequest) error

	// ListRecent returns the raw JSON of the first (most recent) entry
	// of a channel's video listing, one JSON object per line.
	ListRecent(ctx context.Context, listURL string) ([]byte, error)
}

// SnapshotClient is the asynchronous remote scraping job API:
// create a job, then poll and download its results.
type SnapshotClient interface {
	// Trigger submits a new scraping job for the usernames and returns
	// the remote snapshot ID.
	Trigger(ctx context.Context, usernames []string) (string, error)

	// Download polls the snapshot until it is ready or maxWait elapses,
	// then returns the scraped profile records.
	Download(ctx context.Context, snapshotID string, maxWait time.Duration) ([]domain.Profile, error)
}

// SnapshotStore persists snapshot lifecycle records in a keyed store.
type SnapshotStore interface {
	// Get retrieves a snapshot by ID, or domain.ErrSnapshotNotFound.
	Get(ctx context.Context, id string) (*domain.Snapshot, error)

	// FindByFingerprint returns the newest snapshot with the given
	// fingerprint and status, or domain.ErrSnapshotNotFound.
	FindByFingerprint(ctx context.Context, fingerprint string, status domain.SnapshotStatus) (*domain.Snapshot, error)

	// Put writes a snapshot record atomically (full upsert).
	Put(ctx context.Context, snap *domain.Snapshot) error

	// List returns all snapshot records, newest first.
	List(ctx context.Context) ([]*domain.Snapshot, error)

	Close() error
}

// AccountChecker validates that a social-media account exists.
type AccountChecker interface {
	Check(ctx context.Context, username string) (domain.Account, error)
}

// Denoiser applies a noise-reduction pass to an audio file and returns the
// path of the denoised output.
type Denoiser interface {
	Denoise(ctx context.Context, inputPath string) (string, error)
}

// VoiceOnlyProcessor isolates the voiced portion of an audio sample and
// reports how much of it was actual speech.
type VoiceOnlyProcessor interface {
	Isolate(ctx context.Context, inputPath string) (domain.VoiceOnlyRecord, error)
}
