package domain

import "errors"

var (
	// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNoRecentContent is returned when a channel listing yields no
	// usable video-on-demand entry.
	ErrNoRecentContent = errors.New("no recent content found")
)
