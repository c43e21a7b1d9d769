package storage

import (
	"alcyxob/workout-playlist/internal/domain"
	"context"
	"errors"
	"time"
)

// Default expiry duration for presigned playback URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// Error constants for storage layer
var (
	ErrUnsupportedProvider = errors.New("unsupported storage provider")
	ErrEmptyReference      = errors.New("storage reference is empty")
)

// Backend is one storage variant (R2, Stream, External).
type Backend interface {
	// Exists reports whether the referenced media can currently be fetched.
	// It must not retry internally; a false result with nil error means
	// the backend answered "not there".
	Exists(ctx context.Context, ref domain.StorageRef) (bool, error)

	// PlaybackURL returns a URL a player can fetch. Signed or public is the
	// backend's decision; callers treat it as opaque.
	PlaybackURL(ctx context.Context, ref domain.StorageRef) (string, error)
}
