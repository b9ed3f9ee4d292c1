package ports

import (
	"context"

	"taskforge/internal/types"
)

// CachePort is the persistent local artifact store. Entries are
// addressed by full coordinate; storing different content under an
// already-present coordinate is a cache inconsistency error, never a
// silent overwrite.
type CachePort interface {
	// Lookup returns the entry for a coordinate and file name, if any.
	Lookup(coord types.Coordinate, fileName string) (types.CacheEntry, bool, error)

	// Store writes the file for a coordinate. It is idempotent for
	// identical content and atomic per coordinate under concurrent
	// writers.
	Store(ctx context.Context, coord types.Coordinate, fileName string, data []byte, status types.VerifyStatus) (types.CacheEntry, error)
}
