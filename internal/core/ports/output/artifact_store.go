package ports

import (
	"context"

	"mito-gallery-service/internal/core/domain"
)

// ArtifactStore persists screenshots. Existence in the store is the only
// record of a screenshot; there is no manifest.
type ArtifactStore interface {
	Exists(ctx context.Context, key domain.ArtifactKey) (bool, error)
	Put(ctx context.Context, key domain.ArtifactKey, data []byte) error
	// Clear removes every artifact and returns how many were removed.
	Clear(ctx context.Context) (int, error)
	URL(key domain.ArtifactKey) string
}
