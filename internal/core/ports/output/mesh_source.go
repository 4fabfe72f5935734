package ports

import (
	"context"

	"mito-gallery-service/internal/core/domain"
)

// MeshSource fetches segment meshes from the remote data store.
type MeshSource interface {
	// Mesh returns the merged mesh of a segment, or domain.ErrMeshNotFound.
	Mesh(ctx context.Context, segmentID int64) (*domain.Mesh, error)
}
