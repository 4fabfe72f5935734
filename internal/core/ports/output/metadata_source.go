package ports

import (
	"context"

	"mito-gallery-service/internal/core/domain"
)

// MetadataSource loads the full materialization table once at startup.
// Implementations return errors matching domain.ErrDataLoad.
type MetadataSource interface {
	Load(ctx context.Context) ([]domain.Entity, error)
	// Name identifies the source in logs and errors.
	Name() string
}
