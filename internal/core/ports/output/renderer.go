package ports

import (
	"context"

	"mito-gallery-service/internal/core/domain"
)

// Renderer produces one PNG screenshot of an entity from a view angle.
type Renderer interface {
	Render(ctx context.Context, entity domain.Entity, angle domain.ViewAngle) ([]byte, error)
}
