package thought

import (
	"context"

	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
)

// VersionRepository defines data access operations for thought versions
type VersionRepository interface {
	// Create inserts a version and fills in its ID
	Create(ctx context.Context, v *models.Version) error

	// GetByID retrieves a version by ID
	GetByID(ctx context.Context, id string) (*models.Version, error)

	// ListByThought returns the core version first, then non-core versions by creation time
	ListByThought(ctx context.Context, thoughtID string) ([]models.Version, error)

	// UpdateContent replaces a version's content
	UpdateContent(ctx context.Context, id string, content doctree.Document, modifiedBy string) error

	// UpdateTitle sets a version's title snapshot
	UpdateTitle(ctx context.Context, id, title string) error

	// SetNumber renumbers a version
	SetNumber(ctx context.Context, id string, number int) error

	// Delete removes a version
	Delete(ctx context.Context, id string) error
}
