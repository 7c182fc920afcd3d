package thought

import (
	"context"
	"time"

	models "thoughtbox/internal/domain/models/thought"
)

// ThoughtRepository defines data access operations for thoughts
type ThoughtRepository interface {
	// Create inserts a thought and fills in its ID
	Create(ctx context.Context, t *models.Thought) error

	// GetByID retrieves a thought with its collaborators
	GetByID(ctx context.Context, id string) (*models.Thought, error)

	// GetByShareToken retrieves a public thought by its share token
	GetByShareToken(ctx context.Context, token string) (*models.Thought, error)

	// ListForUser lists thoughts the user owns or collaborates on, newest change first
	ListForUser(ctx context.Context, userID string) ([]models.Thought, error)

	// UpdateTitle renames a thought and stamps last modified
	UpdateTitle(ctx context.Context, id, title, modifiedBy string, at time.Time) error

	// UpdateDescription sets or, with nil, clears the description
	UpdateDescription(ctx context.Context, id string, description *string) error

	// SetSelectedVersion moves the selected version pointer
	SetSelectedVersion(ctx context.Context, id, versionID string) error

	// Touch stamps last modified
	Touch(ctx context.Context, id, modifiedBy string, at time.Time) error

	// SetSharing stores the share token; a nil token makes the thought private
	SetSharing(ctx context.Context, id string, token *string) error

	// Delete removes a thought with its versions and collaborators
	Delete(ctx context.Context, id string) error

	// AddCollaborator adds userID to the thought; adding twice is a no-op
	AddCollaborator(ctx context.Context, thoughtID, userID string) error
}
