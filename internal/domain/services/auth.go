package services

import (
	"context"

	models "thoughtbox/internal/domain/models/thought"
)

// ThoughtAuthorizer checks what a user may do with a thought.
// Services call it before touching a thought and reuse the returned record.
type ThoughtAuthorizer interface {
	// CanEditThought allows the owner and collaborators
	CanEditThought(ctx context.Context, userID, thoughtID string) (*models.Thought, error)

	// CanManageThought allows only the owner (rename, delete, share, make private)
	CanManageThought(ctx context.Context, userID, thoughtID string) (*models.Thought, error)
}
