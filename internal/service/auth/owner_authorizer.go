package auth

import (
	"context"
	"errors"
	"fmt"

	"thoughtbox/internal/domain"
	models "thoughtbox/internal/domain/models/thought"
	thoughtRepo "thoughtbox/internal/domain/repositories/thought"
)

// OwnerBasedAuthorizer implements ThoughtAuthorizer from the thought row:
// owners may do anything, collaborators may read and edit content.
//
// Unknown thoughts are reported as forbidden rather than not found, so
// callers cannot probe for IDs they have no access to.
type OwnerBasedAuthorizer struct {
	thoughts thoughtRepo.ThoughtRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer(thoughts thoughtRepo.ThoughtRepository) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{thoughts: thoughts}
}

// CanEditThought checks the user owns or collaborates on the thought
func (a *OwnerBasedAuthorizer) CanEditThought(ctx context.Context, userID, thoughtID string) (*models.Thought, error) {
	t, err := a.load(ctx, userID, thoughtID)
	if err != nil {
		return nil, err
	}
	if !t.CanEdit(userID) {
		return nil, fmt.Errorf("access denied to thought %s: %w", thoughtID, domain.ErrForbidden)
	}
	return t, nil
}

// CanManageThought checks the user owns the thought
func (a *OwnerBasedAuthorizer) CanManageThought(ctx context.Context, userID, thoughtID string) (*models.Thought, error) {
	t, err := a.load(ctx, userID, thoughtID)
	if err != nil {
		return nil, err
	}
	if !t.IsOwner(userID) {
		return nil, fmt.Errorf("only the owner may manage thought %s: %w", thoughtID, domain.ErrForbidden)
	}
	return t, nil
}

func (a *OwnerBasedAuthorizer) load(ctx context.Context, userID, thoughtID string) (*models.Thought, error) {
	if userID == "" {
		return nil, fmt.Errorf("no signed-in user: %w", domain.ErrUnauthorized)
	}
	t, err := a.thoughts.GetByID(ctx, thoughtID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("access denied to thought %s: %w", thoughtID, domain.ErrForbidden)
		}
		return nil, fmt.Errorf("get thought for auth: %w", err)
	}
	return t, nil
}
