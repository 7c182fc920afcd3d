package thought

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"thoughtbox/internal/domain"
	models "thoughtbox/internal/domain/models/thought"

	"github.com/google/uuid"
)

func newShareToken() string {
	return uuid.NewString()
}

func (s *thoughtService) shareLink(token string) string {
	return s.publicBaseURL + "/shared/" + token
}

// ShareThought makes a thought public. Sharing an already public thought
// returns its existing link; a thought made private gets a fresh token the
// next time it is shared.
func (s *thoughtService) ShareThought(ctx context.Context, userID, thoughtID string) (string, error) {
	t, err := s.authorizer.CanManageThought(ctx, userID, thoughtID)
	if err != nil {
		return "", err
	}
	if !t.IsPrivate && t.ShareToken != nil {
		return s.shareLink(*t.ShareToken), nil
	}

	token := s.newToken()
	if err := s.thoughts.SetSharing(ctx, thoughtID, &token); err != nil {
		return "", err
	}

	s.logger.Info("thought shared", "id", thoughtID, "user_id", userID)
	return s.shareLink(token), nil
}

// MakePrivate revokes the share link
func (s *thoughtService) MakePrivate(ctx context.Context, userID, thoughtID string) error {
	t, err := s.authorizer.CanManageThought(ctx, userID, thoughtID)
	if err != nil {
		return err
	}
	if t.IsPrivate && t.ShareToken == nil {
		return nil
	}
	if err := s.thoughts.SetSharing(ctx, thoughtID, nil); err != nil {
		return err
	}

	s.logger.Info("thought made private", "id", thoughtID, "user_id", userID)
	return nil
}

// AddSharedThoughtToDashboard adds the caller as a collaborator unless they
// already own or collaborate on the thought
func (s *thoughtService) AddSharedThoughtToDashboard(ctx context.Context, userID, token string) (*models.SharedThought, error) {
	if userID == "" {
		return nil, fmt.Errorf("add shared thought: %w", domain.ErrUnauthorized)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: share token is required", domain.ErrValidation)
	}

	t, err := s.thoughts.GetByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: "share link is invalid or has expired"}
		}
		return nil, err
	}

	if !t.CanEdit(userID) {
		if err := s.thoughts.AddCollaborator(ctx, t.ID, userID); err != nil {
			return nil, err
		}
		s.logger.Info("collaborator added", "thought_id", t.ID, "user_id", userID)
	}

	return &models.SharedThought{ThoughtID: t.ID, Title: t.Title}, nil
}
