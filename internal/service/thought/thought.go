package thought

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
	"thoughtbox/internal/domain/repositories"
	thoughtRepo "thoughtbox/internal/domain/repositories/thought"
	"thoughtbox/internal/domain/services"
	thoughtSvc "thoughtbox/internal/domain/services/thought"

	"github.com/jonboulle/clockwork"
)

// DefaultTitle names thoughts created without a title.
const DefaultTitle = "Untitled"

// thoughtService implements the ThoughtService interface
type thoughtService struct {
	thoughts      thoughtRepo.ThoughtRepository
	versions      thoughtRepo.VersionRepository
	txManager     repositories.TransactionManager
	authorizer    services.ThoughtAuthorizer
	clock         clockwork.Clock
	publicBaseURL string
	newToken      func() string
	logger        *slog.Logger
}

// NewThoughtService creates a new thought service. Share links are built
// as publicBaseURL + "/shared/" + token.
func NewThoughtService(
	thoughts thoughtRepo.ThoughtRepository,
	versions thoughtRepo.VersionRepository,
	txManager repositories.TransactionManager,
	authorizer services.ThoughtAuthorizer,
	clock clockwork.Clock,
	publicBaseURL string,
	logger *slog.Logger,
) thoughtSvc.ThoughtService {
	return &thoughtService{
		thoughts:      thoughts,
		versions:      versions,
		txManager:     txManager,
		authorizer:    authorizer,
		clock:         clock,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newToken:      newShareToken,
		logger:        logger,
	}
}

// CreateThought creates a thought with its core version selected
func (s *thoughtService) CreateThought(ctx context.Context, req *thoughtSvc.CreateThoughtRequest) (*models.Thought, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("create thought: %w", domain.ErrUnauthorized)
	}
	if err := validateCreateThought(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	content := doctree.New()
	if len(req.Content) > 0 {
		doc, err := doctree.Parse(req.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		content = doc
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}
	now := s.clock.Now()
	t := &models.Thought{
		Title:        title,
		Description:  req.Description,
		OwnerID:      req.UserID,
		IsPrivate:    true,
		LastModified: models.LastModified{ModifiedBy: req.UserID, Date: now},
		CreatedAt:    now,
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.thoughts.Create(ctx, t); err != nil {
			return err
		}
		core := &models.Version{
			ThoughtID:     t.ID,
			Content:       content,
			VersionNumber: models.CoreVersionNumber,
			Title:         title,
			ChangeLabel:   models.ChangeLight,
			IsCore:        true,
			CreatedAt:     now,
			ModifiedBy:    req.UserID,
		}
		if err := s.versions.Create(ctx, core); err != nil {
			return err
		}
		t.SelectedVersion = &core.ID

		if req.IsPrivate != nil && !*req.IsPrivate {
			token := s.newToken()
			if err := s.thoughts.SetSharing(ctx, t.ID, &token); err != nil {
				return err
			}
			t.ShareToken, t.IsPrivate = &token, false
		}
		return s.thoughts.SetSelectedVersion(ctx, t.ID, core.ID)
	})
	if err != nil {
		return nil, err
	}

	t.Content = content
	s.decorate(t)

	s.logger.Info("thought created",
		"id", t.ID,
		"user_id", req.UserID,
		"private", t.IsPrivate,
	)

	return t, nil
}

// GetThought returns a thought with its selected content
func (s *thoughtService) GetThought(ctx context.Context, userID, thoughtID string) (*models.Thought, error) {
	t, err := s.authorizer.CanEditThought(ctx, userID, thoughtID)
	if err != nil {
		return nil, err
	}

	if t.SelectedVersion != nil {
		v, err := s.versions.GetByID(ctx, *t.SelectedVersion)
		if err != nil {
			return nil, err
		}
		t.Content = v.Content
	}
	s.decorate(t)
	return t, nil
}

// ListThoughts returns the user's dashboard
func (s *thoughtService) ListThoughts(ctx context.Context, userID string) ([]models.Thought, error) {
	if userID == "" {
		return nil, fmt.Errorf("list thoughts: %w", domain.ErrUnauthorized)
	}
	thoughts, err := s.thoughts.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range thoughts {
		s.decorate(&thoughts[i])
	}
	return thoughts, nil
}

// RenameThought changes the title of the thought and its selected version
func (s *thoughtService) RenameThought(ctx context.Context, userID, thoughtID string, req *thoughtSvc.RenameThoughtRequest) (*models.Thought, error) {
	if err := validateRename(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	t, err := s.authorizer.CanManageThought(ctx, userID, thoughtID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	now := s.clock.Now()
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.thoughts.UpdateTitle(ctx, thoughtID, title, userID, now); err != nil {
			return err
		}
		if req.Description.Present {
			if err := s.thoughts.UpdateDescription(ctx, thoughtID, req.Description.Value); err != nil {
				return err
			}
		}
		if t.SelectedVersion == nil {
			return nil
		}
		return s.versions.UpdateTitle(ctx, *t.SelectedVersion, title)
	})
	if err != nil {
		return nil, err
	}

	t.Title = title
	if req.Description.Present {
		t.Description = req.Description.Value
	}
	t.LastModified = models.LastModified{ModifiedBy: userID, Date: now}
	s.decorate(t)

	s.logger.Info("thought renamed", "id", thoughtID, "user_id", userID)
	return t, nil
}

// DeleteThought removes a thought
func (s *thoughtService) DeleteThought(ctx context.Context, userID, thoughtID string) error {
	if _, err := s.authorizer.CanManageThought(ctx, userID, thoughtID); err != nil {
		return err
	}
	if err := s.thoughts.Delete(ctx, thoughtID); err != nil {
		return err
	}

	s.logger.Info("thought deleted", "id", thoughtID, "user_id", userID)
	return nil
}

// UpdateThoughtContent is the autosave write: only the selected version changes
func (s *thoughtService) UpdateThoughtContent(ctx context.Context, userID, thoughtID string, content doctree.Document) error {
	if len(content) == 0 {
		return fmt.Errorf("%w: content must have at least one block", domain.ErrValidation)
	}
	t, err := s.authorizer.CanEditThought(ctx, userID, thoughtID)
	if err != nil {
		return err
	}
	if t.SelectedVersion == nil {
		return fmt.Errorf("thought %s has no selected version: %w", thoughtID, domain.ErrNotFound)
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.versions.UpdateContent(ctx, *t.SelectedVersion, content, userID); err != nil {
			return err
		}
		return s.thoughts.Touch(ctx, thoughtID, userID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	s.logger.Debug("thought content saved",
		"id", thoughtID,
		"version_id", *t.SelectedVersion,
		"length", doctree.ContentLength(content),
	)
	return nil
}

// decorate fills in fields derived from stored columns.
func (s *thoughtService) decorate(t *models.Thought) {
	t.ThoughtLink = nil
	if !t.IsPrivate && t.ShareToken != nil {
		link := s.shareLink(*t.ShareToken)
		t.ThoughtLink = &link
	}
	if t.Collaborators == nil {
		t.Collaborators = []string{}
	}
}
