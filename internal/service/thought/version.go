package thought

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"thoughtbox/internal/config"
	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
	"thoughtbox/internal/domain/repositories"
	thoughtRepo "thoughtbox/internal/domain/repositories/thought"
	"thoughtbox/internal/domain/services"
	thoughtSvc "thoughtbox/internal/domain/services/thought"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jonboulle/clockwork"
)

// versionService implements the VersionService interface
type versionService struct {
	thoughts   thoughtRepo.ThoughtRepository
	versions   thoughtRepo.VersionRepository
	txManager  repositories.TransactionManager
	authorizer services.ThoughtAuthorizer
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewVersionService creates a new version service
func NewVersionService(
	thoughts thoughtRepo.ThoughtRepository,
	versions thoughtRepo.VersionRepository,
	txManager repositories.TransactionManager,
	authorizer services.ThoughtAuthorizer,
	clock clockwork.Clock,
	logger *slog.Logger,
) thoughtSvc.VersionService {
	return &versionService{
		thoughts:   thoughts,
		versions:   versions,
		txManager:  txManager,
		authorizer: authorizer,
		clock:      clock,
		logger:     logger,
	}
}

// GetThoughtVersions lists a thought's versions
func (s *versionService) GetThoughtVersions(ctx context.Context, userID, thoughtID string) ([]models.Version, error) {
	if _, err := s.authorizer.CanEditThought(ctx, userID, thoughtID); err != nil {
		return nil, err
	}
	return s.versions.ListByThought(ctx, thoughtID)
}

// GetSelectedVersion returns the selected version or nil
func (s *versionService) GetSelectedVersion(ctx context.Context, userID, thoughtID string) (*models.Version, error) {
	t, err := s.authorizer.CanEditThought(ctx, userID, thoughtID)
	if err != nil {
		return nil, err
	}
	if t.SelectedVersion == nil {
		return nil, nil
	}
	return s.versions.GetByID(ctx, *t.SelectedVersion)
}

// SetSelectedVersion moves the selected pointer
func (s *versionService) SetSelectedVersion(ctx context.Context, userID, thoughtID, versionID string) error {
	if err := validation.Validate(versionID, validation.Required); err != nil {
		return fmt.Errorf("%w: version_id: %v", domain.ErrValidation, err)
	}
	if _, err := s.authorizer.CanEditThought(ctx, userID, thoughtID); err != nil {
		return err
	}
	if _, err := s.versionOf(ctx, thoughtID, versionID); err != nil {
		return err
	}
	if err := s.thoughts.SetSelectedVersion(ctx, thoughtID, versionID); err != nil {
		return err
	}

	s.logger.Debug("selected version changed", "thought_id", thoughtID, "version_id", versionID, "user_id", userID)
	return nil
}

// CreateVersion adds the next dense non-core version, rejecting once the
// thought has MaxVersionsPerThought of them.
func (s *versionService) CreateVersion(ctx context.Context, userID, thoughtID string, req *thoughtSvc.CreateVersionRequest) (*models.Version, error) {
	t, err := s.authorizer.CanEditThought(ctx, userID, thoughtID)
	if err != nil {
		return nil, err
	}

	var content doctree.Document
	if len(req.Content) > 0 {
		if content, err = doctree.Parse(req.Content); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}

	var created *models.Version
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		existing, err := s.versions.ListByThought(ctx, thoughtID)
		if err != nil {
			return err
		}

		nonCore, highest := 0, models.CoreVersionNumber
		var selected *models.Version
		for i := range existing {
			v := &existing[i]
			if !v.IsCore {
				nonCore++
				highest = max(highest, v.VersionNumber)
			}
			if t.SelectedVersion != nil && v.ID == *t.SelectedVersion {
				selected = v
			}
		}
		if nonCore >= config.MaxVersionsPerThought {
			return domain.Rejected(fmt.Sprintf("thought already has %d versions", config.MaxVersionsPerThought))
		}

		parent := req.ParentVersionNumber
		if content == nil {
			content = doctree.New()
			if selected != nil {
				content = selected.Content.Clone()
			}
		}
		if parent == nil && selected != nil {
			parent = &selected.VersionNumber
		}

		created = &models.Version{
			ThoughtID:           thoughtID,
			Content:             content,
			VersionNumber:       highest + 1,
			Title:               t.Title,
			ChangeLabel:         models.ChangeLight,
			IsCore:              false,
			CreatedAt:           s.clock.Now(),
			ModifiedBy:          userID,
			ParentVersionNumber: parent,
		}
		if err := s.versions.Create(ctx, created); err != nil {
			return err
		}
		return s.thoughts.Touch(ctx, thoughtID, userID, created.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version created",
		"thought_id", thoughtID,
		"version_id", created.ID,
		"number", created.VersionNumber,
		"user_id", userID,
	)
	return created, nil
}

// DeleteVersion removes a non-core version, renumbers the remaining ones by
// creation time and falls back to the core version when the deleted one was
// selected.
func (s *versionService) DeleteVersion(ctx context.Context, userID, thoughtID, versionID string) error {
	t, err := s.authorizer.CanEditThought(ctx, userID, thoughtID)
	if err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		target, err := s.versionOf(ctx, thoughtID, versionID)
		if err != nil {
			return err
		}
		if target.IsCore {
			return domain.Rejected("the core version cannot be deleted")
		}
		if err := s.versions.Delete(ctx, versionID); err != nil {
			return err
		}

		remaining, err := s.versions.ListByThought(ctx, thoughtID)
		if err != nil {
			return err
		}
		var core *models.Version
		next := models.CoreVersionNumber + 1
		for i := range remaining {
			v := &remaining[i]
			if v.IsCore {
				core = v
				continue
			}
			if v.VersionNumber != next {
				if err := s.versions.SetNumber(ctx, v.ID, next); err != nil {
					return err
				}
			}
			next++
		}

		if t.SelectedVersion != nil && *t.SelectedVersion == versionID && core != nil {
			if err := s.thoughts.SetSelectedVersion(ctx, thoughtID, core.ID); err != nil {
				return err
			}
		}
		return s.thoughts.Touch(ctx, thoughtID, userID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	s.logger.Info("version deleted", "thought_id", thoughtID, "version_id", versionID, "user_id", userID)
	return nil
}

// versionOf loads a version and checks it belongs to thoughtID.
func (s *versionService) versionOf(ctx context.Context, thoughtID, versionID string) (*models.Version, error) {
	v, err := s.versions.GetByID(ctx, strings.TrimSpace(versionID))
	if err != nil {
		return nil, err
	}
	if v.ThoughtID != thoughtID {
		return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}
	return v, nil
}
