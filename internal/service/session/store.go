package session

import (
	"context"
	"encoding/json"
	"fmt"

	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
	thoughtSvc "thoughtbox/internal/domain/services/thought"
	"thoughtbox/internal/editor"
)

// userStore binds the thought and version services to one user so an
// editor session can call them without knowing who it edits for.
type userStore struct {
	userID   string
	thoughts thoughtSvc.ThoughtService
	versions thoughtSvc.VersionService
}

var _ editor.Store = (*userStore)(nil)

func newUserStore(userID string, thoughts thoughtSvc.ThoughtService, versions thoughtSvc.VersionService) editor.Store {
	return &userStore{userID: userID, thoughts: thoughts, versions: versions}
}

func (s *userStore) CreateThought(ctx context.Context, isPrivate bool, content doctree.Document) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	t, err := s.thoughts.CreateThought(ctx, &thoughtSvc.CreateThoughtRequest{
		UserID:    s.userID,
		IsPrivate: &isPrivate,
		Content:   raw,
	})
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (s *userStore) UpdateThoughtContent(ctx context.Context, thoughtID string, content doctree.Document) error {
	return s.thoughts.UpdateThoughtContent(ctx, s.userID, thoughtID, content)
}

func (s *userStore) GetThoughtVersions(ctx context.Context, thoughtID string) ([]models.Version, error) {
	return s.versions.GetThoughtVersions(ctx, s.userID, thoughtID)
}

func (s *userStore) GetSelectedVersion(ctx context.Context, thoughtID string) (*models.Version, error) {
	return s.versions.GetSelectedVersion(ctx, s.userID, thoughtID)
}

func (s *userStore) SetSelectedVersion(ctx context.Context, thoughtID, versionID string) error {
	return s.versions.SetSelectedVersion(ctx, s.userID, thoughtID, versionID)
}

func (s *userStore) CreateVersion(ctx context.Context, thoughtID string, content doctree.Document) (*models.Version, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return s.versions.CreateVersion(ctx, s.userID, thoughtID, &thoughtSvc.CreateVersionRequest{Content: raw})
}

func (s *userStore) DeleteVersion(ctx context.Context, thoughtID, versionID string) error {
	return s.versions.DeleteVersion(ctx, s.userID, thoughtID, versionID)
}
