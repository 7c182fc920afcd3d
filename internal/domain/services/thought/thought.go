package thought

import (
	"context"
	"encoding/json"

	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
)

// ThoughtService is the document store behind the editor.
// Every method takes the calling user's ID for authorization.
type ThoughtService interface {
	// CreateThought creates a thought together with its core version and selects it
	CreateThought(ctx context.Context, req *CreateThoughtRequest) (*models.Thought, error)

	// GetThought returns a thought with the content of its selected version
	GetThought(ctx context.Context, userID, thoughtID string) (*models.Thought, error)

	// ListThoughts returns the user's dashboard: owned and collaborating thoughts
	ListThoughts(ctx context.Context, userID string) ([]models.Thought, error)

	// RenameThought changes the title (owner only)
	RenameThought(ctx context.Context, userID, thoughtID string, req *RenameThoughtRequest) (*models.Thought, error)

	// DeleteThought removes a thought and all its versions (owner only)
	DeleteThought(ctx context.Context, userID, thoughtID string) error

	// UpdateThoughtContent patches the selected version's content and stamps last modified
	UpdateThoughtContent(ctx context.Context, userID, thoughtID string, content doctree.Document) error

	// ShareThought issues a share link, returning the existing one when already public (owner only)
	ShareThought(ctx context.Context, userID, thoughtID string) (string, error)

	// MakePrivate revokes the share link (owner only)
	MakePrivate(ctx context.Context, userID, thoughtID string) error

	// AddSharedThoughtToDashboard joins the caller as collaborator via a share token
	AddSharedThoughtToDashboard(ctx context.Context, userID, token string) (*models.SharedThought, error)
}

// VersionService manages the snapshots of a thought.
type VersionService interface {
	// GetThoughtVersions lists versions, core first then by creation time
	GetThoughtVersions(ctx context.Context, userID, thoughtID string) ([]models.Version, error)

	// GetSelectedVersion returns the selected version, or nil when none is selected
	GetSelectedVersion(ctx context.Context, userID, thoughtID string) (*models.Version, error)

	// SetSelectedVersion moves the selected pointer to a version of the same thought
	SetSelectedVersion(ctx context.Context, userID, thoughtID, versionID string) error

	// CreateVersion snapshots content as the next non-core version.
	// Fails with domain.ErrRejected once the thought has MaxVersionsPerThought.
	CreateVersion(ctx context.Context, userID, thoughtID string, req *CreateVersionRequest) (*models.Version, error)

	// DeleteVersion removes a non-core version and renumbers the rest densely
	DeleteVersion(ctx context.Context, userID, thoughtID, versionID string) error
}

// CreateThoughtRequest represents a thought creation request
type CreateThoughtRequest struct {
	UserID      string          `json:"-"` // Set by handler from auth context
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	IsPrivate   *bool           `json:"is_private,omitempty"` // Defaults to true
	Content     json.RawMessage `json:"content,omitempty"`    // Defaults to an empty paragraph
}

// RenameThoughtRequest represents a rename request. The description is
// only touched when Description.Present is set.
type RenameThoughtRequest struct {
	Title       string              `json:"title"`
	Description OptionalDescription `json:"-"` // Mapped from the handler DTO
}

// OptionalDescription carries PATCH tri-state semantics (RFC 7396):
//   - Present=false: leave the description alone
//   - Present=true, Value=nil: clear it
//   - Present=true, Value=&"text": set it
type OptionalDescription struct {
	Present bool
	Value   *string
}

// UpdateContentRequest carries raw document JSON for UpdateThoughtContent
type UpdateContentRequest struct {
	Content json.RawMessage `json:"content"`
}

// CreateVersionRequest represents a version creation request
type CreateVersionRequest struct {
	Content             json.RawMessage `json:"content,omitempty"` // Defaults to the selected version's content
	ParentVersionNumber *int            `json:"parent_version_number,omitempty"`
}

// SetSelectedVersionRequest represents a selected version change
type SetSelectedVersionRequest struct {
	VersionID string `json:"version_id"`
}
