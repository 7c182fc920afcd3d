package thought

import (
	"time"

	"thoughtbox/internal/domain/models/doctree"
)

// ChangeLabel grades how far a version departs from its parent.
type ChangeLabel string

const (
	ChangeLight ChangeLabel = "light"
	ChangeMid   ChangeLabel = "mid"
	ChangeHeavy ChangeLabel = "heavy"
)

// CoreVersionNumber is the number stored on the core version. Non-core
// versions are numbered densely from CoreVersionNumber+1.
const CoreVersionNumber = 1

type Thought struct {
	ID              string           `json:"id" db:"id"`
	Title           string           `json:"title" db:"title"`
	Description     *string          `json:"description,omitempty" db:"description"`
	OwnerID         string           `json:"owner_id" db:"owner_id"`
	Collaborators   []string         `json:"collaborators"`
	IsPrivate       bool             `json:"is_private" db:"is_private"`
	ShareToken      *string          `json:"-" db:"share_token"`
	ThoughtLink     *string          `json:"thought_link,omitempty"` // Computed from ShareToken, not stored
	SelectedVersion *string          `json:"selected_version,omitempty" db:"selected_version_id"`
	LastModified    LastModified     `json:"last_modified"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	Content         doctree.Document `json:"content,omitempty"` // Selected version content, only on detail reads
}

type LastModified struct {
	ModifiedBy string    `json:"modified_by" db:"modified_by"`
	Date       time.Time `json:"date" db:"modified_at"`
}

// IsOwner reports whether userID owns t.
func (t *Thought) IsOwner(userID string) bool {
	return t.OwnerID == userID
}

// CanEdit reports whether userID owns t or collaborates on it.
func (t *Thought) CanEdit(userID string) bool {
	if t.IsOwner(userID) {
		return true
	}
	for _, c := range t.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

type Version struct {
	ID                  string           `json:"id" db:"id"`
	ThoughtID           string           `json:"thought_id" db:"thought_id"`
	Content             doctree.Document `json:"content" db:"content"`
	VersionNumber       int              `json:"version_number" db:"version_number"`
	Title               string           `json:"title" db:"title"`
	ChangeLabel         ChangeLabel      `json:"change_label" db:"change_label"`
	IsCore              bool             `json:"is_core" db:"is_core"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	ModifiedBy          string           `json:"modified_by" db:"modified_by"`
	ParentVersionNumber *int             `json:"parent_version_number,omitempty" db:"parent_version_number"`
}

// SharedThought is what a collaborator gets back after joining via a link.
type SharedThought struct {
	ThoughtID string `json:"thought_id"`
	Title     string `json:"title"`
}
