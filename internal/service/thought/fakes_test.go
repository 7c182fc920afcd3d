package thought

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	models "thoughtbox/internal/domain/models/thought"
	"thoughtbox/internal/domain/repositories"
)

type fakeStore struct {
	mu       sync.Mutex
	seq      int
	thoughts map[string]*models.Thought
	versions map[string]*models.Version
	order    map[string]int // version id -> insertion sequence

	versionCreates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		thoughts: map[string]*models.Thought{},
		versions: map[string]*models.Version{},
		order:    map[string]int{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTx runs fn inline; the fakes have no rollback.
type fakeTx struct{}

func (fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

type fakeThoughtRepo struct{ *fakeStore }

func (r fakeThoughtRepo) Create(_ context.Context, t *models.Thought) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID("thought")
	cp := *t
	r.thoughts[t.ID] = &cp
	return nil
}

func (r fakeThoughtRepo) get(id string) (*models.Thought, error) {
	t, ok := r.thoughts[id]
	if !ok {
		return nil, fmt.Errorf("thought %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (r fakeThoughtRepo) GetByID(_ context.Context, id string) (*models.Thought, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return nil, err
	}
	cp := *t
	cp.Collaborators = slices.Clone(t.Collaborators)
	return &cp, nil
}

func (r fakeThoughtRepo) GetByShareToken(_ context.Context, token string) (*models.Thought, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.thoughts {
		if !t.IsPrivate && t.ShareToken != nil && *t.ShareToken == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("share token: %w", domain.ErrNotFound)
}

func (r fakeThoughtRepo) ListForUser(_ context.Context, userID string) ([]models.Thought, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Thought{}
	for _, t := range r.thoughts {
		if t.CanEdit(userID) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r fakeThoughtRepo) UpdateTitle(_ context.Context, id, title, modifiedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.Title = title
	t.LastModified = models.LastModified{ModifiedBy: modifiedBy, Date: at}
	return nil
}

func (r fakeThoughtRepo) UpdateDescription(_ context.Context, id string, description *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.Description = description
	return nil
}

func (r fakeThoughtRepo) SetSelectedVersion(_ context.Context, id, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.SelectedVersion = &versionID
	return nil
}

func (r fakeThoughtRepo) Touch(_ context.Context, id, modifiedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.LastModified = models.LastModified{ModifiedBy: modifiedBy, Date: at}
	return nil
}

func (r fakeThoughtRepo) SetSharing(_ context.Context, id string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.ShareToken, t.IsPrivate = token, token == nil
	return nil
}

func (r fakeThoughtRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(id); err != nil {
		return err
	}
	delete(r.thoughts, id)
	for vid, v := range r.versions {
		if v.ThoughtID == id {
			delete(r.versions, vid)
		}
	}
	return nil
}

func (r fakeThoughtRepo) AddCollaborator(_ context.Context, thoughtID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.get(thoughtID)
	if err != nil {
		return err
	}
	if !slices.Contains(t.Collaborators, userID) {
		t.Collaborators = append(t.Collaborators, userID)
	}
	return nil
}

type fakeVersionRepo struct{ *fakeStore }

func (r fakeVersionRepo) Create(_ context.Context, v *models.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = r.nextID("version")
	cp := *v
	cp.Content = v.Content.Clone()
	r.versions[v.ID] = &cp
	r.order[v.ID] = r.seq
	r.versionCreates++
	return nil
}

func (r fakeVersionRepo) get(id string) (*models.Version, error) {
	v, ok := r.versions[id]
	if !ok {
		return nil, fmt.Errorf("version %s: %w", id, domain.ErrNotFound)
	}
	return v, nil
}

func (r fakeVersionRepo) GetByID(_ context.Context, id string) (*models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.get(id)
	if err != nil {
		return nil, err
	}
	cp := *v
	cp.Content = v.Content.Clone()
	return &cp, nil
}

func (r fakeVersionRepo) ListByThought(_ context.Context, thoughtID string) ([]models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Version{}
	for _, v := range r.versions {
		if v.ThoughtID == thoughtID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsCore != out[j].IsCore {
			return out[i].IsCore
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	return out, nil
}

func (r fakeVersionRepo) UpdateContent(_ context.Context, id string, content doctree.Document, modifiedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.get(id)
	if err != nil {
		return err
	}
	v.Content, v.ModifiedBy = content.Clone(), modifiedBy
	return nil
}

func (r fakeVersionRepo) UpdateTitle(_ context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.get(id)
	if err != nil {
		return err
	}
	v.Title = title
	return nil
}

func (r fakeVersionRepo) SetNumber(_ context.Context, id string, number int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.get(id)
	if err != nil {
		return err
	}
	v.VersionNumber = number
	return nil
}

func (r fakeVersionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(id); err != nil {
		return err
	}
	delete(r.versions, id)
	return nil
}
