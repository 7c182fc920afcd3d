package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	"thoughtbox/internal/domain/models/thought"
)

// fakeStore is an in-memory Store for a single thought.
type fakeStore struct {
	mu        sync.Mutex
	thoughtID string
	versions  []thought.Version
	selected  string
	seq       int
	calls     []string

	updateErr error
	selectErr error

	// When non-nil, UpdateThoughtContent signals started and then waits
	// on release.
	started chan struct{}
	release chan struct{}
}

func newFakeStore(thoughtID string, core doctree.Document) *fakeStore {
	s := &fakeStore{thoughtID: thoughtID}
	if thoughtID != "" {
		v := s.addVersion(core, true)
		s.selected = v.ID
	}
	return s
}

// addVersion must be called with mu held or before the store is shared.
func (s *fakeStore) addVersion(content doctree.Document, core bool) thought.Version {
	s.seq++
	number := thought.CoreVersionNumber
	if !core {
		for _, v := range s.versions {
			if v.VersionNumber >= number {
				number = v.VersionNumber + 1
			}
		}
	}
	v := thought.Version{
		ID:            fmt.Sprintf("v%d", s.seq),
		ThoughtID:     s.thoughtID,
		Content:       content.Clone(),
		VersionNumber: number,
		ChangeLabel:   thought.ChangeLight,
		IsCore:        core,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, s.seq, 0, time.UTC),
	}
	s.versions = append(s.versions, v)
	return v
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *fakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStore) CreateThought(_ context.Context, _ bool, content doctree.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("create_thought")
	if s.updateErr != nil {
		return "", s.updateErr
	}
	s.thoughtID = "t-new"
	v := s.addVersion(content, true)
	s.selected = v.ID
	return s.thoughtID, nil
}

func (s *fakeStore) UpdateThoughtContent(_ context.Context, thoughtID string, content doctree.Document) error {
	s.mu.Lock()
	s.record("update")
	started, release := s.started, s.release
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.versions {
		if s.versions[i].ID == s.selected {
			s.versions[i].Content = content.Clone()
			return nil
		}
	}
	return &domain.NotFoundError{Message: "thought not found: " + thoughtID}
}

func (s *fakeStore) GetThoughtVersions(context.Context, string) ([]thought.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("list")
	out := make([]thought.Version, len(s.versions))
	copy(out, s.versions)
	return out, nil
}

func (s *fakeStore) GetSelectedVersion(context.Context, string) (*thought.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("get_selected")
	for _, v := range s.versions {
		if v.ID == s.selected {
			v.Content = v.Content.Clone()
			return &v, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SetSelectedVersion(_ context.Context, _ string, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("set_selected")
	if s.selectErr != nil {
		return s.selectErr
	}
	s.selected = versionID
	return nil
}

func (s *fakeStore) CreateVersion(_ context.Context, _ string, content doctree.Document) (*thought.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("create_version")
	v := s.addVersion(content, false)
	return &v, nil
}

func (s *fakeStore) DeleteVersion(_ context.Context, _ string, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete_version")
	kept := s.versions[:0]
	for _, v := range s.versions {
		if v.ID != versionID {
			kept = append(kept, v)
		}
	}
	s.versions = kept
	sort.SliceStable(s.versions, func(i, j int) bool {
		if s.versions[i].IsCore != s.versions[j].IsCore {
			return s.versions[i].IsCore
		}
		return s.versions[i].CreatedAt.Before(s.versions[j].CreatedAt)
	})
	for i := range s.versions {
		if !s.versions[i].IsCore {
			s.versions[i].VersionNumber = thought.CoreVersionNumber + i
		}
	}
	if s.selected == versionID {
		s.selected = s.versions[0].ID
	}
	return nil
}

func (s *fakeStore) selectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *fakeStore) content(versionID string) doctree.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.ID == versionID {
			return v.Content.Clone()
		}
	}
	return nil
}

// statusLog records status changes from a session.
type statusLog struct {
	mu   sync.Mutex
	seen []Status
}

func (l *statusLog) record(s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, s)
}

func (l *statusLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = nil
}

func (l *statusLog) all() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.seen...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paragraphs(texts ...string) doctree.Document {
	doc := make(doctree.Document, 0, len(texts))
	for _, t := range texts {
		doc = append(doc, &doctree.Paragraph{Children: []doctree.Text{{Text: t}}})
	}
	return doc
}
