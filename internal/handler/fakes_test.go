package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models"
	"thoughtbox/internal/domain/models/doctree"
	thoughtModels "thoughtbox/internal/domain/models/thought"
	thoughtSvc "thoughtbox/internal/domain/services/thought"
	"thoughtbox/internal/handler/sse"
	"thoughtbox/internal/middleware"
	"thoughtbox/internal/service/session"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice"
	bob   = "bob"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory ThoughtService and VersionService. Only owners
// have access; everyone else is forbidden.
type memStore struct {
	mu       sync.Mutex
	seq      int
	thoughts map[string]*thoughtModels.Thought
	versions map[string][]thoughtModels.Version // by thought, core first
}

var (
	_ thoughtSvc.ThoughtService = (*memStore)(nil)
	_ thoughtSvc.VersionService = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		thoughts: map[string]*thoughtModels.Thought{},
		versions: map[string][]thoughtModels.Version{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memStore) owned(userID, thoughtID string) (*thoughtModels.Thought, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	t, ok := m.thoughts[thoughtID]
	if !ok || t.OwnerID != userID {
		return nil, &domain.ForbiddenError{Message: "access denied to thought " + thoughtID}
	}
	return t, nil
}

func (m *memStore) CreateThought(_ context.Context, req *thoughtSvc.CreateThoughtRequest) (*thoughtModels.Thought, error) {
	content := doctree.New()
	if len(req.Content) > 0 {
		doc, err := doctree.Parse(req.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		content = doc
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &thoughtModels.Thought{ID: m.nextID("t"), Title: req.Title, OwnerID: req.UserID, IsPrivate: true, Collaborators: []string{}}
	core := thoughtModels.Version{ID: m.nextID("v"), ThoughtID: t.ID, Content: content, VersionNumber: 1, IsCore: true, ChangeLabel: thoughtModels.ChangeLight}
	t.SelectedVersion = &core.ID
	m.thoughts[t.ID] = t
	m.versions[t.ID] = []thoughtModels.Version{core}
	out := *t
	return &out, nil
}

func (m *memStore) GetThought(_ context.Context, userID, thoughtID string) (*thoughtModels.Thought, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

func (m *memStore) ListThoughts(_ context.Context, userID string) ([]thoughtModels.Thought, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []thoughtModels.Thought{}
	for _, t := range m.thoughts {
		if t.OwnerID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) RenameThought(_ context.Context, userID, thoughtID string, req *thoughtSvc.RenameThoughtRequest) (*thoughtModels.Thought, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title: cannot be blank", domain.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return nil, err
	}
	t.Title = req.Title
	if req.Description.Present {
		t.Description = req.Description.Value
	}
	out := *t
	return &out, nil
}

func (m *memStore) DeleteThought(_ context.Context, userID, thoughtID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(userID, thoughtID); err != nil {
		return err
	}
	delete(m.thoughts, thoughtID)
	delete(m.versions, thoughtID)
	return nil
}

func (m *memStore) UpdateThoughtContent(_ context.Context, userID, thoughtID string, content doctree.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return err
	}
	for i := range m.versions[thoughtID] {
		if m.versions[thoughtID][i].ID == *t.SelectedVersion {
			m.versions[thoughtID][i].Content = content.Clone()
		}
	}
	return nil
}

func (m *memStore) ShareThought(_ context.Context, userID, thoughtID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return "", err
	}
	if t.ShareToken == nil {
		token := "tok-" + thoughtID
		t.ShareToken = &token
	}
	t.IsPrivate = false
	return "https://thoughts.example/shared/" + *t.ShareToken, nil
}

func (m *memStore) MakePrivate(_ context.Context, userID, thoughtID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return err
	}
	t.ShareToken, t.IsPrivate = nil, true
	return nil
}

func (m *memStore) AddSharedThoughtToDashboard(_ context.Context, userID, token string) (*thoughtModels.SharedThought, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.thoughts {
		if t.ShareToken != nil && *t.ShareToken == token {
			t.Collaborators = append(t.Collaborators, userID)
			return &thoughtModels.SharedThought{ThoughtID: t.ID, Title: t.Title}, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "share link is invalid or revoked"}
}

func (m *memStore) GetThoughtVersions(_ context.Context, userID, thoughtID string) ([]thoughtModels.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(userID, thoughtID); err != nil {
		return nil, err
	}
	return append([]thoughtModels.Version(nil), m.versions[thoughtID]...), nil
}

func (m *memStore) GetSelectedVersion(_ context.Context, userID, thoughtID string) (*thoughtModels.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return nil, err
	}
	for _, v := range m.versions[thoughtID] {
		if v.ID == *t.SelectedVersion {
			out := v
			out.Content = v.Content.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) SetSelectedVersion(_ context.Context, userID, thoughtID, versionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return err
	}
	for _, v := range m.versions[thoughtID] {
		if v.ID == versionID {
			t.SelectedVersion = &v.ID
			return nil
		}
	}
	return &domain.NotFoundError{Message: "version not found"}
}

func (m *memStore) CreateVersion(_ context.Context, userID, thoughtID string, req *thoughtSvc.CreateVersionRequest) (*thoughtModels.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(userID, thoughtID); err != nil {
		return nil, err
	}
	list := m.versions[thoughtID]
	if len(list)-1 >= 10 {
		return nil, domain.Rejected("a thought can have at most 10 versions")
	}
	content := list[0].Content.Clone()
	if len(req.Content) > 0 {
		doc, err := doctree.Parse(req.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		content = doc
	}
	v := thoughtModels.Version{ID: m.nextID("v"), ThoughtID: thoughtID, Content: content, VersionNumber: len(list) + 1, ChangeLabel: thoughtModels.ChangeLight}
	m.versions[thoughtID] = append(list, v)
	return &v, nil
}

func (m *memStore) DeleteVersion(_ context.Context, userID, thoughtID, versionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.owned(userID, thoughtID)
	if err != nil {
		return err
	}
	list := m.versions[thoughtID]
	for i, v := range list {
		if v.ID != versionID {
			continue
		}
		if v.IsCore {
			return domain.Rejected("the core version cannot be deleted")
		}
		list = append(list[:i], list[i+1:]...)
		for j := 1; j < len(list); j++ {
			list[j].VersionNumber = j + 1
		}
		m.versions[thoughtID] = list
		if *t.SelectedVersion == versionID {
			t.SelectedVersion = &list[0].ID
		}
		return nil
	}
	return &domain.NotFoundError{Message: "version not found"}
}

// fakeVerifier accepts "token-<user>".
type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(token string) (*models.SupabaseClaims, error) {
	user, ok := strings.CutPrefix(token, "token-")
	if !ok || user == "" {
		return nil, domain.ErrUnauthorized
	}
	c := &models.SupabaseClaims{Role: "authenticated"}
	c.Subject = user
	return c, nil
}

func (fakeVerifier) Close() error { return nil }

type fakeTranscriber struct {
	text string
	err  error
	got  []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioURL string) (string, error) {
	f.got = append(f.got, audioURL)
	return f.text, f.err
}

type fakeRefiner struct {
	doc doctree.Document
	err error
}

func (f *fakeRefiner) Refine(_ context.Context, text string) (doctree.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	return f.doc, f.err
}

type testServer struct {
	*httptest.Server
	store       *memStore
	sessions    *session.Manager
	clock       clockwork.FakeClock
	transcriber *fakeTranscriber
	refiner     *fakeRefiner
}

type okPinger struct{ err error }

func (p okPinger) Ping(context.Context) error { return p.err }

// newTestServer wires the real router, auth and rate limit middleware
// around in-memory services.
func newTestServer(t *testing.T, dictationRPM int) *testServer {
	t.Helper()
	ts := &testServer{
		store:       newMemStore(),
		clock:       clockwork.NewFakeClock(),
		transcriber: &fakeTranscriber{text: "buy milk"},
		refiner: &fakeRefiner{doc: doctree.Document{
			&doctree.Heading{Level: 1, Children: []doctree.Text{{Text: "Groceries"}}},
		}},
	}
	logger := discardLogger()
	ts.sessions = session.NewManager(ts.store, ts.store, ts.clock, time.Minute, logger)
	t.Cleanup(ts.sessions.Shutdown)

	limiter := middleware.NewUserRateLimiter(dictationRPM)
	mux := http.NewServeMux()
	RegisterRoutes(mux, Handlers{
		Health:         NewHealthHandler(okPinger{}, ts.sessions.Count, logger),
		Thoughts:       NewThoughtHandler(ts.store, ts.store, logger),
		Sessions:       NewSessionHandler(ts.sessions, ts.refiner, &sse.Config{KeepAliveInterval: time.Hour}, ts.clock, logger),
		Dictation:      NewDictationHandler(ts.transcriber, ts.refiner, logger),
		DictationLimit: middleware.RateLimit(limiter, logger),
	})

	var h http.Handler = mux
	h = middleware.AuthMiddleware(fakeVerifier{}, logger)(h)
	h = middleware.Recovery(logger)(h)
	ts.Server = httptest.NewServer(h)
	t.Cleanup(ts.Server.Close)
	return ts
}

// do sends a request as user and decodes a JSON response into out when
// out is non-nil.
func (ts *testServer) do(t *testing.T, user, method, path, body string, out any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer token-"+user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// problem is the RFC 7807 body.
type problem struct {
	Type    string `json:"type"`
	Status  int    `json:"status"`
	Detail  string `json:"detail"`
	Service string `json:"service"`
}
