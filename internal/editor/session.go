package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"thoughtbox/internal/config"
	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	"thoughtbox/internal/domain/models/thought"

	"github.com/jonboulle/clockwork"
)

// Store is the narrow view of the document store a session needs. It is
// already bound to the session's user.
type Store interface {
	CreateThought(ctx context.Context, isPrivate bool, content doctree.Document) (string, error)
	UpdateThoughtContent(ctx context.Context, thoughtID string, content doctree.Document) error
	GetThoughtVersions(ctx context.Context, thoughtID string) ([]thought.Version, error)
	GetSelectedVersion(ctx context.Context, thoughtID string) (*thought.Version, error)
	SetSelectedVersion(ctx context.Context, thoughtID, versionID string) error
	CreateVersion(ctx context.Context, thoughtID string, content doctree.Document) (*thought.Version, error)
	DeleteVersion(ctx context.Context, thoughtID, versionID string) error
}

type Options struct {
	Clock            clockwork.Clock
	StatusResetDelay time.Duration
	Logger           *slog.Logger
	// OnStatus observes every status change, auto-resets included.
	OnStatus func(Status)
}

// Session is one user's editing session over one thought. All methods are
// safe for concurrent use; store calls run without the session lock so the
// session stays responsive (and observable as saving) while they are
// pending.
type Session struct {
	mu        sync.Mutex
	id        string
	thoughtID string
	store     Store
	logger    *slog.Logger

	doc     doctree.Document
	sel     *doctree.Selection
	pending *doctree.Marks
	rev     uint64

	status   *StatusMachine
	slash    SlashMenu
	toolbar  Toolbar
	versions VersionController

	switching       bool
	creatingVersion bool
	needsReload     bool
}

// NewSession creates a session. An empty thoughtID starts a brand-new
// thought that is created on its first save.
func NewSession(id, thoughtID string, store Store, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.StatusResetDelay <= 0 {
		opts.StatusResetDelay = config.StatusResetDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	doc := doctree.New()
	return &Session{
		id:        id,
		thoughtID: thoughtID,
		store:     store,
		logger:    opts.Logger.With("session_id", id),
		doc:       doc,
		sel:       doctree.Caret(doctree.StartOfDocument(doc)),
		status:    NewStatusMachine(opts.Clock, opts.StatusResetDelay, opts.OnStatus),
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// ThoughtID returns the thought being edited, empty before the first save
// of a new thought.
func (s *Session) ThoughtID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thoughtID
}

// Status returns the visible status.
func (s *Session) Status() Status { return s.status.Status() }

// Load fetches the selected version into the document.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	thoughtID := s.thoughtID
	if thoughtID == "" {
		s.replaceDoc(doctree.New())
		s.status.Dispatch(ActionContentLoaded)
		s.mu.Unlock()
		return nil
	}
	s.status.Dispatch(ActionInitContent)
	s.mu.Unlock()

	list, selected, err := s.fetchVersions(ctx, thoughtID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status.Dispatch(ActionSaveFailed)
		s.logger.Error("load thought failed", "thought_id", thoughtID, "error", err)
		return err
	}
	s.applyVersions(list, selected)
	content := doctree.New()
	if selected != nil {
		content = selected.Content
	}
	s.replaceDoc(content)
	s.needsReload = false
	s.status.Dispatch(ActionContentLoaded)
	return nil
}

func (s *Session) fetchVersions(ctx context.Context, thoughtID string) ([]thought.Version, *thought.Version, error) {
	list, err := s.store.GetThoughtVersions(ctx, thoughtID)
	if err != nil {
		return nil, nil, fmt.Errorf("get versions: %w", err)
	}
	selected, err := s.store.GetSelectedVersion(ctx, thoughtID)
	if err != nil {
		return nil, nil, fmt.Errorf("get selected version: %w", err)
	}
	return list, selected, nil
}

func (s *Session) applyVersions(list []thought.Version, selected *thought.Version) {
	id := ""
	if selected != nil {
		id = selected.ID
	}
	s.versions.set(list, id)
}

// replaceDoc swaps the whole document and resets everything tied to
// positions in the old one. Must hold mu.
func (s *Session) replaceDoc(doc doctree.Document) {
	s.doc = doc.Clone()
	s.sel = doctree.Caret(doctree.StartOfDocument(s.doc))
	s.pending = nil
	s.rev++
	s.slash.Close()
	s.toolbar.OnSelectionChange(s.sel)
}

// editable must be called with mu held.
func (s *Session) editable() error {
	switch {
	case s.status.Status() == StatusLoading:
		return domain.Rejected("content is loading")
	case s.switching:
		return domain.Rejected("version switch in progress")
	case s.needsReload:
		return domain.Rejected("session must be reloaded")
	}
	return nil
}

// edit applies a document transform as a user edit. A transform that
// leaves the document as it was is not an edit. Must hold mu.
func (s *Session) edit(fn func(doctree.Document, *doctree.Selection) (doctree.Document, *doctree.Selection)) error {
	if err := s.editable(); err != nil {
		return err
	}
	if !doctree.IsValid(s.doc, s.sel) {
		s.sel = doctree.Caret(doctree.EndOfDocument(s.doc))
	}
	doc, sel := fn(s.doc, s.sel)
	changed := !doctree.Equal(s.doc, doc)
	s.doc, s.sel = doc, sel
	if !changed {
		return nil
	}
	s.rev++
	s.status.Dispatch(ActionEdit)
	return nil
}

// TypeText inserts text at the selection. caretRect is the caret geometry
// after insertion, used to place the slash menu.
func (s *Session) TypeText(text string, caretRect Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		return nil
	}
	pending := s.pending
	err := s.edit(func(d doctree.Document, sel *doctree.Selection) (doctree.Document, *doctree.Selection) {
		return doctree.InsertText(d, sel, text, pending)
	})
	if err != nil {
		return err
	}
	s.pending = nil
	s.slash.OnTextInput(s.doc, s.sel.Focus, text, caretRect)
	s.toolbar.OnSelectionChange(s.sel)
	return nil
}

// Backspace deletes backwards and closes the slash menu.
func (s *Session) Backspace() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.edit(doctree.DeleteBackward); err != nil {
		return err
	}
	s.slash.Close()
	s.toolbar.OnSelectionChange(s.sel)
	return nil
}

// Enter runs the best slash menu match when the menu is open and splits
// the block otherwise.
func (s *Session) Enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if items := s.slash.Items(); len(items) > 0 {
		return s.exec(items[0])
	}
	if err := s.edit(doctree.InsertBreak); err != nil {
		return err
	}
	s.slash.Close()
	s.toolbar.OnSelectionChange(s.sel)
	return nil
}

// Escape closes the slash menu.
func (s *Session) Escape() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slash.Close()
}

// Select replaces the selection. A nil selection clears it.
func (s *Session) Select(sel *doctree.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel != nil && !doctree.IsValid(s.doc, sel) {
		return fmt.Errorf("%w: selection does not address the document", domain.ErrValidation)
	}
	s.sel = sel
	s.pending = nil
	s.slash.OnSelectionChange(s.doc, sel)
	s.toolbar.OnSelectionChange(sel)
	return nil
}

// MouseUp ends a pointer selection; rect bounds the selected text.
func (s *Session) MouseUp(rect Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolbar.OnMouseUp(s.sel, rect)
}

// CloseToolbar handles the toolbar's close button and clicks outside it.
func (s *Session) CloseToolbar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolbar.Close(s.sel)
}

// SetToolbarHeight records the toolbar's measured height.
func (s *Session) SetToolbarHeight(h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolbar.SetHeight(h)
}

// Exec runs a catalog command against the selection.
func (s *Session) Exec(id CommandID) error {
	c, ok := LookupCommand(id)
	if !ok {
		return fmt.Errorf("%w: unknown command %q", domain.ErrValidation, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(c)
}

// ChooseSlashCommand runs an entry picked from the open slash menu.
func (s *Session) ChooseSlashCommand(id CommandID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.slash.Items() {
		if c.ID == id {
			return s.exec(c)
		}
	}
	return domain.Rejected(fmt.Sprintf("%q is not in the slash menu", id))
}

// Shortcut runs the command bound to a key event. It reports whether the
// event was consumed.
func (s *Session) Shortcut(ev KeyEvent) (bool, error) {
	id, ok := ResolveShortcut(ev)
	if !ok {
		return false, nil
	}
	return true, s.Exec(id)
}

// exec must be called with mu held.
func (s *Session) exec(c Command) error {
	if err := s.editable(); err != nil {
		return err
	}
	if mark, ok := c.Mark(); ok && (s.sel == nil || s.sel.IsCollapsed()) {
		s.togglePending(mark)
		return nil
	}
	if s.sel == nil {
		return domain.Rejected("no selection")
	}
	if err := s.edit(c.Apply); err != nil {
		return err
	}
	s.slash.Close()
	s.toolbar.OnCommand(c)
	s.toolbar.OnSelectionChange(s.sel)
	return nil
}

// togglePending flips a mark for the next typed text.
func (s *Session) togglePending(m doctree.Mark) {
	var base doctree.Marks
	switch {
	case s.pending != nil:
		base = *s.pending
	case s.sel != nil:
		base = doctree.MarksAt(s.doc, s.sel.Focus)
	}
	next := base.With(m, !base.Has(m))
	s.pending = &next
}

// ReplaceContent swaps in a whole new document, as AI refinement does.
// The replacement counts as an unsaved edit.
func (s *Session) ReplaceContent(doc doctree.Document) error {
	if len(doc) == 0 {
		return fmt.Errorf("%w: content must have at least one block", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.replaceDoc(doc)
	s.status.Dispatch(ActionEdit)
	return nil
}

// Save persists the document: the first save of a new thought creates it,
// later saves patch the selected version. A save while another store
// write is in flight is rejected.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if st := s.status.Status(); st == StatusSaving || st == StatusLoading || s.switching {
		s.mu.Unlock()
		return domain.Rejected("a save is already in progress")
	}
	if s.needsReload {
		s.mu.Unlock()
		return domain.Rejected("session must be reloaded")
	}
	doc, rev, thoughtID := s.doc.Clone(), s.rev, s.thoughtID
	if thoughtID == "" {
		s.status.Dispatch(ActionCreatingThought)
	} else {
		s.status.Dispatch(ActionSave)
	}
	s.mu.Unlock()

	var (
		createdID string
		list      []thought.Version
		selected  *thought.Version
		err       error
	)
	if thoughtID == "" {
		createdID, err = s.store.CreateThought(ctx, true, doc)
		if err == nil {
			list, selected, err = s.fetchVersions(ctx, createdID)
		}
	} else {
		err = s.store.UpdateThoughtContent(ctx, thoughtID, doc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if createdID != "" {
		s.thoughtID = createdID
		s.applyVersions(list, selected)
	}
	if err != nil {
		s.status.Dispatch(ActionSaveFailed)
		s.logger.Error("save failed", "thought_id", thoughtID, "error", err)
		return err
	}
	s.status.Dispatch(ActionSaveSucceeded)
	if s.rev != rev {
		s.status.Dispatch(ActionEdit)
	}
	s.logger.Debug("saved", "thought_id", s.thoughtID, "created", createdID != "")
	return nil
}

// Close stops the session's timers.
func (s *Session) Close() {
	s.status.Stop()
}

// View is a snapshot of everything a client renders.
type View struct {
	ID             string             `json:"id"`
	ThoughtID      string             `json:"thought_id,omitempty"`
	Content        doctree.Document   `json:"content"`
	Selection      *doctree.Selection `json:"selection"`
	Status         Status             `json:"status"`
	Unsaved        bool               `json:"unsaved"`
	Creating       bool               `json:"creating"`
	CurrentBlock   doctree.BlockState `json:"current_block"`
	Placeholder    Placeholder        `json:"placeholder"`
	PendingMarks   *doctree.Marks     `json:"pending_marks,omitempty"`
	ActiveCommands []CommandID        `json:"active_commands"`
	SlashMenu      OverlayView        `json:"slash_menu"`
	Toolbar        OverlayView        `json:"toolbar"`
	Versions       VersionsView       `json:"versions"`
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	block := doctree.CurrentBlock(s.doc, s.sel)
	active := []CommandID{}
	if s.sel != nil {
		for _, c := range catalog {
			if c.IsActive(s.doc, s.sel) {
				active = append(active, c.ID)
			}
		}
	}
	var sel *doctree.Selection
	if s.sel != nil {
		cp := *s.sel
		sel = &cp
	}
	return View{
		ID:             s.id,
		ThoughtID:      s.thoughtID,
		Content:        s.doc.Clone(),
		Selection:      sel,
		Status:         s.status.Status(),
		Unsaved:        s.status.Unsaved(),
		Creating:       s.status.Creating(),
		CurrentBlock:   block,
		Placeholder:    PlaceholderFor(block),
		PendingMarks:   s.pending,
		ActiveCommands: active,
		SlashMenu:      s.slash.View(),
		Toolbar:        s.toolbar.View(),
		Versions:       s.versions.View(),
	}
}

// Document returns a copy of the current document.
func (s *Session) Document() doctree.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}
