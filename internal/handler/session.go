package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	"thoughtbox/internal/domain/services"
	"thoughtbox/internal/editor"
	"thoughtbox/internal/handler/sse"
	"thoughtbox/internal/httputil"
	"thoughtbox/internal/service/session"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jonboulle/clockwork"
)

// Event types accepted by POST /api/sessions/{id}/events
const (
	eventText          = "text"
	eventBackspace     = "backspace"
	eventEnter         = "enter"
	eventEscape        = "escape"
	eventSelect        = "select"
	eventMouseUp       = "mouse_up"
	eventToolbarClose  = "toolbar_close"
	eventToolbarHeight = "toolbar_height"
	eventCommand       = "command"
	eventSlashCommand  = "slash_command"
	eventShortcut      = "shortcut"
	eventReplace       = "replace"
)

// SessionHandler exposes headless editor sessions over HTTP
type SessionHandler struct {
	sessions  *session.Manager
	refiner   services.Refiner
	sseConfig *sse.Config
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sessions *session.Manager,
	refiner services.Refiner,
	sseConfig *sse.Config,
	clock clockwork.Clock,
	logger *slog.Logger,
) *SessionHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &SessionHandler{
		sessions:  sessions,
		refiner:   refiner,
		sseConfig: sseConfig,
		clock:     clock,
		logger:    logger,
	}
}

type openSessionRequest struct {
	ThoughtID string `json:"thought_id"` // Empty starts a new thought
}

// sessionEvent is one editor input. Only the fields of its type are read.
type sessionEvent struct {
	Type      string             `json:"type"`
	Text      string             `json:"text,omitempty"`
	Rect      editor.Rect        `json:"rect"`
	Selection *doctree.Selection `json:"selection,omitempty"`
	Command   editor.CommandID   `json:"command,omitempty"`
	Key       *editor.KeyEvent   `json:"key,omitempty"`
	Height    float64            `json:"height,omitempty"`
	Content   json.RawMessage    `json:"content,omitempty"`
}

func (e sessionEvent) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.In(
			eventText, eventBackspace, eventEnter, eventEscape, eventSelect, eventMouseUp,
			eventToolbarClose, eventToolbarHeight, eventCommand, eventSlashCommand,
			eventShortcut, eventReplace,
		)),
		validation.Field(&e.Command, validation.When(e.Type == eventCommand || e.Type == eventSlashCommand, validation.Required)),
		validation.Field(&e.Key, validation.When(e.Type == eventShortcut, validation.Required)),
		validation.Field(&e.Content, validation.When(e.Type == eventReplace, validation.Required)),
		validation.Field(&e.Height, validation.Min(0.0)),
	)
}

type eventResponse struct {
	// Handled is false for a shortcut no command is bound to.
	Handled bool        `json:"handled"`
	View    editor.View `json:"view"`
}

type switchVersionRequest struct {
	VersionID string `json:"version_id"`
}

type refineRequest struct {
	Text string `json:"text"`
}

// OpenSession starts an editor session
// POST /api/sessions
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req openSessionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondBodyError(w, err)
		return
	}

	s, err := h.sessions.Open(r.Context(), userID, req.ThoughtID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession returns the session view
// GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, s.Snapshot())
}

// CloseSession ends a session. Unsaved edits are dropped.
// DELETE /api/sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}

	if err := h.sessions.Close(httputil.GetUserID(r), sessionID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// ApplyEvent feeds one input event to the editor
// POST /api/sessions/{id}/events
func (h *SessionHandler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var ev sessionEvent
	if err := httputil.ParseJSON(w, r, &ev); err != nil {
		respondBodyError(w, err)
		return
	}
	if err := ev.Validate(); err != nil {
		handleError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	handled, err := applyEvent(s, ev)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, eventResponse{Handled: handled, View: s.Snapshot()})
}

func applyEvent(s *editor.Session, ev sessionEvent) (bool, error) {
	switch ev.Type {
	case eventText:
		return true, s.TypeText(ev.Text, ev.Rect)
	case eventBackspace:
		return true, s.Backspace()
	case eventEnter:
		return true, s.Enter()
	case eventEscape:
		s.Escape()
	case eventSelect:
		return true, s.Select(ev.Selection)
	case eventMouseUp:
		s.MouseUp(ev.Rect)
	case eventToolbarClose:
		s.CloseToolbar()
	case eventToolbarHeight:
		s.SetToolbarHeight(ev.Height)
	case eventCommand:
		return true, s.Exec(ev.Command)
	case eventSlashCommand:
		return true, s.ChooseSlashCommand(ev.Command)
	case eventShortcut:
		return s.Shortcut(*ev.Key)
	case eventReplace:
		doc, err := parseContent(ev.Content)
		if err != nil {
			return false, err
		}
		return true, s.ReplaceContent(doc)
	}
	return true, nil
}

// Save persists the session's document
// POST /api/sessions/{id}/save
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Save(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, s.Snapshot())
}

// SwitchVersion flushes the document to the current version, then moves
// the selection and loads the target. Rejected with 409 unless the status
// is idle or saved: fresh edits (unsaved_change) and writes in flight both
// block it.
// POST /api/sessions/{id}/versions/switch
func (h *SessionHandler) SwitchVersion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req switchVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	if req.VersionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "version_id is required")
		return
	}

	if err := s.SwitchVersion(r.Context(), req.VersionID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, s.Snapshot())
}

// CreateVersion snapshots the session's document as a new version
// POST /api/sessions/{id}/versions/create
func (h *SessionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if _, err := s.CreateVersion(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, s.Snapshot())
}

// DeleteVersion deletes a non-core version of the session's thought
// DELETE /api/sessions/{id}/versions/{versionId}
func (h *SessionHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	versionID, ok := PathParam(w, r, "versionId", "Version ID")
	if !ok {
		return
	}

	if err := s.DeleteVersion(r.Context(), versionID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, s.Snapshot())
}

// Refine rewrites dictated text and puts the result in the editor as an
// unsaved edit
// POST /api/sessions/{id}/refine
func (h *SessionHandler) Refine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req refineRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}

	doc, err := h.refiner.Refine(r.Context(), req.Text)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.ReplaceContent(doc); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, s.Snapshot())
}

// StreamStatus pushes status changes, including the automatic fall back to
// idle, as server-sent events
// GET /api/sessions/{id}/status
func (h *SessionHandler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)

	s, err := h.sessions.Get(userID, sessionID)
	if err != nil {
		handleError(w, err)
		return
	}
	updates, cancel, err := h.sessions.Subscribe(userID, sessionID)
	if err != nil {
		handleError(w, err)
		return
	}
	defer cancel()

	stream, err := sse.NewWriter(w, sessionID)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.clock, h.sseConfig.KeepAliveInterval)
	dropped := keepAlive.Start(stream, h.logger)
	defer keepAlive.Stop()

	h.logger.Debug("status stream opened", "session_id", sessionID, "user_id", userID)
	defer h.logger.Debug("status stream closed", "session_id", sessionID, "user_id", userID)

	// Current status first so a late subscriber is not stale
	if err := writeStatus(stream, s.Status()); err != nil {
		return
	}
	for {
		select {
		case status, open := <-updates:
			if !open {
				return
			}
			if err := h.sessions.Touch(userID, sessionID); err != nil {
				return
			}
			if err := writeStatus(stream, status); err != nil {
				return
			}
		case <-dropped:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeStatus(stream *sse.Writer, status editor.Status) error {
	data, err := json.Marshal(map[string]editor.Status{"status": status})
	if err != nil {
		return err
	}
	return stream.WriteEvent("status", data)
}

// session resolves the {id} path value to the caller's session.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	sessionID, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(httputil.GetUserID(r), sessionID)
	if err != nil {
		handleError(w, err)
		return nil, false
	}
	return s, true
}
