package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	thoughtSvc "thoughtbox/internal/domain/services/thought"
	"thoughtbox/internal/httputil"
)

// ThoughtHandler handles thought, version and sharing HTTP requests
type ThoughtHandler struct {
	thoughts thoughtSvc.ThoughtService
	versions thoughtSvc.VersionService
	logger   *slog.Logger
}

// NewThoughtHandler creates a new thought handler
func NewThoughtHandler(thoughts thoughtSvc.ThoughtService, versions thoughtSvc.VersionService, logger *slog.Logger) *ThoughtHandler {
	return &ThoughtHandler{
		thoughts: thoughts,
		versions: versions,
		logger:   logger,
	}
}

// updateThoughtRequest is the PATCH body. Description distinguishes absent
// from null.
type updateThoughtRequest struct {
	Title       string                    `json:"title"`
	Description httputil.Optional[string] `json:"description"`
}

type shareResponse struct {
	ThoughtLink string `json:"thought_link"`
}

// ListThoughts returns the caller's dashboard
// GET /api/thoughts
func (h *ThoughtHandler) ListThoughts(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	thoughts, err := h.thoughts.ListThoughts(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, thoughts)
}

// CreateThought creates a thought with its core version
// POST /api/thoughts
func (h *ThoughtHandler) CreateThought(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req thoughtSvc.CreateThoughtRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	req.UserID = userID

	thought, err := h.thoughts.CreateThought(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, thought)
}

// GetThought returns a thought with its selected version's content
// GET /api/thoughts/{id}
func (h *ThoughtHandler) GetThought(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	thought, err := h.thoughts.GetThought(r.Context(), httputil.GetUserID(r), thoughtID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, thought)
}

// UpdateThought renames a thought and optionally changes its description
// PATCH /api/thoughts/{id}
func (h *ThoughtHandler) UpdateThought(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	var body updateThoughtRequest
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		respondBodyError(w, err)
		return
	}
	req := thoughtSvc.RenameThoughtRequest{
		Title: body.Title,
		Description: thoughtSvc.OptionalDescription{
			Present: body.Description.Present,
			Value:   body.Description.Value,
		},
	}

	thought, err := h.thoughts.RenameThought(r.Context(), httputil.GetUserID(r), thoughtID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, thought)
}

// DeleteThought deletes a thought and all its versions
// DELETE /api/thoughts/{id}
func (h *ThoughtHandler) DeleteThought(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	if err := h.thoughts.DeleteThought(r.Context(), httputil.GetUserID(r), thoughtID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// UpdateContent overwrites the selected version's content
// PUT /api/thoughts/{id}/content
func (h *ThoughtHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	var req thoughtSvc.UpdateContentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	content, err := parseContent(req.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.thoughts.UpdateThoughtContent(r.Context(), httputil.GetUserID(r), thoughtID, content); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// ListVersions lists a thought's versions, core first
// GET /api/thoughts/{id}/versions
func (h *ThoughtHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	versions, err := h.versions.GetThoughtVersions(r.Context(), httputil.GetUserID(r), thoughtID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// CreateVersion snapshots a new non-core version
// POST /api/thoughts/{id}/versions
func (h *ThoughtHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	// The body is optional
	var req thoughtSvc.CreateVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondBodyError(w, err)
		return
	}

	version, err := h.versions.CreateVersion(r.Context(), httputil.GetUserID(r), thoughtID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}

// DeleteVersion deletes a non-core version
// DELETE /api/thoughts/{id}/versions/{versionId}
func (h *ThoughtHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}
	versionID, ok := PathParam(w, r, "versionId", "Version ID")
	if !ok {
		return
	}

	if err := h.versions.DeleteVersion(r.Context(), httputil.GetUserID(r), thoughtID, versionID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// GetSelectedVersion returns the selected version
// GET /api/thoughts/{id}/selected-version
func (h *ThoughtHandler) GetSelectedVersion(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	version, err := h.versions.GetSelectedVersion(r.Context(), httputil.GetUserID(r), thoughtID)
	if err != nil {
		handleError(w, err)
		return
	}
	if version == nil {
		handleError(w, &domain.NotFoundError{Message: "thought has no selected version"})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, version)
}

// SetSelectedVersion moves the selected version pointer
// PUT /api/thoughts/{id}/selected-version
func (h *ThoughtHandler) SetSelectedVersion(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	var req thoughtSvc.SetSelectedVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	if req.VersionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "version_id is required")
		return
	}

	if err := h.versions.SetSelectedVersion(r.Context(), httputil.GetUserID(r), thoughtID, req.VersionID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// ShareThought makes a thought public and returns its link
// POST /api/thoughts/{id}/share
func (h *ThoughtHandler) ShareThought(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	link, err := h.thoughts.ShareThought(r.Context(), httputil.GetUserID(r), thoughtID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, shareResponse{ThoughtLink: link})
}

// MakePrivate revokes a thought's share link
// DELETE /api/thoughts/{id}/share
func (h *ThoughtHandler) MakePrivate(w http.ResponseWriter, r *http.Request) {
	thoughtID, ok := PathParam(w, r, "id", "Thought ID")
	if !ok {
		return
	}

	if err := h.thoughts.MakePrivate(r.Context(), httputil.GetUserID(r), thoughtID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// JoinSharedThought adds a shared thought to the caller's dashboard
// POST /api/shared/{token}
func (h *ThoughtHandler) JoinSharedThought(w http.ResponseWriter, r *http.Request) {
	token, ok := PathParam(w, r, "token", "Share token")
	if !ok {
		return
	}

	shared, err := h.thoughts.AddSharedThoughtToDashboard(r.Context(), httputil.GetUserID(r), token)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, shared)
}

// parseContent validates a raw document against the block grammar.
func parseContent(raw []byte) (doctree.Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	doc, err := doctree.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return doc, nil
}
