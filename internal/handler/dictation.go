package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models/doctree"
	"thoughtbox/internal/domain/services"
	"thoughtbox/internal/httputil"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DictationHandler handles transcription and refinement requests
type DictationHandler struct {
	transcriber services.Transcriber
	refiner     services.Refiner
	logger      *slog.Logger
}

// NewDictationHandler creates a new dictation handler
func NewDictationHandler(transcriber services.Transcriber, refiner services.Refiner, logger *slog.Logger) *DictationHandler {
	return &DictationHandler{
		transcriber: transcriber,
		refiner:     refiner,
		logger:      logger,
	}
}

type transcribeRequest struct {
	AudioURL string `json:"audio_url"`
}

func (r transcribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AudioURL, validation.Required, is.URL),
	)
}

type transcribeResponse struct {
	Text string `json:"text"`
}

type refineResponse struct {
	Content doctree.Document `json:"content"`
}

// Transcribe turns an uploaded recording into text. The request stays open
// while the transcription job is polled.
// POST /api/dictation/transcribe
func (h *DictationHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}
	req.AudioURL = strings.TrimSpace(req.AudioURL)
	if err := req.Validate(); err != nil {
		handleError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), req.AudioURL)
	if err != nil {
		h.logger.Warn("transcription failed", "user_id", httputil.GetUserID(r), "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, transcribeResponse{Text: text})
}

// Refine rewrites dictated text into a document without touching any thought
// POST /api/dictation/refine
func (h *DictationHandler) Refine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		respondBodyError(w, err)
		return
	}

	doc, err := h.refiner.Refine(r.Context(), req.Text)
	if err != nil {
		h.logger.Warn("refinement failed", "user_id", httputil.GetUserID(r), "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, refineResponse{Content: doc})
}
