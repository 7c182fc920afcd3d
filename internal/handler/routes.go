package handler

import "net/http"

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health    *HealthHandler
	Thoughts  *ThoughtHandler
	Sessions  *SessionHandler
	Dictation *DictationHandler

	// DictationLimit wraps the routes that call paid upstream services.
	// Nil leaves them unlimited.
	DictationLimit func(http.Handler) http.Handler
}

// RegisterRoutes mounts the API on mux (Go 1.22+ patterns).
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	limited := func(fn http.HandlerFunc) http.Handler {
		if h.DictationLimit == nil {
			return fn
		}
		return h.DictationLimit(fn)
	}

	// Health check
	mux.HandleFunc("GET /health", h.Health.HealthCheck)

	// Thought routes
	mux.HandleFunc("GET /api/thoughts", h.Thoughts.ListThoughts)
	mux.HandleFunc("POST /api/thoughts", h.Thoughts.CreateThought)
	mux.HandleFunc("GET /api/thoughts/{id}", h.Thoughts.GetThought)
	mux.HandleFunc("PATCH /api/thoughts/{id}", h.Thoughts.UpdateThought)
	mux.HandleFunc("DELETE /api/thoughts/{id}", h.Thoughts.DeleteThought)
	mux.HandleFunc("PUT /api/thoughts/{id}/content", h.Thoughts.UpdateContent)

	// Version routes
	mux.HandleFunc("GET /api/thoughts/{id}/versions", h.Thoughts.ListVersions)
	mux.HandleFunc("POST /api/thoughts/{id}/versions", h.Thoughts.CreateVersion)
	mux.HandleFunc("DELETE /api/thoughts/{id}/versions/{versionId}", h.Thoughts.DeleteVersion)
	mux.HandleFunc("GET /api/thoughts/{id}/selected-version", h.Thoughts.GetSelectedVersion)
	mux.HandleFunc("PUT /api/thoughts/{id}/selected-version", h.Thoughts.SetSelectedVersion)

	// Sharing routes
	mux.HandleFunc("POST /api/thoughts/{id}/share", h.Thoughts.ShareThought)
	mux.HandleFunc("DELETE /api/thoughts/{id}/share", h.Thoughts.MakePrivate)
	mux.HandleFunc("POST /api/shared/{token}", h.Thoughts.JoinSharedThought)

	// Editor session routes
	mux.HandleFunc("POST /api/sessions", h.Sessions.OpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.Sessions.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.Sessions.CloseSession)
	mux.HandleFunc("GET /api/sessions/{id}/status", h.Sessions.StreamStatus) // SSE
	mux.HandleFunc("POST /api/sessions/{id}/events", h.Sessions.ApplyEvent)
	mux.HandleFunc("POST /api/sessions/{id}/save", h.Sessions.Save)
	mux.HandleFunc("POST /api/sessions/{id}/versions/switch", h.Sessions.SwitchVersion)
	mux.HandleFunc("POST /api/sessions/{id}/versions/create", h.Sessions.CreateVersion)
	mux.HandleFunc("DELETE /api/sessions/{id}/versions/{versionId}", h.Sessions.DeleteVersion)
	mux.Handle("POST /api/sessions/{id}/refine", limited(h.Sessions.Refine))

	// Dictation routes
	mux.Handle("POST /api/dictation/transcribe", limited(h.Dictation.Transcribe))
	mux.Handle("POST /api/dictation/refine", limited(h.Dictation.Refine))
}
