// Package handler provides HTTP request handlers for the console.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/userdash/userdash/internal/web"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the fallback pages.
type Handler struct {
	renderer *web.Renderer
	logger   *slog.Logger
}

// New creates a Handler.
func New(renderer *web.Renderer, logger *slog.Logger) *Handler {
	return &Handler{renderer: renderer, logger: logger}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, h.renderer, h.logger, http.StatusNotFound, "The page you asked for does not exist.")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, h.renderer, h.logger, http.StatusMethodNotAllowed, "This action is not available here.")
}

// renderError writes an HTML error page, or JSON for API callers.
func renderError(w http.ResponseWriter, r *http.Request, renderer *web.Renderer, logger *slog.Logger, status int, message string) {
	if wantsJSON(r) || renderer == nil {
		writeJSON(w, status, ErrorResponse{Error: message})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := renderer.Render(w, web.PageError, web.NewErrorPage(status, message)); err != nil {
		logger.Error("render error page", "error", err)
	}
}

func wantsJSON(r *http.Request) bool {
	return len(r.URL.Path) >= 5 && r.URL.Path[:5] == "/api/"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
