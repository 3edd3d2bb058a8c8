package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/userdash/userdash/internal/dashboard"
	"github.com/userdash/userdash/internal/form"
	"github.com/userdash/userdash/internal/session"
	"github.com/userdash/userdash/internal/web"
)

// DashboardHandler serves the console pages and turns browser actions into
// controller intents. Every action answers with a redirect to the dashboard.
type DashboardHandler struct {
	renderer *web.Renderer
	logger   *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(renderer *web.Renderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		renderer: renderer,
		logger:   logger.With("component", "handler.dashboard"),
	}
}

// Routes registers the console routes. The session middleware must wrap r.
func (h *DashboardHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/users/new", h.OpenCreate)
	r.Post("/users/rows/{pos}/edit", h.Edit)
	r.Post("/form/submit", h.Submit)
	r.Post("/form/cancel", h.Cancel)
	r.Get("/users/{id}/delete", h.ConfirmDelete)
	r.Post("/users/{id}/delete", h.Delete)
	r.Post("/refresh", h.Refresh)
	r.Get("/api/state", h.State)
}

// Index handles GET /.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, web.PageDashboard, web.NewDashboardPage(ctrl.Snapshot()))
}

// OpenCreate handles POST /users/new.
func (h *DashboardHandler) OpenCreate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.OpenCreate()
	backToDashboard(w, r)
}

// Edit handles POST /users/rows/{pos}/edit. The row is addressed by its
// position in the rendered table plus the id it showed; an intent against a
// list that has since changed is dropped.
func (h *DashboardHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	pos, err := strconv.Atoi(chi.URLParam(r, "pos"))
	if err != nil {
		renderError(w, r, h.renderer, h.logger, http.StatusBadRequest, "Invalid row.")
		return
	}
	id := r.PostFormValue("id")

	if !ctrl.List().Edit(r.Context(), pos, id, ctrl.ListHandler(nil)) {
		h.logger.Debug("stale edit intent dropped", "pos", pos, "id", id)
	}
	backToDashboard(w, r)
}

// Submit handles POST /form/submit. It blocks until the create or update
// and the following refresh have settled.
func (h *DashboardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		renderError(w, r, h.renderer, h.logger, http.StatusBadRequest, "Invalid form data.")
		return
	}

	values := make(map[string]string, 3)
	for _, field := range []string{form.FieldName, form.FieldEmail, form.FieldAge} {
		if _, present := r.PostForm[field]; present {
			values[field] = r.PostForm.Get(field)
		}
	}
	if !ctrl.Submit(r.Context(), values) {
		h.logger.Debug("submit ignored", "reason", "no open form or form busy")
	}
	backToDashboard(w, r)
}

// Cancel handles POST /form/cancel.
func (h *DashboardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.Cancel(r.Context())
	backToDashboard(w, r)
}

// ConfirmDelete handles GET /users/{id}/delete by showing the confirmation gate.
func (h *DashboardHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	id := pathID(r)
	row, found := ctrl.List().Lookup(id)
	if !found {
		renderError(w, r, h.renderer, h.logger, http.StatusNotFound, "That user is not in the current list.")
		return
	}
	h.render(w, r, http.StatusOK, web.PageConfirm, web.NewConfirmPage(ctrl.Snapshot(), row))
}

// Delete handles POST /users/{id}/delete. Only decision=yes confirms;
// any other answer, or none, leaves everything as it was.
func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	id := pathID(r)
	confirm := dashboard.Answer(r.PostFormValue("decision") == "yes")

	view := ctrl.List()
	row, found := view.Lookup(id)
	if !found || !view.Delete(r.Context(), row.Pos, id, ctrl.ListHandler(confirm)) {
		h.logger.Debug("stale delete intent dropped", "id", id)
	}
	backToDashboard(w, r)
}

// Refresh handles POST /refresh.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.Refresh(r.Context())
	backToDashboard(w, r)
}

// State handles GET /api/state.
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *DashboardHandler) controller(w http.ResponseWriter, r *http.Request) (*dashboard.Controller, bool) {
	ctrl, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("no session on request", "path", r.URL.Path)
		renderError(w, r, h.renderer, h.logger, http.StatusInternalServerError, "Session unavailable.")
		return nil, false
	}
	return ctrl, true
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.Render(w, page, data); err != nil {
		h.logger.Error("render page", "page", page, "error", err)
	}
}

// pathID returns the {id} route parameter, decoding it when the router
// matched on the escaped path.
func pathID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

func backToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
