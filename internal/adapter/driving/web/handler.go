// Package web implements the popup page driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	vm "github.com/ericfisherdev/forumfilter/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

const (
	pageTitle      = "Forumfilter"
	maxImportBytes = 4 << 20

	msgNoForumTab    = "Öppna en flashback.org-flik först."
	msgInvalidBackup = "Ogiltig JSON-fil."
	msgActionFailed  = "Åtgärden misslyckades."
	msgForbiddenCSRF = "ogiltig CSRF-token"
	msgMissingFields = "saknade fält"
	msgMissingBackup = "ingen fil vald"
)

// Handler is the web driving adapter that serves the popup page.
type Handler struct {
	presenter *application.Presenter
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(presenter *application.Presenter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		presenter: presenter,
		logger:    logger,
	}
}

// Popup renders the popup page from a fresh snapshot of the active tab.
func (h *Handler) Popup(w http.ResponseWriter, r *http.Request) {
	csrf := csrfToken(w, r)
	notice := r.URL.Query().Get("notice")

	view, err := h.presenter.Load(r.Context())
	if err != nil {
		m := newPopupViewModel(csrf, notice)
		m.Error = h.errorMessage("load popup", err)
		h.render(w, r, http.StatusOK, m)
		return
	}

	h.render(w, r, http.StatusOK, toPopupViewModel(view, csrf, notice))
}

// Unignore removes a user from the global ignore list.
func (h *Handler) Unignore(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		http.Error(w, msgMissingFields, http.StatusBadRequest)
		return
	}

	if err := h.presenter.Unignore(r.Context(), username); err != nil {
		h.renderError(w, r, "unignore", err)
		return
	}
	redirect(w, r, "unignored")
}

// RemoveLightIgnore lifts a per-thread ignore.
func (h *Handler) RemoveLightIgnore(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	key := strings.TrimSpace(r.FormValue("thread_key"))
	username := strings.TrimSpace(r.FormValue("username"))
	if key == "" || username == "" {
		http.Error(w, msgMissingFields, http.StatusBadRequest)
		return
	}

	removed, err := h.presenter.RemoveLightIgnore(r.Context(), model.ThreadKey(key), username)
	if err != nil {
		h.renderError(w, r, "remove light ignore", err)
		return
	}
	if !removed {
		redirect(w, r, "missing")
		return
	}
	redirect(w, r, "removed")
}

// Reset clears every collection. The page asks for confirmation client-side.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	if err := h.presenter.Reset(r.Context()); err != nil {
		h.renderError(w, r, "reset", err)
		return
	}
	redirect(w, r, "reset")
}

// Export downloads the backup document.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.presenter.Export(r.Context())
	if err != nil {
		h.renderError(w, r, "export", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+application.DefaultExportFileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import restores a backup document uploaded as the "backup" form file.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		http.Error(w, msgMissingBackup, http.StatusBadRequest)
		return
	}
	if !h.checkCSRF(w, r) {
		return
	}

	file, _, err := r.FormFile("backup")
	if err != nil {
		http.Error(w, msgMissingBackup, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := h.presenter.Import(r.Context(), file); err != nil {
		h.renderError(w, r, "import", err)
		return
	}
	redirect(w, r, "imported")
}

func (h *Handler) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	if validateCSRF(r) {
		return true
	}
	http.Error(w, msgForbiddenCSRF, http.StatusForbidden)
	return false
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, application.ErrNoForumTab):
		status = http.StatusConflict
	case errors.Is(err, application.ErrInvalidBackup):
		status = http.StatusBadRequest
	}

	m := newPopupViewModel(csrfToken(w, r), "")
	m.Error = h.errorMessage(action, err)
	h.render(w, r, status, m)
}

func (h *Handler) errorMessage(action string, err error) string {
	switch {
	case errors.Is(err, application.ErrNoForumTab):
		return msgNoForumTab
	case errors.Is(err, application.ErrInvalidBackup):
		return msgInvalidBackup
	default:
		h.logger.Error("popup action failed", "action", action, "error", err)
		return msgActionFailed
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, m vm.PopupViewModel) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := Layout(pageTitle, Popup(m)).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render popup", "error", err)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, notice string) {
	http.Redirect(w, r, "/popup?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}
