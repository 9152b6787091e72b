// Package httphandler serves the content host API: open forum tabs, their
// annotated documents and controls, and the message channel the popup uses
// to reach a tab's content script.
package httphandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"

	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
	"github.com/ericfisherdev/forumfilter/internal/page"
)

const maxBodyBytes = 4 << 20

var errNoMatch = errors.New("selector matched nothing")

// PathResolver maps a forum-relative path to an absolute upstream URL.
type PathResolver interface {
	Resolve(path string) string
}

// Handler is the HTTP driving adapter that serves the tab host API.
type Handler struct {
	tabs     *application.TabManager
	resolver PathResolver
	logger   *slog.Logger
}

// NewHandler creates a Handler. resolver may be nil, which disables /browse.
func NewHandler(tabs *application.TabManager, resolver PathResolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tabs:     tabs,
		resolver: resolver,
		logger:   logger,
	}
}

// RegisterAPIRoutes registers the host API and the browse route on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/tabs", h.ListTabs)
	mux.HandleFunc("POST /api/v1/tabs", h.OpenTab)
	mux.HandleFunc("GET /api/v1/tabs/active", h.ActiveTab)
	mux.HandleFunc("POST /api/v1/tabs/{id}/activate", h.ActivateTab)
	mux.HandleFunc("DELETE /api/v1/tabs/{id}", h.CloseTab)
	mux.HandleFunc("POST /api/v1/tabs/{id}/reload", h.ReloadTab)
	mux.HandleFunc("GET /api/v1/tabs/{id}/document", h.Document)
	mux.HandleFunc("POST /api/v1/tabs/{id}/mutations", h.Mutate)
	mux.HandleFunc("GET /api/v1/tabs/{id}/controls", h.ListControls)
	mux.HandleFunc("POST /api/v1/tabs/{id}/controls/{control}/click", h.ClickControl)
	mux.HandleFunc("POST /api/v1/tabs/{id}/messages", h.SendMessage)
	mux.HandleFunc("GET /browse/{path...}", h.Browse)
}

// NewServeMux creates an http.Handler with the API routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Tabs:   len(h.tabs.List()),
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListTabs returns the open tabs, oldest first.
func (h *Handler) ListTabs(w http.ResponseWriter, _ *http.Request) {
	tabs := h.tabs.List()
	resp := make([]TabResponse, 0, len(tabs))
	for _, tab := range tabs {
		resp = append(resp, toTabResponse(tab))
	}
	writeJSON(w, http.StatusOK, resp)
}

// OpenTab opens a page in a new active tab, fetching it upstream unless the
// body carries the HTML.
func (h *Handler) OpenTab(w http.ResponseWriter, r *http.Request) {
	var req OpenTabRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	var err error
	var resp TabResponse
	if req.HTML != "" {
		tab, loadErr := h.tabs.Load(r.Context(), req.URL, strings.NewReader(req.HTML))
		resp, err = toTabResponse(tab), loadErr
	} else {
		tab, openErr := h.tabs.Open(r.Context(), req.URL)
		resp, err = toTabResponse(tab), openErr
	}
	if err != nil {
		h.logger.Error("failed to open tab", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, "could not open page")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ActiveTab returns the active tab.
func (h *Handler) ActiveTab(w http.ResponseWriter, r *http.Request) {
	tab, err := h.tabs.ActiveTab(r.Context())
	if err != nil {
		h.writeTabError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTabResponse(tab))
}

// ActivateTab makes a tab the active one.
func (h *Handler) ActivateTab(w http.ResponseWriter, r *http.Request) {
	if err := h.tabs.Activate(r.PathValue("id")); err != nil {
		h.writeTabError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseTab closes a tab.
func (h *Handler) CloseTab(w http.ResponseWriter, r *http.Request) {
	if err := h.tabs.Close(r.PathValue("id")); err != nil {
		h.writeTabError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReloadTab re-fetches a tab's page and rebuilds its overlay from the store.
func (h *Handler) ReloadTab(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.tabs.Reload(r.Context(), id); err != nil {
		if errors.Is(err, application.ErrTabNotFound) {
			writeError(w, http.StatusNotFound, "tab not found")
			return
		}
		h.logger.Error("failed to reload tab", "tab", id, "error", err)
		writeError(w, http.StatusBadGateway, "could not reload page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Document renders a tab's annotated document as HTML.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.tabs.Document(r.PathValue("id"))
	if err != nil {
		h.writeTabError(w, err)
		return
	}
	h.writeDocument(w, doc)
}

// Mutate changes a tab's document the way the live forum page would, which
// schedules a reflow of the overlay.
func (h *Handler) Mutate(w http.ResponseWriter, r *http.Request) {
	doc, err := h.tabs.Document(r.PathValue("id"))
	if err != nil {
		h.writeTabError(w, err)
		return
	}

	var req MutationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Selector) == "" {
		writeError(w, http.StatusBadRequest, "selector is required")
		return
	}

	var matched int
	err = doc.Mutate(func(root *goquery.Selection) error {
		sel := root.Find(req.Selector)
		matched = sel.Length()
		if matched == 0 {
			return errNoMatch
		}
		if req.Remove {
			sel.Remove()
			return nil
		}
		sel.AppendHtml(req.HTML)
		return nil
	})
	if errors.Is(err, errNoMatch) {
		writeError(w, http.StatusNotFound, errNoMatch.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mutation")
		return
	}

	writeJSON(w, http.StatusAccepted, MutationResponse{Matched: matched})
}

// ListControls returns the overlay controls bound in a tab's document.
func (h *Handler) ListControls(w http.ResponseWriter, r *http.Request) {
	doc, err := h.tabs.Document(r.PathValue("id"))
	if err != nil {
		h.writeTabError(w, err)
		return
	}
	controls := doc.Controls()
	if controls == nil {
		controls = []page.Control{}
	}
	writeJSON(w, http.StatusOK, controls)
}

// ClickControl presses an overlay control.
func (h *Handler) ClickControl(w http.ResponseWriter, r *http.Request) {
	id, control := r.PathValue("id"), r.PathValue("control")

	err := h.tabs.Click(r.Context(), id, control)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, application.ErrTabNotFound):
		writeError(w, http.StatusNotFound, "tab not found")
	case errors.Is(err, page.ErrUnknownControl):
		writeError(w, http.StatusNotFound, "control not found")
	case errors.Is(err, application.ErrNoThreadKey):
		writeError(w, http.StatusConflict, "page has no thread key")
	default:
		h.logger.Error("control handler failed", "tab", id, "control", control, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// SendMessage delivers a protocol message to a tab's content script.
// Messages the script does not answer get 204 No Content.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := protocol.DecodeRequest(body)
	if errors.Is(err, protocol.ErrUnknownMessage) {
		h.logger.Debug("ignoring unknown message", "tab", id, "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message")
		return
	}

	resp, err := h.tabs.Send(r.Context(), id, req)
	switch {
	case errors.Is(err, protocol.ErrNotHandled):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, application.ErrTabNotFound):
		writeError(w, http.StatusNotFound, "tab not found")
		return
	case err != nil:
		h.logger.Error("message handler failed", "tab", id, "type", req.Type(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		h.logger.Error("failed to encode response", "tab", id, "type", req.Type(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeRawJSON(w, http.StatusOK, data)
}

// Browse opens an upstream forum page in a new active tab and returns the
// annotated HTML.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		http.NotFound(w, r)
		return
	}

	target := h.resolver.Resolve(r.PathValue("path"))
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	tab, err := h.tabs.Open(r.Context(), target)
	if err != nil {
		h.logger.Error("failed to browse", "url", target, "error", err)
		writeError(w, http.StatusBadGateway, "could not open page")
		return
	}
	doc, err := h.tabs.Document(tab.ID)
	if err != nil {
		h.writeTabError(w, err)
		return
	}

	w.Header().Set("X-Forumfilter-Tab", tab.ID)
	h.writeDocument(w, doc)
}

func (h *Handler) writeDocument(w http.ResponseWriter, doc *page.Document) {
	html, err := doc.HTML()
	if err != nil {
		h.logger.Error("failed to render document", "url", doc.URL(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (h *Handler) writeTabError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrTabNotFound):
		writeError(w, http.StatusNotFound, "tab not found")
	case errors.Is(err, driven.ErrNoActiveTab):
		writeError(w, http.StatusNotFound, "no active tab")
	default:
		h.logger.Error("tab request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
