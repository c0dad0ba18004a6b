package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/itemdesk/internal/app"
	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/render"
	"github.com/starford/itemdesk/internal/session"
)

// Handler holds the page and fragment handlers.
type Handler struct {
	ctl          *app.Controller
	html         *render.HTML
	dismissAfter time.Duration
	logger       *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(ctl *app.Controller, html *render.HTML, dismissAfter time.Duration, logger *slog.Logger) *Handler {
	return &Handler{ctl: ctl, html: html, dismissAfter: dismissAfter, logger: logger}
}

func (h *Handler) pageData(query string) render.PageData {
	data := render.PageData{
		Authenticated: h.ctl.View() == session.Authenticated,
		Query:         query,
		DismissMillis: h.dismissAfter.Milliseconds(),
	}
	if n, ok := h.ctl.Notification(); ok {
		data.Banner = &render.Banner{Level: string(n.Level), Message: n.Message}
	}
	if !data.Authenticated {
		return data
	}
	if id := h.ctl.Current(); id != nil {
		data.Username = id.Username
	}
	data.Form, data.FormOpen = h.ctl.Form()
	data.Items = h.ctl.Search(query)
	return data
}

func (h *Handler) writePage(w http.ResponseWriter, status int, data render.PageData) {
	var buf bytes.Buffer
	if err := h.html.Page(&buf, data); err != nil {
		h.logger.Error("render page failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Index handles GET /. Query parameter q filters the cached list.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, http.StatusOK, h.pageData(r.URL.Query().Get("q")))
}

// SignIn handles POST /signin. On failure the page is re-rendered with the
// username kept and the password cleared.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	if err := h.ctl.SignIn(r.Context(), username, password); err != nil {
		data := h.pageData("")
		data.AuthUsername = username
		h.writePage(w, statusFor(err), data)
		return
	}
	redirectHome(w, r)
}

// SignUp handles POST /signup. The user stays on the sign-in screen either way.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	err := h.ctl.SignUp(r.Context(), username, password)
	data := h.pageData("")
	data.AuthUsername = username
	h.writePage(w, statusFor(err), data)
}

// SignOut handles POST /signout.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.ctl.SignOut(r.Context()); err != nil {
		h.logger.Error("sign out failed", slog.String("error", err.Error()))
	}
	redirectHome(w, r)
}

// NewItem handles GET /items/new.
func (h *Handler) NewItem(w http.ResponseWriter, r *http.Request) {
	if err := h.ctl.OpenCreate(); err != nil {
		h.logger.Warn("open form failed", slog.String("error", err.Error()))
	}
	redirectHome(w, r)
}

// EditItem handles /items/{id}/edit. A missing id raises a notification.
func (h *Handler) EditItem(w http.ResponseWriter, r *http.Request) {
	_, _ = h.ctl.Edit(chi.URLParam(r, "id"))
	redirectHome(w, r)
}

// SubmitItem handles POST /items. A non-empty id field updates.
func (h *Handler) SubmitItem(w http.ResponseWriter, r *http.Request) {
	form := render.FormState{
		ID:          r.PostFormValue("id"),
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Category:    r.PostFormValue("category"),
		Tags:        r.PostFormValue("tags"),
	}
	// Failures are already notified and logged by the controller.
	_, _ = h.ctl.SubmitForm(r.Context(), form)
	redirectHome(w, r)
}

// CancelForm handles POST /items/cancel.
func (h *Handler) CancelForm(w http.ResponseWriter, r *http.Request) {
	h.ctl.CancelForm()
	redirectHome(w, r)
}

// DeleteItem handles POST /items/{id}/delete.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	_ = h.ctl.Delete(r.Context(), chi.URLParam(r, "id"))
	redirectHome(w, r)
}

// RefreshItems handles POST /items/refresh.
func (h *Handler) RefreshItems(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ctl.Refresh(r.Context()); err != nil {
		h.logger.Warn("refresh failed", slog.String("error", err.Error()))
	}
	redirectHome(w, r)
}

// ItemsFragment handles GET /fragments/items: the rendered list only,
// filtered by q.
func (h *Handler) ItemsFragment(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.html.Items(&buf, h.ctl.Search(r.URL.Query().Get("q"))); err != nil {
		h.logger.Error("render items failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
