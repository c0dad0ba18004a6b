package backend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/models"
)

// Handler holds the item route handlers.
type Handler struct {
	db *DB
}

// NewHandler creates a new Handler.
func NewHandler(db *DB) *Handler {
	return &Handler{db: db}
}

type itemEnvelope struct {
	Message string      `json:"message,omitempty"`
	Item    models.Item `json:"item"`
}

type lastKey struct {
	ID string `json:"id"`
}

type listResponse struct {
	Items            []models.Item `json:"items"`
	Count            int           `json:"count"`
	LastEvaluatedKey *lastKey      `json:"last_evaluated_key"`
	ScannedCount     int           `json:"scanned_count"`
}

type deleteResponse struct {
	Message       string `json:"message"`
	DeletedItemID string `json:"deleted_item_id"`
}

func decodeFields(w http.ResponseWriter, r *http.Request) (Fields, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var f Fields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return Fields{}, false
	}
	return f, true
}

// CreateItem handles POST /items.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeFields(w, r)
	if !ok {
		return
	}
	if f.Name == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing required field: name"))
		return
	}
	if f.Description == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing required field: description"))
		return
	}

	item, err := h.db.Insert(r.Context(), f)
	if err != nil {
		slog.Error("create item failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, internalError(err))
		return
	}
	writeJSON(w, http.StatusCreated, itemEnvelope{Message: "Item created successfully", Item: item})
}

// ListItems handles GET /items. Optional query parameters: limit, last_key.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid limit"))
			return
		}
		limit = n
	}

	page, err := h.db.List(r.Context(), limit, q.Get("last_key"))
	if err != nil {
		slog.Error("list items failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, internalError(err))
		return
	}

	resp := listResponse{
		Items:        page.Items,
		Count:        len(page.Items),
		ScannedCount: len(page.Items),
	}
	if page.LastKey != "" {
		resp.LastEvaluatedKey = &lastKey{ID: page.LastKey}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem handles GET /items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.db.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get item failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, itemEnvelope{Item: item})
}

// UpdateItem handles PUT /items/{id}. Only fields present in the body change.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := decodeFields(w, r)
	if !ok {
		return
	}
	item, err := h.db.Update(r.Context(), id, f)
	if err != nil {
		h.fail(w, "update item failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, itemEnvelope{Message: "Item updated successfully", Item: item})
}

// DeleteItem handles DELETE /items/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete item failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Message: "Item deleted successfully", DeletedItemID: id})
}

func (h *Handler) fail(w http.ResponseWriter, msg, id string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("Item not found"))
		return
	}
	slog.Error(msg, slog.String("id", id), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, internalError(err))
}
