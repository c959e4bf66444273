package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/accuread/internal/store"
)

// DefaultPageSize is used when a list request has no limit.
const DefaultPageSize = 50

// ReadingHandler handles HTTP requests for stored meter readings.
type ReadingHandler struct {
	store *store.Store
}

// NewReadingHandler creates a new ReadingHandler with the given store.
func NewReadingHandler(s *store.Store) *ReadingHandler {
	return &ReadingHandler{store: s}
}

// Routes returns the reading routes, to be mounted at /api/readings.
func (h *ReadingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Get("/export", h.export)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Put("/{id}/verify", h.verify)
	r.Delete("/{id}", h.delete)
	return r
}

type listReadingsResponse struct {
	Readings []*store.Reading `json:"readings"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// list handles GET /api/readings?limit=&offset=
func (h *ReadingHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultPageSize)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	readings, err := h.store.Readings().List(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list readings")
		return
	}
	if readings == nil {
		readings = []*store.Reading{}
	}

	WriteJSON(w, http.StatusOK, listReadingsResponse{Readings: readings, Limit: limit, Offset: offset})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// export handles GET /api/readings/export?format=csv. Every stored reading
// is written, newest first.
func (h *ReadingHandler) export(w http.ResponseWriter, r *http.Request) {
	if f := r.URL.Query().Get("format"); f != "" && f != "csv" {
		writeError(w, http.StatusBadRequest, "Unsupported export format")
		return
	}

	readings, err := h.store.Readings().List(0, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list readings")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="readings.csv"`)
	if err := store.WriteCSV(w, readings); err != nil {
		slog.Error("failed to write readings export", "error", err)
	}
}

// stats handles GET /api/readings/stats
func (h *ReadingHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Readings().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

// get handles GET /api/readings/{id}
func (h *ReadingHandler) get(w http.ResponseWriter, r *http.Request) {
	rd, err := h.store.Readings().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, "Failed to get reading")
		return
	}
	WriteJSON(w, http.StatusOK, rd)
}

// update handles PUT /api/readings/{id} with operator corrections.
func (h *ReadingHandler) update(w http.ResponseWriter, r *http.Request) {
	var req store.ReadingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rd, err := h.store.Readings().Update(chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, err, "Failed to update reading")
		return
	}
	WriteJSON(w, http.StatusOK, rd)
}

// verify handles PUT /api/readings/{id}/verify
func (h *ReadingHandler) verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Readings().Verify(id); err != nil {
		h.fail(w, err, "Failed to verify reading")
		return
	}

	rd, err := h.store.Readings().GetByID(id)
	if err != nil {
		h.fail(w, err, "Failed to get reading")
		return
	}
	WriteJSON(w, http.StatusOK, rd)
}

// delete handles DELETE /api/readings/{id}
func (h *ReadingHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Readings().Delete(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err, "Failed to delete reading")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReadingHandler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Reading not found")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}
