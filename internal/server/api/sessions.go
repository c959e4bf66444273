package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/decision"
	"github.com/ayusman/accuread/internal/frame"
	"github.com/ayusman/accuread/internal/store"
)

// SessionHandler handles HTTP requests for capture sessions. Frames can be
// uploaded one at a time into the current session, which is how clients
// without a local camera drive a capture.
type SessionHandler struct {
	app    *app.App
	store  *store.Store
	maxDim int
}

// NewSessionHandler creates a SessionHandler. s may be nil, in which case
// only the live session can be inspected.
func NewSessionHandler(a *app.App, s *store.Store, maxDim int) *SessionHandler {
	return &SessionHandler{app: a, store: s, maxDim: maxDim}
}

// Routes returns the session routes, to be mounted at /api/sessions.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/current", h.current)
	r.Get("/{id}", h.get)
	r.Get("/{id}/scores", h.scores)
	r.Post("/{id}/frames", h.frame)
	r.Delete("/{id}", h.cancel)
	return r
}

type sessionResponse struct {
	Live   bool             `json:"live"`
	Status *decision.Status `json:"status,omitempty"`
	Stored *store.Session   `json:"stored,omitempty"`
}

type frameResponse struct {
	app.Event
	RecognitionError string `json:"recognition_error,omitempty"`
}

type listScoresResponse struct {
	Scores []*store.FrameScore `json:"scores"`
}

// create handles POST /api/sessions. Any session in progress is abandoned.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	st := h.app.NewSession()
	WriteJSON(w, http.StatusCreated, sessionResponse{Live: true, Status: &st})
}

// current handles GET /api/sessions/current
func (h *SessionHandler) current(w http.ResponseWriter, r *http.Request) {
	st := h.app.SessionStatus()
	WriteJSON(w, http.StatusOK, sessionResponse{Live: true, Status: &st})
}

// get handles GET /api/sessions/{id}
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	resp := sessionResponse{}
	if st := h.app.SessionStatus(); st.ID == id {
		resp.Live = true
		resp.Status = &st
	}
	if h.store != nil {
		stored, err := h.store.Sessions().Get(id)
		switch {
		case err == nil:
			resp.Stored = stored
		case !errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusInternalServerError, "Failed to get session")
			return
		}
	}

	if !resp.Live && resp.Stored == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// scores handles GET /api/sessions/{id}/scores
func (h *SessionHandler) scores(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "Session history is not stored")
		return
	}
	scores, err := h.store.Scores().ListBySession(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list scores")
		return
	}
	if scores == nil {
		scores = []*store.FrameScore{}
	}
	WriteJSON(w, http.StatusOK, listScoresResponse{Scores: scores})
}

// frame handles POST /api/sessions/{id}/frames with a multipart image.
func (h *SessionHandler) frame(w http.ResponseWriter, r *http.Request) {
	f, err := readImage(w, r, h.maxDim)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := h.app.ProcessSessionFrame(r.Context(), chi.URLParam(r, "id"), f)
	switch {
	case errors.Is(err, app.ErrUnknownSession):
		writeError(w, http.StatusNotFound, "Session not found")
		return
	case errors.Is(err, frame.ErrInvalidFrame):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := frameResponse{Event: ev}
	if err != nil {
		resp.RecognitionError = err.Error()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// cancel handles DELETE /api/sessions/{id}
func (h *SessionHandler) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.app.CancelSession(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, app.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to cancel session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
