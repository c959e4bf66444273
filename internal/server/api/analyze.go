package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/decision"
	"github.com/ayusman/accuread/internal/quality"
)

// AnalyzeHandler scores single images and manages quality thresholds.
type AnalyzeHandler struct {
	app    *app.App
	maxDim int
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(a *app.App, maxDim int) *AnalyzeHandler {
	return &AnalyzeHandler{app: a, maxDim: maxDim}
}

type analyzeResponse struct {
	Width    int                      `json:"width"`
	Height   int                      `json:"height"`
	Verdict  quality.Verdict          `json:"verdict"`
	Decision decision.CaptureDecision `json:"decision"`
}

// Analyze handles POST /api/analyze. It does not affect any session.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	f, err := readImage(w, r, h.maxDim)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, d, err := h.app.Analyze(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, analyzeResponse{
		Width:    f.Width,
		Height:   f.Height,
		Verdict:  v,
		Decision: d,
	})
}

// GetConfig handles GET /api/config
func (h *AnalyzeHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.app.QualityConfig())
}

// PutConfig handles PUT /api/config. Omitted fields keep their current
// value. The new thresholds apply from the next session.
func (h *AnalyzeHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.app.QualityConfig()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.app.SetQualityConfig(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}
