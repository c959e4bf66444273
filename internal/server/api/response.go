// Package api provides HTTP API handlers for the AccuRead capture engine.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/accuread/internal/frame"
)

// Upload limits for image endpoints.
const (
	MaxUploadBytes = 10 << 20
	imageField     = "image"
)

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

var errNoImage = errors.New("image is required")

// readImage decodes the multipart "image" field of r into a frame no larger
// than maxDim on its longest side.
func readImage(w http.ResponseWriter, r *http.Request, maxDim int) (frame.Frame, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return frame.Frame{}, fmt.Errorf("parse upload: %w", err)
	}
	file, _, err := r.FormFile(imageField)
	if err != nil {
		return frame.Frame{}, errNoImage
	}
	defer file.Close()

	return frame.Decode(file, maxDim, time.Now())
}
