// Package plugin discovers and runs out-of-process reader plugins. A plugin
// is a directory holding a plugin.json manifest and an executable that reads
// one JSON request on stdin and writes one JSON response on stdout.
package plugin

import "encoding/json"

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// ActionRecognize asks a plugin to read meter fields from an image.
const ActionRecognize = "recognize"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin. Image is base64 encoded on the
// wire by encoding/json.
type Request struct {
	Action      string          `json:"action"`
	ContentType string          `json:"content_type,omitempty"`
	Image       []byte          `json:"image,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
