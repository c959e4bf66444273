// Package recognition talks to external meter-reading OCR backends and
// models their per-field results.
package recognition

import (
	"context"
	"errors"
)

// Meter field names reported by recognizers.
const (
	FieldSerialNumber = "serial_number"
	FieldKWh          = "kwh"
	FieldKVAh         = "kvah"
	FieldMaxDemandKW  = "max_demand_kw"
	FieldDemandKVA    = "demand_kva"
)

// MeterFields lists every field in reporting order.
var MeterFields = []string{FieldSerialNumber, FieldKWh, FieldKVAh, FieldMaxDemandKW, FieldDemandKVA}

// ErrNoText is returned when a recognizer finds nothing readable.
var ErrNoText = errors.New("no text detected")

// Field is one recognised value with its confidence in [0,1].
type Field struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Result is the output of one recognition attempt.
type Result struct {
	Fields  map[string]Field `json:"fields"`
	RawText string           `json:"raw_text,omitempty"`
	// Attempt is the zero-based submission index within a capture.
	Attempt int `json:"attempt"`
}

// MeanConfidence averages the confidence of every reported field.
// A result without fields has zero confidence.
func (r Result) MeanConfidence() float64 {
	if len(r.Fields) == 0 {
		return 0
	}
	var sum float64
	for _, f := range r.Fields {
		sum += f.Confidence
	}
	return sum / float64(len(r.Fields))
}

// Value returns the value of a field, or "" if absent.
func (r Result) Value(name string) string {
	return r.Fields[name].Value
}

// Confidences returns the per-field confidences as a flat map.
func (r Result) Confidences() map[string]float64 {
	out := make(map[string]float64, len(r.Fields))
	for k, f := range r.Fields {
		out[k] = f.Confidence
	}
	return out
}

// Recognizer extracts a meter reading from an encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (Result, error)
}
