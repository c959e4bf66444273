package recognition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// payload is the JSON body returned by OCR backends. Three shapes are
// understood: parsed fields with confidences, raw lines for local parsing,
// and the extract envelope {success, data, confidence, error_message}.
type payload struct {
	Fields  map[string]Field `json:"fields"`
	Lines   []Line           `json:"lines"`
	RawText string           `json:"raw_text"`

	Success      *bool              `json:"success"`
	Data         map[string]any     `json:"data"`
	Confidence   map[string]float64 `json:"confidence"`
	ErrorMessage string             `json:"error_message"`
}

// decodePayload turns a backend body into a Result. Confidences reported on
// a 0-100 scale are normalised to [0,1].
func decodePayload(data []byte) (Result, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Result{}, fmt.Errorf("decode recognition payload: %w", err)
	}

	if p.Success != nil && !*p.Success {
		if p.ErrorMessage == "" {
			return Result{}, errors.New("recognition failed")
		}
		return Result{}, fmt.Errorf("recognition failed: %s", p.ErrorMessage)
	}

	switch {
	case len(p.Fields) > 0:
		res := Result{Fields: make(map[string]Field, len(p.Fields)), RawText: p.RawText}
		for name, f := range p.Fields {
			f.Confidence = normalise(f.Confidence)
			res.Fields[name] = f
		}
		return res, nil

	case len(p.Data) > 0:
		res := Result{Fields: make(map[string]Field, len(p.Data)), RawText: p.RawText}
		for name, v := range p.Data {
			res.Fields[name] = Field{Value: stringValue(v), Confidence: normalise(p.Confidence[name])}
		}
		return res, nil

	case len(p.Lines) > 0:
		for i := range p.Lines {
			p.Lines[i].Confidence = normalise(p.Lines[i].Confidence)
		}
		return ParseLines(p.Lines), nil
	}
	return Result{}, ErrNoText
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func normalise(c float64) float64 {
	if c > 1 {
		c /= 100
	}
	return clampUnit(c)
}
