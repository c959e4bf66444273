// Package main provides a meter reader plugin backed by the tesseract CLI.
// It writes the request image to a temp file, runs tesseract in TSV mode and
// returns the parsed meter fields.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/ayusman/accuread/internal/plugin"
	"github.com/ayusman/accuread/internal/recognition"
)

// Config is the plugin section of the request.
type Config struct {
	Lang string `json:"lang"`
	PSM  int    `json:"psm"`
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != plugin.ActionRecognize {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}
	if len(req.Image) == 0 {
		writeErrorResponse("image is required")
		return
	}

	cfg := Config{Lang: "eng", PSM: 6}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	lines, err := runTesseract(req.Image, cfg)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("recognize failed: %v", err))
		return
	}

	res := recognition.ParseLines(lines)
	data, err := json.Marshal(struct {
		Fields  map[string]recognition.Field `json:"fields"`
		RawText string                       `json:"raw_text"`
	}{res.Fields, res.RawText})
	if err != nil {
		writeErrorResponse(fmt.Sprintf("failed to encode result: %v", err))
		return
	}
	writeSuccessResponse(data)
}

// runTesseract runs the tesseract binary over img and returns its lines.
func runTesseract(img []byte, cfg Config) ([]recognition.Line, error) {
	tmp, err := os.CreateTemp("", "accuread-ocr-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	args := []string{tmp.Name(), "stdout", "-l", cfg.Lang}
	if cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(cfg.PSM))
	}
	args = append(args, "tsv")

	var stderr bytes.Buffer
	cmd := exec.Command("tesseract", args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, stderr.String())
	}
	return parseTSV(bytes.NewReader(out))
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := plugin.Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response carrying data to stdout.
func writeSuccessResponse(data json.RawMessage) {
	resp := plugin.Response{
		Success: true,
		Data:    data,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
