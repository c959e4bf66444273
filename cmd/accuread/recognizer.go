package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ayusman/accuread/internal/config"
	"github.com/ayusman/accuread/internal/plugin"
	"github.com/ayusman/accuread/internal/recognition"
)

// pluginAuto selects the first discovered plugin that can recognize.
const pluginAuto = "auto"

// buildRecognizer picks the reading backend: a named plugin, the first
// capable plugin, an HTTP OCR service, or nothing.
func buildRecognizer(c *config.Config) (recognition.Recognizer, error) {
	switch {
	case c.OCRPlugin != "":
		mgr := plugin.NewManager(c.PluginDir)
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		exec := plugin.NewExecutor(c.OCRTimeout)

		var (
			rec *recognition.PluginRecognizer
			err error
		)
		if c.OCRPlugin == pluginAuto {
			rec, err = recognition.FindPluginRecognizer(mgr, exec)
		} else {
			var p *plugin.Plugin
			if p, err = mgr.Get(c.OCRPlugin); err == nil {
				rec, err = recognition.NewPluginRecognizer(p, exec)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("recognizer plugin %q in %s: %w", c.OCRPlugin, mgr.PluginDir(), err)
		}
		if err := rec.SetConfig(json.RawMessage(c.OCRPluginConf)); err != nil {
			return nil, err
		}
		slog.Info("using recognizer plugin", "plugin", rec.Name())
		return rec, nil

	case c.OCREndpoint != "":
		retry := recognition.DefaultRetryConfig()
		retry.MaxRetries = c.OCRRetries
		slog.Info("using OCR service", "endpoint", c.OCREndpoint, "retries", c.OCRRetries)
		return recognition.NewHTTPRecognizer(c.OCREndpoint, &http.Client{Timeout: c.OCRTimeout}, retry), nil
	}

	slog.Info("no recognizer configured; accepted frames will not be read")
	return nil, nil
}
