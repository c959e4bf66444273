package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/accuread/internal/plugin"
)

// PluginRecognizer runs a reader plugin once per image.
type PluginRecognizer struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
	config   json.RawMessage
}

// NewPluginRecognizer wraps a discovered plugin that supports the recognize
// action.
func NewPluginRecognizer(p *plugin.Plugin, exec *plugin.Executor) (*PluginRecognizer, error) {
	if !p.Manifest.Supports(plugin.ActionRecognize) {
		return nil, fmt.Errorf("plugin %s does not support %q", p.Manifest.Name, plugin.ActionRecognize)
	}
	return &PluginRecognizer{plugin: p, executor: exec}, nil
}

// FindPluginRecognizer picks the first plugin under m able to recognize.
func FindPluginRecognizer(m *plugin.Manager, exec *plugin.Executor) (*PluginRecognizer, error) {
	p, err := m.ForAction(plugin.ActionRecognize)
	if err != nil {
		return nil, err
	}
	return NewPluginRecognizer(p, exec)
}

// SetConfig sets the plugin-specific options sent with every request.
// An empty config clears them.
func (r *PluginRecognizer) SetConfig(config json.RawMessage) error {
	if len(config) == 0 {
		r.config = nil
		return nil
	}
	if !json.Valid(config) {
		return fmt.Errorf("plugin %s: config is not valid JSON", r.Name())
	}
	r.config = config
	return nil
}

// Name returns the plugin name.
func (r *PluginRecognizer) Name() string {
	return r.plugin.Manifest.Name
}

// Recognize sends image to the plugin and decodes its data payload.
func (r *PluginRecognizer) Recognize(ctx context.Context, image []byte, contentType string) (Result, error) {
	resp, err := r.executor.Execute(ctx, r.plugin, &plugin.Request{
		Action:      plugin.ActionRecognize,
		ContentType: contentType,
		Image:       image,
		Config:      r.config,
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.Success {
		if resp.Error == "" {
			return Result{}, errors.New("plugin reported failure")
		}
		return Result{}, fmt.Errorf("plugin %s: %s", r.Name(), resp.Error)
	}
	return decodePayload(resp.Data)
}
