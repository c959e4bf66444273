package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// writeScript creates an executable shell plugin in a temp dir.
func writeScript(t *testing.T, name, body string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name,
			Actions:    []string{ActionRecognize},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	p := writeScript(t, "ok.sh", `echo '{"success":true,"data":{"fields":{"kwh":{"value":"123.45","confidence":92}}}}'`+"\n")

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: ActionRecognize})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success || resp.Error != "" {
		t.Errorf("response = %+v, want success", resp)
	}

	var data struct {
		Fields map[string]struct {
			Value string `json:"value"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.Fields["kwh"].Value != "123.45" {
		t.Errorf("kwh = %q, want 123.45", data.Fields["kwh"].Value)
	}
}

func TestExecutor_Execute_SendsRequestOnStdin(t *testing.T) {
	p := writeScript(t, "echo.sh", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)

	req := &Request{
		Action:      ActionRecognize,
		ContentType: "image/jpeg",
		Image:       []byte{0xff, 0xd8, 0xff},
	}
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got Request
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to decode echoed request: %v", err)
	}
	if got.Action != ActionRecognize || got.ContentType != "image/jpeg" {
		t.Errorf("echoed request = %+v", got)
	}
	if string(got.Image) != string(req.Image) {
		t.Errorf("image bytes = %x, want %x", got.Image, req.Image)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	p := writeScript(t, "slow.sh", "exec sleep 10\n")

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{Action: ActionRecognize})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	p := writeScript(t, "slow.sh", "exec sleep 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(5*time.Second).Execute(ctx, p, &Request{Action: ActionRecognize})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		wantMsg string
	}{
		{
			name:    "error response",
			body:    `echo '{"success":false,"error":"no meter found"}'` + "\n",
			wantMsg: "no meter found",
		},
		{
			name:    "invalid json",
			body:    "echo 'not valid json'\n",
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			body:    "echo 'tesseract missing' >&2\nexit 1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeScript(t, "plugin.sh", tt.body)
			resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: ActionRecognize})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if resp.Success {
				t.Error("expected success=false")
			}
			if resp.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantMsg)
			}
		})
	}
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	if got := NewExecutor(0).Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %s, want %s", got, DefaultTimeout)
	}
	if got := NewExecutor(3 * time.Second).Timeout(); got != 3*time.Second {
		t.Errorf("Timeout() = %s, want 3s", got)
	}
}
