package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/quality"
	"github.com/ayusman/accuread/internal/store"
	"github.com/ayusman/accuread/internal/testutil"
)

func serve(h http.Handler, method, target, contentType string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newStoreServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(Config{Store: s, App: app.New(app.Config{Store: s})})
}

func TestServer_Health(t *testing.T) {
	t.Run("without app", func(t *testing.T) {
		rec := serve(New(Config{}), http.MethodGet, "/api/health", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("status = %v, want ok", response["status"])
		}
		if _, exists := response["session"]; exists {
			t.Error("session reported without an app")
		}
	})

	t.Run("with app", func(t *testing.T) {
		rec := serve(newStoreServer(t), http.MethodGet, "/api/health", "", "")
		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if id, _ := response["session"].(string); id == "" {
			t.Errorf("session = %v, want current session id", response["session"])
		}
		if response["capturing"] != false {
			t.Errorf("capturing = %v, want false without a camera", response["capturing"])
		}
	})
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := newStoreServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/health"},
		{http.MethodDelete, "/api/health"},
		{http.MethodPatch, "/api/readings"},
		{http.MethodDelete, "/api/readings"},
		{http.MethodPost, "/api/readings/stats"},
		{http.MethodGet, "/api/analyze"},
		{http.MethodPost, "/api/config"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := serve(s, tt.method, tt.path, "", ""); rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
			}
		})
	}
}

func TestServer_RoutesNeedDependencies(t *testing.T) {
	bare := New(Config{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/readings"},
		{http.MethodGet, "/api/readings/stats"},
		{http.MethodPost, "/api/analyze"},
		{http.MethodGet, "/api/config"},
		{http.MethodPost, "/api/sessions"},
		{http.MethodGet, "/api/sessions/current"},
		{http.MethodGet, "/api/decisions"},
		{http.MethodGet, "/api/stream"},
		{http.MethodGet, "/api/nonexistent"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := serve(bare, tt.method, tt.path, "", ""); rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
			}
		})
	}

	// Readings only need the store.
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	storeOnly := New(Config{Store: st})
	if rec := serve(storeOnly, http.MethodGet, "/api/readings", "", ""); rec.Code != http.StatusOK {
		t.Errorf("store-only readings status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := serve(storeOnly, http.MethodGet, "/api/config", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("store-only config status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServer_AnalyzeRequiresImage(t *testing.T) {
	s := newStoreServer(t)

	t.Run("wrong field name", func(t *testing.T) {
		body, contentType := testutil.MultipartImage("file", testutil.PNG(testutil.Gray(8, 8, 100)))
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		var resp map[string]string
		json.NewDecoder(rec.Body).Decode(&resp)
		if !strings.Contains(resp["error"], "image") {
			t.Errorf("error = %q, want mention of the image field", resp["error"])
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := serve(s, http.MethodPost, "/api/analyze", "application/json", `{"image": "x"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		body, contentType := testutil.MultipartImage("image", []byte("definitely not a png"))
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestServer_QualityConfig(t *testing.T) {
	s := newStoreServer(t)

	rec := serve(s, http.MethodGet, "/api/config", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var got quality.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got != quality.DefaultConfig() {
		t.Errorf("GET config = %+v, want defaults", got)
	}

	invalid := []struct {
		name string
		body string
	}{
		{"malformed json", `{"sharpness_min":`},
		{"negative weight", `{"sharpness_weight": -2}`},
		{"negative glare penalty", `{"glare_penalty_weight": -1}`},
		{"glare brightness out of range", `{"glare_brightness_min": 300}`},
		{"inverted brightness", `{"min_brightness": 200, "max_brightness": 100}`},
		{"glare ratio above one", `{"glare_ratio_min": 2}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodPut, "/api/config", "application/json", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("PUT status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}

	rec = serve(s, http.MethodGet, "/api/config", "", "")
	json.NewDecoder(rec.Body).Decode(&got)
	if got != quality.DefaultConfig() {
		t.Errorf("rejected updates changed config: %+v", got)
	}

	rec = serve(s, http.MethodPut, "/api/config", "application/json", `{"sharpness_min": 80}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body = %s", rec.Code, rec.Body)
	}
	rec = serve(s, http.MethodGet, "/api/config", "", "")
	json.NewDecoder(rec.Body).Decode(&got)
	want := quality.DefaultConfig()
	want.SharpnessMin = 80
	if got != want {
		t.Errorf("config after PUT = %+v, want %+v", got, want)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "accuread-server-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	index := "<html><body>AccuRead</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(Config{StaticDir: tmpDir})

	if rec := serve(s, http.MethodGet, "/", "", ""); rec.Code != http.StatusOK || rec.Body.String() != index {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(s, http.MethodGet, "/missing.js", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /missing.js status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	// API routes still win over the static catch-all.
	if rec := serve(s, http.MethodGet, "/api/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /api/health status = %d", rec.Code)
	}
	if rec := serve(New(Config{}), http.MethodGet, "/", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET / without static dir status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
