package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/decision"
	"github.com/ayusman/accuread/internal/recognition"
	"github.com/ayusman/accuread/internal/store"
	"github.com/ayusman/accuread/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.App) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := app.New(app.Config{
		Store:      s,
		Recognizer: recognition.NewMockRecognizer(recognition.SampleReading()),
	})
	ts := httptest.NewServer(New(Config{Store: s, App: a}))
	t.Cleanup(ts.Close)
	return ts, a
}

func TestAPI_CaptureWorkflow(t *testing.T) {
	ts, a := newTestServer(t)
	client := ts.Client()

	// 1. Upload a sharp frame into the current session
	id := a.SessionStatus().ID
	body, contentType := testutil.MultipartImage("image", testutil.PNG(testutil.Stripes(64, 48, 2, 40, 200)))
	resp, err := client.Post(ts.URL+"/api/sessions/"+id+"/frames", contentType, body)
	if err != nil {
		t.Fatalf("POST frames error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST frames status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var ev app.Event
	json.NewDecoder(resp.Body).Decode(&ev)
	resp.Body.Close()
	if !ev.Decision.Accepted || ev.Reading == nil {
		t.Fatalf("event = %+v, want accepted with reading", ev)
	}

	// 2. List readings
	resp, _ = client.Get(ts.URL + "/api/readings")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/readings status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var listed struct {
		Readings []store.Reading `json:"readings"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Readings) != 1 || listed.Readings[0].SessionID != id {
		t.Fatalf("readings = %+v", listed.Readings)
	}
	readingID := listed.Readings[0].ID

	// 3. Verify it
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/readings/"+readingID+"/verify", nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT verify status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 4. Delete it
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/readings/"+readingID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 5. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/readings/" + readingID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_DecisionStream(t *testing.T) {
	ts, a := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/decisions"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	received := make(chan app.Event, 1)
	go func() {
		var ev app.Event
		if err := conn.ReadJSON(&ev); err == nil {
			received <- ev
		}
	}()

	// The handler subscribes after the upgrade, so keep feeding frames until
	// one is streamed back.
	timeout := time.After(2 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev := <-received:
			if ev.Decision.Reason != decision.ReasonBlur {
				t.Errorf("streamed reason = %s, want BLUR", ev.Decision.Reason)
			}
			return
		case <-timeout:
			t.Fatal("no decision streamed")
		case <-ticker.C:
			body, ct := testutil.MultipartImage("image", testutil.PNG(testutil.Gray(64, 48, 120)))
			resp, err := ts.Client().Post(ts.URL+"/api/sessions/"+a.SessionStatus().ID+"/frames", ct, body)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
		}
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	ts, a := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status    string `json:"status"`
		Uptime    string `json:"uptime"`
		Session   string `json:"session"`
		Capturing bool   `json:"capturing"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
	if health.Session != a.SessionStatus().ID || health.Capturing {
		t.Errorf("health = %+v", health)
	}
}

func TestAPI_StreamRequiresRunningCamera(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}
