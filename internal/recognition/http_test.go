package recognition

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestHTTPRecognizer_ExtractEnvelope(t *testing.T) {
	var gotType string
	var gotImage []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		file, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile(image) error = %v", err)
			http.Error(w, "no image", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotType = hdr.Header.Get("Content-Type")
		gotImage, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"success": true,
			"data": {"serial_number": "ABC123XYZ", "kwh": 1450.5},
			"confidence": {"serial_number": 95, "kwh": 98.5},
			"processing_time": 0.4
		}`)
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(srv.URL, srv.Client(), fastRetry(0))
	res, err := r.Recognize(context.Background(), []byte("jpegbytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if gotType != "image/jpeg" || string(gotImage) != "jpegbytes" {
		t.Errorf("server received %q as %s", gotImage, gotType)
	}
	if f := res.Fields[FieldSerialNumber]; f.Value != "ABC123XYZ" || f.Confidence != 0.95 {
		t.Errorf("serial = %+v", f)
	}
	if f := res.Fields[FieldKWh]; f.Value != "1450.5" || f.Confidence != 0.985 {
		t.Errorf("kwh = %+v", f)
	}
}

func TestHTTPRecognizer_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"fields":{"kwh":{"value":"12.5","confidence":0.7}}}`)
	}))
	defer srv.Close()

	res, err := NewHTTPRecognizer(srv.URL, srv.Client(), fastRetry(3)).
		Recognize(context.Background(), []byte("x"), "")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if res.Value(FieldKWh) != "12.5" {
		t.Errorf("kwh = %q, want 12.5", res.Value(FieldKWh))
	}
}

func TestHTTPRecognizer_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retries   int
		wantCalls int32
		wantErr   error
	}{
		{name: "client error not retried", status: http.StatusBadRequest, body: "File must be an image", retries: 3, wantCalls: 1},
		{name: "server error exhausts retries", status: http.StatusInternalServerError, retries: 2, wantCalls: 3},
		{name: "rate limited is retried", status: http.StatusTooManyRequests, retries: 1, wantCalls: 2},
		{name: "reported failure", status: http.StatusOK, body: `{"success":false,"error_message":"blurry"}`, retries: 3, wantCalls: 1},
		{name: "nothing read", status: http.StatusOK, body: `{"lines":[]}`, retries: 3, wantCalls: 1, wantErr: ErrNoText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewHTTPRecognizer(srv.URL, srv.Client(), fastRetry(tt.retries)).
				Recognize(context.Background(), []byte("x"), "image/jpeg")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestHTTPRecognizer_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPRecognizer(srv.URL, srv.Client(), fastRetry(5)).Recognize(ctx, []byte("x"), "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Recognize() error = %v, want context.Canceled", err)
	}
}

func TestDecodePayload_Lines(t *testing.T) {
	res, err := decodePayload([]byte(`{"lines":[{"text":"kWh","confidence":92},{"text":"1450.5","confidence":88}]}`))
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}
	if res.Value(FieldKWh) != "1450.5" {
		t.Errorf("kwh = %q, want 1450.5", res.Value(FieldKWh))
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{4, time.Second},
		{30, time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(cfg, tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetry(t *testing.T) {
	transient := retryable(errors.New("transient"))

	calls := 0
	err := retry(context.Background(), fastRetry(2), func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) || calls != 3 {
		t.Errorf("retry() = %v after %d calls, want transient after 3", err, calls)
	}

	calls = 0
	permanent := errors.New("permanent")
	err = retry(context.Background(), fastRetry(2), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("retry() = %v after %d calls, want permanent after 1", err, calls)
	}

	if IsRetryable(permanent) || !IsRetryable(transient) {
		t.Error("IsRetryable misclassified errors")
	}
}
