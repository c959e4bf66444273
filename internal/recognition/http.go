package recognition

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// maxResponseBytes bounds how much of a backend reply is read.
const maxResponseBytes = 1 << 20

// HTTPRecognizer posts images to an OCR service as multipart/form-data with
// the image under the "image" field.
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
	retry    RetryConfig
}

// NewHTTPRecognizer creates a recognizer for endpoint. A nil client uses a
// client with a 30 second timeout.
func NewHTTPRecognizer(endpoint string, client *http.Client, retry RetryConfig) *HTTPRecognizer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRecognizer{endpoint: endpoint, client: client, retry: retry}
}

// Recognize submits image and decodes the reply. Network failures, 429 and
// 5xx responses are retried with backoff; other 4xx responses are not.
func (r *HTTPRecognizer) Recognize(ctx context.Context, image []byte, contentType string) (Result, error) {
	body, formType, err := multipartBody(image, contentType)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = retry(ctx, r.retry, func() error {
		var err error
		res, err = r.post(ctx, body, formType)
		return err
	})
	return res, err
}

func (r *HTTPRecognizer) post(ctx context.Context, body []byte, formType string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, retryable(fmt.Errorf("post image: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Result{}, retryable(fmt.Errorf("recognition service: %s", resp.Status))
	case resp.StatusCode >= 400:
		return Result{}, fmt.Errorf("recognition service: %s: %s", resp.Status, bytes.TrimSpace(data))
	}

	return decodePayload(data)
}

func multipartBody(image []byte, contentType string) ([]byte, string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="frame.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
