package recognition

import (
	"context"
	"sync"
)

// MockRecognizer returns canned results in order, repeating the last one.
// It is used by tests and by the analyze command when no backend is set.
type MockRecognizer struct {
	mu      sync.Mutex
	results []Result
	err     error
	calls   int
}

// NewMockRecognizer creates a mock that answers with results in turn.
func NewMockRecognizer(results ...Result) *MockRecognizer {
	return &MockRecognizer{results: results}
}

// SetError makes every following call fail with err.
func (m *MockRecognizer) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls returns how many times Recognize was invoked.
func (m *MockRecognizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Recognize returns the next canned result.
func (m *MockRecognizer) Recognize(ctx context.Context, _ []byte, _ string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.calls
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	if len(m.results) == 0 {
		return Result{}, ErrNoText
	}
	if n >= len(m.results) {
		n = len(m.results) - 1
	}
	return m.results[n], nil
}

// SampleReading is a plausible full meter reading.
func SampleReading() Result {
	return Result{Fields: map[string]Field{
		FieldSerialNumber: {Value: "ABC123XYZ", Confidence: 0.95},
		FieldKWh:          {Value: "1450.5", Confidence: 0.985},
		FieldKVAh:         {Value: "1823.2", Confidence: 0.972},
		FieldMaxDemandKW:  {Value: "85.6", Confidence: 0.948},
		FieldDemandKVA:    {Value: "92.1", Confidence: 0.963},
	}}
}
