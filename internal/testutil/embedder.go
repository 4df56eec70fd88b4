package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// MockEmbedder is a deterministic, call-counting embedding provider.
// Unknown texts get a stable vector derived from their SHA-256 hash;
// tests that need controlled similarity register vectors explicitly
// with SetVector.
type MockEmbedder struct {
	mu      sync.Mutex
	calls   int
	vectors map[string][]float32
	dims    int
	err     error
}

// NewMockEmbedder creates a MockEmbedder producing vectors of the
// given dimensionality.
func NewMockEmbedder(dims int) *MockEmbedder {
	return &MockEmbedder{
		vectors: make(map[string][]float32),
		dims:    dims,
	}
}

// SetVector registers the exact vector returned for a text.
func (m *MockEmbedder) SetVector(text string, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vector
}

// SetError makes every subsequent Embed call fail with err.
func (m *MockEmbedder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Embed has been invoked.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Embed returns the registered or derived vector for text.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return deterministicVector(text, m.dims), nil
}

// deterministicVector expands a text's SHA-256 hash into a unit-range
// vector, so equal texts always embed identically.
func deterministicVector(text string, dims int) []float32 {
	hash := sha256.Sum256([]byte(text))
	vector := make([]float32, dims)
	for i := range vector {
		offset := (i * 4) % (len(hash) - 4)
		bits := binary.BigEndian.Uint32(hash[offset : offset+4])
		vector[i] = float32(bits%2000)/1000.0 - 1.0
	}
	return vector
}
