// Package testutil provides shared testing utilities: deterministic model
// and embedder stand-ins, plus a disposable PostgreSQL container.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"
)

// MockLLM provides deterministic model responses for testing. It matches
// prompt content against registered patterns and returns the corresponding
// response; the fallback is returned when nothing matches.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback string
	calls    []MockCall
}

type mockRule struct {
	pattern  string // substring match, case-insensitive
	response string
}

// MockCall records a single call to the mock model.
type MockCall struct {
	System   string
	Prompt   string
	Response string
}

// NewMockLLM creates a mock model with the given fallback response.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a pattern-response pair. Patterns are checked in
// registration order; first match wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// Generate implements the answer generator contract.
func (m *MockLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	response := m.fallback
	lower := strings.ToLower(prompt)
	for _, r := range m.rules {
		if strings.Contains(lower, r.pattern) {
			response = r.response
			break
		}
	}

	m.calls = append(m.calls, MockCall{System: system, Prompt: prompt, Response: response})
	return response, nil
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears recorded calls, keeping registered responses.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MockEmbedder provides deterministic embedding vectors for testing.
//
// By default it derives a unit vector from the text with SHA-256, so equal
// texts embed identically and distinct texts almost never collide. Explicit
// mappings can be added for precise cosine similarity control.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
}

// NewMockEmbedder creates a mock embedder emitting dim-dimensional vectors.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector registers an explicit vector for a text. Use this to control
// exact similarity between test inputs.
func (e *MockEmbedder) SetVector(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vec
}

// EmbedText implements the single-text embedding contract.
func (e *MockEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	if v, ok := e.vectors[text]; ok {
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	return deterministicVector(text, e.dim), nil
}

// deterministicVector generates a normalized vector from text using
// SHA-256. The same text always produces the same vector.
func deterministicVector(text string, dim int) []float32 {
	hash := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)

	var norm float64
	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32(hash[idx : idx+4])
		v := float32(bits)/float32(math.MaxUint32) - 0.5
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	// Normalize to unit length so cosine similarity behaves.
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
