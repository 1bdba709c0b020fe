package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Index backed by a map keyed on canonical question.
// Safe for concurrent use. Intended for tests and single-node development;
// production deployments use Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry // canonical question -> entry
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
	}
}

// Upsert inserts entry, or replaces the content of an existing entry with
// the same canonical question while keeping the original id and creation
// time.
func (m *Memory) Upsert(_ context.Context, entry Entry) error {
	key := Canonicalize(entry.Question)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[key]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	}
	m.entries[key] = entry
	return nil
}

// Search returns at most topK candidates ordered by descending cosine
// similarity, ties broken by ascending id.
func (m *Memory) Search(_ context.Context, embedding []float32, topK int) ([]Candidate, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]Candidate, 0, len(m.entries))
	for _, e := range m.entries {
		candidates = append(candidates, Candidate{
			Entry: e,
			Score: CosineSimilarity(embedding, e.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Entry.ID < candidates[j].Entry.ID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// GetByQuestion returns the entry matching the canonical form of question,
// or (nil, nil) when absent.
func (m *Memory) GetByQuestion(_ context.Context, question string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.entries[Canonicalize(question)]; ok {
		return &e, nil
	}
	return nil, nil
}

// Count returns the number of stored entries.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// CosineSimilarity computes the cosine similarity of two vectors clamped to
// [0,1]. Mismatched dimensions or a zero vector yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Min(1, math.Max(0, sim))
}
