// Package retrieval decides whether the knowledge base can answer a
// question, based on vector similarity between the question embedding and
// stored entries.
package retrieval

import (
	"context"
	"fmt"

	"github.com/mathagent/mathagent/internal/knowledge"
)

// Decision is the outcome of one retrieval pass.
//
// When Sufficient is true the best candidate meets the similarity threshold,
// Confidence carries its score, and Candidates holds only the entries at or
// above the threshold; the synthesizer must ground the answer in them. When
// false the knowledge base cannot answer, the full search result is kept for
// diagnostics, and the pipeline falls back to generation.
type Decision struct {
	Sufficient bool
	Candidates []knowledge.Candidate
	BestScore  float64
	Confidence float64
}

// Policy retrieves nearest knowledge entries and applies the sufficiency
// threshold. Construct with NewPolicy; the zero value is not usable.
type Policy struct {
	index     knowledge.Index
	topK      int
	threshold float64
}

// NewPolicy creates a Policy. topK must be positive and threshold must lie
// in [0,1].
func NewPolicy(index knowledge.Index, topK int, threshold float64) (*Policy, error) {
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in [0,1], got %v", threshold)
	}
	return &Policy{index: index, topK: topK, threshold: threshold}, nil
}

// Retrieve searches the index for the nearest entries to embedding and
// decides sufficiency. A best score equal to the threshold counts as
// sufficient. An empty index yields an insufficient decision with best
// score 0, never an error.
func (p *Policy) Retrieve(ctx context.Context, embedding []float32) (Decision, error) {
	candidates, err := p.index.Search(ctx, embedding, p.topK)
	if err != nil {
		return Decision{}, fmt.Errorf("knowledge search: %w", err)
	}

	if len(candidates) == 0 {
		return Decision{}, nil
	}

	best := candidates[0].Score
	d := Decision{
		Candidates: candidates,
		BestScore:  best,
	}
	if best >= p.threshold {
		d.Sufficient = true
		d.Confidence = best
		// A sufficient decision grounds the answer only in candidates
		// that themselves meet the threshold; the rest stay out of the
		// prompt and the cited sources.
		kept := make([]knowledge.Candidate, 0, len(candidates))
		for _, c := range candidates {
			if c.Score >= p.threshold {
				kept = append(kept, c)
			}
		}
		d.Candidates = kept
	}
	return d, nil
}
