// Package resolve runs the full question resolution pipeline: input
// guardrail, question embedding, knowledge base retrieval, then either
// knowledge-grounded synthesis or the web fallback.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mathagent/mathagent/internal/answer"
	"github.com/mathagent/mathagent/internal/guard"
	"github.com/mathagent/mathagent/internal/retrieval"
	"github.com/mathagent/mathagent/internal/websearch"
)

// Embedder produces the embedding vector for one question.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the optional web search fallback.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Snippet, error)
}

// Resolver answers one math question end to end.
//
// Search failures and empty search results are soft: the pipeline falls
// back to first-principles generation rather than failing the request.
// All other stage failures are terminal and classified by Kind.
type Resolver struct {
	filter   *guard.Filter
	embedder Embedder
	policy   *retrieval.Policy
	search   Searcher // nil when web search is disabled
	synth    *answer.Synthesizer
	logger   *slog.Logger
}

// NewResolver wires the pipeline. search may be nil to disable the web
// fallback; a nil logger falls back to slog.Default().
func NewResolver(filter *guard.Filter, embedder Embedder, policy *retrieval.Policy, search Searcher, synth *answer.Synthesizer, logger *slog.Logger) (*Resolver, error) {
	if filter == nil || embedder == nil || policy == nil || synth == nil {
		return nil, fmt.Errorf("filter, embedder, policy and synthesizer are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		filter:   filter,
		embedder: embedder,
		policy:   policy,
		search:   search,
		synth:    synth,
		logger:   logger,
	}, nil
}

// Resolve answers question or returns a classified *Error. level controls
// how much working the answer shows on every generation path.
func (r *Resolver) Resolve(ctx context.Context, question string, level answer.ExplainLevel) (answer.Answer, error) {
	if err := r.filter.ValidateInput(question); err != nil {
		return answer.Answer{}, classifyGuardError(err)
	}

	embedding, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		return answer.Answer{}, newError(KindEmbeddingUnavailable, "embedding the question failed", err)
	}

	decision, err := r.policy.Retrieve(ctx, embedding)
	if err != nil {
		return answer.Answer{}, newError(KindInternal, "knowledge base search failed", err)
	}

	if decision.Sufficient {
		r.logger.Debug("answering from knowledge base",
			"best_score", decision.BestScore, "candidates", len(decision.Candidates))
		a, err := r.synth.FromKnowledge(ctx, question, level, decision.Candidates, decision.Confidence)
		if err != nil {
			return answer.Answer{}, classifySynthesisError(err)
		}
		return a, nil
	}

	r.logger.Debug("knowledge base insufficient, falling back",
		"best_score", decision.BestScore, "web_search", r.search != nil)

	snippets := r.searchFallback(ctx, question)
	if len(snippets) > 0 {
		a, err := r.synth.FromWeb(ctx, question, level, snippets)
		if err != nil {
			return answer.Answer{}, classifySynthesisError(err)
		}
		return a, nil
	}

	a, err := r.synth.FromScratch(ctx, question, level)
	if err != nil {
		return answer.Answer{}, classifySynthesisError(err)
	}
	return a, nil
}

// searchFallback runs the web search when enabled. Failures are logged and
// swallowed; the caller proceeds without snippets.
func (r *Resolver) searchFallback(ctx context.Context, question string) []websearch.Snippet {
	if r.search == nil {
		return nil
	}
	snippets, err := r.search.Search(ctx, question)
	if err != nil {
		r.logger.Warn("web search failed, generating without snippets", "error", err)
		return nil
	}
	return snippets
}

func classifyGuardError(err error) *Error {
	switch {
	case errors.Is(err, guard.ErrUnsafeContent):
		return newError(KindUnsafeContent, "question rejected by safety filter", err)
	default:
		return newError(KindNotMathDomain, "question is not a mathematical question", err)
	}
}

func classifySynthesisError(err error) *Error {
	if errors.Is(err, answer.ErrInvalidGeneration) {
		return newError(KindGenerationInvalid, "model output failed validation after retry", err)
	}
	return newError(KindGenerationUnavailable, "answer generation failed", err)
}
