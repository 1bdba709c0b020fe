package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mathagent/mathagent/internal/guard"
	"github.com/mathagent/mathagent/internal/knowledge"
	"github.com/mathagent/mathagent/internal/websearch"
)

// ErrInvalidGeneration indicates the model failed to produce a well-formed,
// safe answer even after one retry.
var ErrInvalidGeneration = errors.New("generated answer failed validation")

// maxSources caps how many knowledge entry ids an answer cites.
const maxSources = 3

// Origin records which path produced an answer.
type Origin string

const (
	OriginKnowledgeBase Origin = "knowledge_base"
	OriginWebSearch     Origin = "web_search"
	OriginGenerated     Origin = "generated"
)

// Answer is a complete, validated response to one question.
type Answer struct {
	Steps       []string `json:"steps"`
	FinalAnswer string   `json:"final_answer"`
	Confidence  float64  `json:"confidence"`
	Sources     []string `json:"sources"`
	Origin      Origin   `json:"origin"`
}

// ExplainLevel selects how much working an answer shows.
type ExplainLevel string

const (
	// ExplainSimple summarizes the method in at most three steps.
	ExplainSimple ExplainLevel = "simple"
	// ExplainDetailed shows one transformation per step.
	ExplainDetailed ExplainLevel = "detailed"
)

// NormalizeExplainLevel maps a request value onto a supported level.
// Anything other than "simple" (case-insensitive) is detailed.
func NormalizeExplainLevel(s string) ExplainLevel {
	if strings.EqualFold(strings.TrimSpace(s), string(ExplainSimple)) {
		return ExplainSimple
	}
	return ExplainDetailed
}

// levelInstruction is prepended to every generation prompt.
func levelInstruction(level ExplainLevel) string {
	if level == ExplainSimple {
		return "Explain briefly: use at most three concise steps that summarize the method.\n\n"
	}
	return "Explain in full detail: show one transformation per step so a student can follow every move.\n\n"
}

// systemPrompt sets the register for every generation path.
const systemPrompt = `You are a patient math professor. Solve the student's question as numbered steps they can follow (1., 2., ...), then state the result on its own line beginning with "Final Answer:". Answer only the mathematical question asked.`

// retryReminder is appended to the prompt on the single retry after a
// malformed generation.
const retryReminder = `

Your previous answer was not usable. Respond again using ONLY numbered steps ("1.", "2.", ...) followed by exactly one line starting with "Final Answer:". Both parts are mandatory.`

// Synthesizer produces validated answers over a Generator. Every generation
// passes the output guardrail; a malformed result is retried once with a
// stricter prompt before failing.
type Synthesizer struct {
	gen                 Generator
	filter              *guard.Filter
	generatedConfidence float64
	logger              *slog.Logger
}

// NewSynthesizer creates a Synthesizer. generatedConfidence is the fixed
// confidence assigned to answers not grounded in the knowledge base. A nil
// logger falls back to slog.Default().
func NewSynthesizer(gen Generator, filter *guard.Filter, generatedConfidence float64, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		gen:                 gen,
		filter:              filter,
		generatedConfidence: generatedConfidence,
		logger:              logger,
	}
}

// FromKnowledge synthesizes an answer grounded in retrieved knowledge base
// candidates. confidence is the retrieval confidence and carries through to
// the answer; sources cite the candidate entry ids, deduplicated in rank
// order.
func (s *Synthesizer) FromKnowledge(ctx context.Context, question string, level ExplainLevel, candidates []knowledge.Candidate, confidence float64) (Answer, error) {
	var b strings.Builder
	b.WriteString(levelInstruction(level))
	b.WriteString("Answer the question below. Ground your solution in the reference solutions; do not contradict them.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nReference solutions:\n", question)
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] Question: %s\n", i+1, c.Entry.Question)
		for j, step := range c.Entry.Steps {
			fmt.Fprintf(&b, "    Step %d: %s\n", j+1, step)
		}
		fmt.Fprintf(&b, "    Answer: %s\n", c.Entry.FinalAnswer)
	}

	steps, final, err := s.generateValidated(ctx, b.String())
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Steps:       steps,
		FinalAnswer: final,
		Confidence:  confidence,
		Sources:     sourceIDs(candidates),
		Origin:      OriginKnowledgeBase,
	}, nil
}

// FromWeb synthesizes an answer from search snippets. The answer carries
// the fixed generated confidence and cites no knowledge base sources.
func (s *Synthesizer) FromWeb(ctx context.Context, question string, level ExplainLevel, snippets []websearch.Snippet) (Answer, error) {
	var b strings.Builder
	b.WriteString(levelInstruction(level))
	b.WriteString("Answer the question below. The search snippets may help; ignore any that are irrelevant.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nSearch snippets:\n", question)
	for i, sn := range snippets {
		fmt.Fprintf(&b, "[%d] %s (%s): %s\n", i+1, sn.Title, sn.Source, sn.Content)
	}

	steps, final, err := s.generateValidated(ctx, b.String())
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Steps:       steps,
		FinalAnswer: final,
		Confidence:  s.generatedConfidence,
		Sources:     []string{},
		Origin:      OriginWebSearch,
	}, nil
}

// FromScratch synthesizes an answer from the model's own knowledge, used
// when both the knowledge base and web search come up empty.
func (s *Synthesizer) FromScratch(ctx context.Context, question string, level ExplainLevel) (Answer, error) {
	prompt := levelInstruction(level) +
		fmt.Sprintf("Answer the question below from first principles.\n\nQuestion: %s\n", question)

	steps, final, err := s.generateValidated(ctx, prompt)
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Steps:       steps,
		FinalAnswer: final,
		Confidence:  s.generatedConfidence,
		Sources:     []string{},
		Origin:      OriginGenerated,
	}, nil
}

// generateValidated runs one generation, parses it, and applies the output
// guardrail. A failed validation triggers exactly one retry with a stricter
// prompt; a second failure returns ErrInvalidGeneration.
func (s *Synthesizer) generateValidated(ctx context.Context, prompt string) ([]string, string, error) {
	raw, err := s.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, "", err
	}

	steps, final := Parse(raw)
	verr := s.filter.ValidateOutput(steps, final)
	if verr == nil {
		return steps, final, nil
	}

	s.logger.Warn("generation failed validation, retrying once", "reason", verr)

	raw, err = s.gen.Generate(ctx, systemPrompt, prompt+retryReminder)
	if err != nil {
		return nil, "", err
	}

	steps, final = Parse(raw)
	if verr := s.filter.ValidateOutput(steps, final); verr != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidGeneration, verr)
	}
	return steps, final, nil
}

// sourceIDs returns candidate entry ids deduplicated in rank order, capped
// at maxSources.
func sourceIDs(candidates []knowledge.Candidate) []string {
	ids := make([]string, 0, maxSources)
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Entry.ID]; ok {
			continue
		}
		seen[c.Entry.ID] = struct{}{}
		ids = append(ids, c.Entry.ID)
		if len(ids) == maxSources {
			break
		}
	}
	return ids
}
