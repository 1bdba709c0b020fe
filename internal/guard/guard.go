// Package guard validates questions entering the resolution pipeline and
// answers leaving it.
//
// Input validation restricts the service to the mathematics domain: a
// question must contain at least one recognizable math token (a digit, an
// operator character, or a whitelisted keyword). Output validation requires
// well-formed step-structured content. Both directions share an unsafe
// content denylist.
//
// All checks are pure functions over their inputs; a rejection is terminal
// for the current request.
package guard

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Sentinel errors identifying the rejection reason.
// Checkable with errors.Is().
var (
	// ErrNotMathDomain indicates the input is not a mathematical question.
	ErrNotMathDomain = errors.New("not a math question")

	// ErrUnsafeContent indicates the text matched the unsafe content denylist.
	ErrUnsafeContent = errors.New("unsafe or off-topic content")

	// ErrMalformedSteps indicates generated output lacks well-formed steps
	// or a final answer.
	ErrMalformedSteps = errors.New("malformed answer steps")
)

// mathKeywords whitelists terms that mark a question as mathematical even
// without digits or operator symbols ("differentiate f of x", "find the area").
var mathKeywords = []string{
	"integrate", "differentiate", "derivative", "equation", "matrix",
	"limit", "solve", "find", "function", "value", "graph", "area", "volume",
	"sum", "product", "factor", "simplify", "evaluate", "probability",
}

// unsafeDenylist rejects content regardless of any math tokens present.
var unsafeDenylist = []string{
	"violence", "religion", "politics", "hack", "illegal", "suicide",
}

// mathOperators are single characters that count as math tokens.
const mathOperators = "+-*/=^%<>√∫∑π"

// Filter validates pipeline input and output.
// The zero value is not usable; construct with New.
type Filter struct {
	keywords []string
	denylist []string
}

// New creates a Filter with the default keyword whitelist and denylist.
func New() *Filter {
	return &Filter{
		keywords: mathKeywords,
		denylist: unsafeDenylist,
	}
}

// ValidateInput checks that question is a non-empty, in-domain, safe math
// question. Returns ErrNotMathDomain or ErrUnsafeContent on rejection.
func (f *Filter) ValidateInput(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return fmt.Errorf("%w: empty question", ErrNotMathDomain)
	}

	// Denylist wins over any math tokens present.
	if bad, ok := f.matchDenylist(trimmed); ok {
		return fmt.Errorf("%w: matched %q", ErrUnsafeContent, bad)
	}

	if !f.hasMathToken(trimmed) {
		return fmt.Errorf("%w: no recognizable mathematical token", ErrNotMathDomain)
	}

	return nil
}

// ValidateOutput checks that a generated answer is well-formed and safe:
// non-empty final answer, at least one step, every step non-empty.
// Returns ErrMalformedSteps or ErrUnsafeContent on rejection.
func (f *Filter) ValidateOutput(steps []string, finalAnswer string) error {
	if strings.TrimSpace(finalAnswer) == "" {
		return fmt.Errorf("%w: empty final answer", ErrMalformedSteps)
	}
	if len(steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrMalformedSteps)
	}
	for i, step := range steps {
		if strings.TrimSpace(step) == "" {
			return fmt.Errorf("%w: step %d is empty", ErrMalformedSteps, i+1)
		}
	}

	combined := strings.Join(steps, "\n") + "\n" + finalAnswer
	if bad, ok := f.matchDenylist(combined); ok {
		return fmt.Errorf("%w: matched %q", ErrUnsafeContent, bad)
	}

	return nil
}

// hasMathToken reports whether text contains a digit, an operator character,
// or a whitelisted math keyword.
func (f *Filter) hasMathToken(text string) bool {
	for _, r := range text {
		if unicode.IsDigit(r) || strings.ContainsRune(mathOperators, r) {
			return true
		}
	}

	lower := strings.ToLower(text)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// matchDenylist returns the first denylist term found in text, if any.
func (f *Filter) matchDenylist(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, bad := range f.denylist {
		if strings.Contains(lower, bad) {
			return bad, true
		}
	}
	return "", false
}
