package resolve

import "fmt"

// Kind classifies a resolution failure for transport-level mapping.
type Kind string

const (
	// KindNotMathDomain rejects questions outside the mathematics domain.
	KindNotMathDomain Kind = "not_math_domain"

	// KindUnsafeContent rejects questions or answers matching the denylist.
	KindUnsafeContent Kind = "unsafe_content"

	// KindGenerationInvalid marks a model answer that stayed malformed or
	// unsafe after the retry.
	KindGenerationInvalid Kind = "generation_invalid"

	// KindEmbeddingUnavailable marks an embedding provider failure.
	KindEmbeddingUnavailable Kind = "embedding_unavailable"

	// KindGenerationUnavailable marks a model provider failure.
	KindGenerationUnavailable Kind = "generation_unavailable"

	// KindInternal marks knowledge index and other infrastructure failures.
	KindInternal Kind = "internal"
)

// Error is a classified resolution failure.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a classified Error wrapping err.
func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}
