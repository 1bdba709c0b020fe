package knowledge

import "strings"

// Canonicalize normalizes a question for identity comparison: lowercase with
// runs of whitespace collapsed to single spaces and surrounding whitespace
// trimmed. Two questions with the same canonical form address the same
// knowledge base entry.
func Canonicalize(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}
