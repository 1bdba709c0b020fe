package answer

import (
	"regexp"
	"strings"
)

var (
	// stepPattern matches numbered step lines: "1. ...", "2) ...", "Step 3: ...".
	stepPattern = regexp.MustCompile(`(?i)^\s*(?:step\s+)?(\d+)\s*[.):]\s*(.+)$`)

	// finalPattern matches the final answer line.
	finalPattern = regexp.MustCompile(`(?i)^\s*(?:\*\*)?final\s+answer\s*(?:\*\*)?\s*[:：]\s*(.+)$`)
)

// Parse extracts the ordered solution steps and the final answer from raw
// model output.
//
// Numbered lines become steps in document order. The final answer comes from
// the last "Final Answer:" line. When the model skipped numbering, every
// non-empty line before the final answer counts as one step. A missing final
// answer yields an empty string; validation downstream rejects it.
func Parse(raw string) (steps []string, finalAnswer string) {
	var fallback []string

	for _, line := range strings.Split(raw, "\n") {
		if m := finalPattern.FindStringSubmatch(line); m != nil {
			finalAnswer = strings.TrimSpace(m[1])
			continue
		}
		if m := stepPattern.FindStringSubmatch(line); m != nil {
			steps = append(steps, strings.TrimSpace(m[2]))
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			fallback = append(fallback, trimmed)
		}
	}

	if len(steps) == 0 {
		steps = fallback
	}
	return steps, finalAnswer
}
