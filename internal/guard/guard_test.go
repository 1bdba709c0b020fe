package guard

import (
	"errors"
	"testing"
)

func TestValidateInput(t *testing.T) {
	f := New()

	tests := []struct {
		name     string
		question string
		wantErr  error
	}{
		{"empty string", "", ErrNotMathDomain},
		{"whitespace only", "   \t\n", ErrNotMathDomain},
		{"keyword question", "Differentiate x^3", nil},
		{"digits only", "What is 2 plus 2", nil},
		{"operator only", "x + y", nil},
		{"keyword without symbols", "find the area of a circle", nil},
		{"off-domain prose", "tell me about your day", ErrNotMathDomain},
		{"unsafe despite math tokens", "how to hack a solve equation 2x=4", ErrUnsafeContent},
		{"unsafe alone", "politics", ErrUnsafeContent},
		{"unicode operator", "∫ sin(x) dx", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ValidateInput(tt.question)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateInput(%q) = %v, want nil", tt.question, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateInput(%q) = %v, want %v", tt.question, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutput(t *testing.T) {
	f := New()

	tests := []struct {
		name        string
		steps       []string
		finalAnswer string
		wantErr     error
	}{
		{"well formed", []string{"Apply the power rule", "Multiply by the exponent"}, "f'(x)=3x^2", nil},
		{"empty final answer", []string{"a step"}, "", ErrMalformedSteps},
		{"whitespace final answer", []string{"a step"}, "   ", ErrMalformedSteps},
		{"no steps", nil, "42", ErrMalformedSteps},
		{"empty step", []string{"first", ""}, "42", ErrMalformedSteps},
		{"unsafe step", []string{"this is illegal advice"}, "42", ErrUnsafeContent},
		{"unsafe final answer", []string{"fine step"}, "violence", ErrUnsafeContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ValidateOutput(tt.steps, tt.finalAnswer)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateOutput() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateOutput() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInputPure(t *testing.T) {
	// Repeated calls with identical input must agree.
	f := New()
	const q = "Differentiate x^3"
	for range 3 {
		if err := f.ValidateInput(q); err != nil {
			t.Fatalf("ValidateInput(%q) = %v, want nil", q, err)
		}
	}
}
