package logging

import (
	"errors"
	"testing"
)

func TestErrWithNil(t *testing.T) {
	attr := Err(nil)
	// A nil error must produce an empty group that slog omits from output
	if attr.Key != "" {
		t.Errorf("expected empty key for nil error, got %q", attr.Key)
	}
}

func TestErrWithError(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError {
		t.Errorf("expected key %q, got %q", KeyError, attr.Key)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("expected value %q, got %q", "boom", attr.Value.String())
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{
			name:     "empty token",
			token:    "",
			expected: "<empty>",
		},
		{
			name:     "short token",
			token:    "abc",
			expected: "[token:3 chars]",
		},
		{
			name:     "opaque access token",
			token:    "BQDWf3kGvZm1xPqrstu",
			expected: "[token:19 chars]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestStatusAttr(t *testing.T) {
	attr := Status(StatusSuccess)
	if attr.Key != KeyStatus || attr.Value.String() != StatusSuccess {
		t.Errorf("unexpected attr %v", attr)
	}
}
