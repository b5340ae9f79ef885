package stringutil

import (
	"reflect"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"single", "perplexity", []string{"perplexity"}},
		{"spaces", " gemini , openai ", []string{"gemini", "openai"}},
		{"trailing comma", "a,b,", []string{"a", "b"}},
		{"only commas", ",,,", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitCSV(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitCSV(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvOr(t *testing.T) {
	if got := EnvOr("old", "  "); got != "old" {
		t.Fatalf("expected existing value, got %q", got)
	}
	if got := EnvOr("old", "new"); got != "new" {
		t.Fatalf("expected new value, got %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "x", "y"); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
	if got := FirstNonEmpty("", " "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
