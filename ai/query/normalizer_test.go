package query

import (
	"strings"
	"testing"
)

func TestExtractText_PlainString(t *testing.T) {
	if got := ExtractText("4"); got != "4" {
		t.Errorf("ExtractText(%q) = %q, want %q", "4", got, "4")
	}
}

func TestExtractText_FieldChain(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{
			name: "top-level text",
			raw:  map[string]any{"text": "answer"},
			want: "answer",
		},
		{
			name: "top-level content",
			raw:  map[string]any{"content": "answer"},
			want: "answer",
		},
		{
			name: "top-level completion",
			raw:  map[string]any{"completion": "answer"},
			want: "answer",
		},
		{
			name: "choices message content",
			raw: map[string]any{
				"choices": []any{
					map[string]any{"message": map[string]any{"content": "answer"}},
				},
			},
			want: "answer",
		},
		{
			name: "choices direct content",
			raw: map[string]any{
				"choices": []any{map[string]any{"content": "answer"}},
			},
			want: "answer",
		},
		{
			name: "choices delta content",
			raw: map[string]any{
				"choices": []any{
					map[string]any{"delta": map[string]any{"content": "answer"}},
				},
			},
			want: "answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.raw); got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Conflicting fields present simultaneously: earlier chain entries win.
func TestExtractText_Precedence(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{
			name: "top-level text beats nested choices",
			raw: map[string]any{
				"choices": []any{
					map[string]any{"message": map[string]any{"content": "X"}},
				},
				"text": "Y",
			},
			want: "Y",
		},
		{
			name: "text beats content",
			raw:  map[string]any{"text": "first", "content": "second"},
			want: "first",
		},
		{
			name: "content beats completion",
			raw:  map[string]any{"content": "first", "completion": "second"},
			want: "first",
		},
		{
			name: "message content beats delta content",
			raw: map[string]any{
				"choices": []any{map[string]any{
					"message": map[string]any{"content": "first"},
					"delta":   map[string]any{"content": "second"},
				}},
			},
			want: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.raw); got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractText_ReasoningOnly(t *testing.T) {
	raw := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": ""}},
		},
		"usage": map[string]any{
			"completion_tokens": float64(512),
			"completion_tokens_details": map[string]any{
				"reasoning_tokens": float64(512),
			},
		},
	}

	got := ExtractText(raw)
	if got == "" {
		t.Fatal("ExtractText() returned empty string for reasoning-only response")
	}
	if !strings.Contains(got, "512") {
		t.Errorf("diagnostic %q does not name the token count", got)
	}
	if !strings.Contains(got, fallbackModelSuggestion) {
		t.Errorf("diagnostic %q does not suggest a fallback model", got)
	}
}

func TestExtractText_Truncated(t *testing.T) {
	raw := map[string]any{
		"choices": []any{
			map[string]any{
				"message":       map[string]any{"content": ""},
				"finish_reason": "length",
			},
		},
		"usage": map[string]any{"total_tokens": float64(4096)},
	}

	got := ExtractText(raw)
	if !strings.Contains(got, "truncated") {
		t.Errorf("ExtractText() = %q, want truncation diagnostic", got)
	}
	if !strings.Contains(got, "4096") {
		t.Errorf("diagnostic %q does not cite the token count", got)
	}
}

func TestExtractText_NeverEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"empty object", map[string]any{}},
		{"empty choices", map[string]any{"choices": []any{}}},
		{"number", float64(42)},
		{"empty string fields", map[string]any{"text": "", "content": ""}},
		{"choice without content", map[string]any{"choices": []any{map[string]any{"index": float64(0)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.raw); got == "" {
				t.Error("ExtractText() returned empty string")
			}
		})
	}
}
