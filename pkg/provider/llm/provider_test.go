package llm

import (
	"strings"
	"testing"
)

func TestRenderPromptNoContext(t *testing.T) {
	got := RenderPrompt(Request{UserInput: "what time is it"})
	if got != "what time is it" {
		t.Errorf("RenderPrompt() = %q, want bare input", got)
	}
}

func TestRenderPromptWithContext(t *testing.T) {
	req := Request{
		UserInput: "should I charge",
		Context: map[string]any{
			"battery":  17,
			"location": "kitchen",
		},
	}

	got := RenderPrompt(req)
	if !strings.HasPrefix(got, "Context:\n") {
		t.Errorf("prompt missing context header: %q", got)
	}
	if !strings.Contains(got, "- battery: 17\n") {
		t.Errorf("prompt missing battery entry: %q", got)
	}
	if !strings.HasSuffix(got, "User: should I charge") {
		t.Errorf("prompt missing user input suffix: %q", got)
	}
	// Keys render in sorted order, so repeated calls are identical.
	if again := RenderPrompt(req); again != got {
		t.Errorf("RenderPrompt not deterministic:\n%q\n%q", got, again)
	}
	if strings.Index(got, "battery") > strings.Index(got, "location") {
		t.Errorf("context keys not sorted: %q", got)
	}
}
