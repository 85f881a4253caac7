package agent

import (
	"strings"
	"testing"
)

func TestProfilesAreDistinct(t *testing.T) {
	fast, careful := Fast(), Careful()
	if fast.ID == careful.ID {
		t.Fatalf("profile ids collide: %q", fast.ID)
	}
	if fast.System == careful.System {
		t.Fatal("profiles share a system prompt")
	}
	for _, p := range []Profile{fast, careful} {
		if p.Params.MaxTokens <= 0 {
			t.Fatalf("profile %s has no output budget", p.ID)
		}
		if !strings.Contains(p.System, "asterisk") {
			t.Fatalf("profile %s prompt does not state the answer convention", p.ID)
		}
	}
}

func TestBuildInput(t *testing.T) {
	got := BuildInput("12345", "54321")
	if got != "Q: 12345 54321" {
		t.Fatalf("BuildInput = %q", got)
	}
}
