package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("log.move", map[string]any{"Player": "DeepSeek", "Move": "b2e2"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "DeepSeek 走了 b2e2" {
		t.Fatalf("unexpected text: %q", got)
	}
	if c.Text("placeholder.thinking", nil, "") == "" {
		t.Fatalf("expected thinking placeholder")
	}
}

func TestMissingKeyIsError(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("log.move", map[string]any{"Player": "x"}); err == nil {
		t.Fatalf("expected error for missing template data")
	}
	if got := c.Text("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("transcript:\n  separator: \"===\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("transcript.separator", nil, ""); got != "===" {
		t.Fatalf("override not applied: %q", got)
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	body := []byte("status:\n  idle: \"x\"\n")
	for _, n := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, n), body, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	_, err := New(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
