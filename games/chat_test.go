package games

import (
	"strings"
	"testing"
)

func TestRenderMessageMarkdown(t *testing.T) {
	out, err := RenderMessage("I think it's **him**")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<strong>him</strong>") {
		t.Fatalf("markdown not rendered: %q", out)
	}
}

func TestRenderMessageStripsScripts(t *testing.T) {
	out, err := RenderMessage("<script>alert(1)</script>guess already")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<script") {
		t.Fatalf("script tag survived sanitization: %q", out)
	}
	if !strings.Contains(out, "guess already") {
		t.Fatalf("harmless text lost: %q", out)
	}
}

func TestRenderMessageStripsUnsafeLinks(t *testing.T) {
	out, err := RenderMessage("[click](javascript:alert(1))")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "javascript:") {
		t.Fatalf("unsafe link survived sanitization: %q", out)
	}
}
