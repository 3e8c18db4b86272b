package sanitize_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-formflow/pkg/sanitize"
)

func TestHTML_StripsScripts(t *testing.T) {
	got := sanitize.HTML(`<p onclick="steal()">Welcome <strong>guests</strong></p><script>alert(1)</script>`)
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") {
		t.Fatalf("unsafe markup survived: %q", got)
	}
	if !strings.Contains(got, "<strong>guests</strong>") {
		t.Fatalf("formatting was lost: %q", got)
	}
}

func TestHTML_KeepsIcons(t *testing.T) {
	got := sanitize.HTML(`<svg viewBox="0 0 24 24" onload="x()"><path d="M0 0h24v24H0z"/></svg>`)
	lower := strings.ToLower(got)
	if !strings.Contains(lower, `viewbox="0 0 24 24"`) || !strings.Contains(got, `d="M0 0h24v24H0z"`) {
		t.Fatalf("icon markup dropped: %q", got)
	}
	if strings.Contains(got, "onload") {
		t.Fatalf("event handler survived: %q", got)
	}
}

func TestInline(t *testing.T) {
	got := sanitize.Inline(`<em>Full</em> <a href="http://x">name</a>`)
	if got != "<em>Full</em> name" {
		t.Fatalf("unexpected inline markup %q", got)
	}
}

func TestText(t *testing.T) {
	if got := sanitize.Text(`<h2>Terms &amp; conditions</h2>`); got != "Terms & conditions" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestMarkdown(t *testing.T) {
	got := sanitize.Markdown("Bring your **badge**.\n\n<script>alert(1)</script>")
	if !strings.Contains(got, "<strong>badge</strong>") {
		t.Fatalf("markdown not rendered: %q", got)
	}
	if strings.Contains(got, "<script>") {
		t.Fatalf("script survived: %q", got)
	}
	if sanitize.Markdown("   ") != "" {
		t.Fatalf("blank input must render nothing")
	}
}
