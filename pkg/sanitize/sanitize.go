// Package sanitize cleans organizer-authored markup before it reaches an
// attendee's browser: html field content, labels and markdown descriptions.
package sanitize

import (
	"bytes"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	contentPolicyOnce sync.Once
	contentPolicy     *bluemonday.Policy

	inlinePolicyOnce sync.Once
	inlinePolicy     *bluemonday.Policy

	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

// HTML sanitises the body of an html field. Formatting, links, lists,
// images and inline SVG icons survive; scripts, handlers and styles do not.
func HTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(contentSanitizer().Sanitize(trimmed))
}

// Inline sanitises label text, keeping only inline emphasis.
func Inline(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(inlineSanitizer().Sanitize(trimmed))
}

// Text strips every tag and decodes entities, for plain-text renderers.
func Text(raw string) string {
	stripped := bluemonday.StrictPolicy().Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// Markdown renders a field description written in GitHub flavoured
// markdown and sanitises the result. Raw HTML inside the source is escaped
// by goldmark before sanitising.
func Markdown(source string) string {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdownRenderer().Convert([]byte(trimmed), &buf); err != nil {
		return html.EscapeString(trimmed)
	}
	return strings.TrimSpace(contentSanitizer().Sanitize(buf.String()))
}

func markdownRenderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
			),
		)
	})
	return markdown
}

func inlineSanitizer() *bluemonday.Policy {
	inlinePolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "u", "small", "br", "span", "code")
		inlinePolicy = policy
	})
	return inlinePolicy
}

func contentSanitizer() *bluemonday.Policy {
	contentPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)

		policy.AllowElements(
			"svg", "g", "path", "circle", "rect", "line", "polyline", "polygon",
			"ellipse", "title", "desc",
		)
		policy.AllowAttrs(
			"xmlns", "viewBox", "width", "height", "fill", "stroke",
			"stroke-width", "stroke-linecap", "stroke-linejoin", "aria-hidden",
			"role", "focusable", "class",
		).OnElements("svg")
		for _, el := range []string{"path", "circle", "rect", "line", "polyline", "polygon", "ellipse"} {
			policy.AllowAttrs(
				"d", "cx", "cy", "r", "x", "y", "x1", "y1", "x2", "y2",
				"points", "rx", "ry", "fill", "stroke", "stroke-width",
				"stroke-linecap", "stroke-linejoin", "class",
			).OnElements(el)
		}
		contentPolicy = policy
	})
	return contentPolicy
}
