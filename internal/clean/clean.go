// Package clean reduces raw message bodies to the text worth storing:
// quoted history, reply markers, and signature trailers stripped.
package clean

import (
	"regexp"
	"strings"
)

// Func cleans a raw plain-text body. The default implementation covers
// common reply conventions; callers may substitute their own.
type Func func(body string) string

var (
	// "On Mon, Jun 15, 2026 at 10:30 AM Alice <alice@example.com> wrote:"
	replyMarkerRe = regexp.MustCompile(`(?mi)^On .{0,200}wrote:\s*$`)
	htmlTagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	blankRunsRe   = regexp.MustCompile(`\n{3,}`)
)

// Default strips quoted reply history and signatures from a plain-text body.
// Everything from the first reply marker on is dropped, as are leading-`>`
// quote lines and anything after the conventional "-- " signature separator.
func Default(body string) string {
	if loc := replyMarkerRe.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}

	var out []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if line == "-- " || trimmed == "--" {
			break
		}
		out = append(out, line)
	}

	cleaned := strings.Join(out, "\n")
	cleaned = blankRunsRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// StripHTML is the fallback for messages with no plain-text part: tags
// removed, entities left alone, whitespace collapsed.
func StripHTML(html string) string {
	text := htmlTagRe.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&#39;", "'")
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
