package util

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML flattens a description to plain text with collapsed whitespace.
// Plain-text input passes through untouched apart from the cleanup.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0 // inside <script>/<style>

	for {
		switch z.Next() {
		case html.ErrorToken:
			return CleanText(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if n := string(name); n == "script" || n == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); (n == "script" || n == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

// ExtractLocationFromLabeledText pulls the value after "Location:" style
// labels out of plain text, e.g. email bodies or og:description blobs.
func ExtractLocationFromLabeledText(s string) string {
	low := strings.ToLower(s)

	labels := []string{
		"location:",
		"locations:",
		"job location:",
	}

	for _, lab := range labels {
		i := strings.Index(low, lab)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(s[i+len(lab):])

		for _, cut := range []string{"\n", "\r", " | ", " · "} {
			if j := strings.Index(rest, cut); j >= 0 {
				rest = rest[:j]
			}
		}

		rest = CleanText(rest)
		if rest != "" && len(rest) <= 80 {
			return rest
		}
	}
	return ""
}
