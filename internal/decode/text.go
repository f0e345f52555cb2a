package decode

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Preview lengths, in characters.
const (
	ListPreviewLen  = 100
	QuickPreviewLen = 200
)

// Ellipsis marks text that Truncate shortened.
const Ellipsis = "..."

var (
	blankLines = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
	spaceRuns  = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// blockAtoms end a line of text when stripped.
var blockAtoms = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Li: true,
	atom.Tr: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Table: true,
}

// StripHTML reduces an HTML document to readable text: tags are dropped,
// entities decoded, script and style content skipped, and block elements
// turned into line breaks.
func StripHTML(doc string) string {
	if doc == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidy(b.String())

		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style || a == atom.Head {
				skip++
			}
			if blockAtoms[a] {
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style || a == atom.Head) && skip > 0 {
				skip--
			}
			if blockAtoms[a] {
				b.WriteByte('\n')
			}
		}
	}
}

// tidy collapses runs of spaces and blank lines.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most n characters, appending Ellipsis only
// when text was actually cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n]), " ") + Ellipsis
}

// flatten joins all whitespace into single spaces, for one-line previews.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Preview is the quick body-preview helper: the plain text of body on
// one line, cut to QuickPreviewLen characters.
func Preview(body string, isHTML bool) string {
	if isHTML {
		body = StripHTML(body)
	}
	return Truncate(flatten(body), QuickPreviewLen)
}

// ListPreview is the preview shown in folder listings, cut to
// ListPreviewLen characters.
func ListPreview(body string, isHTML bool) string {
	if isHTML {
		body = StripHTML(body)
	}
	return Truncate(flatten(body), ListPreviewLen)
}
