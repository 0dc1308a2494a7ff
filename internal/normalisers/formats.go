package normalisers

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlaintextNormaliser is the fallback for any type. It leaves content
// untouched so match offsets index the submitted bytes.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content string, mimeType string) string {
	return content
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain", "*/*"}
}

func (n *PlaintextNormaliser) Priority() int {
	return 1
}

// MarkdownNormaliser strips Markdown syntax, keeping link and image text.
type MarkdownNormaliser struct{}

var (
	mdImage     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink      = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdCode      = regexp.MustCompile("`([^`]*)`")
	mdStrong    = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	mdEmphasis  = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	mdUnderline = regexp.MustCompile(`(^|\W)_([^_]+)_(\W|$)`)
	mdStrike    = regexp.MustCompile(`~~([^~]+)~~`)
	mdHeading   = regexp.MustCompile(`^#{1,6}\s+`)
	mdQuote     = regexp.MustCompile(`^(>\s?)+`)
	mdBullet    = regexp.MustCompile(`^([-*+]|\d+[.)])\s+`)
	mdRule      = regexp.MustCompile(`^([-*_]\s*){3,}$`)
)

func (n *MarkdownNormaliser) Normalise(content string, mimeType string) string {
	lines := strings.Split(normaliseNewlines(content), "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			continue
		}
		if mdRule.MatchString(trimmed) {
			out = append(out, "")
			continue
		}
		trimmed = mdQuote.ReplaceAllString(trimmed, "")
		trimmed = mdHeading.ReplaceAllString(trimmed, "")
		trimmed = mdBullet.ReplaceAllString(trimmed, "")

		trimmed = mdImage.ReplaceAllString(trimmed, "$1")
		trimmed = mdLink.ReplaceAllString(trimmed, "$1")
		trimmed = mdCode.ReplaceAllString(trimmed, "$1")
		trimmed = mdStrong.ReplaceAllString(trimmed, "$1$2")
		trimmed = mdEmphasis.ReplaceAllString(trimmed, "$1")
		trimmed = mdUnderline.ReplaceAllString(trimmed, "$1$2$3")
		trimmed = mdStrike.ReplaceAllString(trimmed, "$1")
		out = append(out, trimmed)
	}
	return tidy(strings.Join(out, "\n"))
}

func (n *MarkdownNormaliser) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (n *MarkdownNormaliser) Priority() int {
	return 50
}

// HTMLNormaliser extracts the visible text of an HTML document.
type HTMLNormaliser struct{}

// invisible elements whose content is dropped
var invisible = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
	atom.Svg:      true,
}

// block elements that break the text flow
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Hr: true, atom.Title: true,
}

func (n *HTMLNormaliser) Normalise(content string, mimeType string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	hidden := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; keep what was read
			return tidy(b.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if invisible[a] {
				if tt == html.StartTagToken {
					hidden++
				}
				continue
			}
			if blocks[a] {
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if invisible[a] {
				if hidden > 0 {
					hidden--
				}
				continue
			}
			if blocks[a] {
				b.WriteByte('\n')
			}

		case html.TextToken:
			if hidden == 0 {
				// Text is already entity-decoded
				b.Write(z.Text())
			}
		}
	}
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50
}

func normaliseNewlines(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// tidy collapses whitespace within lines and keeps at most one blank line
// between paragraphs
func tidy(content string) string {
	lines := strings.Split(normaliseNewlines(content), "\n")
	out := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
