package loader

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankRun = regexp.MustCompile(`\n{3,}`)

// HTMLText reduces an HTML document to text. Block elements become blank-line
// separated paragraphs so the paragraph chunker sees their boundaries;
// scripts and styles are dropped. Unparseable input is returned unchanged.
func HTMLText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Noscript:
				return
			case atom.Br:
				buf.WriteString("\n")
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(strings.Join(strings.Fields(n.Data), " "))
			if strings.HasSuffix(n.Data, " ") || strings.HasSuffix(n.Data, "\n") {
				buf.WriteString(" ")
			}
		}

		block := n.Type == html.ElementNode && isBlock(n.DataAtom)
		if block {
			buf.WriteString("\n\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			buf.WriteString("\n\n")
		}
	}
	walk(doc)

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	out := blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Li, atom.Tr,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Table, atom.Ul, atom.Ol, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}
