// Package htmlutil strips chapter markup down to plain text for callers
// that want a book's content without its structure (e.g. search indexing
// or a plain-text export), using the same DOM parser pkg/layout's
// tokenizer walks rather than a second, independent text-processing path.
package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripTags parses input as HTML/XHTML and returns its text content,
// rendering block-level elements (p, div, li, headings, br, ...) as line
// breaks to preserve paragraph structure. Entity decoding is handled by
// the HTML parser itself, so "&amp;", "&mdash;", "&nbsp;", and friends
// come out already resolved.
func StripTags(input string) string {
	if input == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return ""
	}

	var lines []string
	var current strings.Builder

	flush := func() {
		if line := collapseSpace(current.String()); line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Title:
				return
			case atom.Br:
				flush()
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlockLevel(n.DataAtom) {
			flush()
		}
	}
	walk(doc)
	flush()

	return strings.Join(lines, "\n")
}

func isBlockLevel(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Section, atom.Article, atom.Figcaption, atom.Tr:
		return true
	default:
		return false
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
