package layout

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/epubkit/mu-epub/pkg/epuberr"
)

// Tokenize parses chapter HTML/XHTML bytes into an ordered sequence of
// block-level tokens. It parses the whole chapter in one pass rather than
// incrementally, and is error-tolerant: unknown elements are skipped but
// their text is preserved, unless strict requests a hard failure on
// unparseable markup.
//
// The DOM walk follows the same recursive child-traversal shape as
// kepub.transformNode, retargeted from span-wrapping output to BlockRole
// token emission.
func Tokenize(chapterBytes []byte, strict bool) ([]Block, error) {
	doc, err := html.Parse(bytes.NewReader(chapterBytes))
	if err != nil {
		if strict {
			return nil, epuberr.New(epuberr.PhaseParse, "tokenize failed", err.Error())
		}
		return nil, nil
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return nil, nil
	}

	t := &tokenizer{doc: doc}
	t.walk(body, InlineStyle{})
	t.flush(BlockParagraph, 0, "", "")
	return t.blocks, nil
}

// ExtractEmbeddedCSS parses chapterBytes and returns the concatenated text
// of every <style> element in it. Tokenize does not call this itself and
// parses the bytes on its own, so Layout parses each chapter twice per
// reflow.
func ExtractEmbeddedCSS(chapterBytes []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(chapterBytes))
	if err != nil {
		return "", epuberr.New(epuberr.PhaseParse, "tokenize failed", err.Error())
	}
	var css strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					css.WriteString(c.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return css.String(), nil
}

type tokenizer struct {
	doc     *html.Node
	blocks  []Block
	current []InlineRun
}

func (t *tokenizer) walk(n *html.Node, style InlineStyle) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if hasMeaningfulText(c.Data) {
				t.current = append(t.current, InlineRun{Text: c.Data, Style: style})
			}
		case html.ElementNode:
			t.walkElement(c, style)
		}
	}
}

//nolint:exhaustive // only block/inline elements relevant to pagination are handled; the rest fall to the default recursive case.
func (t *tokenizer) walkElement(n *html.Node, style InlineStyle) {
	ctx := style.withElement(n.Data, attrVal(n, "class"))
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Svg, atom.Math:
		return
	case atom.B, atom.Strong:
		t.walk(n, ctx.withBold())
	case atom.I, atom.Em:
		t.walk(n, ctx.withItalic())
	case atom.U:
		t.walk(n, ctx.withUnderline())
	case atom.Br:
		t.current = append(t.current, InlineRun{Text: "\n", Style: ctx})
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Figcaption:
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
		t.walk(n, ctx)
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
	case atom.H1:
		t.headed(n, ctx, 1)
	case atom.H2:
		t.headed(n, ctx, 2)
	case atom.H3:
		t.headed(n, ctx, 3)
	case atom.H4:
		t.headed(n, ctx, 4)
	case atom.H5:
		t.headed(n, ctx, 5)
	case atom.H6:
		t.headed(n, ctx, 6)
	case atom.Li:
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
		t.walk(n, ctx)
		t.flush(BlockListItem, 0, ctx.Tag, ctx.Class)
	case atom.Ul, atom.Ol:
		t.walk(n, ctx)
	case atom.Blockquote:
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
		t.walk(n, ctx)
		t.flush(BlockBlockquote, 0, ctx.Tag, ctx.Class)
	case atom.Hr:
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
		t.blocks = append(t.blocks, Block{Role: BlockRule, Tag: ctx.Tag, Class: ctx.Class})
	case atom.Img:
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
		t.blocks = append(t.blocks, Block{Role: BlockFigure, ImageHref: attrVal(n, "src"), Tag: ctx.Tag, Class: ctx.Class})
	case atom.Figure:
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
		t.walk(n, ctx)
		t.flush(BlockParagraph, 0, ctx.Tag, ctx.Class)
	default:
		t.walk(n, ctx)
	}
}

func (t *tokenizer) headed(n *html.Node, style InlineStyle, level int) {
	t.flush(BlockParagraph, 0, style.Tag, style.Class)
	t.walk(n, style)
	t.flush(BlockHeading, level, style.Tag, style.Class)
}

func (t *tokenizer) flush(role BlockRole, headingLevel int, tag, class string) {
	if len(t.current) == 0 {
		return
	}
	t.blocks = append(t.blocks, Block{Role: role, HeadingLevel: headingLevel, Runs: t.current, Tag: tag, Class: class})
	t.current = nil
}

func (s InlineStyle) withBold() InlineStyle      { s.Bold = true; return s }
func (s InlineStyle) withItalic() InlineStyle    { s.Italic = true; return s }
func (s InlineStyle) withUnderline() InlineStyle { s.Underline = true; return s }

// hasMeaningfulText reports whether a text node carries content worth
// keeping: any non-whitespace rune, or an NBSP used for intentional
// spacing.
func hasMeaningfulText(text string) bool {
	for _, r := range text {
		if r == ' ' || !isWhitespaceRune(r) {
			return true
		}
	}
	return false
}

func isWhitespaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findElement returns the first descendant of n with the given atom,
// matching kepub.findElement's traversal order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
