package layout_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epubkit/mu-epub/pkg/layout"
	"github.com/epubkit/mu-epub/pkg/renderir"
)

func baseOptions() layout.Options {
	return layout.Options{
		ViewportW:  400,
		ViewportH:  200,
		Typography: renderir.DefaultTypographyConfig(),
		Chrome:     renderir.DefaultPageChromeConfig(),
		Style:      layout.DefaultStyleLimits(),
	}
}

func TestLayoutSingleShortParagraphFitsOnePage(t *testing.T) {
	html := `<html><body><p>Hello world.</p></body></html>`
	pages, err := layout.Layout([]byte(html), baseOptions())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Metrics.ChapterPageIndex)
	assert.NotEmpty(t, pages[0].Commands)
}

func TestLayoutSplitsLongChapterAcrossPages(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 60; i++ {
		body.WriteString("<p>This is a reasonably long paragraph of sample text used to force pagination across multiple output pages during the test.</p>")
	}
	html := `<html><body>` + body.String() + `</body></html>`

	opts := baseOptions()
	opts.ViewportH = 120
	pages, err := layout.Layout([]byte(html), opts)
	require.NoError(t, err)
	require.Greater(t, len(pages), 1)

	for i, p := range pages {
		assert.Equal(t, i, p.Metrics.ChapterPageIndex)
	}
}

func TestLayoutHeadingIsBold(t *testing.T) {
	html := `<html><body><h1>Title</h1><p>Body text.</p></body></html>`
	pages, err := layout.Layout([]byte(html), baseOptions())
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	var sawBoldHeading bool
	for _, cmd := range pages[0].Commands {
		if cmd.Kind == renderir.DrawText && cmd.Text.Style.FontSizePx > renderir.DefaultTypographyConfig().BaseFontSizePx {
			assert.True(t, cmd.Text.Style.Bold)
			sawBoldHeading = true
		}
	}
	assert.True(t, sawBoldHeading, "expected a heading-sized, bold text command")
}

func TestLayoutAppliesPageChrome(t *testing.T) {
	html := `<html><body><p>Some content.</p></body></html>`
	opts := baseOptions()
	opts.Chrome.PageNumEnabled = true
	pages, err := layout.Layout([]byte(html), opts)
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	var sawPageNum bool
	for _, cmd := range pages[0].Commands {
		if cmd.Kind == renderir.DrawChrome && cmd.Chrome.Kind == renderir.ChromePageNumber {
			sawPageNum = true
			assert.Equal(t, "1", cmd.Chrome.Text)
		}
	}
	assert.True(t, sawPageNum)
}

func TestLayoutFigureEmitsRectCommand(t *testing.T) {
	html := `<html><body><img src="cover.png"/></body></html>`
	pages, err := layout.Layout([]byte(html), baseOptions())
	require.NoError(t, err)
	require.Len(t, pages, 1)

	require.Len(t, pages[0].Commands, 1)
	assert.Equal(t, renderir.DrawRect, pages[0].Commands[0].Kind)
}

func TestLayoutCascadesFontWeightFromEmbeddedCSS(t *testing.T) {
	html := `<html><head><style>em { font-weight: bold; }</style></head>` +
		`<body><p>Some <em>emphasized</em> text.</p></body></html>`
	pages, err := layout.Layout([]byte(html), baseOptions())
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	var sawBoldEmphasis bool
	for _, cmd := range pages[0].Commands {
		if cmd.Kind == renderir.DrawText && strings.Contains(strings.Join(cmd.Text.Runs, ""), "emphasized") {
			assert.True(t, cmd.Text.Style.Bold)
			sawBoldEmphasis = true
		}
	}
	assert.True(t, sawBoldEmphasis, "expected the em-wrapped run to cascade font-weight: bold")
}

func TestLayoutCascadesClassSelectorDeclarations(t *testing.T) {
	html := `<html><head><style>.note { font-style: italic; }</style></head>` +
		`<body><p><span class="note">Aside.</span></p></body></html>`
	pages, err := layout.Layout([]byte(html), baseOptions())
	require.NoError(t, err)
	require.NotEmpty(t, pages)

	var sawItalic bool
	for _, cmd := range pages[0].Commands {
		if cmd.Kind == renderir.DrawText && strings.Contains(strings.Join(cmd.Text.Runs, ""), "Aside") {
			assert.True(t, cmd.Text.Style.Italic)
			sawItalic = true
		}
	}
	assert.True(t, sawItalic, "expected the .note-classed span to cascade font-style: italic")
}

func TestLayoutRejectsOversizeEmbeddedCSS(t *testing.T) {
	var css strings.Builder
	css.WriteString("<style>")
	for i := 0; i < 100; i++ {
		css.WriteString("p { color: black; }\n")
	}
	css.WriteString("</style>")
	html := `<html><head>` + css.String() + `</head><body><p>Text</p></body></html>`

	opts := baseOptions()
	opts.Style.MaxCSSBytes = 10
	_, err := layout.Layout([]byte(html), opts)
	require.Error(t, err)
}

func TestLayoutDeterministicForEqualInputs(t *testing.T) {
	html := `<html><body><h1>Chapter</h1><p>Repeatable text content for determinism.</p></body></html>`
	opts := baseOptions()

	a, err := layout.Layout([]byte(html), opts)
	require.NoError(t, err)
	b, err := layout.Layout([]byte(html), opts)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBreakParagraphJustifiesFullLines(t *testing.T) {
	typ := renderir.DefaultTypographyConfig()
	typ.Justification = renderir.JustificationConfig{Mode: renderir.JustifyFull, MinWordSpacePx: 2, MaxWordSpacePx: 40}
	style := layout.ResolveTextStyle(layout.InlineStyle{}, layout.BlockParagraph, 0, typ)

	runs := []layout.InlineRun{{Text: "one two three four five six seven eight"}}
	lines := layout.BreakParagraph(runs, style, 300, typ)
	require.NotEmpty(t, lines)
	assert.Equal(t, 300, lines[0].TotalWidth)
}

func TestHyphenationSplitsOverlongWord(t *testing.T) {
	typ := renderir.DefaultTypographyConfig()
	typ.Hyphenation = renderir.HyphenationConfig{Mode: renderir.HyphenationSoftOnly, MinWordLen: 4, MinPrefix: 2, MinSuffix: 2}
	style := layout.ResolveTextStyle(layout.InlineStyle{}, layout.BlockParagraph, 0, typ)

	word := "super­cali­fragi­listic"
	runs := []layout.InlineRun{{Text: word}}
	lines := layout.BreakParagraph(runs, style, 60, typ)
	require.NotEmpty(t, lines)
	require.NotEmpty(t, lines[0].Segments)
	assert.True(t, strings.HasSuffix(lines[0].Segments[0].Text, "-"))
}
