package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epubkit/mu-epub/pkg/layout"
)

func TestParseCSSRulesMatchesTagAndClassSelectors(t *testing.T) {
	css := `p { text-align: justify; } .note, em { font-style: italic; }`
	rules := layout.ParseCSSRules(css)
	require.Len(t, rules, 2)

	decls := layout.Cascade(rules, "p", "")
	assert.Equal(t, "justify", decls["text-align"])

	decls = layout.Cascade(rules, "span", "note")
	assert.Equal(t, "italic", decls["font-style"])

	decls = layout.Cascade(rules, "em", "")
	assert.Equal(t, "italic", decls["font-style"])
}

func TestParseCSSRulesSkipsUnsupportedSelectors(t *testing.T) {
	css := `#id { color: red; } p > span { color: blue; } p:hover { color: green; }`
	rules := layout.ParseCSSRules(css)
	assert.Empty(t, rules)
}

func TestCascadeLaterRuleWinsTies(t *testing.T) {
	css := `p { font-weight: normal; } p { font-weight: bold; }`
	rules := layout.ParseCSSRules(css)
	decls := layout.Cascade(rules, "p", "")
	assert.Equal(t, "bold", decls["font-weight"])
}
