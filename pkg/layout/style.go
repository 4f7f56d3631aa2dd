package layout

import (
	"strconv"
	"strings"

	"github.com/epubkit/mu-epub/pkg/epuberr"
	"github.com/epubkit/mu-epub/pkg/renderir"
)

// StyleLimits bounds how much embedded CSS the style cascade will accept
// before layout begins, per spec.md §6.
type StyleLimits struct {
	MaxSelectors int
	MaxCSSBytes  int
	MaxNesting   int
}

// DefaultStyleLimits returns conservative caps safe for embedded targets.
func DefaultStyleLimits() StyleLimits {
	return StyleLimits{MaxSelectors: 512, MaxCSSBytes: 512 * 1024, MaxNesting: 32}
}

// ValidateCSS enforces StyleLimits against a chapter's embedded stylesheet
// text, failing Phase(Style, ...) with a LimitContext on the first
// violation rather than attempting partial cascade.
func ValidateCSS(css string, limits StyleLimits) error {
	if limits.MaxCSSBytes > 0 && len(css) > limits.MaxCSSBytes {
		return epuberr.LimitExceeded(epuberr.PhaseStyle, "max_css_bytes", len(css), limits.MaxCSSBytes)
	}
	if n := countSelectors(css); limits.MaxSelectors > 0 && n > limits.MaxSelectors {
		return epuberr.LimitExceeded(epuberr.PhaseStyle, "max_selectors", n, limits.MaxSelectors)
	}
	if n := maxNestingDepth(css); limits.MaxNesting > 0 && n > limits.MaxNesting {
		return epuberr.LimitExceeded(epuberr.PhaseStyle, "max_nesting", n, limits.MaxNesting)
	}
	return nil
}

// countSelectors counts comma-separated selectors across every `sel {
// ... }` rule in css. This is a bounds-check scanner, not a CSS parser:
// it only needs to reject pathologically large stylesheets before the
// line breaker ever sees them.
func countSelectors(css string) int {
	count := 0
	for _, rule := range strings.Split(css, "}") {
		sel, _, found := strings.Cut(rule, "{")
		if !found {
			continue
		}
		for _, s := range strings.Split(sel, ",") {
			if strings.TrimSpace(s) != "" {
				count++
			}
		}
	}
	return count
}

// maxNestingDepth returns the deepest brace nesting in css, catching
// pathological `@media` / nested-rule stylesheets.
func maxNestingDepth(css string) int {
	depth, max := 0, 0
	for _, r := range css {
		switch r {
		case '{':
			depth++
			if depth > max {
				max = depth
			}
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return max
}

// CSSSelector is a simple type-and/or-class selector — no combinators,
// pseudo-classes, attribute selectors, or IDs (the tokenizer doesn't track
// element ids). This is enough to cascade the declarations the layout
// engine understands onto the blocks/runs the tokenizer already tags with
// a Tag/Class selector context.
type CSSSelector struct {
	Tag   string // empty matches any tag
	Class string // empty matches regardless of class
}

// matches reports whether sel applies to an element with the given tag
// name and (possibly multi-valued, space-separated) class attribute.
func (sel CSSSelector) matches(tag, class string) bool {
	if sel.Tag != "" && sel.Tag != tag {
		return false
	}
	if sel.Class == "" {
		return true
	}
	for _, c := range strings.Fields(class) {
		if c == sel.Class {
			return true
		}
	}
	return false
}

// CSSRule is one parsed "selector-list { declarations }" rule from an
// embedded stylesheet.
type CSSRule struct {
	Selectors []CSSSelector
	Decls     map[string]string
}

// ParseCSSRules parses simple selector/declaration pairs out of css,
// silently skipping anything it can't represent as a CSSSelector list
// (at-rules, descendant/child combinators, pseudo-selectors, id
// selectors) rather than failing: spec.md §4.3 phase 2 only requires
// applying the cascade that can be resolved, not full CSS conformance.
func ParseCSSRules(css string) []CSSRule {
	var rules []CSSRule
	for _, rule := range strings.Split(css, "}") {
		selPart, declPart, found := strings.Cut(rule, "{")
		if !found {
			continue
		}
		var selectors []CSSSelector
		for _, s := range strings.Split(selPart, ",") {
			if sel, ok := parseSimpleSelector(s); ok {
				selectors = append(selectors, sel)
			}
		}
		if len(selectors) == 0 {
			continue
		}
		decls := parseDecls(declPart)
		if len(decls) == 0 {
			continue
		}
		rules = append(rules, CSSRule{Selectors: selectors, Decls: decls})
	}
	return rules
}

func parseSimpleSelector(s string) (CSSSelector, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\n>~+:[*") {
		return CSSSelector{}, false
	}
	if strings.HasPrefix(s, ".") {
		if class := s[1:]; class != "" {
			return CSSSelector{Class: class}, true
		}
		return CSSSelector{}, false
	}
	if strings.HasPrefix(s, "#") {
		return CSSSelector{}, false // id selectors unsupported
	}
	return CSSSelector{Tag: strings.ToLower(s)}, true
}

func parseDecls(s string) map[string]string {
	decls := map[string]string{}
	for _, decl := range strings.Split(s, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		if prop == "" || val == "" {
			continue
		}
		decls[prop] = val
	}
	return decls
}

// Cascade resolves the declarations that apply to an element with the
// given tag/class against rules, in document order: later rules win ties,
// approximating CSS's specificity tie-breaking for same-origin embedded
// stylesheets without implementing full specificity scoring.
func Cascade(rules []CSSRule, tag, class string) map[string]string {
	if len(rules) == 0 {
		return nil
	}
	resolved := map[string]string{}
	for _, rule := range rules {
		for _, sel := range rule.Selectors {
			if sel.matches(tag, class) {
				for k, v := range rule.Decls {
					resolved[k] = v
				}
				break
			}
		}
	}
	return resolved
}

// applyCascadeToRuns resolves font-weight/font-style/text-decoration
// against each run's selector context and overrides its tag-derived
// InlineStyle accordingly, run by run, before line breaking.
func applyCascadeToRuns(runs []InlineRun, rules []CSSRule) []InlineRun {
	if len(rules) == 0 {
		return runs
	}
	out := make([]InlineRun, len(runs))
	for i, r := range runs {
		out[i] = InlineRun{Text: r.Text, Style: applyCascadeDecls(r.Style, Cascade(rules, r.Style.Tag, r.Style.Class))}
	}
	return out
}

func applyCascadeDecls(style InlineStyle, decls map[string]string) InlineStyle {
	if v, ok := decls["font-weight"]; ok {
		style.Bold = v == "bold" || isBoldWeight(v)
	}
	if v, ok := decls["font-style"]; ok {
		style.Italic = v == "italic" || v == "oblique"
	}
	if v, ok := decls["text-decoration"]; ok {
		style.Underline = strings.Contains(v, "underline")
	}
	return style
}

func isBoldWeight(v string) bool {
	n, err := strconv.Atoi(v)
	return err == nil && n >= 600
}

// blockJustification overrides typ's justification mode with the
// block-level text-align declaration, when one cascades onto tag/class
// and the render IR has a JustifyMode that can express it: justify maps to
// JustifyFull, left and start to JustifyNone. Other text-align values
// (right, center, end) have no corresponding JustifyMode and leave typ's
// mode unchanged.
func blockJustification(rules []CSSRule, tag, class string, typ renderir.TypographyConfig) renderir.TypographyConfig {
	decls := Cascade(rules, tag, class)
	if align, ok := decls["text-align"]; ok {
		switch align {
		case "justify":
			typ.Justification.Mode = renderir.JustifyFull
		case "left", "start":
			typ.Justification.Mode = renderir.JustifyNone
		}
	}
	return typ
}

// ResolveTextStyle cascades a run's tag-derived InlineStyle and its
// block's role/heading level against the package-level TypographyConfig
// into a fully-resolved, pixel-scale ResolvedTextStyle. Heading levels
// scale the base font size; no partial/optional fields survive past this
// call.
func ResolveTextStyle(style InlineStyle, role BlockRole, headingLevel int, typ renderir.TypographyConfig) renderir.ResolvedTextStyle {
	size := typ.BaseFontSizePx
	lineHeight := typ.LineHeightPx
	bold := style.Bold

	if role == BlockHeading {
		bold = true
		switch headingLevel {
		case 1:
			size = size * 2
		case 2:
			size = size * 3 / 2
		case 3:
			size = size * 5 / 4
		default:
			size = size * 9 / 8
		}
		lineHeight = size + size/4
	}

	return renderir.ResolvedTextStyle{
		FontSizePx: size,
		LineHeight: lineHeight,
		Bold:       bold,
		Italic:     style.Italic,
		Underline:  style.Underline,
	}
}
