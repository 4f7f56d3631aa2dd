package epub

import (
	"encoding/xml"
	"strings"
)

// NavPoint is one entry in a resolved navigation tree: a title, an
// optional chapter href (headings without a link carry none), and nested
// children. This replaces the teacher's catalog-oriented
// mediafile.ParsedChapter with a tree shaped for spine/nav cross-reference
// rather than catalog display.
type NavPoint struct {
	Title    string
	Href     string
	Children []NavPoint
}

// navHTML is the EPUB3 navigation document shape.
type navHTML struct {
	XMLName xml.Name `xml:"html"`
	Body    struct {
		Nav []navElement `xml:"nav"`
	} `xml:"body"`
}

type navElement struct {
	Type string `xml:"type,attr"`
	OL   *navOL `xml:"ol"`
}

type navOL struct {
	Items []navLI `xml:"li"`
}

type navLI struct {
	A        *navLink `xml:"a"`
	Span     *navSpan `xml:"span"`
	Children *navOL   `xml:"ol"`
}

type navLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:",chardata"`
}

type navSpan struct {
	Text string `xml:",chardata"`
}

// parseNavDocument parses an EPUB3 nav document's `epub:type="toc"` nav
// element into a navigation tree.
func parseNavDocument(data []byte) ([]NavPoint, error) {
	var nav navHTML
	if err := xml.Unmarshal(data, &nav); err != nil {
		return nil, err
	}
	for _, n := range nav.Body.Nav {
		if n.Type == "toc" && n.OL != nil {
			return parseNavOL(n.OL), nil
		}
	}
	return nil, nil
}

func parseNavOL(ol *navOL) []NavPoint {
	if ol == nil {
		return nil
	}
	points := make([]NavPoint, 0, len(ol.Items))
	for _, li := range ol.Items {
		var p NavPoint
		switch {
		case li.A != nil:
			p.Title = strings.TrimSpace(li.A.Text)
			p.Href = li.A.Href
		case li.Span != nil:
			p.Title = strings.TrimSpace(li.Span.Text)
		}
		if p.Title == "" {
			continue
		}
		if li.Children != nil {
			p.Children = parseNavOL(li.Children)
		}
		points = append(points, p)
	}
	return points
}

// ncxDoc is the EPUB2 NCX shape.
type ncxDoc struct {
	XMLName xml.Name `xml:"ncx"`
	NavMap  struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	NavLabel struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

func parseNCX(data []byte) ([]NavPoint, error) {
	var ncx ncxDoc
	if err := xml.Unmarshal(data, &ncx); err != nil {
		return nil, err
	}
	return parseNCXNavPoints(ncx.NavMap.NavPoints), nil
}

func parseNCXNavPoints(navPoints []ncxNavPoint) []NavPoint {
	points := make([]NavPoint, 0, len(navPoints))
	for _, np := range navPoints {
		title := strings.TrimSpace(np.NavLabel.Text)
		if title == "" {
			continue
		}
		p := NavPoint{Title: title, Href: np.Content.Src}
		if len(np.Children) > 0 {
			p.Children = parseNCXNavPoints(np.Children)
		}
		points = append(points, p)
	}
	return points
}

// findNavItem returns the manifest item declared as the EPUB3 nav
// document (properties contains "nav"), or nil if none is declared.
func findNavItem(items map[string]ManifestItem) *ManifestItem {
	for _, it := range items {
		if containsToken(it.Properties, "nav") {
			i := it
			return &i
		}
	}
	return nil
}

// findNCXItem returns the manifest item referenced by the spine's `toc`
// attribute, or nil if the package declares no NCX.
func findNCXItem(items map[string]ManifestItem, tocID string) *ManifestItem {
	if tocID == "" {
		return nil
	}
	if it, ok := items[tocID]; ok {
		return &it
	}
	return nil
}

func containsToken(space string, token string) bool {
	for _, tok := range strings.Fields(space) {
		if tok == token {
			return true
		}
	}
	return false
}
