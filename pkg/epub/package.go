package epub

import "encoding/xml"

// ManifestItem is one `<manifest><item>` entry: an id mapped to its href,
// declared media type, and EPUB3 properties (e.g. "nav", "cover-image").
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// packageDoc is the OPF package document shape, trimmed to the fields the
// container layer needs to resolve manifest, spine, and navigation —
// generalized from the teacher's catalog-metadata-oriented Package struct.
type packageDoc struct {
	XMLName xml.Name `xml:"package"`
	Metadata struct {
		Title    []string `xml:"title"`
		Language string   `xml:"language"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc     string `xml:"toc,attr"`
		Itemref []struct {
			Idref string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func parsePackageDoc(data []byte) (*packageDoc, error) {
	pkg := &packageDoc{}
	if err := xml.Unmarshal(data, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (p *packageDoc) title() string {
	if len(p.Metadata.Title) > 0 {
		return p.Metadata.Title[0]
	}
	return ""
}

// manifestItems builds the id→item map, also reporting any id declared by
// more than one <item> (the earlier entry is kept; spec.md §4.2 names
// duplicate manifest ids a structural anomaly Strict mode must reject).
func (p *packageDoc) manifestItems() (items map[string]ManifestItem, duplicateIDs []string) {
	items = make(map[string]ManifestItem, len(p.Manifest.Item))
	for _, it := range p.Manifest.Item {
		if _, exists := items[it.ID]; exists {
			duplicateIDs = append(duplicateIDs, it.ID)
			continue
		}
		items[it.ID] = ManifestItem{
			ID:         it.ID,
			Href:       it.Href,
			MediaType:  it.MediaType,
			Properties: it.Properties,
		}
	}
	return items, duplicateIDs
}

func (p *packageDoc) spineIdrefs() []string {
	idrefs := make([]string, 0, len(p.Spine.Itemref))
	for _, ir := range p.Spine.Itemref {
		idrefs = append(idrefs, ir.Idref)
	}
	return idrefs
}
