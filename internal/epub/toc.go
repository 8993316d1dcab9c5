package epub

import (
	"bytes"
	"encoding/xml"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ncx models the ePub 2 NCX navigation file.
type ncx struct {
	XMLName xml.Name   `xml:"ncx"`
	NavMap  []navPoint `xml:"navMap>navPoint"`
}

type navPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

// parseTOC resolves the navigation tree: ePub 3 nav document when present,
// NCX otherwise, and a flat spine-derived list as a last resort.
func (a *archive) parseTOC(spineHrefs []string) []TOCItem {
	spineMap := make(map[string]int, len(spineHrefs))
	for i, href := range spineHrefs {
		spineMap[strings.ToLower(href)] = i
	}

	if strings.HasPrefix(a.opf.Version, "3") {
		if items, ok := a.parseNavTOC(spineMap); ok {
			return items
		}
	}
	if items, ok := a.parseNCXTOC(spineMap); ok {
		return items
	}

	// No TOC source: expose one flat entry per spine item.
	items := make([]TOCItem, len(spineHrefs))
	for i, href := range spineHrefs {
		items[i] = TOCItem{Label: baseName(href), Href: href, SectionIndex: i}
	}
	return items
}

// parseNCXTOC locates the NCX via the spine's toc attribute.
func (a *archive) parseNCXTOC(spineMap map[string]int) ([]TOCItem, bool) {
	item, ok := a.byID[a.opf.Spine.Toc]
	if !ok {
		return nil, false
	}
	data, err := a.readFile(a.resolve(item.Href))
	if err != nil {
		return nil, false
	}
	var n ncx
	if err := xml.Unmarshal(stripBOM(data), &n); err != nil {
		return nil, false
	}
	var convert func(points []navPoint) []TOCItem
	convert = func(points []navPoint) []TOCItem {
		var out []TOCItem
		for _, p := range points {
			href := a.resolve(stripFragment(p.Content.Src))
			out = append(out, TOCItem{
				Label:        strings.TrimSpace(p.Label),
				Href:         href,
				SectionIndex: spineIndex(spineMap, href),
				Children:     convert(p.Children),
			})
		}
		return out
	}
	items := convert(n.NavMap)
	return items, len(items) > 0
}

// parseNavTOC locates the ePub 3 nav document (manifest properties contain
// "nav") and parses its first <nav> list.
func (a *archive) parseNavTOC(spineMap map[string]int) ([]TOCItem, bool) {
	var navItem *manifestItem
	for _, item := range a.opf.Manifest.Items {
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "nav" {
				it := item
				navItem = &it
				break
			}
		}
		if navItem != nil {
			break
		}
	}
	if navItem == nil {
		return nil, false
	}
	data, err := a.readFile(a.resolve(navItem.Href))
	if err != nil {
		return nil, false
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}

	navNode := findNode(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Nav
	})
	if navNode == nil {
		return nil, false
	}
	list := findNode(navNode, func(n *html.Node) bool {
		return n.Type == html.ElementNode && (n.DataAtom == atom.Ol || n.DataAtom == atom.Ul)
	})
	if list == nil {
		return nil, false
	}
	items := a.parseNavList(list, spineMap)
	return items, len(items) > 0
}

// parseNavList converts an <ol>/<ul> of the nav document into TOC items.
func (a *archive) parseNavList(list *html.Node, spineMap map[string]int) []TOCItem {
	var items []TOCItem
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		item := TOCItem{SectionIndex: -1}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.A:
				item.Label = collapseSpace(nodeText(c))
				item.Href = a.resolve(stripFragment(attrVal(c, "href")))
				item.SectionIndex = spineIndex(spineMap, item.Href)
			case atom.Span:
				if item.Label == "" {
					item.Label = collapseSpace(nodeText(c))
				}
			case atom.Ol, atom.Ul:
				item.Children = a.parseNavList(c, spineMap)
			}
		}
		if item.Label != "" || len(item.Children) > 0 {
			items = append(items, item)
		}
	}
	return items
}

func spineIndex(spineMap map[string]int, href string) int {
	if i, ok := spineMap[strings.ToLower(href)]; ok {
		return i
	}
	return -1
}

func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// baseName is a fragment-safe base name for spine-derived TOC labels.
func baseName(href string) string {
	href = stripFragment(href)
	if i := strings.LastIndexByte(href, '/'); i >= 0 {
		href = href[i+1:]
	}
	if i := strings.LastIndexByte(href, '.'); i > 0 {
		href = href[:i]
	}
	return href
}
