// Package epub turns a raw ePub archive into the parsed document the reading
// engine consumes: metadata, spine-ordered section text split into blocks, a
// hierarchical table of contents, and an optional cover image.
//
// The package is a collaborator with a narrow contract; the engine treats
// parse failures as session-load failures and a missing cover as cosmetic.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

// Document is the immutable parsed representation of one e-book.
type Document struct {
	Title       string
	Author      string
	Description string

	// Sections hold the spine-ordered content. Block boundaries follow the
	// source markup's block-level elements.
	Sections []Section

	// TOC is the navigation tree. Entries carry the spine index they
	// resolve to, -1 when unresolved.
	TOC []TOCItem
}

// Section is one spine item's extracted content.
type Section struct {
	Href   string
	Title  string
	Blocks []string
}

// TOCItem is a single entry in the table of contents tree.
type TOCItem struct {
	Label        string
	Href         string
	SectionIndex int
	Children     []TOCItem
}

// Blocks returns the per-section block text, the shape the location index
// and render surface build from.
func (d *Document) Blocks() [][]string {
	out := make([][]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.Blocks
	}
	return out
}

// containerXML models META-INF/container.xml.
type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// opfPackage models the root <package> element of the OPF file.
type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Titles       []string  `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creators     []string  `xml:"http://purl.org/dc/elements/1.1/ creator"`
		Descriptions []string  `xml:"http://purl.org/dc/elements/1.1/ description"`
		Metas        []opfMeta `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc      string `xml:"toc,attr"`
		ItemRefs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// archive wraps the open ZIP with path lookup helpers and the parsed OPF.
type archive struct {
	zip    *zip.Reader
	files  map[string]*zip.File // lowercase path index
	opfDir string
	opf    *opfPackage
	byID   map[string]manifestItem
}

const containerPath = "META-INF/container.xml"

// Parse reads an ePub archive from memory and produces a Document. DRM
// protected files are rejected with ErrDRMProtected; structural problems
// yield a wrapped ErrInvalidEPub.
func Parse(data []byte) (*Document, error) {
	a, err := openArchive(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Title:       firstOr(a.opf.Metadata.Titles, "Untitled"),
		Author:      firstOr(a.opf.Metadata.Creators, ""),
		Description: firstOr(a.opf.Metadata.Descriptions, ""),
	}

	spineHrefs := a.spineHrefs()
	for _, href := range spineHrefs {
		raw, err := a.readFile(href)
		if err != nil {
			// A missing spine entry degrades to an empty section rather
			// than failing the whole book.
			doc.Sections = append(doc.Sections, Section{Href: href})
			continue
		}
		blocks, err := extractBlocks(raw)
		if err != nil {
			return nil, fmt.Errorf("epub: extract %s: %w", href, err)
		}
		doc.Sections = append(doc.Sections, Section{Href: href, Blocks: blocks})
	}

	doc.TOC = a.parseTOC(spineHrefs)
	labelSections(doc)
	return doc, nil
}

// openArchive validates the ZIP, checks for DRM, and parses container + OPF.
func openArchive(data []byte) (*archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("epub: open archive: %w: %v", ErrInvalidEPub, err)
	}

	a := &archive{zip: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		a.files[strings.ToLower(f.Name)] = f
	}

	if _, ok := a.files["meta-inf/encryption.xml"]; ok {
		return nil, ErrDRMProtected
	}

	opfPath, err := a.findOPFPath()
	if err != nil {
		return nil, err
	}
	a.opfDir = path.Dir(opfPath)

	opfData, err := a.readFile(opfPath)
	if err != nil {
		return nil, fmt.Errorf("epub: read OPF: %w", err)
	}
	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(opfData), &pkg); err != nil {
		return nil, fmt.Errorf("epub: parse OPF: %w", err)
	}
	a.opf = &pkg
	a.byID = make(map[string]manifestItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		a.byID[item.ID] = item
	}
	return a, nil
}

// findOPFPath locates the OPF via container.xml, falling back to scanning
// for any .opf entry.
func (a *archive) findOPFPath() (string, error) {
	if data, err := a.readFile(containerPath); err == nil {
		var c containerXML
		if err := xml.Unmarshal(stripBOM(data), &c); err == nil {
			for _, rf := range c.RootFiles {
				if p := strings.TrimSpace(rf.FullPath); p != "" {
					return p, nil
				}
			}
		}
	}
	for _, f := range a.zip.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("epub: no OPF file found: %w", ErrInvalidEPub)
}

// spineHrefs resolves the linear spine to ZIP-internal paths.
func (a *archive) spineHrefs() []string {
	var hrefs []string
	for _, ref := range a.opf.Spine.ItemRefs {
		if strings.EqualFold(ref.Linear, "no") {
			continue
		}
		item, ok := a.byID[ref.IDRef]
		if !ok {
			continue
		}
		hrefs = append(hrefs, a.resolve(item.Href))
	}
	return hrefs
}

// resolve joins a manifest href to the OPF directory.
func (a *archive) resolve(href string) string {
	if a.opfDir == "." || a.opfDir == "" {
		return href
	}
	return path.Join(a.opfDir, href)
}

// readFile reads a ZIP entry by path, case-insensitively.
func (a *archive) readFile(p string) ([]byte, error) {
	f, ok := a.files[strings.ToLower(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// labelSections copies TOC labels onto the sections they resolve to, so the
// session controller can show a chapter name without re-walking the tree.
func labelSections(doc *Document) {
	var walk func(items []TOCItem)
	walk = func(items []TOCItem) {
		for _, item := range items {
			if item.SectionIndex >= 0 && item.SectionIndex < len(doc.Sections) {
				if doc.Sections[item.SectionIndex].Title == "" {
					doc.Sections[item.SectionIndex].Title = item.Label
				}
			}
			walk(item.Children)
		}
	}
	walk(doc.TOC)
}

// stripBOM removes a leading UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

func firstOr(vals []string, fallback string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return fallback
}
