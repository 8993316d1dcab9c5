package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// buildTestEPub creates an in-memory ZIP archive from the files map
// (path -> content) and returns its bytes.
func buildTestEPub(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestEPub: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("buildTestEPub: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestEPub: close writer: %v", err)
	}
	return buf.Bytes()
}

const testContainer = `<?xml version="1.0"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container" version="1.0">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata>
    <dc:title>Hard Times</dc:title>
    <dc:creator>Charles Dickens</dc:creator>
    <dc:description>A novel of fact and fancy.</dc:description>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover-img" href="cover.jpg" media-type="image/jpeg"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1"><navLabel><text>Sowing</text></navLabel><content src="ch1.xhtml"/></navPoint>
    <navPoint id="np2"><navLabel><text>Reaping</text></navLabel><content src="ch2.xhtml"/>
      <navPoint id="np2a"><navLabel><text>Effects in the Bank</text></navLabel><content src="ch2.xhtml#s1"/></navPoint>
    </navPoint>
  </navMap>
</ncx>`

func testBookFiles() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/toc.ncx":          testNCX,
		"OEBPS/ch1.xhtml": `<html><head><title>x</title></head><body>
			<h1>Sowing</h1><p>The one thing needful.</p><p>Murdering   the
			innocents.</p></body></html>`,
		"OEBPS/ch2.xhtml": `<html><body><h1>Reaping</h1><p>Effects in the bank.</p></body></html>`,
		"OEBPS/cover.jpg": "\xff\xd8\xff fake jpeg bytes",
	}
}

func TestParseMetadataAndSpine(t *testing.T) {
	doc, err := Parse(buildTestEPub(t, testBookFiles()))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if doc.Title != "Hard Times" {
		t.Errorf("Title = %q, want %q", doc.Title, "Hard Times")
	}
	if doc.Author != "Charles Dickens" {
		t.Errorf("Author = %q, want %q", doc.Author, "Charles Dickens")
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(doc.Sections))
	}

	wantBlocks := []string{"Sowing", "The one thing needful.", "Murdering the innocents."}
	got := doc.Sections[0].Blocks
	if len(got) != len(wantBlocks) {
		t.Fatalf("section 0 blocks = %q, want %q", got, wantBlocks)
	}
	for i := range wantBlocks {
		if got[i] != wantBlocks[i] {
			t.Errorf("block[%d] = %q, want %q", i, got[i], wantBlocks[i])
		}
	}
}

func TestParseTOCTree(t *testing.T) {
	doc, err := Parse(buildTestEPub(t, testBookFiles()))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if len(doc.TOC) != 2 {
		t.Fatalf("got %d TOC entries, want 2", len(doc.TOC))
	}
	if doc.TOC[0].Label != "Sowing" || doc.TOC[0].SectionIndex != 0 {
		t.Errorf("TOC[0] = %+v, want label Sowing at section 0", doc.TOC[0])
	}
	if doc.TOC[1].SectionIndex != 1 {
		t.Errorf("TOC[1].SectionIndex = %d, want 1", doc.TOC[1].SectionIndex)
	}
	if len(doc.TOC[1].Children) != 1 {
		t.Fatalf("TOC[1] children = %d, want 1", len(doc.TOC[1].Children))
	}
	// Fragment targets resolve to the same spine section.
	if doc.TOC[1].Children[0].SectionIndex != 1 {
		t.Errorf("nested entry SectionIndex = %d, want 1", doc.TOC[1].Children[0].SectionIndex)
	}

	// TOC labels flow onto sections for chapter display.
	if doc.Sections[1].Title != "Reaping" {
		t.Errorf("section 1 title = %q, want %q", doc.Sections[1].Title, "Reaping")
	}
}

func TestParseDRMProtected(t *testing.T) {
	files := testBookFiles()
	files["META-INF/encryption.xml"] = `<encryption/>`
	_, err := Parse(buildTestEPub(t, files))
	if !errors.Is(err, ErrDRMProtected) {
		t.Errorf("Parse error = %v, want ErrDRMProtected", err)
	}
}

func TestParseNotAZip(t *testing.T) {
	_, err := Parse([]byte("definitely not a zip archive"))
	if !errors.Is(err, ErrInvalidEPub) {
		t.Errorf("Parse error = %v, want ErrInvalidEPub", err)
	}
}

func TestParseMissingOPF(t *testing.T) {
	data := buildTestEPub(t, map[string]string{"mimetype": "application/epub+zip"})
	_, err := Parse(data)
	if !errors.Is(err, ErrInvalidEPub) {
		t.Errorf("Parse error = %v, want ErrInvalidEPub", err)
	}
}

func TestExtractCoverMetaStrategy(t *testing.T) {
	cover, err := ExtractCover(buildTestEPub(t, testBookFiles()), time.Second)
	if err != nil {
		t.Fatalf("ExtractCover returned error: %v", err)
	}
	if cover.Path != "OEBPS/cover.jpg" {
		t.Errorf("cover path = %q, want OEBPS/cover.jpg", cover.Path)
	}
	if cover.MediaType != "image/jpeg" {
		t.Errorf("cover media type = %q, want image/jpeg", cover.MediaType)
	}
	if len(cover.Data) == 0 {
		t.Error("cover data is empty")
	}
}

func TestExtractCoverNone(t *testing.T) {
	files := testBookFiles()
	delete(files, "OEBPS/cover.jpg")
	files["OEBPS/content.opf"] = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata><dc:title>t</dc:title></metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
	_, err := ExtractCover(buildTestEPub(t, files), time.Second)
	if !errors.Is(err, ErrNoCover) {
		t.Errorf("ExtractCover error = %v, want ErrNoCover", err)
	}
}

func TestBlocksShape(t *testing.T) {
	doc, err := Parse(buildTestEPub(t, testBookFiles()))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	blocks := doc.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("Blocks() returned %d sections, want 2", len(blocks))
	}
	if len(blocks[0]) != 3 || len(blocks[1]) != 2 {
		t.Errorf("block counts = %d/%d, want 3/2", len(blocks[0]), len(blocks[1]))
	}
}
