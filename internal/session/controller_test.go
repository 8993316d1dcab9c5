package session

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foliolabs/folio/internal/address"
	"github.com/foliolabs/folio/internal/epub"
	"github.com/foliolabs/folio/internal/locator"
	"github.com/foliolabs/folio/internal/styles"
	"github.com/foliolabs/folio/pkg/models"
)

// fakeLibrary is an in-memory Library recording every write.
type fakeLibrary struct {
	mu          sync.Mutex
	book        models.Book
	patches     []models.BookPatch
	readingTime int64
	timeCalls   int
}

func (f *fakeLibrary) GetBook(id string) (models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.book, nil
}

func (f *fakeLibrary) UpdateBook(id string, p models.BookPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, p)
	if p.Status != nil {
		f.book.Status = *p.Status
	}
	if p.Progress != nil {
		f.book.Progress = *p.Progress
	}
	if p.CurrentLocation != nil {
		f.book.CurrentLocation = *p.CurrentLocation
	}
	return nil
}

func (f *fakeLibrary) AddReadingTime(id string, secs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readingTime += secs
	f.timeCalls++
	return nil
}

func (f *fakeLibrary) snapshot() (models.Book, []models.BookPatch, int64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	patches := make([]models.BookPatch, len(f.patches))
	copy(patches, f.patches)
	return f.book, patches, f.readingTime, f.timeCalls
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// writeTestBook builds a small multi-chapter ePub on disk and returns its path.
func writeTestBook(t *testing.T) string {
	t.Helper()
	para := strings.TrimSpace(strings.Repeat("now what I want is facts ", 30))
	files := map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0"?><container xmlns="urn:oasis:names:tc:opendocument:xmlns:container" version="1.0"><rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles></container>`,
		"content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata><dc:title>Hard Times</dc:title><dc:creator>Charles Dickens</dc:creator></metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
  </manifest>
  <spine toc="ncx"><itemref idref="ch1"/><itemref idref="ch2"/></spine>
</package>`,
		"toc.ncx": `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1"><navMap>
  <navPoint id="a"><navLabel><text>Sowing</text></navLabel><content src="ch1.xhtml"/></navPoint>
  <navPoint id="b"><navLabel><text>Reaping</text></navLabel><content src="ch2.xhtml"/>
    <navPoint id="b1"><navLabel><text>The Whelp</text></navLabel><content src="ch2.xhtml#s1"/></navPoint>
  </navPoint>
</navMap></ncx>`,
		"ch1.xhtml": "<html><body><p>" + para + "</p><p>" + para + "</p></body></html>",
		"ch2.xhtml": "<html><body><p>" + para + "</p><p>" + para + "</p></body></html>",
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("writeTestBook: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("writeTestBook: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "hard-times.epub")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions() Options {
	return Options{
		Typography: styles.Typography{
			ThemeID:  "light",
			FontSize: 16,
			MaxWidth: 40,
			Mode:     styles.ViewPaginated,
		},
		Width:       40,
		Height:      12,
		ChromeDelay: time.Hour, // no auto-hide unless a test shortens it
	}
}

func openTestSession(t *testing.T, lib *fakeLibrary, opts Options) *Controller {
	t.Helper()
	if lib.book.ID == "" {
		lib.book = models.Book{
			ID:       "book-1",
			Title:    "Hard Times",
			FilePath: writeTestBook(t),
			Status:   models.StatusWantToRead,
		}
	}
	c, err := Open(lib, lib.book.ID, opts)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitIndexState(t *testing.T, c *Controller, want locator.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Index().State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("index state = %v, want %v", c.Index().State(), want)
}

func TestOpenDisplaysFirstPageBeforeIndexing(t *testing.T) {
	lib := &fakeLibrary{}
	c := openTestSession(t, lib, testOptions())

	// The surface is readable immediately after Open.
	cur, total := c.Surface().Page()
	if cur != 1 || total < 2 {
		t.Errorf("page = %d/%d, want 1 of several", cur, total)
	}
	if c.Document().Title != "Hard Times" {
		t.Errorf("document title = %q", c.Document().Title)
	}
	waitIndexState(t, c, locator.StateReady)
}

func TestRelocationWritesProgressAndFlipsStatus(t *testing.T) {
	lib := &fakeLibrary{}
	c := openTestSession(t, lib, testOptions())
	waitIndexState(t, c, locator.StateReady)

	if err := c.Next(); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	book, patches, _, _ := lib.snapshot()
	if len(patches) == 0 {
		t.Fatal("no book patches written")
	}
	if book.Status != models.StatusReading {
		t.Errorf("status = %q, want reading after progress update", book.Status)
	}
	last := patches[len(patches)-1]
	if last.CurrentLocation == nil || *last.CurrentLocation == "" {
		t.Error("patch missing current location")
	}
	if last.Progress == nil {
		t.Error("patch missing progress")
	}
	if last.Title != nil || last.Author != nil {
		t.Error("relocation patch touched unrelated fields")
	}
}

func TestFinishedStatusNeverRegresses(t *testing.T) {
	lib := &fakeLibrary{book: models.Book{
		ID:       "book-1",
		FilePath: writeTestBook(t),
		Status:   models.StatusFinished,
	}}
	c := openTestSession(t, lib, testOptions())

	if err := c.Next(); err != nil {
		t.Fatal(err)
	}
	book, patches, _, _ := lib.snapshot()
	if book.Status != models.StatusFinished {
		t.Errorf("status = %q, want finished preserved", book.Status)
	}
	for _, p := range patches {
		if p.Status != nil {
			t.Errorf("relocation patched status to %q on a finished book", *p.Status)
		}
	}
}

func TestCloseAccountsReadingTimeOnce(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	opts := testOptions()
	opts.Now = clock.Now

	lib := &fakeLibrary{}
	c := openTestSession(t, lib, opts)

	clock.Advance(300 * time.Second)
	c.Close()
	c.Close() // rapid double teardown must not double-count

	_, _, secs, calls := lib.snapshot()
	if secs != 300 {
		t.Errorf("reading time = %d, want exactly 300", secs)
	}
	if calls != 1 {
		t.Errorf("AddReadingTime called %d times, want 1", calls)
	}
}

func TestCloseWithNoElapsedTimeWritesNothing(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	opts := testOptions()
	opts.Now = clock.Now

	lib := &fakeLibrary{}
	c := openTestSession(t, lib, opts)
	c.Close()

	_, _, secs, calls := lib.snapshot()
	if secs != 0 || calls != 0 {
		t.Errorf("zero-length session wrote %d secs in %d calls, want none", secs, calls)
	}
}

func TestFontSizeChangeRebuildsIndexPreservingAddress(t *testing.T) {
	opts := testOptions()
	opts.Typography.FontSize = 18
	lib := &fakeLibrary{}
	c := openTestSession(t, lib, opts)
	waitIndexState(t, c, locator.StateReady)
	c.Index().SetDebounce(time.Millisecond)

	var mu sync.Mutex
	var states []locator.State
	c.Index().OnState(func(s locator.State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := c.Next(); err != nil {
		t.Fatal(err)
	}
	before, _ := address.Parse(c.Surface().CurrentAddress())

	typ := opts.Typography
	typ.FontSize = 24
	if err := c.ApplyStyle(typ); err != nil {
		t.Fatalf("ApplyStyle returned error: %v", err)
	}
	waitIndexState(t, c, locator.StateReady)

	mu.Lock()
	got := make([]locator.State, len(states))
	copy(got, states)
	mu.Unlock()
	want := []locator.State{locator.StateStale, locator.StateBuilding, locator.StateReady}
	if len(got) < len(want) {
		t.Fatalf("observed states %v, want at least %v", got, want)
	}
	for i, s := range want {
		if got[i] != s {
			t.Fatalf("state transitions = %v, want prefix %v", got, want)
		}
	}

	after, _ := address.Parse(c.Surface().CurrentAddress())
	if before.Less(after) {
		t.Errorf("font change advanced the position: %+v -> %+v", before, after)
	}
}

func TestVisualOnlyChangeSkipsRebuild(t *testing.T) {
	lib := &fakeLibrary{}
	c := openTestSession(t, lib, testOptions())
	waitIndexState(t, c, locator.StateReady)

	typ := testOptions().Typography
	typ.ThemeID = "dark"
	if err := c.ApplyStyle(typ); err != nil {
		t.Fatalf("ApplyStyle returned error: %v", err)
	}
	if got := c.Index().State(); got != locator.StateReady {
		t.Errorf("theme change moved index to %v, want Ready untouched", got)
	}
}

func TestChapterResolution(t *testing.T) {
	toc := []epub.TOCItem{
		{Label: "Sowing", SectionIndex: 0},
		{Label: "Reaping", SectionIndex: 1, Children: []epub.TOCItem{
			{Label: "The Whelp", SectionIndex: 1},
		}},
	}
	tests := []struct {
		section int
		want    string
	}{
		{0, "Sowing"},
		{1, "The Whelp"}, // deepest match wins
		{7, ""},
	}
	for _, tt := range tests {
		if got := chapterFor(toc, tt.section); got != tt.want {
			t.Errorf("chapterFor(section %d) = %q, want %q", tt.section, got, tt.want)
		}
	}
}

func TestSearchFindsBlocks(t *testing.T) {
	lib := &fakeLibrary{}
	c := openTestSession(t, lib, testOptions())

	hits := c.Search("FACTS")
	if len(hits) != 4 { // one hit per paragraph, both chapters
		t.Fatalf("Search returned %d hits, want 4", len(hits))
	}
	pos, err := address.Parse(hits[0])
	if err != nil {
		t.Fatalf("hit address malformed: %v", err)
	}
	if pos.Section != 0 || pos.Block != 0 {
		t.Errorf("first hit at %+v, want section 0 block 0", pos)
	}
	if c.Search("   ") != nil {
		t.Error("blank query returned hits")
	}
}

func TestChromeAutoHideAndPanels(t *testing.T) {
	opts := testOptions()
	opts.ChromeDelay = 20 * time.Millisecond
	lib := &fakeLibrary{}
	c := openTestSession(t, lib, opts)

	waitChrome := func(visible bool) {
		t.Helper()
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if c.ChromeVisible() == visible {
				return
			}
			time.Sleep(time.Millisecond)
		}
		t.Fatalf("chrome visible = %v, want %v", c.ChromeVisible(), visible)
	}

	if !c.ChromeVisible() {
		t.Fatal("chrome hidden at open")
	}
	waitChrome(false) // idles out

	c.Activity()
	if !c.ChromeVisible() {
		t.Fatal("activity did not bring chrome back")
	}

	// An open panel suspends the hide timer entirely.
	c.PanelOpened()
	time.Sleep(60 * time.Millisecond)
	if !c.ChromeVisible() {
		t.Fatal("chrome hid while a panel was open")
	}
	c.PanelClosed()
	waitChrome(false)
}

// waitProgressPatch polls until a patch carrying a progress value arrives.
func waitProgressPatch(t *testing.T, lib *fakeLibrary) models.BookPatch {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, patches, _, _ := lib.snapshot()
		for _, p := range patches {
			if p.Progress != nil {
				return p
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no progress-bearing patch arrived")
	return models.BookPatch{}
}

func TestOpenPreservesSavedProgress(t *testing.T) {
	lib := &fakeLibrary{book: models.Book{
		ID:              "book-1",
		Title:           "Hard Times",
		FilePath:        writeTestBook(t),
		Status:          models.StatusReading,
		Progress:        57,
		CurrentLocation: "epubpos(1/1:0)",
	}}
	c := openTestSession(t, lib, testOptions())

	// The first patch comes from the initial paint, before any index exists:
	// it must carry the location but leave the saved progress alone.
	_, patches, _, _ := lib.snapshot()
	if len(patches) == 0 {
		t.Fatal("open wrote no position patch")
	}
	if patches[0].Progress != nil {
		t.Errorf("patch before indexing wrote progress %v, want none", *patches[0].Progress)
	}
	if patches[0].CurrentLocation == nil {
		t.Error("patch before indexing missing current location")
	}

	waitIndexState(t, c, locator.StateReady)
	waitProgressPatch(t, lib)

	book, patches, _, _ := lib.snapshot()
	for i, p := range patches {
		if p.Progress != nil && *p.Progress == 0 {
			t.Errorf("patch %d zeroed the saved progress", i)
		}
	}
	// Resumed in the final chunk of a two-chunk book.
	if book.Progress != 100 {
		t.Errorf("progress once indexed = %v, want 100", book.Progress)
	}
}

func TestIndexReadyRecordsProgressWithoutNavigation(t *testing.T) {
	lib := &fakeLibrary{}
	c := openTestSession(t, lib, testOptions())
	waitIndexState(t, c, locator.StateReady)

	p := waitProgressPatch(t, lib)
	if p.CurrentLocation == nil {
		t.Error("progress patch missing current location")
	}
	// The session priced its position without the user moving.
	if cur, _ := c.Surface().Page(); cur != 1 {
		t.Errorf("page = %d, want untouched first page", cur)
	}
}

func TestSearchOffsetsSurviveCaseFolding(t *testing.T) {
	// 'İ' lowercases to a longer byte sequence; offsets must stay rune-true.
	if got := indexFold("İİ Facts here", "facts"); got != 3 {
		t.Errorf("indexFold = %d, want rune offset 3", got)
	}
	if got := indexFold("nothing to see", "facts"); got != -1 {
		t.Errorf("indexFold miss = %d, want -1", got)
	}
	if got := indexFold("FACTS", "facts"); got != 0 {
		t.Errorf("indexFold at start = %d, want 0", got)
	}
	if got := indexFold("abc", ""); got != -1 {
		t.Errorf("indexFold with empty term = %d, want -1", got)
	}
}
