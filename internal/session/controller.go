// Package session orchestrates one reading session end to end: it loads the
// document, owns the render surface and location index for the session's
// lifetime, bridges relocation events to the persisted library, accounts
// reading time, and runs the chrome auto-hide timer.
package session

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/foliolabs/folio/internal/address"
	"github.com/foliolabs/folio/internal/epub"
	"github.com/foliolabs/folio/internal/locator"
	"github.com/foliolabs/folio/internal/render"
	"github.com/foliolabs/folio/internal/styles"
	"github.com/foliolabs/folio/pkg/models"
)

// DefaultChromeDelay is how long the chrome stays up after the last activity.
const DefaultChromeDelay = 3 * time.Second

// Library is the slice of the store the controller writes through. Writes
// are best-effort: a failed write is logged and reading continues.
type Library interface {
	GetBook(id string) (models.Book, error)
	UpdateBook(id string, p models.BookPatch) error
	AddReadingTime(id string, secs int64) error
}

// Options configures a session. Zero values select defaults.
type Options struct {
	Typography  styles.Typography
	Width       int
	Height      int
	ChromeDelay time.Duration
	Now         func() time.Time // injectable clock for tests
}

// Controller runs a single reading session. Create with Open, end with
// Close; a closed controller drops all late async results.
type Controller struct {
	lib   Library
	doc   *epub.Document
	index *locator.Index
	surf  *render.Surface

	mu      sync.Mutex
	book    models.Book
	typ     styles.Typography
	chapter string
	closed  bool

	started time.Time
	now     func() time.Time
	close   sync.Once

	chromeDelay   time.Duration
	chromeTimer   *time.Timer
	chromeVisible bool
	panelsOpen    int
	onChrome      func(visible bool)
}

// Open loads the book's file, parses it, lays out the render surface at the
// book's saved location, and starts the location index build. The surface is
// readable when Open returns; indexing continues in the background.
func Open(lib Library, bookID string, opts Options) (*Controller, error) {
	book, err := lib.GetBook(bookID)
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}
	data, err := os.ReadFile(book.FilePath)
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", book.FilePath, err)
	}
	doc, err := epub.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", book.FilePath, err)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ChromeDelay == 0 {
		opts.ChromeDelay = DefaultChromeDelay
	}

	c := &Controller{
		lib:           lib,
		doc:           doc,
		index:         locator.New(0),
		surf:          render.New(),
		book:          book,
		typ:           opts.Typography,
		now:           opts.Now,
		started:       opts.Now(),
		chromeDelay:   opts.ChromeDelay,
		chromeVisible: true,
	}
	c.surf.SetLocator(c.index)
	c.surf.OnRelocation(c.relocated)
	c.index.OnState(func(st locator.State) {
		if st != locator.StateReady {
			return
		}
		log.Printf("session: index %s", c.index.Describe())
		c.refreshProgress()
	})

	blocks := doc.Blocks()
	if err := c.surf.Load(blocks, opts.Typography, opts.Width, opts.Height, address.Address(book.CurrentLocation)); err != nil {
		return nil, fmt.Errorf("session: load surface: %w", err)
	}

	// First page is up; indexing never delays it.
	c.index.BuildAsync(blocks)
	c.scheduleChromeHide()
	return c, nil
}

// Close ends the session: accumulated reading time is written exactly once,
// the surface is destroyed, and pending timers stop. Safe to call from
// multiple teardown paths.
func (c *Controller) Close() {
	c.close.Do(func() {
		c.mu.Lock()
		c.closed = true
		if c.chromeTimer != nil {
			c.chromeTimer.Stop()
			c.chromeTimer = nil
		}
		elapsed := int64(c.now().Sub(c.started).Seconds())
		bookID := c.book.ID
		c.mu.Unlock()

		if elapsed > 0 {
			if err := c.lib.AddReadingTime(bookID, elapsed); err != nil {
				log.Printf("session: recording %ds reading time: %v", elapsed, err)
			}
		}
		c.surf.Destroy()
	})
}

// Document returns the parsed document for the session.
func (c *Controller) Document() *epub.Document { return c.doc }

// Surface returns the session's render surface.
func (c *Controller) Surface() *render.Surface { return c.surf }

// Index returns the session's location index.
func (c *Controller) Index() *locator.Index { return c.index }

// Book returns the session's book record with the controller's cached
// progress state.
func (c *Controller) Book() models.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.book
}

// Chapter returns the label of the TOC entry covering the current position.
func (c *Controller) Chapter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chapter
}

// Next advances one page and counts as activity.
func (c *Controller) Next() error {
	c.Activity()
	return c.surf.Next()
}

// Prev retreats one page and counts as activity.
func (c *Controller) Prev() error {
	c.Activity()
	return c.surf.Prev()
}

// GoToAddress navigates to an address.
func (c *Controller) GoToAddress(a address.Address) error {
	c.Activity()
	return c.surf.GoToAddress(a)
}

// GoToPercentage navigates via the location index.
func (c *Controller) GoToPercentage(pct float64) error {
	c.Activity()
	return c.surf.GoToPercentage(pct)
}

// ApplyStyle applies new typography to the surface. Layout-affecting changes
// mark the index stale so percentage math follows the new layout; the
// displayed address survives either way.
func (c *Controller) ApplyStyle(typ styles.Typography) error {
	c.mu.Lock()
	prev := c.typ
	c.typ = typ
	c.mu.Unlock()

	if err := c.surf.ApplyStyle(typ); err != nil {
		c.mu.Lock()
		c.typ = prev
		c.mu.Unlock()
		return err
	}
	if styles.LayoutAffecting(prev, typ) {
		c.index.MarkStale()
	}
	return nil
}

// Search scans the document for the term, case-insensitive, and returns the
// address of each matching block in document order.
func (c *Controller) Search(term string) []address.Address {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	var out []address.Address
	for si, section := range c.doc.Sections {
		for bi, block := range section.Blocks {
			if off := indexFold(block, term); off >= 0 {
				out = append(out, address.New(si, bi, off))
			}
		}
	}
	return out
}

// indexFold returns the rune offset of the first case-insensitive match of
// term in s, or -1. Matching over runes keeps the offset honest for
// characters whose lowercase form has a different byte length.
func indexFold(s, term string) int {
	sr := []rune(s)
	tr := []rune(term)
	if len(tr) == 0 || len(tr) > len(sr) {
		return -1
	}
	for i := 0; i+len(tr) <= len(sr); i++ {
		if strings.EqualFold(string(sr[i:i+len(tr)]), term) {
			return i
		}
	}
	return -1
}

// relocated bridges a settled move to the persisted book record. Runs on
// whichever goroutine settled the move; late events after Close are dropped.
func (c *Controller) relocated(r render.Relocation) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.chapter = chapterFor(c.doc.TOC, r.SectionIndex)

	loc := string(r.Address)
	patch := models.BookPatch{CurrentLocation: &loc}
	// A pending index reports 0 meaning unknown; persisting that would
	// clobber the saved progress of a resumed book.
	if r.PercentageKnown {
		progress := r.Percentage * 100
		patch.Progress = &progress
		c.book.Progress = progress
	}
	if next := c.book.Status.AdvanceOnProgress(); next != c.book.Status {
		c.book.Status = next
		patch.Status = &next
	}
	c.book.CurrentLocation = loc
	lib, bookID := c.lib, c.book.ID
	c.mu.Unlock()

	if err := lib.UpdateBook(bookID, patch); err != nil {
		log.Printf("session: saving position for %s: %v", bookID, err)
	}
}

// refreshProgress re-settles the current position once the index can price
// it, so a session opened and left alone still records a real percentage.
// Runs on the index build goroutine.
func (c *Controller) refreshProgress() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	a := c.surf.CurrentAddress()
	if a == "" {
		return
	}
	if err := c.surf.GoToAddress(a); err != nil {
		log.Printf("session: refreshing progress: %v", err)
	}
}

// chapterFor resolves the chapter label: the deepest TOC entry whose target
// section matches, later siblings winning ties.
func chapterFor(items []epub.TOCItem, section int) string {
	label, _ := deepestMatch(items, section, 0)
	return label
}

func deepestMatch(items []epub.TOCItem, section, depth int) (string, int) {
	best, bestDepth := "", -1
	for _, item := range items {
		if item.SectionIndex == section && depth >= bestDepth {
			best, bestDepth = item.Label, depth
		}
		if label, d := deepestMatch(item.Children, section, depth+1); d >= bestDepth {
			best, bestDepth = label, d
		}
	}
	return best, bestDepth
}

// OnChrome registers the chrome visibility observer.
func (c *Controller) OnChrome(fn func(visible bool)) {
	c.mu.Lock()
	c.onChrome = fn
	c.mu.Unlock()
}

// ChromeVisible reports whether the chrome is currently shown.
func (c *Controller) ChromeVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chromeVisible
}

// Activity records user interaction: the chrome comes up and the hide timer
// restarts. While a panel is open the timer stays suspended.
func (c *Controller) Activity() {
	c.setChrome(true)
	c.scheduleChromeHide()
}

// ToggleChrome flips chrome visibility, as from a center-zone tap.
func (c *Controller) ToggleChrome() {
	c.setChrome(!c.ChromeVisible())
	c.scheduleChromeHide()
}

// PanelOpened suspends the auto-hide timer while a modal panel is up.
func (c *Controller) PanelOpened() {
	c.mu.Lock()
	c.panelsOpen++
	if c.chromeTimer != nil {
		c.chromeTimer.Stop()
		c.chromeTimer = nil
	}
	c.mu.Unlock()
}

// PanelClosed resumes the auto-hide timer once the last panel closes.
func (c *Controller) PanelClosed() {
	c.mu.Lock()
	if c.panelsOpen > 0 {
		c.panelsOpen--
	}
	c.mu.Unlock()
	c.scheduleChromeHide()
}

func (c *Controller) setChrome(visible bool) {
	c.mu.Lock()
	if c.closed || c.chromeVisible == visible {
		c.mu.Unlock()
		return
	}
	c.chromeVisible = visible
	fn := c.onChrome
	c.mu.Unlock()

	if fn != nil {
		fn(visible)
	}
}

// scheduleChromeHide arms the single hide-timer slot, replacing any pending
// one. No timer runs while the chrome is hidden or a panel is open.
func (c *Controller) scheduleChromeHide() {
	c.mu.Lock()
	if c.chromeTimer != nil {
		c.chromeTimer.Stop()
		c.chromeTimer = nil
	}
	if c.closed || c.panelsOpen > 0 || !c.chromeVisible {
		c.mu.Unlock()
		return
	}
	c.chromeTimer = time.AfterFunc(c.chromeDelay, func() {
		c.setChrome(false)
	})
	c.mu.Unlock()
}
