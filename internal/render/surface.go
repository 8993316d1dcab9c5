// Package render owns the live, laid-out view of a document's content. It
// wraps section blocks into lines under the current typography, pages or
// scrolls through them, and emits a relocation event on every settled move.
// Layout is cell-based: one rune per column, the terminal's geometry model.
package render

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/foliolabs/folio/internal/address"
	"github.com/foliolabs/folio/internal/styles"
)

// Lifecycle and navigation errors.
var (
	ErrNotReady   = errors.New("render: surface not ready")
	ErrDestroyed  = errors.New("render: surface destroyed")
	ErrOutOfRange = errors.New("render: address out of range")
)

// State is the surface lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateDestroyed
)

// Relocation is emitted on every settled navigation, including reflows
// caused by a resize. Percentage is a [0,1] fraction from the location
// index; PercentageKnown is false while the index is pending, and then
// Percentage is 0 meaning unknown, not start-of-book.
type Relocation struct {
	Address         address.Address
	Page            int
	TotalPages      int
	Percentage      float64
	PercentageKnown bool
	SectionIndex    int
}

// RelocationFunc observes relocations.
type RelocationFunc func(Relocation)

// Locator is the slice of the location index the surface consumes.
type Locator interface {
	Ready() bool
	Length() int
	PercentageFromAddress(address.Address) float64
	AddressFromPercentage(float64) (address.Address, error)
}

// ZoneAction is what a tap in a content zone should do.
type ZoneAction int

const (
	ZoneNone ZoneAction = iota
	ZonePrev
	ZoneToggleChrome
	ZoneNext
)

// ZonePolicy maps a horizontal tap position to an action. The policy is
// supplied by the host UI; different chrome modes disagree on zone layout.
type ZonePolicy func(x, width int) ZoneAction

// ThirdsZones is the default policy: horizontal thirds map to
// {prev, toggle-chrome, next}.
func ThirdsZones(x, width int) ZoneAction {
	if width <= 0 {
		return ZoneNone
	}
	switch {
	case x < width/3:
		return ZonePrev
	case x >= width-width/3:
		return ZoneNext
	default:
		return ZoneToggleChrome
	}
}

// line is one laid-out row with the address of its first rune.
type line struct {
	text string
	pos  address.Pos
}

// Surface is the pagination/render surface. Safe for concurrent use.
type Surface struct {
	mu     sync.Mutex
	state  State
	blocks [][]string
	typ    styles.Typography
	rules  styles.StyleRules

	width  int
	height int
	lines  []line
	offset int // index of the top visible line

	locator    Locator
	onRelocate RelocationFunc
	zones      ZonePolicy

	resizeDebounce time.Duration
	resizeTimer    *time.Timer
}

// New creates an uninitialized surface with the default zone policy.
func New() *Surface {
	return &Surface{
		zones:          ThirdsZones,
		resizeDebounce: 150 * time.Millisecond,
	}
}

// SetLocator wires the location index used for percentage math.
func (s *Surface) SetLocator(l Locator) {
	s.mu.Lock()
	s.locator = l
	s.mu.Unlock()
}

// OnRelocation registers the relocation observer.
func (s *Surface) OnRelocation(fn RelocationFunc) {
	s.mu.Lock()
	s.onRelocate = fn
	s.mu.Unlock()
}

// SetZonePolicy overrides the tap-zone policy.
func (s *Surface) SetZonePolicy(p ZonePolicy) {
	s.mu.Lock()
	s.zones = p
	s.mu.Unlock()
}

// SetResizeDebounce overrides the resize debounce interval; 0 reflows
// synchronously. Intended for tests.
func (s *Surface) SetResizeDebounce(d time.Duration) {
	s.mu.Lock()
	s.resizeDebounce = d
	s.mu.Unlock()
}

// State returns the lifecycle state.
func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load lays out the content and displays the resume address, or the start of
// the document when resume is empty. Entering Ready happens here, before any
// location index exists: first paint never waits for indexing.
func (s *Surface) Load(blocks [][]string, typ styles.Typography, width, height int, resume address.Address) error {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	s.state = StateLoading
	s.blocks = blocks
	s.typ = typ
	s.rules = styles.Project(typ)
	s.width = width
	s.height = height
	s.relayoutLocked()
	s.state = StateReady

	if resume != "" {
		if pos, err := address.Parse(resume); err == nil && pos.Section < len(s.blocks) {
			s.offset = s.snapLocked(s.lineIndexLocked(pos))
		}
	}
	reloc := s.relocationLocked()
	fn := s.onRelocate
	s.mu.Unlock()

	if fn != nil {
		fn(reloc)
	}
	return nil
}

// Destroy tears the surface down. Idempotent; all operations fail with
// ErrDestroyed afterwards.
func (s *Surface) Destroy() {
	s.mu.Lock()
	s.state = StateDestroyed
	s.lines = nil
	s.blocks = nil
	if s.resizeTimer != nil {
		s.resizeTimer.Stop()
		s.resizeTimer = nil
	}
	s.mu.Unlock()
}

// Next advances one page (or scroll increment). Already at the end is a
// silent no-op: the position clamps, a relocation still fires.
func (s *Surface) Next() error { return s.step(1) }

// Prev retreats one page (or scroll increment), clamping at the start.
func (s *Surface) Prev() error { return s.step(-1) }

func (s *Surface) step(dir int) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.offset = s.clampOffsetLocked(s.offset + dir*s.stepSizeLocked())
	reloc := s.relocationLocked()
	fn := s.onRelocate
	s.mu.Unlock()

	if fn != nil {
		fn(reloc)
	}
	return nil
}

// GoToAddress navigates to an arbitrary address. Malformed or out-of-range
// addresses are reported to the caller; the surface keeps its last good
// position.
func (s *Surface) GoToAddress(a address.Address) error {
	pos, err := address.Parse(a)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if pos.Section >= len(s.blocks) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOutOfRange, a)
	}
	s.offset = s.snapLocked(s.lineIndexLocked(pos))
	reloc := s.relocationLocked()
	fn := s.onRelocate
	s.mu.Unlock()

	if fn != nil {
		fn(reloc)
	}
	return nil
}

// GoToPercentage clamps pct to [0,100] and navigates via the location
// index. Best-effort while the index is pending: the navigation is rejected
// and the caller must handle it.
func (s *Surface) GoToPercentage(pct float64) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	s.mu.Lock()
	loc := s.locator
	s.mu.Unlock()
	if loc == nil || !loc.Ready() {
		return fmt.Errorf("render: go to %.1f%%: %w", pct, ErrNotReady)
	}
	a, err := loc.AddressFromPercentage(pct / 100)
	if err != nil {
		return err
	}
	return s.GoToAddress(a)
}

// Resize reflows the content for a new viewport, preserving the current
// address, and re-emits a relocation. Reflows are debounced so a resize
// storm settles into one relayout.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	if s.state != StateReady {
		s.width = width
		s.height = height
		s.mu.Unlock()
		return
	}
	s.width = width
	s.height = height
	if s.resizeDebounce <= 0 {
		s.reflowLocked()
		reloc := s.relocationLocked()
		fn := s.onRelocate
		s.mu.Unlock()
		if fn != nil {
			fn(reloc)
		}
		return
	}
	if s.resizeTimer != nil {
		s.resizeTimer.Stop()
	}
	s.resizeTimer = time.AfterFunc(s.resizeDebounce, func() {
		s.mu.Lock()
		if s.state != StateReady {
			s.mu.Unlock()
			return
		}
		s.reflowLocked()
		reloc := s.relocationLocked()
		fn := s.onRelocate
		s.mu.Unlock()
		if fn != nil {
			fn(reloc)
		}
	})
	s.mu.Unlock()
}

// ApplyStyle re-projects and re-applies typography, preserving the current
// address. Fails with ErrNotReady when the surface cannot accept style
// mutations yet; callers retry on the next content-rendered event.
func (s *Surface) ApplyStyle(typ styles.Typography) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.typ = typ
	s.rules = styles.Project(typ)
	s.reflowLocked()
	reloc := s.relocationLocked()
	fn := s.onRelocate
	s.mu.Unlock()

	if fn != nil {
		fn(reloc)
	}
	return nil
}

// Tap resolves a tap at column x through the zone policy, performing page
// turns itself and returning the action for the host to handle chrome.
func (s *Surface) Tap(x int) ZoneAction {
	s.mu.Lock()
	policy := s.zones
	width := s.width
	s.mu.Unlock()
	if policy == nil {
		policy = ThirdsZones
	}
	action := policy(x, width)
	switch action {
	case ZonePrev:
		_ = s.Prev()
	case ZoneNext:
		_ = s.Next()
	}
	return action
}

// Rules returns the projected style rules currently applied.
func (s *Surface) Rules() styles.StyleRules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules
}

// Typography returns the configuration currently applied.
func (s *Surface) Typography() styles.Typography {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typ
}

// CurrentAddress returns the address of the top of the visible window.
func (s *Surface) CurrentAddress() address.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || len(s.lines) == 0 {
		return ""
	}
	return s.lines[s.offset].pos.Address()
}

// Page returns the 1-based current page and total page count from native
// pagination.
func (s *Surface) Page() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked()
}

// VisiblePage returns the currently visible lines of text.
func (s *Surface) VisiblePage() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil
	}
	n := s.pageLinesLocked()
	out := make([]string, 0, n)
	for i := s.offset; i < s.offset+n && i < len(s.lines); i++ {
		out = append(out, s.lines[i].text)
	}
	return out
}

// VisibleWindow returns the address range [start, end] currently on screen.
func (s *Surface) VisibleWindow() (start, end address.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || len(s.lines) == 0 {
		return "", ""
	}
	last := s.offset + s.pageLinesLocked() - 1
	if last >= len(s.lines) {
		last = len(s.lines) - 1
	}
	return s.lines[s.offset].pos.Address(), s.lines[last].pos.Address()
}

// Selection maps a visible-line selection to its text and address range,
// the shape the annotation overlay consumes.
func (s *Surface) Selection(fromLine, toLine int) (text string, start, end address.Address, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.readyLocked(); e != nil {
		return "", "", "", e
	}
	if fromLine > toLine {
		fromLine, toLine = toLine, fromLine
	}
	lo := s.offset + fromLine
	hi := s.offset + toLine
	if lo < 0 || lo >= len(s.lines) || hi >= len(s.lines) {
		return "", "", "", ErrOutOfRange
	}
	var parts []string
	for i := lo; i <= hi; i++ {
		if s.lines[i].text != "" {
			parts = append(parts, s.lines[i].text)
		}
	}
	return strings.Join(parts, " "), s.lines[lo].pos.Address(), s.lines[hi].pos.Address(), nil
}

// --- internals ---

func (s *Surface) readyLocked() error {
	switch s.state {
	case StateReady:
		return nil
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrNotReady
	}
}

// columnsLocked derives the text column count from typography: margins and
// max width cap the region, font size scales it down (bigger glyphs, fewer
// columns), letter spacing spreads it further, spread mode halves it.
func (s *Surface) columnsLocked() int {
	cols := s.width - 2*s.typ.MarginHorizontal
	if s.typ.MaxWidth > 0 && cols > s.typ.MaxWidth {
		cols = s.typ.MaxWidth
	}
	if s.typ.FontSize > 0 {
		cols = int(float64(cols) * 16.0 / float64(s.typ.FontSize))
	}
	if s.typ.LetterSpacing > 0 {
		cols = int(float64(cols) / (1 + s.typ.LetterSpacing))
	}
	if s.typ.Spread {
		cols /= 2
	}
	if cols < 20 {
		cols = 20
	}
	return cols
}

// pageLinesLocked is the number of content lines per page under the current
// typography and viewport.
func (s *Surface) pageLinesLocked() int {
	avail := s.height - 2*s.typ.MarginVertical - 2 // header + footer rows
	if s.typ.LineHeight > 1 {
		avail = int(float64(avail) / s.typ.LineHeight)
	}
	if avail < 1 {
		avail = 1
	}
	if s.typ.Spread {
		avail *= 2
	}
	return avail
}

func (s *Surface) stepSizeLocked() int {
	n := s.pageLinesLocked()
	if s.typ.Mode == styles.ViewScrolled {
		if n > 2 {
			return n / 2
		}
		return 1
	}
	return n
}

func (s *Surface) clampOffsetLocked(off int) int {
	if s.typ.Mode == styles.ViewPaginated {
		n := s.pageLinesLocked()
		last := 0
		if len(s.lines) > 0 {
			last = ((len(s.lines) - 1) / n) * n
		}
		if off > last {
			off = last
		}
	} else {
		maxOff := len(s.lines) - s.pageLinesLocked()
		if maxOff < 0 {
			maxOff = 0
		}
		if off > maxOff {
			off = maxOff
		}
	}
	if off < 0 {
		off = 0
	}
	return off
}

// snapLocked aligns a line index to its page boundary in paginated mode.
func (s *Surface) snapLocked(lineIdx int) int {
	if s.typ.Mode == styles.ViewPaginated {
		n := s.pageLinesLocked()
		lineIdx = (lineIdx / n) * n
	}
	return s.clampOffsetLocked(lineIdx)
}

// lineIndexLocked finds the last line starting at or before pos.
func (s *Surface) lineIndexLocked(pos address.Pos) int {
	lo, hi := 0, len(s.lines)-1
	if hi < 0 {
		return 0
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		p := s.lines[mid].pos
		if p.Less(pos) || p == pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// relayoutLocked rebuilds the line model from scratch.
func (s *Surface) relayoutLocked() {
	cols := s.columnsLocked()
	s.lines = s.lines[:0]
	for si, section := range s.blocks {
		for bi, block := range section {
			wrapped := wrapBlock(block, cols)
			for _, w := range wrapped {
				s.lines = append(s.lines, line{
					text: w.text,
					pos:  address.Pos{Section: si, Block: bi, Offset: w.start},
				})
			}
			// Paragraph spacing rows inherit the end-of-block position so
			// line positions stay monotonic.
			endPos := address.Pos{Section: si, Block: bi, Offset: blockRunes(block)}
			for i := 0; i < s.typ.ParagraphSpacing; i++ {
				s.lines = append(s.lines, line{pos: endPos})
			}
		}
	}
	s.offset = s.clampOffsetLocked(s.offset)
}

// reflowLocked relayouts while preserving the current reading position.
func (s *Surface) reflowLocked() {
	var keep address.Pos
	hadLines := len(s.lines) > 0
	if hadLines {
		keep = s.lines[s.offset].pos
	}
	s.relayoutLocked()
	if hadLines {
		s.offset = s.snapLocked(s.lineIndexLocked(keep))
	}
}

func (s *Surface) pageLocked() (current, total int) {
	n := s.pageLinesLocked()
	if len(s.lines) == 0 {
		return 1, 1
	}
	total = (len(s.lines) + n - 1) / n
	current = s.offset/n + 1
	if current > total {
		current = total
	}
	return current, total
}

// relocationLocked snapshots the current position. Percentage comes from
// the location index; while it is pending the fraction reads 0 (unknown).
func (s *Surface) relocationLocked() Relocation {
	cur, total := s.pageLocked()
	r := Relocation{Page: cur, TotalPages: total}
	if len(s.lines) > 0 {
		pos := s.lines[s.offset].pos
		r.Address = pos.Address()
		r.SectionIndex = pos.Section
	}
	if s.locator != nil && s.locator.Ready() {
		r.Percentage = s.locator.PercentageFromAddress(r.Address)
		r.PercentageKnown = true
	}
	return r
}

// wrapped is one wrapped line with its rune offset in the source block.
type wrapped struct {
	text  string
	start int
}

// wrapBlock greedily wraps a block into lines of at most cols runes,
// recording the offset of each line's first word. Words longer than cols
// overflow their line rather than being split.
func wrapBlock(text string, cols int) []wrapped {
	runes := []rune(text)
	var out []wrapped
	var cur []rune
	curStart := -1

	i := 0
	for i < len(runes) {
		for i < len(runes) && runes[i] == ' ' {
			i++
		}
		if i >= len(runes) {
			break
		}
		start := i
		for i < len(runes) && runes[i] != ' ' {
			i++
		}
		word := runes[start:i]
		switch {
		case curStart == -1:
			cur = append(cur[:0], word...)
			curStart = start
		case len(cur)+1+len(word) <= cols:
			cur = append(cur, ' ')
			cur = append(cur, word...)
		default:
			out = append(out, wrapped{string(cur), curStart})
			cur = append(cur[:0], word...)
			curStart = start
		}
	}
	if curStart != -1 {
		out = append(out, wrapped{string(cur), curStart})
	}
	return out
}

func blockRunes(text string) int {
	return len([]rune(text))
}
