package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foliolabs/folio/internal/address"
	"github.com/foliolabs/folio/internal/annotate"
	"github.com/foliolabs/folio/internal/config"
	"github.com/foliolabs/folio/internal/epub"
	"github.com/foliolabs/folio/internal/render"
	"github.com/foliolabs/folio/internal/session"
	"github.com/foliolabs/folio/internal/store"
	reading "github.com/foliolabs/folio/internal/styles"
	"github.com/foliolabs/folio/internal/ui/styles"
	"github.com/foliolabs/folio/pkg/models"
)

// chromeRows is the number of terminal rows reserved for the reader chrome
// (header plus footer). The content surface never competes with it, so
// toggling the chrome never reflows the page.
const chromeRows = 3

// chromeTickInterval is how often the view polls chrome visibility while the
// session's auto-hide timer runs.
const chromeTickInterval = 500 * time.Millisecond

// tocEntry is one flattened table-of-contents row.
type tocEntry struct {
	label   string
	section int
	depth   int
}

// ReaderView displays a book's content and drives the reading session
type ReaderView struct {
	store  *store.Store
	config *config.Config

	book    models.Book
	ctrl    *session.Controller
	overlay *annotate.Overlay
	presets []config.Preset

	// Overlay panel state
	showTOC        bool
	tocEntries     []tocEntry
	tocCursor      int
	showBookmarks  bool
	bookmarks      []models.Bookmark
	bmCursor       int
	showHighlights bool
	highlights     []models.Highlight
	hlCursor       int
	showSettings   bool
	settingsCursor int

	// Text selection for highlighting
	selectMode bool
	selFrom    int
	selTo      int

	// In-chapter search
	searchMode  bool
	searchInput string
	matches     []address.Address
	matchIdx    int
	searchTerm  string

	// Go-to-percentage prompt
	percentMode  bool
	percentInput string

	loading bool
	err     error

	width  int
	height int
}

// NewReaderView creates a new reader view
func NewReaderView(st *store.Store, cfg *config.Config) *ReaderView {
	presets, err := config.LoadPresets()
	if err != nil {
		presets = config.DefaultPresets()
	}
	return &ReaderView{
		store:   st,
		config:  cfg,
		presets: presets,
		width:   80,
		height:  24,
	}
}

// sessionOpenedMsg is sent when the reading session finishes opening
type sessionOpenedMsg struct {
	bookID  string
	ctrl    *session.Controller
	overlay *annotate.Overlay
	err     error
}

// bookmarksLoadedMsg is sent when the bookmark panel data arrives
type bookmarksLoadedMsg struct {
	bookmarks []models.Bookmark
	err       error
}

// chromeTickMsg drives the chrome visibility poll
type chromeTickMsg time.Time

// SetBook sets the book to read. The session opens on Init.
func (v *ReaderView) SetBook(book models.Book) {
	v.CloseSession()
	v.book = book
	v.resetPanels()
	v.matches = nil
	v.searchTerm = ""
}

// CloseSession ends the current session, writing reading time and releasing
// the surface. Safe to call when no session is open.
func (v *ReaderView) CloseSession() {
	if v.overlay != nil {
		v.overlay.Close()
		v.overlay = nil
	}
	if v.ctrl != nil {
		v.ctrl.Close()
		v.ctrl = nil
	}
}

func (v *ReaderView) resetPanels() {
	v.showTOC = false
	v.showBookmarks = false
	v.showHighlights = false
	v.showSettings = false
	v.searchMode = false
	v.percentMode = false
	v.selectMode = false
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	if v.ctrl != nil && v.ctrl.Book().ID == v.book.ID {
		return v.chromeTick()
	}
	v.loading = true
	v.err = nil
	return tea.Batch(v.openSession(), v.chromeTick())
}

// openSession opens the reading session off the update loop
func (v *ReaderView) openSession() tea.Cmd {
	bookID := v.book.ID
	opts := session.Options{
		Typography: v.config.Typography,
		Width:      v.width,
		Height:     v.contentHeight(),
	}
	st := v.store
	return func() tea.Msg {
		ctrl, err := session.Open(st, bookID, opts)
		if err != nil {
			return sessionOpenedMsg{bookID: bookID, err: err}
		}
		overlay, err := annotate.New(st, bookID, ctrl.Index())
		if err != nil {
			ctrl.Close()
			return sessionOpenedMsg{bookID: bookID, err: err}
		}
		return sessionOpenedMsg{bookID: bookID, ctrl: ctrl, overlay: overlay}
	}
}

func (v *ReaderView) chromeTick() tea.Cmd {
	return tea.Tick(chromeTickInterval, func(t time.Time) tea.Msg {
		return chromeTickMsg(t)
	})
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionOpenedMsg:
		if msg.bookID != v.book.ID {
			// A stale open finishing after the user moved on.
			if msg.overlay != nil {
				msg.overlay.Close()
			}
			if msg.ctrl != nil {
				msg.ctrl.Close()
			}
			return v, nil
		}
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.ctrl = msg.ctrl
		v.overlay = msg.overlay
		styles.ApplyReadingTheme(reading.ThemeByID(v.config.Typography.ThemeID))
		return v, nil

	case bookmarksLoadedMsg:
		if msg.err != nil {
			return v, SendError(msg.err)
		}
		v.bookmarks = msg.bookmarks
		if v.bmCursor >= len(v.bookmarks) {
			v.bmCursor = max(0, len(v.bookmarks)-1)
		}
		return v, nil

	case chromeTickMsg:
		// The session's hide timer fires off the update loop; polling keeps
		// the rendered chrome in step with it.
		return v, v.chromeTick()

	case tea.MouseMsg:
		return v.handleMouse(msg)

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleMouse maps taps to content zones
func (v *ReaderView) handleMouse(msg tea.MouseMsg) (View, tea.Cmd) {
	if v.ctrl == nil || msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return v, nil
	}
	if v.anyPanelOpen() {
		return v, nil
	}
	switch v.ctrl.Surface().Tap(msg.X) {
	case render.ZoneNext:
		return v, v.nav(v.ctrl.Next)
	case render.ZonePrev:
		return v, v.nav(v.ctrl.Prev)
	case render.ZoneToggleChrome:
		v.ctrl.ToggleChrome()
	}
	return v, nil
}

// handleKeyMsg processes key input, most specific mode first
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.ctrl == nil {
		return v, nil
	}

	switch {
	case v.searchMode:
		return v.handleSearchKey(msg)
	case v.percentMode:
		return v.handlePercentKey(msg)
	case v.showTOC:
		return v.handleTOCKey(msg)
	case v.showBookmarks:
		return v.handleBookmarksKey(msg)
	case v.showHighlights:
		return v.handleHighlightsKey(msg)
	case v.showSettings:
		return v.handleSettingsKey(msg)
	case v.selectMode:
		return v.handleSelectKey(msg)
	}

	switch msg.String() {
	case "esc", "q":
		return v, SwitchTo(ViewLibrary)
	case " ", "l", "n", "right", "pgdown":
		return v, v.nav(v.ctrl.Next)
	case "h", "p", "left", "pgup":
		return v, v.nav(v.ctrl.Prev)
	case "N":
		return v.gotoMatch(v.matchIdx + 1)
	case "P":
		return v.gotoMatch(v.matchIdx - 1)
	case "t":
		v.openTOC()
	case "b":
		v.showBookmarks = true
		v.bmCursor = 0
		v.ctrl.PanelOpened()
		return v, v.loadBookmarks()
	case "B":
		return v, v.addBookmark()
	case "x":
		v.showHighlights = true
		v.hlCursor = 0
		v.highlights = v.sortedHighlights()
		v.ctrl.PanelOpened()
	case "o":
		v.showSettings = true
		v.settingsCursor = 0
		v.ctrl.PanelOpened()
	case "v":
		v.selectMode = true
		v.selFrom = 0
		v.selTo = 0
	case "/":
		v.searchMode = true
		v.searchInput = ""
		v.ctrl.PanelOpened()
	case "G":
		v.percentMode = true
		v.percentInput = ""
		v.ctrl.PanelOpened()
	case "T":
		return v, v.cycleTheme()
	case "+", "=":
		return v, v.adjustFontSize(1)
	case "-":
		return v, v.adjustFontSize(-1)
	case "M":
		return v, v.toggleMode()
	case "c":
		v.ctrl.ToggleChrome()
	}

	return v, nil
}

// nav runs a navigation call, surfacing hard failures only
func (v *ReaderView) nav(fn func() error) tea.Cmd {
	if err := fn(); err != nil {
		return SendError(err)
	}
	return nil
}

// --- search -----------------------------------------------------------------

func (v *ReaderView) handleSearchKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.searchMode = false
		v.ctrl.PanelClosed()
		return v, nil
	case "enter":
		v.searchMode = false
		v.ctrl.PanelClosed()
		return v.executeSearch()
	case "backspace":
		if len(v.searchInput) > 0 {
			runes := []rune(v.searchInput)
			v.searchInput = string(runes[:len(runes)-1])
		}
		return v, nil
	}
	if msg.Type == tea.KeyRunes {
		v.searchInput += string(msg.Runes)
	} else if msg.Type == tea.KeySpace {
		v.searchInput += " "
	}
	return v, nil
}

func (v *ReaderView) executeSearch() (View, tea.Cmd) {
	term := strings.TrimSpace(v.searchInput)
	if term == "" {
		v.matches = nil
		v.searchTerm = ""
		return v, nil
	}
	v.searchTerm = term
	v.matches = v.ctrl.Search(term)
	if len(v.matches) == 0 {
		return v, SendError(fmt.Errorf("no matches for %q", term))
	}
	v.matchIdx = -1
	return v.gotoMatch(0)
}

func (v *ReaderView) gotoMatch(idx int) (View, tea.Cmd) {
	if len(v.matches) == 0 {
		return v, nil
	}
	if idx < 0 {
		idx = len(v.matches) - 1
	}
	idx %= len(v.matches)
	v.matchIdx = idx
	if err := v.ctrl.GoToAddress(v.matches[idx]); err != nil {
		return v, SendError(err)
	}
	return v, nil
}

// --- go to percentage -------------------------------------------------------

func (v *ReaderView) handlePercentKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.percentMode = false
		v.ctrl.PanelClosed()
		return v, nil
	case "enter":
		v.percentMode = false
		v.ctrl.PanelClosed()
		pct, err := strconv.ParseFloat(strings.TrimSpace(v.percentInput), 64)
		if err != nil {
			return v, SendError(fmt.Errorf("not a percentage: %q", v.percentInput))
		}
		if err := v.ctrl.GoToPercentage(pct); err != nil {
			return v, SendError(err)
		}
		return v, nil
	case "backspace":
		if len(v.percentInput) > 0 {
			v.percentInput = v.percentInput[:len(v.percentInput)-1]
		}
		return v, nil
	}
	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			if (r >= '0' && r <= '9') || r == '.' {
				v.percentInput += string(r)
			}
		}
	}
	return v, nil
}

// --- table of contents ------------------------------------------------------

func (v *ReaderView) openTOC() {
	v.tocEntries = flattenTOC(v.ctrl.Document().TOC, 0)
	v.tocCursor = 0
	v.showTOC = true
	v.ctrl.PanelOpened()
}

func flattenTOC(items []epub.TOCItem, depth int) []tocEntry {
	var out []tocEntry
	for _, item := range items {
		out = append(out, tocEntry{label: item.Label, section: item.SectionIndex, depth: depth})
		out = append(out, flattenTOC(item.Children, depth+1)...)
	}
	return out
}

func (v *ReaderView) handleTOCKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "t", "q":
		v.showTOC = false
		v.ctrl.PanelClosed()
	case "j", "down":
		if v.tocCursor < len(v.tocEntries)-1 {
			v.tocCursor++
		}
	case "k", "up":
		if v.tocCursor > 0 {
			v.tocCursor--
		}
	case "enter":
		v.showTOC = false
		v.ctrl.PanelClosed()
		if v.tocCursor < len(v.tocEntries) {
			entry := v.tocEntries[v.tocCursor]
			if entry.section >= 0 {
				if err := v.ctrl.GoToAddress(address.New(entry.section, 0, 0)); err != nil {
					return v, SendError(err)
				}
			}
		}
	}
	return v, nil
}

// --- bookmarks --------------------------------------------------------------

func (v *ReaderView) loadBookmarks() tea.Cmd {
	st, bookID := v.store, v.book.ID
	return func() tea.Msg {
		bms, err := st.ListBookmarks(bookID)
		return bookmarksLoadedMsg{bookmarks: bms, err: err}
	}
}

func (v *ReaderView) addBookmark() tea.Cmd {
	addr := v.ctrl.Surface().CurrentAddress()
	note := v.ctrl.Chapter()
	st, bookID := v.store, v.book.ID
	return func() tea.Msg {
		if _, err := st.AddBookmark(models.Bookmark{
			BookID:   bookID,
			Location: string(addr),
			Note:     note,
		}); err != nil {
			return ErrorMsg{Err: err}
		}
		return nil
	}
}

func (v *ReaderView) handleBookmarksKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "b", "q":
		v.showBookmarks = false
		v.ctrl.PanelClosed()
	case "j", "down":
		if v.bmCursor < len(v.bookmarks)-1 {
			v.bmCursor++
		}
	case "k", "up":
		if v.bmCursor > 0 {
			v.bmCursor--
		}
	case "d":
		if v.bmCursor < len(v.bookmarks) {
			id := v.bookmarks[v.bmCursor].ID
			if err := v.store.RemoveBookmark(id); err != nil {
				return v, SendError(err)
			}
			return v, v.loadBookmarks()
		}
	case "enter":
		if v.bmCursor < len(v.bookmarks) {
			bm := v.bookmarks[v.bmCursor]
			v.showBookmarks = false
			v.ctrl.PanelClosed()
			if err := v.ctrl.GoToAddress(address.Address(bm.Location)); err != nil {
				return v, SendError(err)
			}
		}
	}
	return v, nil
}

// --- highlights -------------------------------------------------------------

// sortedHighlights returns the overlay's decorations in document order.
func (v *ReaderView) sortedHighlights() []models.Highlight {
	if v.overlay == nil {
		return nil
	}
	all := v.overlay.All()
	idx := v.ctrl.Index()
	for i := 1; i < len(all); i++ {
		for j := i; j > 0; j-- {
			c, err := idx.Compare(address.Address(all[j].StartLocation), address.Address(all[j-1].StartLocation))
			if err != nil || c >= 0 {
				break
			}
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	return all
}

func (v *ReaderView) handleHighlightsKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "x", "q":
		v.showHighlights = false
		v.ctrl.PanelClosed()
	case "j", "down":
		if v.hlCursor < len(v.highlights)-1 {
			v.hlCursor++
		}
	case "k", "up":
		if v.hlCursor > 0 {
			v.hlCursor--
		}
	case "d":
		if v.hlCursor < len(v.highlights) {
			if err := v.overlay.Remove(v.highlights[v.hlCursor].ID); err != nil {
				return v, SendError(err)
			}
			v.highlights = v.sortedHighlights()
			if v.hlCursor >= len(v.highlights) {
				v.hlCursor = max(0, len(v.highlights)-1)
			}
		}
	case "enter":
		if v.hlCursor < len(v.highlights) {
			h := v.highlights[v.hlCursor]
			v.showHighlights = false
			v.ctrl.PanelClosed()
			if err := v.ctrl.GoToAddress(address.Address(h.StartLocation)); err != nil {
				return v, SendError(err)
			}
		}
	}
	return v, nil
}

// --- selection --------------------------------------------------------------

func (v *ReaderView) handleSelectKey(msg tea.KeyMsg) (View, tea.Cmd) {
	pageLines := len(v.ctrl.Surface().VisiblePage())
	switch msg.String() {
	case "esc", "v":
		v.selectMode = false
	case "j", "down":
		if v.selTo < pageLines-1 {
			v.selTo++
		}
	case "k", "up":
		if v.selTo > 0 {
			v.selTo--
		}
	case "1", "2", "3", "4", "5":
		color := highlightColorForKey(msg.String())
		return v, v.applyHighlight(color)
	}
	return v, nil
}

func highlightColorForKey(k string) models.HighlightColor {
	switch k {
	case "2":
		return models.ColorGreen
	case "3":
		return models.ColorBlue
	case "4":
		return models.ColorPink
	case "5":
		return models.ColorPurple
	default:
		return models.ColorYellow
	}
}

func (v *ReaderView) applyHighlight(color models.HighlightColor) tea.Cmd {
	from, to := v.selFrom, v.selTo
	if from > to {
		from, to = to, from
	}
	text, start, end, err := v.ctrl.Surface().Selection(from, to)
	v.selectMode = false
	if err != nil {
		return SendError(err)
	}

	// Re-selecting an existing highlight with the same color removes it; a
	// different color replaces it.
	if prev, ok := v.overlay.At(start); ok && prev.Color == color {
		if err := v.overlay.Remove(prev.ID); err != nil {
			return SendError(err)
		}
		return nil
	}
	if _, err := v.overlay.Apply(text, start, end, color); err != nil {
		return SendError(err)
	}
	return nil
}

// --- typography -------------------------------------------------------------

// settingsRows lists the adjustable typography fields in panel order.
var settingsRows = []string{
	"Font size", "Line height", "Paragraph spacing", "Margins",
	"Alignment", "View mode", "Theme", "Preset",
}

func (v *ReaderView) handleSettingsKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "o", "q":
		v.showSettings = false
		v.ctrl.PanelClosed()
	case "j", "down":
		if v.settingsCursor < len(settingsRows)-1 {
			v.settingsCursor++
		}
	case "k", "up":
		if v.settingsCursor > 0 {
			v.settingsCursor--
		}
	case "h", "left", "-":
		return v, v.adjustSetting(-1)
	case "l", "right", "+", "=", "enter":
		return v, v.adjustSetting(1)
	}
	return v, nil
}

func (v *ReaderView) adjustSetting(dir int) tea.Cmd {
	typ := v.ctrl.Surface().Typography()
	switch settingsRows[v.settingsCursor] {
	case "Font size":
		typ.FontSize = clamp(typ.FontSize+dir, 12, 32)
	case "Line height":
		typ.LineHeight += 0.1 * float64(dir)
		if typ.LineHeight < 1.0 {
			typ.LineHeight = 1.0
		}
		if typ.LineHeight > 2.5 {
			typ.LineHeight = 2.5
		}
	case "Paragraph spacing":
		typ.ParagraphSpacing = clamp(typ.ParagraphSpacing+dir, 0, 4)
	case "Margins":
		typ.MarginHorizontal = clamp(typ.MarginHorizontal+dir, 0, 12)
	case "Alignment":
		typ.TextAlign = nextAlignment(typ.TextAlign, dir)
	case "View mode":
		if typ.Mode == reading.ViewPaginated {
			typ.Mode = reading.ViewScrolled
		} else {
			typ.Mode = reading.ViewPaginated
		}
	case "Theme":
		theme := reading.NextTheme(typ.ThemeID)
		typ.ThemeID = theme.ID
	case "Preset":
		if len(v.presets) > 0 {
			typ = v.nextPreset(dir).Typography
		}
	}
	return v.applyTypography(typ)
}

func nextAlignment(a reading.Alignment, dir int) reading.Alignment {
	order := []reading.Alignment{reading.AlignLeft, reading.AlignJustify, reading.AlignCenter}
	for i, cur := range order {
		if cur == a {
			return order[(i+dir+len(order))%len(order)]
		}
	}
	return reading.AlignLeft
}

func (v *ReaderView) nextPreset(dir int) config.Preset {
	cur := 0
	typ := v.ctrl.Surface().Typography()
	for i, p := range v.presets {
		if p.Typography == typ {
			cur = i
			break
		}
	}
	return v.presets[(cur+dir+len(v.presets))%len(v.presets)]
}

// applyTypography pushes the new typography into the session and persists it
func (v *ReaderView) applyTypography(typ reading.Typography) tea.Cmd {
	if err := v.ctrl.ApplyStyle(typ); err != nil {
		return SendError(err)
	}
	styles.ApplyReadingTheme(reading.ThemeByID(typ.ThemeID))
	if err := v.config.SetTypography(typ); err != nil {
		return SendError(err)
	}
	return nil
}

func (v *ReaderView) cycleTheme() tea.Cmd {
	typ := v.ctrl.Surface().Typography()
	typ.ThemeID = reading.NextTheme(typ.ThemeID).ID
	return v.applyTypography(typ)
}

func (v *ReaderView) adjustFontSize(dir int) tea.Cmd {
	typ := v.ctrl.Surface().Typography()
	typ.FontSize = clamp(typ.FontSize+dir, 12, 32)
	return v.applyTypography(typ)
}

func (v *ReaderView) toggleMode() tea.Cmd {
	typ := v.ctrl.Surface().Typography()
	if typ.Mode == reading.ViewPaginated {
		typ.Mode = reading.ViewScrolled
	} else {
		typ.Mode = reading.ViewPaginated
	}
	return v.applyTypography(typ)
}

// --- rendering --------------------------------------------------------------

// View implements View
func (v *ReaderView) View() string {
	if v.loading {
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("Opening "+v.book.Title+"..."))
	}
	if v.err != nil {
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center,
			styles.ErrorStyle.Render("Error: "+v.err.Error()))
	}
	if v.ctrl == nil {
		return ""
	}

	var b strings.Builder
	chrome := v.ctrl.ChromeVisible() || v.anyPanelOpen()

	if chrome {
		b.WriteString(v.renderHeader() + "\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(v.renderContent())

	if chrome {
		b.WriteString("\n" + v.renderFooter())
	}

	page := b.String()

	switch {
	case v.showTOC:
		return v.overlayDialog(v.renderTOC())
	case v.showBookmarks:
		return v.overlayDialog(v.renderBookmarks())
	case v.showHighlights:
		return v.overlayDialog(v.renderHighlights())
	case v.showSettings:
		return v.overlayDialog(v.renderSettings())
	case v.searchMode:
		return v.overlayDialog(v.renderPrompt("Search", v.searchInput))
	case v.percentMode:
		return v.overlayDialog(v.renderPrompt("Go to %", v.percentInput))
	}
	return page
}

func (v *ReaderView) anyPanelOpen() bool {
	return v.showTOC || v.showBookmarks || v.showHighlights || v.showSettings ||
		v.searchMode || v.percentMode
}

// overlayDialog centers a dialog over the reading area
func (v *ReaderView) overlayDialog(dialog string) string {
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
}

func (v *ReaderView) renderHeader() string {
	title := styles.TruncateText(v.book.Title, v.width/2)
	chapter := v.ctrl.Chapter()
	left := styles.ReaderHeader.Render(" " + title + " ")
	right := ""
	if chapter != "" {
		right = styles.SecondaryText.Render(styles.TruncateText(chapter, v.width/3) + " ")
	}
	gap := v.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderContent paints the visible page with decorations: saved highlights,
// the current search match, and any in-progress selection.
func (v *ReaderView) renderContent() string {
	lines := v.ctrl.Surface().VisiblePage()

	var visible []models.Highlight
	if v.overlay != nil {
		start, end := v.ctrl.Surface().VisibleWindow()
		visible = v.overlay.Visible(start, end)
	}

	from, to := v.selFrom, v.selTo
	if from > to {
		from, to = to, from
	}

	var b strings.Builder
	for i, line := range lines {
		out := line
		for _, h := range visible {
			out = decorateHighlight(out, h.Text, styles.HighlightStyles[string(h.Color)])
		}
		if v.searchTerm != "" {
			out = decorateRunFold(out, v.searchTerm, styles.SearchMatchStyle)
		}
		if v.selectMode && i >= from && i <= to {
			out = styles.SelectionStyle.Render(line)
		}
		b.WriteString(styles.ReaderContent.Render(out))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// decorateHighlight styles the part of line covered by the highlight text.
// A highlight wrapped across several lines shows up here as a line fully
// inside the text, or as an edge overlap where it starts or ends mid-line.
func decorateHighlight(line, text string, style lipgloss.Style) string {
	if text == "" || line == "" {
		return line
	}
	if strings.Contains(line, text) {
		return decorateRun(line, text, style)
	}
	if strings.Contains(text, line) {
		return style.Render(line)
	}
	if n := overlapLen(line, text); n > 0 { // starts mid-line
		return line[:len(line)-n] + style.Render(line[len(line)-n:])
	}
	if n := overlapLen(text, line); n > 0 { // ends mid-line
		return style.Render(line[:n]) + line[n:]
	}
	return line
}

// overlapLen is the byte length of the longest suffix of a that is a prefix
// of b, considering only rune-aligned splits.
func overlapLen(a, b string) int {
	limit := len(a)
	if len(b) < limit {
		limit = len(b)
	}
	for n := limit; n > 0; n-- {
		if !utf8.RuneStart(a[len(a)-n]) {
			continue
		}
		if a[len(a)-n:] == b[:n] {
			return n
		}
	}
	return 0
}

// decorateRun styles the first occurrence of run inside line
func decorateRun(line, run string, style lipgloss.Style) string {
	if run == "" {
		return line
	}
	idx := strings.Index(line, run)
	if idx < 0 {
		return line
	}
	return line[:idx] + style.Render(run) + line[idx+len(run):]
}

// decorateRunFold is decorateRun with case-insensitive matching
func decorateRunFold(line, run string, style lipgloss.Style) string {
	if run == "" {
		return line
	}
	idx := strings.Index(strings.ToLower(line), strings.ToLower(run))
	if idx < 0 {
		return line
	}
	end := idx + len(run)
	if end > len(line) {
		end = len(line)
	}
	return line[:idx] + style.Render(line[idx:end]) + line[end:]
}

func (v *ReaderView) renderFooter() string {
	current, total := v.ctrl.Surface().Page()
	book := v.ctrl.Book()

	bar := renderProgressBar(book.Progress/100, v.width/3)
	pageInfo := fmt.Sprintf(" %d/%d ", current, total)
	pctInfo := fmt.Sprintf(" %.0f%% ", book.Progress)
	timeInfo := formatReadingTime(book.ReadingTime)

	left := styles.ReaderProgress.Render(bar) + styles.Help.Render(pctInfo)
	right := styles.Help.Render(timeInfo + " · " + pageInfo)

	gap := v.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderProgressBar renders fraction as a bar of the given width using
// eighth-block characters for the partial cell
func renderProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	cells := fraction * float64(width)
	full := int(cells)
	partials := []rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉'}
	frac := int((cells - float64(full)) * 8)

	var b strings.Builder
	for i := 0; i < full; i++ {
		b.WriteRune('█')
	}
	if full < width && frac > 0 {
		b.WriteRune(partials[frac])
		full++
	}
	for i := full; i < width; i++ {
		b.WriteRune('░')
	}
	return b.String()
}

// formatReadingTime renders accumulated seconds as "3h 24m"
func formatReadingTime(secs int64) string {
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func (v *ReaderView) renderTOC() string {
	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Table of Contents") + "\n")
	if len(v.tocEntries) == 0 {
		b.WriteString(styles.MutedText.Render("No table of contents"))
	}
	maxRows := max(1, v.height-8)
	start := 0
	if v.tocCursor >= maxRows {
		start = v.tocCursor - maxRows + 1
	}
	for i := start; i < min(start+maxRows, len(v.tocEntries)); i++ {
		entry := v.tocEntries[i]
		label := strings.Repeat("  ", entry.depth) + styles.TruncateText(entry.label, 50)
		if i == v.tocCursor {
			b.WriteString(styles.ListItemSelected.Render(label) + "\n")
		} else {
			b.WriteString(styles.ListItem.Render(label) + "\n")
		}
	}
	b.WriteString("\n" + styles.Help.Render("enter jump · esc close"))
	return styles.Dialog.Width(min(60, v.width-4)).Render(b.String())
}

func (v *ReaderView) renderBookmarks() string {
	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Bookmarks") + "\n")
	if len(v.bookmarks) == 0 {
		b.WriteString(styles.MutedText.Render("No bookmarks. Press B while reading to add one."))
	}
	for i, bm := range v.bookmarks {
		label := bm.CreatedAt.Format("Jan 2 15:04")
		if bm.Note != "" {
			label += "  " + styles.TruncateText(bm.Note, 36)
		}
		if i == v.bmCursor {
			b.WriteString(styles.ListItemSelected.Render(label) + "\n")
		} else {
			b.WriteString(styles.ListItem.Render(label) + "\n")
		}
	}
	b.WriteString("\n" + styles.Help.Render("enter jump · d delete · esc close"))
	return styles.Dialog.Width(min(60, v.width-4)).Render(b.String())
}

func (v *ReaderView) renderHighlights() string {
	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Highlights") + "\n")
	if len(v.highlights) == 0 {
		b.WriteString(styles.MutedText.Render("No highlights. Press v while reading to select text."))
	}
	for i, h := range v.highlights {
		swatch := styles.HighlightStyles[string(h.Color)].Render(" ")
		label := swatch + " " + styles.TruncateText(h.Text, 44)
		if i == v.hlCursor {
			b.WriteString(styles.ListItemSelected.Render(label) + "\n")
		} else {
			b.WriteString(styles.ListItem.Render(label) + "\n")
		}
	}
	b.WriteString("\n" + styles.Help.Render("enter jump · d delete · esc close"))
	return styles.Dialog.Width(min(64, v.width-4)).Render(b.String())
}

func (v *ReaderView) renderSettings() string {
	typ := v.ctrl.Surface().Typography()
	values := []string{
		strconv.Itoa(typ.FontSize),
		fmt.Sprintf("%.1f", typ.LineHeight),
		strconv.Itoa(typ.ParagraphSpacing),
		strconv.Itoa(typ.MarginHorizontal),
		string(typ.TextAlign),
		string(typ.Mode),
		typ.ThemeID,
		"↔ cycle",
	}

	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Typography") + "\n")
	for i, row := range settingsRows {
		line := fmt.Sprintf("%-18s %s", row, values[i])
		if i == v.settingsCursor {
			b.WriteString(styles.ListItemSelected.Render(line) + "\n")
		} else {
			b.WriteString(styles.ListItem.Render(line) + "\n")
		}
	}
	b.WriteString("\n" + styles.Help.Render("h/l adjust · esc close"))
	return styles.Dialog.Width(min(48, v.width-4)).Render(b.String())
}

func (v *ReaderView) renderPrompt(label, value string) string {
	content := styles.DialogTitle.Render(label) + "\n" +
		styles.InputFieldFocused.Render(value+"▌") + "\n\n" +
		styles.Help.Render("enter go · esc cancel")
	return styles.Dialog.Width(min(50, v.width-4)).Render(content)
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
	if v.ctrl != nil {
		v.ctrl.Surface().Resize(width, v.contentHeight())
	}
}

func (v *ReaderView) contentHeight() int {
	h := v.height - chromeRows
	if h < 1 {
		h = 1
	}
	return h
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
