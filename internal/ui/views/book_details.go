package views

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"github.com/foliolabs/folio/internal/epub"
	"github.com/foliolabs/folio/internal/store"
	"github.com/foliolabs/folio/internal/ui/styles"
	"github.com/foliolabs/folio/internal/ui/terminal"
	"github.com/foliolabs/folio/pkg/models"
)

// coverMaxPixels bounds the rendered cover so it fits a detail pane
const coverMaxPixels = 320

// BookDetailsView shows one book's metadata, progress, and annotations
type BookDetailsView struct {
	store *store.Store

	book       models.Book
	bookmarks  int
	highlights []models.Highlight
	cover      string // rendered escape sequence, empty when unsupported
	imgMode    terminal.TermImageMode

	// Add-to-collection picker
	pickMode    bool
	collections []models.Collection
	pickCursor  int

	width  int
	height int
}

// NewBookDetailsView creates a new book details view
func NewBookDetailsView(st *store.Store) *BookDetailsView {
	return &BookDetailsView{
		store:   st,
		imgMode: terminal.DetectTerminalMode(),
		width:   80,
		height:  24,
	}
}

// detailsLoadedMsg carries the annotation counts for the detail pane
type detailsLoadedMsg struct {
	bookID     string
	bookmarks  int
	highlights []models.Highlight
}

// coverLoadedMsg carries the rendered cover escape sequence
type coverLoadedMsg struct {
	bookID string
	cover  string
}

// SetBook sets the book whose details are shown
func (v *BookDetailsView) SetBook(book models.Book) {
	v.book = book
	v.cover = ""
	v.bookmarks = 0
	v.highlights = nil
	v.pickMode = false
}

// Init implements View
func (v *BookDetailsView) Init() tea.Cmd {
	return tea.Batch(v.loadDetails(), v.loadCover())
}

// loadDetails counts the book's annotations
func (v *BookDetailsView) loadDetails() tea.Cmd {
	st, book := v.store, v.book
	return func() tea.Msg {
		bms, err := st.ListBookmarks(book.ID)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		hls, err := st.ListHighlights(book.ID)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return detailsLoadedMsg{bookID: book.ID, bookmarks: len(bms), highlights: hls}
	}
}

// loadCover extracts and renders the cover when the terminal can show it
func (v *BookDetailsView) loadCover() tea.Cmd {
	book := v.book
	mode := v.imgMode
	if mode == terminal.TermModeNone {
		return nil
	}
	return func() tea.Msg {
		data, err := os.ReadFile(book.FilePath)
		if err != nil {
			return nil
		}
		cover, err := epub.ExtractCover(data, 0)
		if err != nil {
			return nil
		}
		img, _, err := image.Decode(bytes.NewReader(cover.Data))
		if err != nil {
			return nil
		}
		img = resize.Thumbnail(coverMaxPixels, coverMaxPixels, img, resize.Lanczos3)
		rendered, err := terminal.RenderImageToString(img, mode)
		if err != nil {
			return nil
		}
		return coverLoadedMsg{bookID: book.ID, cover: rendered}
	}
}

// Update implements View
func (v *BookDetailsView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case detailsLoadedMsg:
		if msg.bookID == v.book.ID {
			v.bookmarks = msg.bookmarks
			v.highlights = msg.highlights
		}
		return v, nil

	case coverLoadedMsg:
		if msg.bookID == v.book.ID {
			v.cover = msg.cover
		}
		return v, nil

	case collectionsLoadedMsg:
		if msg.err != nil {
			return v, SendError(msg.err)
		}
		v.collections = msg.collections
		v.pickCursor = 0
		return v, nil

	case tea.KeyMsg:
		if v.pickMode {
			return v.handlePickKey(msg)
		}
		switch msg.String() {
		case "esc", "q":
			return v, SwitchTo(ViewLibrary)
		case "enter":
			return v, OpenBook(v.book)
		case "s":
			return v, v.cycleStatus()
		case "a":
			v.pickMode = true
			return v, v.loadCollections()
		}
	}
	return v, nil
}

func (v *BookDetailsView) handlePickKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "a", "q":
		v.pickMode = false
	case "j", "down":
		if v.pickCursor < len(v.collections)-1 {
			v.pickCursor++
		}
	case "k", "up":
		if v.pickCursor > 0 {
			v.pickCursor--
		}
	case "enter":
		v.pickMode = false
		if v.pickCursor < len(v.collections) {
			c := v.collections[v.pickCursor]
			if err := v.store.AddToCollection(c.ID, v.book.ID); err != nil {
				return v, SendError(err)
			}
		}
	}
	return v, nil
}

func (v *BookDetailsView) loadCollections() tea.Cmd {
	st := v.store
	return func() tea.Msg {
		cs, err := st.ListCollections()
		return collectionsLoadedMsg{collections: cs, err: err}
	}
}

// cycleStatus advances the reading status manually
func (v *BookDetailsView) cycleStatus() tea.Cmd {
	next := models.StatusWantToRead
	switch v.book.Status {
	case models.StatusWantToRead:
		next = models.StatusReading
	case models.StatusReading:
		next = models.StatusFinished
	}
	v.book.Status = next
	st, id := v.store, v.book.ID
	return func() tea.Msg {
		if err := st.UpdateBook(id, models.BookPatch{Status: &next}); err != nil {
			return ErrorMsg{Err: err}
		}
		return BooksChangedMsg{}
	}
}

// View implements View
func (v *BookDetailsView) View() string {
	if v.pickMode {
		var b strings.Builder
		b.WriteString(styles.DialogTitle.Render("Add to Collection") + "\n")
		if len(v.collections) == 0 {
			b.WriteString(styles.MutedText.Render("No collections yet"))
		}
		for i, c := range v.collections {
			if i == v.pickCursor {
				b.WriteString(styles.ListItemSelected.Render(c.Name) + "\n")
			} else {
				b.WriteString(styles.ListItem.Render(c.Name) + "\n")
			}
		}
		b.WriteString("\n" + styles.Help.Render("enter add · esc cancel"))
		dialog := styles.Dialog.Width(min(40, v.width-4)).Render(b.String())
		// A lingering Kitty cover would overlap the dialog.
		clear := ""
		if v.cover != "" {
			clear = terminal.ClearCoverImage(v.imgMode)
		}
		return clear + lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
	}

	var b strings.Builder
	b.WriteString(styles.TitleBar.Render(" Book Details ") + "\n\n")

	b.WriteString("  " + styles.BookTitle.Render(v.book.Title) + "\n")
	if v.book.Author != "" {
		b.WriteString("  " + styles.BookAuthor.Render("by "+v.book.Author) + "\n")
	}
	b.WriteString("\n")

	rows := []struct{ label, value string }{
		{"Status", string(v.book.Status)},
		{"Progress", fmt.Sprintf("%.0f%%", v.book.Progress)},
		{"Reading time", formatReadingTime(v.book.ReadingTime)},
		{"Bookmarks", fmt.Sprintf("%d", v.bookmarks)},
		{"Highlights", fmt.Sprintf("%d", len(v.highlights))},
		{"Added", v.book.AddedAt.Format("Jan 2, 2006")},
		{"File", styles.TruncateText(v.book.FilePath, v.width-20)},
	}
	if len(v.book.Tags) > 0 {
		rows = append(rows, struct{ label, value string }{"Tags", strings.Join(v.book.Tags, ", ")})
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			styles.MutedText.Render(fmt.Sprintf("%-14s", row.label)),
			row.value))
	}

	if len(v.highlights) > 0 {
		b.WriteString("\n  " + styles.SecondaryText.Render("Recent highlights") + "\n")
		shown := v.highlights
		if len(shown) > 3 {
			shown = shown[len(shown)-3:]
		}
		for _, h := range shown {
			swatch := styles.HighlightStyles[string(h.Color)].Render(" ")
			b.WriteString("  " + swatch + " " + styles.TruncateText(h.Text, v.width-10) + "\n")
		}
	}

	if v.cover != "" {
		b.WriteString("\n" + v.cover)
	}

	b.WriteString("\n" + styles.FooterBar.Render("enter read · s status · a add to collection · esc back"))
	return b.String()
}

// SetSize implements View
func (v *BookDetailsView) SetSize(width, height int) {
	v.width = width
	v.height = height
}
