package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foliolabs/folio/internal/store"
	"github.com/foliolabs/folio/internal/ui/styles"
	"github.com/foliolabs/folio/pkg/models"
)

// CollectionsView lists the user's collections and the books inside them
type CollectionsView struct {
	store *store.Store

	collections []models.Collection
	cursor      int

	// Drill-down into one collection
	opened      *models.Collection
	books       []models.Book
	bookCursor  int

	// New collection prompt
	nameMode  bool
	nameInput string

	loading bool
	err     error

	width  int
	height int
}

// NewCollectionsView creates a new collections view
func NewCollectionsView(st *store.Store) *CollectionsView {
	return &CollectionsView{
		store:  st,
		width:  80,
		height: 24,
	}
}

// collectionsLoadedMsg is sent when the collection list is loaded
type collectionsLoadedMsg struct {
	collections []models.Collection
	err         error
}

// collectionBooksMsg is sent when one collection's books are loaded
type collectionBooksMsg struct {
	books []models.Book
	err   error
}

// Init implements View
func (v *CollectionsView) Init() tea.Cmd {
	v.loading = true
	v.opened = nil
	return v.loadCollections()
}

// Update implements View
func (v *CollectionsView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.nameMode {
			return v.handleNameKey(msg)
		}
		if v.opened != nil {
			return v.handleBooksKey(msg)
		}
		return v.handleListKey(msg)

	case collectionsLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.collections = msg.collections
		v.err = nil
		if v.cursor >= len(v.collections) {
			v.cursor = max(0, len(v.collections)-1)
		}
		return v, nil

	case collectionBooksMsg:
		if msg.err != nil {
			return v, SendError(msg.err)
		}
		v.books = msg.books
		if v.bookCursor >= len(v.books) {
			v.bookCursor = max(0, len(v.books)-1)
		}
		return v, nil
	}

	return v, nil
}

func (v *CollectionsView) handleListKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return v, SwitchTo(ViewLibrary)
	case "j", "down":
		if v.cursor < len(v.collections)-1 {
			v.cursor++
		}
	case "k", "up":
		if v.cursor > 0 {
			v.cursor--
		}
	case "n":
		v.nameMode = true
		v.nameInput = ""
	case "enter":
		if v.cursor < len(v.collections) {
			c := v.collections[v.cursor]
			v.opened = &c
			v.bookCursor = 0
			return v, v.loadBooks(c.ID)
		}
	}
	return v, nil
}

func (v *CollectionsView) handleBooksKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc", "h":
		v.opened = nil
		v.books = nil
	case "j", "down":
		if v.bookCursor < len(v.books)-1 {
			v.bookCursor++
		}
	case "k", "up":
		if v.bookCursor > 0 {
			v.bookCursor--
		}
	case "d":
		if v.bookCursor < len(v.books) {
			if err := v.store.RemoveFromCollection(v.opened.ID, v.books[v.bookCursor].ID); err != nil {
				return v, SendError(err)
			}
			return v, v.loadBooks(v.opened.ID)
		}
	case "enter":
		if v.bookCursor < len(v.books) {
			return v, OpenBook(v.books[v.bookCursor])
		}
	}
	return v, nil
}

func (v *CollectionsView) handleNameKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.nameMode = false
		return v, nil
	case "enter":
		v.nameMode = false
		name := strings.TrimSpace(v.nameInput)
		if name == "" {
			return v, nil
		}
		if _, err := v.store.CreateCollection(name); err != nil {
			return v, SendError(err)
		}
		return v, v.loadCollections()
	case "backspace":
		if len(v.nameInput) > 0 {
			runes := []rune(v.nameInput)
			v.nameInput = string(runes[:len(runes)-1])
		}
		return v, nil
	}
	if msg.Type == tea.KeyRunes {
		v.nameInput += string(msg.Runes)
	} else if msg.Type == tea.KeySpace {
		v.nameInput += " "
	}
	return v, nil
}

// View implements View
func (v *CollectionsView) View() string {
	if v.nameMode {
		dialog := styles.Dialog.Width(min(50, v.width-4)).Render(
			styles.DialogTitle.Render("New Collection") + "\n" +
				styles.InputFieldFocused.Render(v.nameInput+"▌") + "\n\n" +
				styles.Help.Render("enter create · esc cancel"),
		)
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
	}

	var b strings.Builder
	if v.opened != nil {
		b.WriteString(styles.TitleBar.Render(" "+v.opened.Name+" ") + "\n")
		if len(v.books) == 0 {
			b.WriteString(styles.MutedText.Render("  No books in this collection") + "\n")
		}
		for i, book := range v.books {
			line := styles.TruncateText(fmt.Sprintf("%s - %s", book.Title, book.Author), v.width-6)
			if i == v.bookCursor {
				b.WriteString(styles.ListItemSelected.Render(line) + "\n")
			} else {
				b.WriteString(styles.ListItem.Render(line) + "\n")
			}
		}
		b.WriteString("\n" + styles.FooterBar.Render("enter read · d remove · esc back"))
		return b.String()
	}

	b.WriteString(styles.TitleBar.Render(" Collections ") + "\n")

	if v.loading {
		b.WriteString(styles.MutedText.Render("  Loading..."))
		return b.String()
	}
	if v.err != nil {
		b.WriteString(styles.ErrorStyle.Render("Error: " + v.err.Error()))
		return b.String()
	}
	if len(v.collections) == 0 {
		b.WriteString(styles.MutedText.Render("  No collections yet. Press n to create one.") + "\n")
	}
	for i, c := range v.collections {
		if i == v.cursor {
			b.WriteString(styles.ListItemSelected.Render(c.Name) + "\n")
		} else {
			b.WriteString(styles.ListItem.Render(c.Name) + "\n")
		}
	}
	b.WriteString("\n" + styles.FooterBar.Render("enter open · n new · esc back"))
	return b.String()
}

// SetSize implements View
func (v *CollectionsView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// loadCollections fetches the collection list
func (v *CollectionsView) loadCollections() tea.Cmd {
	st := v.store
	return func() tea.Msg {
		cs, err := st.ListCollections()
		return collectionsLoadedMsg{collections: cs, err: err}
	}
}

// loadBooks fetches one collection's books
func (v *CollectionsView) loadBooks(collectionID string) tea.Cmd {
	st := v.store
	return func() tea.Msg {
		books, err := st.CollectionBooks(collectionID)
		return collectionBooksMsg{books: books, err: err}
	}
}
