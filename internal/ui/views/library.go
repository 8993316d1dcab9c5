package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foliolabs/folio/internal/config"
	"github.com/foliolabs/folio/internal/store"
	"github.com/foliolabs/folio/internal/ui/styles"
	"github.com/foliolabs/folio/pkg/models"
)

// Sort options
type sortField int

const (
	sortTitle sortField = iota
	sortAuthor
	sortProgress
	sortAdded
)

func (s sortField) Label() string {
	switch s {
	case sortTitle:
		return "Title"
	case sortAuthor:
		return "Author"
	case sortProgress:
		return "Progress"
	case sortAdded:
		return "Added"
	default:
		return "Title"
	}
}

// LibraryView displays the book library
type LibraryView struct {
	store  *store.Store
	config *config.Config

	// Books
	books  []models.Book
	cursor int
	offset int // For scrolling

	// State
	loading          bool
	err              error
	searchMode       bool
	searchInput      textinput.Model
	recentlyReadMode bool
	confirmDelete    bool         // Show delete confirmation
	deleteBook       *models.Book // Book pending deletion

	// Sorting
	sortBy  sortField
	sortAsc bool

	// Dimensions
	width  int
	height int
}

// NewLibraryView creates a new library view
func NewLibraryView(st *store.Store, cfg *config.Config) *LibraryView {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search books..."
	searchInput.CharLimit = 100
	searchInput.Width = 40

	return &LibraryView{
		store:       st,
		config:      cfg,
		sortBy:      sortTitle,
		sortAsc:     true,
		searchInput: searchInput,
		width:       80,
		height:      24,
	}
}

// booksLoadedMsg is sent when books are loaded
type booksLoadedMsg struct {
	books []models.Book
	err   error
}

// bookDeletedMsg is sent when a book is deleted
type bookDeletedMsg struct {
	bookID string
	err    error
}

// Init implements View
func (v *LibraryView) Init() tea.Cmd {
	v.loading = true
	return v.loadBooks()
}

// Update implements View
func (v *LibraryView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Handle delete confirmation mode
		if v.confirmDelete {
			switch msg.String() {
			case "y", "Y":
				v.confirmDelete = false
				if v.deleteBook != nil {
					return v, v.deleteBookCmd(v.deleteBook.ID)
				}
			case "n", "N", "esc":
				v.confirmDelete = false
				v.deleteBook = nil
			}
			return v, nil
		}

		// Handle search mode
		if v.searchMode {
			switch msg.String() {
			case "esc":
				v.searchMode = false
				v.searchInput.Blur()
				return v, nil
			case "enter":
				v.searchMode = false
				v.searchInput.Blur()
				return v, v.loadBooks()
			default:
				var cmd tea.Cmd
				v.searchInput, cmd = v.searchInput.Update(msg)
				return v, cmd
			}
		}

		// Normal mode key handling
		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "g", "home":
			v.cursor = 0
			v.offset = 0
		case "G", "end":
			v.cursor = len(v.books) - 1
			v.updateOffset()
		case "ctrl+d", "pgdown":
			v.moveCursor(v.visibleLines() / 2)
		case "ctrl+u", "pgup":
			v.moveCursor(-v.visibleLines() / 2)
		case "/":
			v.searchMode = true
			v.searchInput.Focus()
			return v, textinput.Blink
		case "s":
			// Cycle sort field
			v.sortBy = (v.sortBy + 1) % 4
			v.applySort()
		case "S":
			// Toggle sort order
			v.sortAsc = !v.sortAsc
			v.applySort()
		case "enter":
			if len(v.books) > 0 && v.cursor < len(v.books) {
				book := v.books[v.cursor]
				return v, OpenBook(book)
			}
		case "r":
			// Toggle recently read filter
			v.recentlyReadMode = !v.recentlyReadMode
			v.cursor = 0
			v.offset = 0
			return v, v.loadBooks()
		case "d":
			// Delete book (with confirmation)
			if len(v.books) > 0 && v.cursor < len(v.books) {
				book := v.books[v.cursor]
				v.deleteBook = &book
				v.confirmDelete = true
			}
		case "i":
			// Show book details
			if len(v.books) > 0 && v.cursor < len(v.books) {
				book := v.books[v.cursor]
				return v, func() tea.Msg {
					return ShowDetailsMsg{Book: book}
				}
			}
		case "c":
			// Collections
			return v, SwitchTo(ViewCollections)
		}

	case booksLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.books = msg.books
		v.err = nil
		v.applySort()
		if v.cursor >= len(v.books) {
			v.cursor = max(0, len(v.books)-1)
		}
		return v, nil

	case bookDeletedMsg:
		v.deleteBook = nil
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		return v, v.loadBooks()

	case BooksChangedMsg:
		return v, v.loadBooks()
	}

	return v, nil
}

// View implements View
func (v *LibraryView) View() string {
	var b strings.Builder

	// Delete confirmation dialog
	if v.confirmDelete && v.deleteBook != nil {
		return v.renderDeleteConfirmation()
	}

	// Header
	header := v.renderHeader()
	b.WriteString(header + "\n")

	// Search bar (if active)
	if v.searchMode {
		searchBar := styles.InputFieldFocused.Render(v.searchInput.View())
		b.WriteString(searchBar + "\n")
	}

	// Loading state
	if v.loading {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.MutedText.Render("Loading books..."),
		)
		b.WriteString(content)
		return b.String()
	}

	// Error state
	if v.err != nil {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.ErrorStyle.Render("Error: "+v.err.Error()),
		)
		b.WriteString(content)
		return b.String()
	}

	// Empty state
	if len(v.books) == 0 {
		hint := "No books found. Import one with: folio -import book.epub"
		if v.recentlyReadMode {
			hint = "Nothing read recently"
		}
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.MutedText.Render(hint),
		)
		b.WriteString(content)
		return b.String()
	}

	// Book list
	visibleLines := v.visibleLines()
	for i := v.offset; i < min(v.offset+visibleLines, len(v.books)); i++ {
		book := v.books[i]
		line := v.renderBookLine(book, i == v.cursor)
		b.WriteString(line + "\n")
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *LibraryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.searchInput.Width = min(40, width-10)
}

// Searching reports whether the search input is capturing keys.
func (v *LibraryView) Searching() bool {
	return v.searchMode
}

// renderHeader renders the header bar
func (v *LibraryView) renderHeader() string {
	titleText := " Library "
	if v.recentlyReadMode {
		titleText = " Recently Read "
	}
	title := styles.TitleBar.Render(titleText)

	// Sort indicator
	sortDir := "↑"
	if !v.sortAsc {
		sortDir = "↓"
	}
	sortInfo := styles.Help.Render(fmt.Sprintf(" Sort: %s %s ", v.sortBy.Label(), sortDir))

	// Search indicator
	searchInfo := ""
	if v.searchInput.Value() != "" {
		searchInfo = styles.SecondaryText.Render(fmt.Sprintf(" [Search: %s]", v.searchInput.Value()))
	}

	countInfo := styles.Help.Render(fmt.Sprintf(" %d books ", len(v.books)))

	left := title + sortInfo + searchInfo
	right := countInfo

	gap := v.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return left + strings.Repeat(" ", gap) + right
}

// renderBookLine renders a single book line
func (v *LibraryView) renderBookLine(book models.Book, selected bool) string {
	status := "  "
	switch book.Status {
	case models.StatusReading:
		status = "▶ "
	case models.StatusFinished:
		status = "✓ "
	}

	progress := ""
	if book.Progress > 0 {
		progress = fmt.Sprintf("  %3.0f%%", book.Progress)
	}

	maxWidth := v.width - 4 - len(status) - lipgloss.Width(progress)
	line := styles.TruncateText(fmt.Sprintf("%s - %s", book.Title, book.Author), maxWidth)

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + status + line + progress)
	}
	return styles.ListItem.Render("  " + status + line + progress)
}

// renderFooter renders the footer help
func (v *LibraryView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" read"),
		styles.HelpKey.Render("i") + styles.Help.Render(" info"),
		styles.HelpKey.Render("/") + styles.Help.Render(" search"),
		styles.HelpKey.Render("s") + styles.Help.Render(" sort"),
		styles.HelpKey.Render("r") + styles.Help.Render(" recent"),
		styles.HelpKey.Render("c") + styles.Help.Render(" collections"),
		styles.HelpKey.Render("d") + styles.Help.Render(" del"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}
	return styles.FooterBar.Render(strings.Join(help, "  "))
}

// renderDeleteConfirmation renders the delete confirmation dialog
func (v *LibraryView) renderDeleteConfirmation() string {
	title := styles.TruncateText(v.deleteBook.Title, 40)

	dialog := styles.Dialog.Width(50).Render(
		styles.DialogTitle.Render("Delete Book?") + "\n\n" +
			styles.BookTitle.Render(title) + "\n" +
			styles.BookAuthor.Render("by "+v.deleteBook.Author) + "\n\n" +
			styles.ErrorStyle.Render("Bookmarks and highlights go with it.") + "\n\n" +
			styles.Help.Render("Press ") +
			styles.HelpKey.Render("y") +
			styles.Help.Render(" to confirm, ") +
			styles.HelpKey.Render("n") +
			styles.Help.Render(" to cancel"),
	)

	return lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Center,
		lipgloss.Center,
		dialog,
	)
}

// deleteBookCmd creates a command to delete a book
func (v *LibraryView) deleteBookCmd(bookID string) tea.Cmd {
	return func() tea.Msg {
		err := v.store.RemoveBook(bookID)
		return bookDeletedMsg{bookID: bookID, err: err}
	}
}

// loadBooks fetches books from the library store
func (v *LibraryView) loadBooks() tea.Cmd {
	query := v.searchInput.Value()
	recent := v.recentlyReadMode
	var recentIDs []string
	if recent && v.config != nil {
		recentIDs = v.config.GetRecentlyReadIDs()
	}

	return func() tea.Msg {
		var (
			books []models.Book
			err   error
		)
		if query != "" {
			books, err = v.store.SearchBooks(query)
		} else {
			books, err = v.store.ListBooks()
		}
		if err != nil {
			return booksLoadedMsg{err: err}
		}

		// Filter and order by recently read if in that mode
		if recent {
			bookByID := make(map[string]models.Book, len(books))
			for _, book := range books {
				bookByID[book.ID] = book
			}
			filtered := make([]models.Book, 0, len(recentIDs))
			for _, id := range recentIDs {
				if book, exists := bookByID[id]; exists {
					filtered = append(filtered, book)
				}
			}
			return booksLoadedMsg{books: filtered}
		}

		return booksLoadedMsg{books: books}
	}
}

// applySort orders the loaded list in place. Recently-read mode keeps its
// own order.
func (v *LibraryView) applySort() {
	if v.recentlyReadMode {
		return
	}
	less := func(a, b models.Book) bool { return a.Title < b.Title }
	switch v.sortBy {
	case sortAuthor:
		less = func(a, b models.Book) bool { return a.Author < b.Author }
	case sortProgress:
		less = func(a, b models.Book) bool { return a.Progress < b.Progress }
	case sortAdded:
		less = func(a, b models.Book) bool { return a.AddedAt.Before(b.AddedAt) }
	}
	sort.SliceStable(v.books, func(i, j int) bool {
		if v.sortAsc {
			return less(v.books[i], v.books[j])
		}
		return less(v.books[j], v.books[i])
	})
}

// moveCursor moves the cursor by delta
func (v *LibraryView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor >= len(v.books) {
		v.cursor = len(v.books) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.updateOffset()
}

// updateOffset ensures the cursor is visible
func (v *LibraryView) updateOffset() {
	visibleLines := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visibleLines {
		v.offset = v.cursor - visibleLines + 1
	}
}

// visibleLines returns the number of visible book lines
func (v *LibraryView) visibleLines() int {
	// Account for header, footer, and margins
	lines := v.height - 5
	if v.searchMode {
		lines--
	}
	if lines < 1 {
		lines = 1
	}
	return lines
}

// Helper functions
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
