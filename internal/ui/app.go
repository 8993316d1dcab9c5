// Package ui wires the bubbletea views together: the library, the reader,
// collections, and the book detail pane share one app model that routes
// messages and window sizing.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foliolabs/folio/internal/config"
	"github.com/foliolabs/folio/internal/store"
	"github.com/foliolabs/folio/internal/ui/styles"
	"github.com/foliolabs/folio/internal/ui/views"
)

// errorDisplayTime is how long an error bar stays up before auto-clearing.
const errorDisplayTime = 4 * time.Second

// App is the main application model
type App struct {
	config *config.Config
	store  *store.Store
	keys   KeyMap

	// Current view state
	currentView views.ViewType
	prevView    views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	libraryView     *views.LibraryView
	readerView      *views.ReaderView
	collectionsView *views.CollectionsView
	detailsView     *views.BookDetailsView

	// Error/status message
	err      error
	showHelp bool
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, st *store.Store) *App {
	return &App{
		config:          cfg,
		store:           st,
		keys:            DefaultKeyMap(),
		currentView:     views.ViewLibrary,
		width:           80,
		height:          24,
		libraryView:     views.NewLibraryView(st, cfg),
		readerView:      views.NewReaderView(st, cfg),
		collectionsView: views.NewCollectionsView(st),
		detailsView:     views.NewBookDetailsView(st),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.getCurrentView().Init(),
		tea.SetWindowTitle("folio"),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Propagate to all views
		a.libraryView.SetSize(msg.Width, msg.Height)
		a.readerView.SetSize(msg.Width, msg.Height)
		a.collectionsView.SetSize(msg.Width, msg.Height)
		a.detailsView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global key handling. Most keys belong to the views; only
		// process-level bindings live here.
		if msg.String() == "ctrl+c" {
			a.readerView.CloseSession()
			return a, tea.Quit
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		if a.currentView == views.ViewLibrary && !a.libraryView.Searching() {
			switch {
			case key.Matches(msg, a.keys.Quit):
				return a, tea.Quit
			case key.Matches(msg, a.keys.Help):
				a.showHelp = true
				return a, nil
			}
		}

	case views.OpenBookMsg:
		// Track recently read
		_ = a.config.AddRecentlyRead(msg.Book.ID, msg.Book.Title)
		a.readerView.SetBook(msg.Book)
		return a.switchView(views.ViewReader)

	case views.ShowDetailsMsg:
		a.detailsView.SetBook(msg.Book)
		return a.switchView(views.ViewBookDetails)

	case views.ErrorMsg:
		a.err = msg.Err
		return a, tea.Tick(errorDisplayTime, func(time.Time) tea.Msg {
			return views.ClearErrorMsg{}
		})

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLibrary:
		var next views.View
		next, cmd = a.libraryView.Update(msg)
		a.libraryView = next.(*views.LibraryView)
	case views.ViewReader:
		var next views.View
		next, cmd = a.readerView.Update(msg)
		a.readerView = next.(*views.ReaderView)
	case views.ViewCollections:
		var next views.View
		next, cmd = a.collectionsView.Update(msg)
		a.collectionsView = next.(*views.CollectionsView)
	case views.ViewBookDetails:
		var next views.View
		next, cmd = a.detailsView.Update(msg)
		a.detailsView = next.(*views.BookDetailsView)
	}
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View implements tea.Model
func (a *App) View() string {
	content := a.getCurrentView().View()

	// Add error bar if there's an error
	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}

	// Add help overlay if shown
	if a.showHelp {
		content = a.renderHelp()
	}

	return content
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	// Leaving the reader ends the session: reading time is written and the
	// surface is destroyed.
	if a.currentView == views.ViewReader && view != views.ViewReader {
		a.readerView.CloseSession()
	}

	a.prevView = a.currentView
	a.currentView = view
	a.err = nil

	return a, a.getCurrentView().Init()
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	switch a.currentView {
	case views.ViewReader:
		return a.readerView
	case views.ViewCollections:
		return a.collectionsView
	case views.ViewBookDetails:
		return a.detailsView
	default:
		return a.libraryView
	}
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	help := styles.Dialog.Width(60).Render(
		styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n" +
			styles.HelpKey.Render("Library") + "\n" +
			"  j/k     Move down/up\n" +
			"  Enter   Read book\n" +
			"  i       Book details\n" +
			"  /       Search\n" +
			"  s/S     Sort field / direction\n" +
			"  r       Recently read\n" +
			"  c       Collections\n" +
			"  d       Delete book\n\n" +
			styles.HelpKey.Render("Reader") + "\n" +
			"  Space/l Next page\n" +
			"  h       Previous page\n" +
			"  t       Table of contents\n" +
			"  b/B     Bookmarks / add bookmark\n" +
			"  x       Highlights\n" +
			"  v       Select text to highlight\n" +
			"  /       Search in book\n" +
			"  G       Go to percentage\n" +
			"  o       Typography settings\n" +
			"  T       Cycle theme\n" +
			"  +/-     Font size\n" +
			"  M       Paginated/scrolled\n" +
			"  c       Toggle chrome\n\n" +
			styles.HelpKey.Render("General") + "\n" +
			"  q       Quit/Back\n" +
			"  Esc     Back\n" +
			"  ?       Toggle help\n",
	)

	// Center the help dialog
	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
