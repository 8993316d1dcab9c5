package styles

import (
	"github.com/charmbracelet/lipgloss"

	reading "github.com/foliolabs/folio/internal/styles"
)

var (
	// Colors
	Primary    = lipgloss.Color("#7C3AED") // Purple
	Secondary  = lipgloss.Color("#06B6D4") // Cyan
	Success    = lipgloss.Color("#10B981") // Green
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Background = lipgloss.Color("#1F2937") // Dark gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
	Border     = lipgloss.Color("#374151") // Gray border

	// Title bar
	TitleBar = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	// Footer bar at the bottom of list views
	FooterBar = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 1)

	// Help text
	Help = lipgloss.NewStyle().
		Foreground(Muted)

	HelpKey = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	// Muted text style
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// Secondary text style
	SecondaryText = lipgloss.NewStyle().
			Foreground(Secondary)

	// Error message
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true).
			Padding(0, 1)

	// Success message
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true).
			Padding(0, 1)

	// Input field
	InputLabel = lipgloss.NewStyle().
			Foreground(Foreground).
			Bold(true)

	InputField = lipgloss.NewStyle().
			Foreground(Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	InputFieldFocused = InputField.
				BorderForeground(Primary)

	// List styles
	ListItem = lipgloss.NewStyle().
			Foreground(Foreground).
			Padding(0, 2)

	ListItemSelected = lipgloss.NewStyle().
				Foreground(Foreground).
				Background(Primary).
				Padding(0, 2).
				Bold(true)

	ListItemDimmed = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 2)

	// Reader styles; ApplyReadingTheme recolors these to follow the
	// reading theme in use.
	ReaderContent = lipgloss.NewStyle().
			Foreground(Foreground)

	ReaderHeader = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	ReaderProgress = lipgloss.NewStyle().
			Foreground(Secondary).
			Align(lipgloss.Right)

	// Dialog/Modal styles
	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(1, 2)

	DialogTitle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	// Book info styles
	BookTitle = lipgloss.NewStyle().
			Foreground(Foreground).
			Bold(true)

	BookAuthor = lipgloss.NewStyle().
			Foreground(Secondary)
)

// HighlightStyles maps highlight color names to the style used to paint the
// highlighted run inside reader content.
var HighlightStyles = map[string]lipgloss.Style{
	"yellow": lipgloss.NewStyle().Background(lipgloss.Color("#B45309")).Foreground(lipgloss.Color("#FFFBEB")),
	"green":  lipgloss.NewStyle().Background(lipgloss.Color("#065F46")).Foreground(lipgloss.Color("#ECFDF5")),
	"blue":   lipgloss.NewStyle().Background(lipgloss.Color("#1E40AF")).Foreground(lipgloss.Color("#EFF6FF")),
	"pink":   lipgloss.NewStyle().Background(lipgloss.Color("#9D174D")).Foreground(lipgloss.Color("#FDF2F8")),
	"purple": lipgloss.NewStyle().Background(lipgloss.Color("#5B21B6")).Foreground(lipgloss.Color("#F5F3FF")),
}

// SelectionStyle paints the in-progress selection while choosing a highlight
// range.
var SelectionStyle = lipgloss.NewStyle().Reverse(true)

// SearchMatchStyle paints the current search match.
var SearchMatchStyle = lipgloss.NewStyle().
	Background(Warning).
	Foreground(lipgloss.Color("#1F2937")).
	Bold(true)

// ApplyReadingTheme recolors the reader styles from the active reading
// theme. Chrome colors stay fixed; only the content area follows the theme.
func ApplyReadingTheme(t reading.Theme) {
	ReaderContent = lipgloss.NewStyle().
		Foreground(t.Text).
		Background(t.Background)

	ReaderProgress = lipgloss.NewStyle().
		Foreground(t.Link).
		Align(lipgloss.Right)
}

// TruncateText shortens s to fit maxWidth, appending an ellipsis when it was
// cut. Counts runes, not bytes.
func TruncateText(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return string(runes[:maxWidth-1]) + "…"
}

// Dimensions returns styled content with proper dimensions
func Dimensions(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Height(height)
}
