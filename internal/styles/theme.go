package styles

import "github.com/charmbracelet/lipgloss"

// Theme is a reading color scheme: the {background, text, link} triple
// applied to the content region.
type Theme struct {
	ID          string
	Description string

	Background lipgloss.Color
	Text       lipgloss.Color
	Link       lipgloss.Color
}

// Built-in themes
var (
	// LightTheme is the default black-on-white scheme.
	LightTheme = Theme{
		ID:          "light",
		Description: "Light (default)",
		Background:  lipgloss.Color("#FFFFFF"),
		Text:        lipgloss.Color("#1F2937"),
		Link:        lipgloss.Color("#2563EB"),
	}

	// SepiaTheme is a warm paper-like scheme.
	SepiaTheme = Theme{
		ID:          "sepia",
		Description: "Sepia",
		Background:  lipgloss.Color("#F4ECD8"),
		Text:        lipgloss.Color("#5B4636"),
		Link:        lipgloss.Color("#9A6C3B"),
	}

	// DarkTheme is a low-contrast dark scheme.
	DarkTheme = Theme{
		ID:          "dark",
		Description: "Dark",
		Background:  lipgloss.Color("#1F2937"),
		Text:        lipgloss.Color("#D1D5DB"),
		Link:        lipgloss.Color("#60A5FA"),
	}

	// TrueBlackTheme is pure black, for OLED displays.
	TrueBlackTheme = Theme{
		ID:          "true-black",
		Description: "True black",
		Background:  lipgloss.Color("#000000"),
		Text:        lipgloss.Color("#C9CCD1"),
		Link:        lipgloss.Color("#3B82F6"),
	}
)

// Themes lists the built-in themes in cycling order.
var Themes = []Theme{LightTheme, SepiaTheme, DarkTheme, TrueBlackTheme}

// ThemeByID resolves a theme id. Unknown ids fall back to light.
func ThemeByID(id string) Theme {
	for _, t := range Themes {
		if t.ID == id {
			return t
		}
	}
	return LightTheme
}

// NextTheme returns the theme after id in cycling order.
func NextTheme(id string) Theme {
	for i, t := range Themes {
		if t.ID == id {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return LightTheme
}
