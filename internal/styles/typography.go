package styles

// ViewMode selects how the render surface lays out content.
type ViewMode string

const (
	ViewPaginated ViewMode = "paginated"
	ViewScrolled  ViewMode = "scrolled"
)

// Alignment of paragraph text.
type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignJustify Alignment = "justify"
	AlignCenter  Alignment = "center"
)

// Typography is the full typographic configuration for a reading session.
// Pure value object: changing any field re-styles the content, and changing
// a layout-affecting field additionally regenerates the location index.
type Typography struct {
	ThemeID          string    `json:"theme" yaml:"theme"`
	FontFamily       string    `json:"font_family" yaml:"font_family"`
	FontSize         int       `json:"font_size" yaml:"font_size"` // UI offers 12-32; engine assumes no bounds
	LineHeight       float64   `json:"line_height" yaml:"line_height"`
	LetterSpacing    float64   `json:"letter_spacing" yaml:"letter_spacing"`
	TextAlign        Alignment `json:"text_align" yaml:"text_align"`
	MarginHorizontal int       `json:"margin_horizontal" yaml:"margin_horizontal"`
	MarginVertical   int       `json:"margin_vertical" yaml:"margin_vertical"`
	MaxWidth         int       `json:"max_width" yaml:"max_width"`
	ParagraphSpacing int       `json:"paragraph_spacing" yaml:"paragraph_spacing"`
	Mode             ViewMode  `json:"view_mode" yaml:"view_mode"`
	Spread           bool      `json:"two_page_spread" yaml:"two_page_spread"`
}

// DefaultTypography returns the configuration used for new sessions.
func DefaultTypography() Typography {
	return Typography{
		ThemeID:          "light",
		FontFamily:       "serif",
		FontSize:         16,
		LineHeight:       1.0,
		TextAlign:        AlignLeft,
		MarginHorizontal: 2,
		MarginVertical:   1,
		MaxWidth:         80,
		ParagraphSpacing: 1,
		Mode:             ViewPaginated,
	}
}

// LayoutAffecting reports whether switching from prev to next changes the
// geometry of laid-out content, which makes the location index stale. Theme
// and font family are purely visual here.
func LayoutAffecting(prev, next Typography) bool {
	return prev.FontSize != next.FontSize ||
		prev.LineHeight != next.LineHeight ||
		prev.LetterSpacing != next.LetterSpacing ||
		prev.MarginHorizontal != next.MarginHorizontal ||
		prev.MarginVertical != next.MarginVertical ||
		prev.MaxWidth != next.MaxWidth ||
		prev.ParagraphSpacing != next.ParagraphSpacing ||
		prev.Mode != next.Mode ||
		prev.Spread != next.Spread
}
