// Package styles maps a typography configuration to per-element visual
// rules. Projection is a pure function: the same configuration always
// produces the same rule set, and applying it has no side effects. The
// render surface applies projected rules last so they override any styling
// the document carries — real-world EPUBs hardcode black-on-white text that
// must not survive a dark theme.
package styles

import "github.com/charmbracelet/lipgloss"

// Role identifies the element class a rule applies to.
type Role string

const (
	RoleBody       Role = "body"
	RoleParagraph  Role = "paragraph"
	RoleHeading    Role = "heading"
	RoleLink       Role = "link"
	RoleImage      Role = "image"
	RoleCode       Role = "code"
	RoleTable      Role = "table"
	RoleBlockquote Role = "blockquote"
)

// Rule is the projected visual treatment for one element role. Zero-valued
// fields inherit from the body rule.
type Rule struct {
	FontFamily    string
	FontSize      int
	LineHeight    float64
	LetterSpacing float64
	Align         Alignment
	Foreground    lipgloss.Color
	Background    lipgloss.Color
	PaddingH      int
	PaddingV      int
	MaxWidth      int
	SpacingAfter  int
	Bold          bool
	Italic        bool
	Underline     bool

	// AvoidBreak hints the paginator not to split this element across pages.
	AvoidBreak bool

	// Override forces the rule over document-supplied styling instead of
	// merely supplementing it.
	Override bool
}

// StyleRules is the full projected rule set, keyed by role.
type StyleRules map[Role]Rule

// Project derives the rule set for a typography configuration. Idempotent
// and side-effect-free.
func Project(cfg Typography) StyleRules {
	theme := ThemeByID(cfg.ThemeID)

	body := Rule{
		FontFamily:    cfg.FontFamily,
		FontSize:      cfg.FontSize,
		LineHeight:    cfg.LineHeight,
		LetterSpacing: cfg.LetterSpacing,
		Align:         cfg.TextAlign,
		Foreground:    theme.Text,
		Background:    theme.Background,
		PaddingH:      cfg.MarginHorizontal,
		PaddingV:      cfg.MarginVertical,
		MaxWidth:      cfg.MaxWidth,
		Override:      true,
	}

	paragraph := body
	paragraph.SpacingAfter = cfg.ParagraphSpacing

	heading := body
	heading.Bold = true
	heading.Align = AlignLeft
	heading.SpacingAfter = cfg.ParagraphSpacing + 1
	heading.AvoidBreak = true

	link := body
	link.Foreground = theme.Link
	link.Underline = true

	image := body
	image.Align = AlignCenter
	image.AvoidBreak = true

	code := body
	code.FontFamily = "monospace"
	code.Align = AlignLeft
	code.LetterSpacing = 0

	table := body
	table.Align = AlignLeft
	table.AvoidBreak = true

	blockquote := body
	blockquote.Italic = true
	blockquote.PaddingH = cfg.MarginHorizontal + 2

	return StyleRules{
		RoleBody:       body,
		RoleParagraph:  paragraph,
		RoleHeading:    heading,
		RoleLink:       link,
		RoleImage:      image,
		RoleCode:       code,
		RoleTable:      table,
		RoleBlockquote: blockquote,
	}
}

// ContentStyle renders the body rule as a lipgloss style for the live
// content region.
func ContentStyle(rules StyleRules) lipgloss.Style {
	body := rules[RoleBody]
	return lipgloss.NewStyle().
		Foreground(body.Foreground).
		Background(body.Background).
		Padding(body.PaddingV, body.PaddingH)
}
