// Package terminal detects the host terminal's inline-image protocol and
// renders cover art through it. Everything degrades to "no image" on plain
// terminals.
package terminal

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"

	"github.com/BourgeoisBear/rasterm"
)

// TermImageMode represents the terminal's image display capability
type TermImageMode int

const (
	// TermModeNone indicates no image support
	TermModeNone TermImageMode = iota
	// TermModeKitty indicates Kitty graphics protocol support
	TermModeKitty
	// TermModeIterm indicates iTerm2 graphics protocol support
	TermModeIterm
	// TermModeSixel indicates Sixel graphics protocol support
	TermModeSixel
)

// CoverImageID is a stable ID for the book cover image (for Kitty protocol)
const CoverImageID uint32 = 1989

// String returns a human-readable name for the terminal mode
func (m TermImageMode) String() string {
	switch m {
	case TermModeKitty:
		return "Kitty"
	case TermModeIterm:
		return "iTerm2"
	case TermModeSixel:
		return "Sixel"
	default:
		return "None"
	}
}

// DetectTerminalMode checks which image protocol the terminal supports
func DetectTerminalMode() TermImageMode {
	if rasterm.IsKittyCapable() {
		return TermModeKitty
	}
	if rasterm.IsItermCapable() {
		return TermModeIterm
	}
	if capable, _ := rasterm.IsSixelCapable(); capable {
		return TermModeSixel
	}
	return TermModeNone
}

// ImageToPaletted converts an image to a paletted image required for Sixel
func ImageToPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return paletted
}

// RenderImageToString renders an image to a string based on the terminal mode
func RenderImageToString(img image.Image, mode TermImageMode) (string, error) {
	var buf bytes.Buffer
	var renderErr error

	switch mode {
	case TermModeKitty:
		renderErr = rasterm.KittyWriteImage(&buf, img, rasterm.KittyImgOpts{ImageId: CoverImageID})
	case TermModeIterm:
		renderErr = rasterm.ItermWriteImage(&buf, img)
	case TermModeSixel:
		// Write to buffer instead of stdout for proper bubbletea integration
		renderErr = rasterm.SixelWriteImage(&buf, ImageToPaletted(img))
	default:
		return "", nil // No-op for unsupported terminals
	}

	if renderErr != nil {
		return "", renderErr
	}
	return buf.String(), nil
}

// ClearCoverImage returns the escape sequence to clear the cover image area
func ClearCoverImage(mode TermImageMode) string {
	switch mode {
	case TermModeKitty:
		// Kitty graphics protocol: delete the cover by its specific ID
		return fmt.Sprintf("\x1b_Ga=d,i=%d\x1b\\", CoverImageID)
	case TermModeIterm, TermModeSixel:
		// For iTerm2 and Sixel, images are part of the character grid.
		// Clear from line 2 (after header) to end of screen.
		return "\x1b[2;1H\x1b[J"
	default:
		return ""
	}
}
