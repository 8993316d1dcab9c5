// Package address defines the stable position identifier used throughout the
// reading engine. An Address names a structural location in a document —
// spine section, block within the section, rune offset within the block — so
// it survives re-pagination under different typography.
package address

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidAddress indicates a string that does not parse as an address.
var ErrInvalidAddress = errors.New("address: invalid position identifier")

// Address is an opaque, serializable position identifier. Two addresses are
// comparable only through a location index; callers should not inspect the
// string form.
type Address string

// Pos is the structural decomposition of an Address.
type Pos struct {
	Section int // spine index
	Block   int // block index within the section
	Offset  int // rune offset within the block
}

// New builds an Address from its structural parts. Negative parts are
// clamped to zero.
func New(section, block, offset int) Address {
	if section < 0 {
		section = 0
	}
	if block < 0 {
		block = 0
	}
	if offset < 0 {
		offset = 0
	}
	return Address(fmt.Sprintf("epubpos(%d/%d:%d)", section, block, offset))
}

// Parse decomposes an Address. It returns ErrInvalidAddress for malformed
// input.
func Parse(a Address) (Pos, error) {
	var p Pos
	n, err := fmt.Sscanf(string(a), "epubpos(%d/%d:%d)", &p.Section, &p.Block, &p.Offset)
	if err != nil || n != 3 {
		return Pos{}, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
	}
	if p.Section < 0 || p.Block < 0 || p.Offset < 0 {
		return Pos{}, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
	}
	return p, nil
}

// Address returns the serialized form of p.
func (p Pos) Address() Address {
	return New(p.Section, p.Block, p.Offset)
}

// Less reports whether p precedes q in document order.
func (p Pos) Less(q Pos) bool {
	if p.Section != q.Section {
		return p.Section < q.Section
	}
	if p.Block != q.Block {
		return p.Block < q.Block
	}
	return p.Offset < q.Offset
}

// Index is the subset of the location index the pure conversions need.
// A nil or not-yet-ready index yields 0, which callers must treat as
// "unknown" rather than "start of book".
type Index interface {
	Ready() bool
	PercentageFromAddress(a Address) float64
}

// Percentage converts an address to a [0,1] progress fraction via the
// location index. Total over its domain: a nil index, a pending index, or an
// unparseable address all yield 0.
func Percentage(idx Index, a Address) float64 {
	if idx == nil || !idx.Ready() {
		return 0
	}
	p := idx.PercentageFromAddress(a)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// PageFromPercentage derives a 1-based page number from a progress fraction
// and a chunk count. Inputs are clamped: pct to [0,1], totalChunks to at
// least 1.
func PageFromPercentage(pct float64, totalChunks int) int {
	if totalChunks < 1 {
		totalChunks = 1
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	page := int(math.Round(pct * float64(totalChunks)))
	if page < 1 {
		page = 1
	}
	return page
}
