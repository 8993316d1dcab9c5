package views

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/foliolabs/folio/internal/epub"
	"github.com/foliolabs/folio/pkg/models"
)

// searchProbeStyle is a no-op style so assertions see plain text.
func searchProbeStyle() lipgloss.Style {
	return lipgloss.NewStyle()
}

func TestRenderProgressBarBounds(t *testing.T) {
	if got := renderProgressBar(0, 10); strings.ContainsRune(got, '█') {
		t.Errorf("empty bar contains filled cells: %q", got)
	}
	full := renderProgressBar(1, 10)
	if strings.Count(full, "█") != 10 {
		t.Errorf("full bar = %q, want 10 filled cells", full)
	}
	// Out-of-range fractions clamp rather than panic.
	if got := renderProgressBar(2.5, 10); got != full {
		t.Errorf("overfull bar = %q, want %q", got, full)
	}
	if got := renderProgressBar(0.5, 0); got != "" {
		t.Errorf("zero-width bar = %q, want empty", got)
	}
}

func TestFormatReadingTime(t *testing.T) {
	cases := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3540, "59m"},
		{3600, "1h 0m"},
		{12240, "3h 24m"},
	}
	for _, tc := range cases {
		if got := formatReadingTime(tc.secs); got != tc.want {
			t.Errorf("formatReadingTime(%d) = %q, want %q", tc.secs, got, tc.want)
		}
	}
}

func TestFlattenTOCPreservesOrderAndDepth(t *testing.T) {
	toc := []epub.TOCItem{
		{Label: "Sowing", SectionIndex: 0, Children: []epub.TOCItem{
			{Label: "The One Thing Needful", SectionIndex: 0},
			{Label: "Murdering the Innocents", SectionIndex: 1},
		}},
		{Label: "Reaping", SectionIndex: 2},
	}

	got := flattenTOC(toc, 0)
	want := []tocEntry{
		{label: "Sowing", section: 0, depth: 0},
		{label: "The One Thing Needful", section: 0, depth: 1},
		{label: "Murdering the Innocents", section: 1, depth: 1},
		{label: "Reaping", section: 2, depth: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("flattened entries = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHighlightColorForKey(t *testing.T) {
	if got := highlightColorForKey("1"); got != models.ColorYellow {
		t.Errorf("key 1 = %q, want yellow", got)
	}
	if got := highlightColorForKey("4"); got != models.ColorPink {
		t.Errorf("key 4 = %q, want pink", got)
	}
}

func TestDecorateRunFoldMatchesCaseInsensitively(t *testing.T) {
	got := decorateRunFold("Now, what I want is Facts.", "facts", searchProbeStyle())
	if !strings.Contains(got, "Facts") {
		t.Errorf("decorated line lost the original casing: %q", got)
	}
	// A miss leaves the line untouched.
	line := "teach these boys and girls"
	if got := decorateRunFold(line, "facts", searchProbeStyle()); got != line {
		t.Errorf("non-matching line changed: %q", got)
	}
}

func TestDecorateHighlightCoversWrappedLines(t *testing.T) {
	marker := lipgloss.NewStyle().Transform(func(s string) string { return "«" + s + "»" })
	text := "want is facts teach these"

	cases := []struct{ line, want string }{
		// Highlight starts mid-line: only its opening span is styled.
		{"now what I want is facts", "now what I «want is facts»"},
		// Highlight ends mid-line: only its closing span is styled.
		{"teach these boys and girls", "«teach these» boys and girls"},
		// Middle line fully inside the highlight.
		{"is facts teach", "«is facts teach»"},
		// Unrelated line stays untouched.
		{"nothing sir nothing", "nothing sir nothing"},
	}
	for _, tc := range cases {
		if got := decorateHighlight(tc.line, text, marker); got != tc.want {
			t.Errorf("decorateHighlight(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}

	// A highlight contained in one line keeps the plain substring path.
	if got := decorateHighlight("hard facts indeed", "facts", marker); got != "hard «facts» indeed" {
		t.Errorf("single-line decoration = %q", got)
	}
}

func TestOverlapLenRuneAligned(t *testing.T) {
	if got := overlapLen("now what I want", "want is facts"); got != len("want") {
		t.Errorf("overlapLen = %d, want %d", got, len("want"))
	}
	if got := overlapLen("voilà", "à la mode"); got != len("à") {
		t.Errorf("multibyte overlapLen = %d, want %d", got, len("à"))
	}
	if got := overlapLen("abc", "xyz"); got != 0 {
		t.Errorf("disjoint overlapLen = %d, want 0", got)
	}
}
