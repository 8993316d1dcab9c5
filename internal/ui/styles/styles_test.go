package styles

import "testing"

func TestTruncateText(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"Hard Times", 20, "Hard Times"},
		{"Hard Times", 10, "Hard Times"},
		{"Hard Times", 5, "Hard…"},
		{"Hard Times", 1, "…"},
		{"Hard Times", 0, ""},
		{"Ébauche", 4, "Éba…"}, // rune-counted, not byte-counted
	}
	for _, tc := range cases {
		if got := TruncateText(tc.in, tc.width); got != tc.want {
			t.Errorf("TruncateText(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestHighlightStylesCoverAllColors(t *testing.T) {
	for _, color := range []string{"yellow", "green", "blue", "pink", "purple"} {
		if _, ok := HighlightStyles[color]; !ok {
			t.Errorf("no style for highlight color %q", color)
		}
	}
}
