package styles

import (
	"reflect"
	"testing"
)

func TestProjectIdempotent(t *testing.T) {
	cfg := DefaultTypography()
	cfg.ThemeID = "dark"
	cfg.FontSize = 22
	cfg.TextAlign = AlignJustify

	first := Project(cfg)
	second := Project(cfg)

	if !reflect.DeepEqual(first, second) {
		t.Error("Project produced different rule sets for identical config")
	}
}

func TestProjectCoversAllRoles(t *testing.T) {
	rules := Project(DefaultTypography())
	roles := []Role{
		RoleBody, RoleParagraph, RoleHeading, RoleLink,
		RoleImage, RoleCode, RoleTable, RoleBlockquote,
	}
	for _, r := range roles {
		if _, ok := rules[r]; !ok {
			t.Errorf("Project missing rule for role %q", r)
		}
	}
}

func TestProjectThemeColors(t *testing.T) {
	cfg := DefaultTypography()
	cfg.ThemeID = "dark"
	rules := Project(cfg)

	if rules[RoleBody].Background != DarkTheme.Background {
		t.Errorf("body background = %v, want dark theme background", rules[RoleBody].Background)
	}
	if rules[RoleLink].Foreground != DarkTheme.Link {
		t.Errorf("link foreground = %v, want dark theme link accent", rules[RoleLink].Foreground)
	}
	if !rules[RoleBody].Override {
		t.Error("body rule must override document-supplied styling")
	}
}

func TestProjectBreakHints(t *testing.T) {
	rules := Project(DefaultTypography())
	for _, r := range []Role{RoleHeading, RoleImage, RoleTable} {
		if !rules[r].AvoidBreak {
			t.Errorf("role %q should carry an avoid-break hint", r)
		}
	}
	if rules[RoleParagraph].AvoidBreak {
		t.Error("paragraphs may break across pages")
	}
}

func TestThemeByIDFallback(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"light", "light"},
		{"sepia", "sepia"},
		{"dark", "dark"},
		{"true-black", "true-black"},
		{"solarized", "light"}, // unknown falls back to light
		{"", "light"},
	}
	for _, tt := range tests {
		if got := ThemeByID(tt.id); got.ID != tt.want {
			t.Errorf("ThemeByID(%q).ID = %q, want %q", tt.id, got.ID, tt.want)
		}
	}
}

func TestNextThemeCycles(t *testing.T) {
	seen := map[string]bool{}
	id := "light"
	for range Themes {
		seen[id] = true
		id = NextTheme(id).ID
	}
	if id != "light" {
		t.Errorf("theme cycle did not return to light, ended at %q", id)
	}
	if len(seen) != len(Themes) {
		t.Errorf("cycle visited %d themes, want %d", len(seen), len(Themes))
	}
}

func TestLayoutAffecting(t *testing.T) {
	base := DefaultTypography()

	visual := base
	visual.ThemeID = "sepia"
	visual.FontFamily = "sans"
	if LayoutAffecting(base, visual) {
		t.Error("theme/font-family change should not invalidate layout")
	}

	layout := base
	layout.FontSize = 24
	if !LayoutAffecting(base, layout) {
		t.Error("font size change must invalidate layout")
	}

	mode := base
	mode.Mode = ViewScrolled
	if !LayoutAffecting(base, mode) {
		t.Error("view mode change must invalidate layout")
	}

	spread := base
	spread.Spread = true
	if !LayoutAffecting(base, spread) {
		t.Error("spread change must invalidate layout")
	}
}
