package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/foliolabs/folio/internal/address"
	"github.com/foliolabs/folio/internal/locator"
	"github.com/foliolabs/folio/internal/styles"
)

// testTypography keeps layout math predictable: no font scaling, no
// paragraph spacing, no margins beyond the minimum.
func testTypography() styles.Typography {
	return styles.Typography{
		ThemeID:          "light",
		FontSize:         16,
		LineHeight:       1.0,
		MarginHorizontal: 0,
		MarginVertical:   0,
		MaxWidth:         40,
		ParagraphSpacing: 0,
		Mode:             styles.ViewPaginated,
	}
}

// testBlocks is three sections of repeated words, long enough to paginate.
func testContent() [][]string {
	para := strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", 20))
	return [][]string{
		{para, para},
		{para},
		{para, para, para},
	}
}

func loadedSurface(t *testing.T) *Surface {
	t.Helper()
	s := New()
	s.SetResizeDebounce(0)
	if err := s.Load(testContent(), testTypography(), 40, 12, ""); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return s
}

// readyLocator builds a locator index synchronously for the test content.
func readyLocator(t *testing.T) *locator.Index {
	t.Helper()
	x := locator.New(600)
	x.BuildAsync(testContent())
	deadline := time.Now().Add(2 * time.Second)
	for !x.Ready() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !x.Ready() {
		t.Fatal("locator never became ready")
	}
	return x
}

func TestLoadEntersReadyAndEmitsRelocation(t *testing.T) {
	s := New()
	var got []Relocation
	s.OnRelocation(func(r Relocation) { got = append(got, r) })

	if s.State() != StateUninitialized {
		t.Fatalf("state = %v, want uninitialized", s.State())
	}
	if err := s.Load(testContent(), testTypography(), 40, 12, ""); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("state = %v, want ready", s.State())
	}
	if len(got) != 1 {
		t.Fatalf("relocations = %d, want 1", len(got))
	}
	if got[0].Page != 1 {
		t.Errorf("initial page = %d, want 1", got[0].Page)
	}
	if got[0].Address != address.New(0, 0, 0) {
		t.Errorf("initial address = %q, want start of book", got[0].Address)
	}
}

func TestRelocationMarksPercentageUnknownUntilIndexReady(t *testing.T) {
	s := loadedSurface(t)

	var relocs []Relocation
	s.OnRelocation(func(r Relocation) { relocs = append(relocs, r) })

	if err := s.Next(); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if len(relocs) != 1 {
		t.Fatalf("relocations = %d, want 1", len(relocs))
	}
	if relocs[0].PercentageKnown {
		t.Errorf("relocation without an index claims a known percentage: %+v", relocs[0])
	}

	s.SetLocator(readyLocator(t))
	if err := s.Next(); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	last := relocs[len(relocs)-1]
	if !last.PercentageKnown {
		t.Errorf("relocation with a ready index not marked known: %+v", last)
	}
}

func TestOperationsRequireReady(t *testing.T) {
	s := New()
	if err := s.Next(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Next before load error = %v, want ErrNotReady", err)
	}
	s.Destroy()
	if err := s.Next(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Next after destroy error = %v, want ErrDestroyed", err)
	}
	if err := s.Load(testContent(), testTypography(), 40, 12, ""); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Load after destroy error = %v, want ErrDestroyed", err)
	}
}

func TestNextAdvancesAndClampsAtEnd(t *testing.T) {
	s := loadedSurface(t)

	_, total := s.Page()
	if total < 2 {
		t.Fatalf("test content should span multiple pages, got %d", total)
	}

	for i := 0; i < total+5; i++ {
		if err := s.Next(); err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
	}
	cur, _ := s.Page()
	if cur != total {
		t.Errorf("page after overshooting = %d, want %d (silent clamp)", cur, total)
	}

	for i := 0; i < total+5; i++ {
		if err := s.Prev(); err != nil {
			t.Fatalf("Prev returned error: %v", err)
		}
	}
	cur, _ = s.Page()
	if cur != 1 {
		t.Errorf("page after rewinding = %d, want 1", cur)
	}
}

func TestScenarioNextEmitsIncreasingPercentages(t *testing.T) {
	s := loadedSurface(t)
	s.SetLocator(readyLocator(t))

	var relocs []Relocation
	s.OnRelocation(func(r Relocation) { relocs = append(relocs, r) })

	for i := 0; i < 3; i++ {
		if err := s.Next(); err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
	}
	if len(relocs) != 3 {
		t.Fatalf("relocated fired %d times, want 3", len(relocs))
	}
	prevPage, prevPct := 0, -1.0
	for i, r := range relocs {
		if r.Page <= prevPage {
			t.Errorf("relocation %d page = %d, want > %d", i, r.Page, prevPage)
		}
		if r.Percentage < prevPct {
			t.Errorf("relocation %d percentage regressed: %v < %v", i, r.Percentage, prevPct)
		}
		prevPage, prevPct = r.Page, r.Percentage
	}
}

func TestGoToAddressResumable(t *testing.T) {
	s := loadedSurface(t)
	x := readyLocator(t)
	s.SetLocator(x)

	target, err := x.AddressFromPercentage(0.6)
	if err != nil {
		t.Fatalf("AddressFromPercentage: %v", err)
	}
	if err := s.GoToAddress(target); err != nil {
		t.Fatalf("GoToAddress returned error: %v", err)
	}

	back := s.CurrentAddress()
	// The read-back address lands within one chunk of the target.
	diff := x.PercentageFromAddress(back) - x.PercentageFromAddress(target)
	tolerance := 1.0 / float64(x.Length()-1)
	if diff > tolerance || diff < -tolerance {
		t.Errorf("resumed address %q differs from target %q by more than one chunk", back, target)
	}
}

func TestGoToAddressFailsSoftly(t *testing.T) {
	s := loadedSurface(t)
	if err := s.Next(); err != nil {
		t.Fatal(err)
	}
	before := s.CurrentAddress()

	if err := s.GoToAddress("not-an-address"); !errors.Is(err, address.ErrInvalidAddress) {
		t.Errorf("malformed address error = %v, want ErrInvalidAddress", err)
	}
	if err := s.GoToAddress(address.New(99, 0, 0)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("out-of-range address error = %v, want ErrOutOfRange", err)
	}
	if got := s.CurrentAddress(); got != before {
		t.Errorf("position moved on failed navigation: %q -> %q", before, got)
	}
}

func TestGoToPercentageRequiresIndex(t *testing.T) {
	s := loadedSurface(t)
	if err := s.GoToPercentage(50); !errors.Is(err, ErrNotReady) {
		t.Errorf("GoToPercentage without index error = %v, want ErrNotReady", err)
	}

	s.SetLocator(readyLocator(t))
	if err := s.GoToPercentage(250); err != nil { // clamps to 100
		t.Errorf("GoToPercentage(250) error = %v, want clamp to end", err)
	}
	cur, total := s.Page()
	if cur != total {
		t.Errorf("page after 100%% = %d, want %d", cur, total)
	}
}

func TestResizeReflowsPreservingAddress(t *testing.T) {
	s := loadedSurface(t)
	s.SetLocator(readyLocator(t))
	for i := 0; i < 2; i++ {
		if err := s.Next(); err != nil {
			t.Fatal(err)
		}
	}
	before := s.CurrentAddress()
	pos, _ := address.Parse(before)

	var relocs []Relocation
	s.OnRelocation(func(r Relocation) { relocs = append(relocs, r) })

	s.Resize(30, 20)

	if len(relocs) != 1 {
		t.Fatalf("resize emitted %d relocations, want 1", len(relocs))
	}
	after, _ := address.Parse(s.CurrentAddress())
	// Reflow may snap to a page boundary, but never past the old position.
	if pos.Less(after) {
		t.Errorf("resize advanced the position: %+v -> %+v", pos, after)
	}
}

func TestApplyStylePreservesAddress(t *testing.T) {
	s := loadedSurface(t)
	for i := 0; i < 3; i++ {
		if err := s.Next(); err != nil {
			t.Fatal(err)
		}
	}
	before, _ := address.Parse(s.CurrentAddress())

	typ := testTypography()
	typ.FontSize = 24
	if err := s.ApplyStyle(typ); err != nil {
		t.Fatalf("ApplyStyle returned error: %v", err)
	}
	after, _ := address.Parse(s.CurrentAddress())
	if before.Less(after) {
		t.Errorf("style change advanced the position: %+v -> %+v", before, after)
	}
	if s.Typography().FontSize != 24 {
		t.Errorf("typography not applied: FontSize = %d", s.Typography().FontSize)
	}
}

func TestLoadResumesAtAddress(t *testing.T) {
	first := loadedSurface(t)
	for i := 0; i < 2; i++ {
		if err := first.Next(); err != nil {
			t.Fatal(err)
		}
	}
	resume := first.CurrentAddress()

	second := New()
	if err := second.Load(testContent(), testTypography(), 40, 12, resume); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := second.CurrentAddress(); got != resume {
		t.Errorf("resumed at %q, want %q", got, resume)
	}
}

func TestThirdsZones(t *testing.T) {
	tests := []struct {
		x, width int
		want     ZoneAction
	}{
		{0, 90, ZonePrev},
		{29, 90, ZonePrev},
		{45, 90, ZoneToggleChrome},
		{60, 90, ZoneNext},
		{89, 90, ZoneNext},
		{5, 0, ZoneNone},
	}
	for _, tt := range tests {
		if got := ThirdsZones(tt.x, tt.width); got != tt.want {
			t.Errorf("ThirdsZones(%d, %d) = %v, want %v", tt.x, tt.width, got, tt.want)
		}
	}
}

func TestTapDrivesNavigation(t *testing.T) {
	s := loadedSurface(t)

	if action := s.Tap(39); action != ZoneNext {
		t.Fatalf("Tap right third = %v, want ZoneNext", action)
	}
	cur, _ := s.Page()
	if cur != 2 {
		t.Errorf("page after tap-next = %d, want 2", cur)
	}

	if action := s.Tap(0); action != ZonePrev {
		t.Fatalf("Tap left third = %v, want ZonePrev", action)
	}
	cur, _ = s.Page()
	if cur != 1 {
		t.Errorf("page after tap-prev = %d, want 1", cur)
	}

	// A custom policy overrides the thirds default.
	s.SetZonePolicy(func(x, width int) ZoneAction { return ZoneToggleChrome })
	if action := s.Tap(39); action != ZoneToggleChrome {
		t.Errorf("custom policy Tap = %v, want ZoneToggleChrome", action)
	}
}

func TestSelection(t *testing.T) {
	s := loadedSurface(t)
	text, start, end, err := s.Selection(0, 1)
	if err != nil {
		t.Fatalf("Selection returned error: %v", err)
	}
	if text == "" || !strings.Contains(text, "lorem") {
		t.Errorf("selection text = %q, want content", text)
	}
	sp, _ := address.Parse(start)
	ep, _ := address.Parse(end)
	if ep.Less(sp) {
		t.Errorf("selection range inverted: %q .. %q", start, end)
	}
}

func TestScrolledModeSteps(t *testing.T) {
	typ := testTypography()
	typ.Mode = styles.ViewScrolled
	s := New()
	if err := s.Load(testContent(), typ, 40, 12, ""); err != nil {
		t.Fatal(err)
	}
	before := s.CurrentAddress()
	if err := s.Next(); err != nil {
		t.Fatal(err)
	}
	after := s.CurrentAddress()
	bp, _ := address.Parse(before)
	ap, _ := address.Parse(after)
	if !bp.Less(ap) {
		t.Errorf("scrolled Next did not advance: %q -> %q", before, after)
	}
}
