package annotate

import (
	"path/filepath"
	"testing"

	"github.com/foliolabs/folio/internal/address"
	"github.com/foliolabs/folio/internal/store"
	"github.com/foliolabs/folio/pkg/models"
)

// posComparer orders addresses structurally, enough for overlay tests.
type posComparer struct{}

func (posComparer) Compare(a, b address.Address) (int, error) {
	pa, err := address.Parse(a)
	if err != nil {
		return 0, err
	}
	pb, err := address.Parse(b)
	if err != nil {
		return 0, err
	}
	switch {
	case pa.Less(pb):
		return -1, nil
	case pb.Less(pa):
		return 1, nil
	default:
		return 0, nil
	}
}

func testOverlay(t *testing.T) (*Overlay, *store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("store.Open returned error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	book, err := st.AddBook(models.Book{Title: "Hard Times", FilePath: "/books/ht.epub"})
	if err != nil {
		t.Fatal(err)
	}

	o, err := New(st, book.ID, posComparer{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(o.Close)
	return o, st, book.ID
}

func TestApplyUpsertsByStartAddress(t *testing.T) {
	o, _, _ := testOverlay(t)
	start := address.New(0, 2, 10)
	end := address.New(0, 2, 24)

	if _, err := o.Apply("facts alone", start, end, models.ColorYellow); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	second, err := o.Apply("facts alone", start, end, models.ColorGreen)
	if err != nil {
		t.Fatalf("Apply (replace) returned error: %v", err)
	}

	all := o.All()
	if len(all) != 1 {
		t.Fatalf("decorations at same start = %d, want exactly 1", len(all))
	}
	if all[0].Color != models.ColorGreen || all[0].ID != second.ID {
		t.Errorf("surviving decoration = %+v, want the green replacement", all[0])
	}

	got, ok := o.At(start)
	if !ok || got.Color != models.ColorGreen {
		t.Errorf("At(start) = (%+v, %v), want the replacement", got, ok)
	}
}

func TestApplyRejectsMalformedRange(t *testing.T) {
	o, _, _ := testOverlay(t)
	if _, err := o.Apply("x", "garbage", address.New(0, 0, 5), models.ColorBlue); err == nil {
		t.Error("Apply accepted a malformed start address")
	}
	if _, err := o.Apply("x", address.New(0, 0, 0), "garbage", models.ColorBlue); err == nil {
		t.Error("Apply accepted a malformed end address")
	}
}

func TestRemoveClearsDecoration(t *testing.T) {
	o, _, _ := testOverlay(t)
	h, err := o.Apply("the whelp", address.New(1, 0, 0), address.New(1, 0, 9), models.ColorPink)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Remove(h.ID); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, ok := o.At(address.New(1, 0, 0)); ok {
		t.Error("decoration survived removal")
	}
	if len(o.All()) != 0 {
		t.Errorf("decorations after remove = %d, want 0", len(o.All()))
	}
}

func TestNewLoadsExistingHighlights(t *testing.T) {
	_, st, bookID := testOverlay(t)
	if _, err := st.AddHighlight(models.Highlight{
		BookID:        bookID,
		StartLocation: string(address.New(2, 0, 0)),
		EndLocation:   string(address.New(2, 0, 12)),
		Color:         models.ColorPurple,
	}); err != nil {
		t.Fatal(err)
	}

	// A fresh overlay for the same book sees the persisted highlight.
	o2, err := New(st, bookID, posComparer{})
	if err != nil {
		t.Fatal(err)
	}
	defer o2.Close()
	if _, ok := o2.At(address.New(2, 0, 0)); !ok {
		t.Error("fresh overlay missing persisted highlight")
	}
}

func TestVisibleFiltersToWindow(t *testing.T) {
	o, _, _ := testOverlay(t)
	ranges := []struct {
		start address.Address
		color models.HighlightColor
	}{
		{address.New(0, 0, 5), models.ColorYellow},
		{address.New(1, 2, 0), models.ColorGreen},
		{address.New(3, 0, 0), models.ColorBlue},
	}
	for _, r := range ranges {
		if _, err := o.Apply("x", r.start, r.start, r.color); err != nil {
			t.Fatal(err)
		}
	}

	vis := o.Visible(address.New(1, 0, 0), address.New(2, 0, 0))
	if len(vis) != 1 {
		t.Fatalf("visible decorations = %d, want 1", len(vis))
	}
	if vis[0].Color != models.ColorGreen {
		t.Errorf("visible decoration color = %q, want green", vis[0].Color)
	}
}

func TestOnChangeNotifies(t *testing.T) {
	o, _, _ := testOverlay(t)
	changes := 0
	o.OnChange(func() { changes++ })

	if _, err := o.Apply("x", address.New(0, 0, 0), address.New(0, 0, 4), models.ColorYellow); err != nil {
		t.Fatal(err)
	}
	if changes != 1 {
		t.Fatalf("changes after apply = %d, want 1", changes)
	}
}
