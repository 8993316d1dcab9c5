// Package annotate keeps one book's highlight decorations in sync with the
// persisted library. The overlay holds the live decoration set the render
// surface paints; store mutations arrive as single-highlight events, so
// keeping up costs only the changed records.
package annotate

import (
	"fmt"
	"sync"

	"github.com/foliolabs/folio/internal/address"
	"github.com/foliolabs/folio/internal/store"
	"github.com/foliolabs/folio/pkg/models"
)

// Highlights is the slice of the store the overlay works against.
type Highlights interface {
	ListHighlights(bookID string) ([]models.Highlight, error)
	AddHighlight(h models.Highlight) (models.Highlight, error)
	RemoveHighlight(id string) error
	SubscribeHighlights(bookID string, fn store.HighlightFunc) (cancel func())
}

// Comparer orders addresses within the current document. Addresses have no
// ordering of their own; the location index provides it.
type Comparer interface {
	Compare(a, b address.Address) (int, error)
}

// Overlay is the annotation overlay for one reading session.
type Overlay struct {
	st     Highlights
	bookID string
	cmp    Comparer

	mu       sync.Mutex
	byStart  map[string]models.Highlight
	byID     map[string]string // highlight id -> start location
	onChange func()
	cancel   func()
}

// New loads the book's highlights and subscribes to further mutations. Close
// the overlay when the session ends.
func New(st Highlights, bookID string, cmp Comparer) (*Overlay, error) {
	existing, err := st.ListHighlights(bookID)
	if err != nil {
		return nil, fmt.Errorf("annotate: load highlights: %w", err)
	}

	o := &Overlay{
		st:      st,
		bookID:  bookID,
		cmp:     cmp,
		byStart: make(map[string]models.Highlight, len(existing)),
		byID:    make(map[string]string, len(existing)),
	}
	for _, h := range existing {
		o.byStart[h.StartLocation] = h
		o.byID[h.ID] = h.StartLocation
	}
	o.cancel = st.SubscribeHighlights(bookID, o.apply)
	return o, nil
}

// Close cancels the store subscription.
func (o *Overlay) Close() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// OnChange registers an observer notified after every decoration change, so
// the host can repaint.
func (o *Overlay) OnChange(fn func()) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// apply folds one store mutation into the decoration set.
func (o *Overlay) apply(ev store.HighlightEvent) {
	h := ev.Highlight
	o.mu.Lock()
	switch ev.Op {
	case store.HighlightAdded, store.HighlightUpdated:
		if prev, ok := o.byStart[h.StartLocation]; ok {
			delete(o.byID, prev.ID)
		}
		o.byStart[h.StartLocation] = h
		o.byID[h.ID] = h.StartLocation
	case store.HighlightRemoved:
		if start, ok := o.byID[h.ID]; ok {
			delete(o.byStart, start)
			delete(o.byID, h.ID)
		}
	}
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// At returns the existing highlight starting at the given address, the
// lookup behind tap-again-to-change-or-remove.
func (o *Overlay) At(start address.Address) (models.Highlight, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.byStart[string(start)]
	return h, ok
}

// Apply upserts a highlight over the selected range. A highlight already
// anchored at the same start address is replaced, never stacked.
func (o *Overlay) Apply(text string, start, end address.Address, color models.HighlightColor) (models.Highlight, error) {
	if _, err := address.Parse(start); err != nil {
		return models.Highlight{}, err
	}
	if _, err := address.Parse(end); err != nil {
		return models.Highlight{}, err
	}
	return o.st.AddHighlight(models.Highlight{
		BookID:        o.bookID,
		Text:          text,
		StartLocation: string(start),
		EndLocation:   string(end),
		Color:         color,
	})
}

// Remove deletes a highlight; its decoration goes with it via the
// subscription.
func (o *Overlay) Remove(id string) error {
	return o.st.RemoveHighlight(id)
}

// All returns the current decoration set in no particular order.
func (o *Overlay) All() []models.Highlight {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Highlight, 0, len(o.byStart))
	for _, h := range o.byStart {
		out = append(out, h)
	}
	return out
}

// Visible returns the decorations to paint for the window [start, end].
// Called after every redisplay so decorations survive pagination and style
// changes. Highlights whose addresses the comparer rejects are skipped.
func (o *Overlay) Visible(start, end address.Address) []models.Highlight {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []models.Highlight
	for _, h := range o.byStart {
		afterStart, err := o.cmp.Compare(address.Address(h.StartLocation), start)
		if err != nil {
			continue
		}
		beforeEnd, err := o.cmp.Compare(address.Address(h.StartLocation), end)
		if err != nil {
			continue
		}
		if afterStart >= 0 && beforeEnd <= 0 {
			out = append(out, h)
		}
	}
	return out
}
