// Package locator maintains the location index: a derived, rebuildable
// mapping from fixed-size content chunks to addresses. The index is the
// source of truth for percentage and page math; the render surface stays
// usable while it is pending or rebuilding.
package locator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/foliolabs/folio/internal/address"
)

// DefaultChunkSize is the target chunk size in runes. Roughly a screenful of
// text; granularity of all percentage math.
const DefaultChunkSize = 1800

// DefaultRebuildDebounce coalesces rapid layout-affecting changes (a slider
// drag) into one rebuild.
const DefaultRebuildDebounce = 120 * time.Millisecond

// ErrNotReady indicates a conversion was requested before the index finished
// building.
var ErrNotReady = errors.New("locator: index not ready")

// ErrEmptyContent indicates a build was attempted over empty content.
var ErrEmptyContent = errors.New("locator: no content to index")

// State is the index lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateReady
	StateStale
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// StateFunc observes index state transitions.
type StateFunc func(State)

// Index maps chunked content offsets to addresses. Safe for concurrent use;
// a build runs in its own goroutine and navigation reads whatever index was
// last completed.
type Index struct {
	mu        sync.Mutex
	state     State
	chunkSize int
	debounce  time.Duration
	onState   []StateFunc

	// blocks is the content the index was (or will be) built over:
	// per-section slices of block text. Retained for rebuilds.
	blocks [][]string

	starts []address.Pos // address of each chunk start, document order
	gen    int           // build generation; stale results are discarded
	timer  *time.Timer   // single pending rebuild slot
}

// New creates an empty index with the given chunk size. A chunkSize of 0
// selects DefaultChunkSize.
func New(chunkSize int) *Index {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Index{
		chunkSize: chunkSize,
		debounce:  DefaultRebuildDebounce,
	}
}

// SetDebounce overrides the rebuild debounce interval. Intended for tests
// and tuning; the constant is not load-bearing.
func (x *Index) SetDebounce(d time.Duration) {
	x.mu.Lock()
	x.debounce = d
	x.mu.Unlock()
}

// OnState registers an additional state observer. Callbacks run outside the
// index lock but on whichever goroutine caused the transition.
func (x *Index) OnState(fn StateFunc) {
	x.mu.Lock()
	x.onState = append(x.onState, fn)
	x.mu.Unlock()
}

// State returns the current lifecycle state.
func (x *Index) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// Ready reports whether conversions are currently backed by a complete
// index. A Stale index still answers from its previous build.
func (x *Index) Ready() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return (x.state == StateReady || x.state == StateStale) && len(x.starts) > 0
}

// Length returns the number of chunks, 0 until the first successful build.
func (x *Index) Length() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.starts)
}

// BuildAsync starts a build over the given content in a new goroutine.
// Called once after first paint so indexing never delays first byte to
// screen. A build already in flight is superseded: its result is discarded
// via the generation counter.
func (x *Index) BuildAsync(blocks [][]string) {
	x.mu.Lock()
	x.blocks = blocks
	x.gen++
	gen := x.gen
	x.setStateLocked(StateBuilding)
	x.mu.Unlock()

	go x.build(blocks, gen)
}

// MarkStale flags the index for rebuild after a layout-affecting style
// change. Rapid successive calls collapse into a single rebuild via a
// debounce timer; the previous index keeps serving conversions meanwhile.
func (x *Index) MarkStale() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.blocks == nil {
		return // nothing has been indexed yet
	}
	if x.state == StateReady {
		x.setStateLocked(StateStale)
	}
	if x.timer != nil {
		x.timer.Stop()
	}
	blocks := x.blocks
	x.timer = time.AfterFunc(x.debounce, func() {
		x.BuildAsync(blocks)
	})
}

// build partitions the content into chunks and installs the result unless a
// newer build has started since. A build failure leaves the previous index
// in place; progress reporting degrades to unknown rather than crashing the
// session.
func (x *Index) build(blocks [][]string, gen int) {
	starts, err := chunk(blocks, x.chunkSize)

	x.mu.Lock()
	if gen != x.gen {
		x.mu.Unlock()
		return // superseded
	}
	if err != nil {
		// Keep whatever we had. Empty stays empty, a prior index stays
		// usable in its stale form.
		if len(x.starts) > 0 {
			x.setStateLocked(StateReady)
		} else {
			x.setStateLocked(StateEmpty)
		}
		x.mu.Unlock()
		return
	}
	x.starts = starts
	x.setStateLocked(StateReady)
	x.mu.Unlock()
}

// chunk walks the content in document order and records the address of every
// chunk start.
func chunk(blocks [][]string, size int) ([]address.Pos, error) {
	var starts []address.Pos
	runesLeft := 0
	for si, section := range blocks {
		for bi, block := range section {
			runes := []rune(block)
			off := 0
			for off < len(runes) {
				if runesLeft == 0 {
					starts = append(starts, address.Pos{Section: si, Block: bi, Offset: off})
					runesLeft = size
				}
				step := runesLeft
				if step > len(runes)-off {
					step = len(runes) - off
				}
				off += step
				runesLeft -= step
			}
		}
	}
	if len(starts) == 0 {
		return nil, ErrEmptyContent
	}
	return starts, nil
}

// PercentageFromAddress converts an address to a [0,1] fraction. Returns 0
// for a pending index or an unparseable address; callers treat 0 as
// unknown while the index is not Ready.
func (x *Index) PercentageFromAddress(a address.Address) float64 {
	pos, err := address.Parse(a)
	if err != nil {
		return 0
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	n := len(x.starts)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 0
	}
	return float64(x.chunkIndexLocked(pos)) / float64(n-1)
}

// AddressFromPercentage converts a [0,1] fraction to the address of the
// nearest chunk start. Approximately inverse to PercentageFromAddress within
// one chunk of granularity.
func (x *Index) AddressFromPercentage(pct float64) (address.Address, error) {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	n := len(x.starts)
	if n == 0 {
		return "", ErrNotReady
	}
	i := int(pct*float64(n-1) + 0.5)
	if i > n-1 {
		i = n - 1
	}
	return x.starts[i].Address(), nil
}

// LocationOf returns the 1-based chunk number containing the address.
// Recovering the page number directly avoids the double-rounding error of
// going through a percentage. Returns 0 when the index is pending or the
// address is malformed.
func (x *Index) LocationOf(a address.Address) int {
	pos, err := address.Parse(a)
	if err != nil {
		return 0
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.starts) == 0 {
		return 0
	}
	return x.chunkIndexLocked(pos) + 1
}

// Compare orders two addresses by their positions in the indexed content.
// Returns -1, 0, or 1, or an error for malformed input. Addresses have no
// ordering outside the index.
func (x *Index) Compare(a, b address.Address) (int, error) {
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

// chunkIndexLocked finds the chunk containing pos: the greatest chunk start
// not after pos. Callers hold x.mu.
func (x *Index) chunkIndexLocked(pos address.Pos) int {
	lo, hi := 0, len(x.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if x.starts[mid].Less(pos) || x.starts[mid] == pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// setStateLocked transitions the state and notifies the observers. Callers
// hold x.mu; callbacks are invoked without it.
func (x *Index) setStateLocked(s State) {
	if x.state == s {
		return
	}
	x.state = s
	if len(x.onState) > 0 {
		fns := make([]StateFunc, len(x.onState))
		copy(fns, x.onState)
		x.mu.Unlock()
		for _, fn := range fns {
			fn(s)
		}
		x.mu.Lock()
	}
}

// Describe returns a short human-readable summary, used in debug output.
func (x *Index) Describe() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return fmt.Sprintf("%s (%d chunks)", x.state, len(x.starts))
}
