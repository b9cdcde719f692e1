package periscope

import (
	"sync"

	"github.com/hedeqiang/periscope/filter"
)

// Kind identifies what a filter tracks.
type Kind int

const (
	// LogFilter tracks event logs matching stored criteria.
	LogFilter Kind = iota
	// BlockFilter tracks newly arrived block hashes.
	BlockFilter
	// PendingTxFilter tracks the transactions of newly arrived blocks.
	PendingTxFilter
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case LogFilter:
		return "log"
	case BlockFilter:
		return "block"
	case PendingTxFilter:
		return "pendingTx"
	default:
		return "unknown"
	}
}

// entry is one active filter: immutable identity and criteria plus the
// mutable poll cursor.
type entry struct {
	id   uint64
	kind Kind
	crit filter.Criteria

	// pollMu serializes Changes/Logs calls for this filter, so the cursor
	// read-modify-write and its range fetch form one critical section.
	// Polls on different filters proceed independently.
	pollMu sync.Mutex

	// cursor is the block height up to and including which changes have
	// been delivered. Guarded by the registry mutex; advances only.
	cursor uint64
}

// registry owns the set of active filters. All access goes through its
// methods; there is no other mutator.
type registry struct {
	mu      sync.Mutex
	filters map[uint64]*entry
	lastID  uint64
}

func newRegistry() *registry {
	return &registry{
		filters: make(map[uint64]*entry),
	}
}

// register adds a filter with the given starting cursor and returns it.
// Ids increment for the life of the process and are never reused.
func (r *registry) register(kind Kind, crit filter.Criteria, cursor uint64) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	e := &entry{
		id:     r.lastID,
		kind:   kind,
		crit:   crit,
		cursor: cursor,
	}
	r.filters[e.id] = e
	return e
}

// get returns the filter with the given id.
func (r *registry) get(id uint64) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.filters[id]
	return e, ok
}

// remove deletes the filter and reports whether it existed.
func (r *registry) remove(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.filters[id]
	delete(r.filters, id)
	return ok
}

// advance moves the filter's cursor forward, never backward. An unknown id
// is ignored: a concurrent expiry may have removed the filter mid-poll, and
// that is a normal race, not an error.
func (r *registry) advance(id uint64, height uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.filters[id]
	if !ok {
		return
	}
	if height > e.cursor {
		e.cursor = height
	}
}

// cursorOf returns the filter's current cursor.
func (r *registry) cursorOf(id uint64) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.filters[id]
	if !ok {
		return 0, false
	}
	return e.cursor, true
}

// size returns the number of active filters.
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filters)
}

// clear drops every filter.
func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = make(map[uint64]*entry)
}
