// Package ringbuf implements the bounded, single-producer/single-consumer
// ring buffer described in spec §4.1: a fixed slot array with an
// explicit four-state machine (empty/writing/full/reading), O(1)
// single-lock operations that never block, and two selectable policies:
//
//   - order: FIFO (oldest full slot first) or "last" (most recent full
//     slot first, trading order for freshness — used on the ingress
//     ring so the worker always processes the newest frame).
//   - overwrite: when true, acquire_put may recycle a full slot (drop
//     oldest) instead of failing with NoSlot; when false, a full ring
//     applies backpressure: acquire_put fails with NoSlot.
//
// Grounded on other_examples' wait-free SPSC ring buffer (cache-line
// awareness, explicit producer/consumer contract) and the disruptor-style
// single-writer/single-reader ring buffer, adapted here to the four
// explicit states spec §4.1 and §9 call for instead of an implicit
// sequence-number handoff, since the contract requires a NoSlot/NoData
// decision the caller can branch on, not a spin-wait.
package ringbuf

import (
	"sync"

	"github.com/stereodpl/dpl/dplerr"
)

// Order selects how acquire_get chooses which slot to return.
type Order int

const (
	OrderFIFO Order = iota
	OrderLast
)

type slotState int32

const (
	stateEmpty slotState = iota
	stateWriting
	stateFull
	stateReading
)

type slot[T any] struct {
	state     slotState
	commitSeq uint64 // monotonic; set on commit_put(valid), used by last-mode
	payload   T
}

// Ring is a fixed-capacity SPSC ring buffer of T. The zero value is not
// usable; construct with New.
type Ring[T any] struct {
	mu            sync.Mutex
	slots         []slot[T]
	order         Order
	allowOverwrite bool

	writeCursor int // next slot index acquire_put considers, FIFO write position
	readCursor  int // next slot index acquire_get considers, FIFO read position
	nextSeq     uint64

	lastPutIdx int // idx from the most recent acquire_put, for protocol checking
	putOpen    bool
	lastGetIdx int // idx from the most recent acquire_get, for protocol checking
	getOpen    bool

	dropped uint64 // frames dropped by overwrite, diagnostic counter
}

// New constructs a Ring with the given slot count, order, and overwrite
// policy. newPayload is called once per slot to initialize its payload
// (e.g. pre-allocating an ImageFrame's planes).
func New[T any](n int, order Order, allowOverwrite bool, newPayload func() T) *Ring[T] {
	if n <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	r := &Ring[T]{
		slots:          make([]slot[T], n),
		order:          order,
		allowOverwrite: allowOverwrite,
	}
	for i := range r.slots {
		r.slots[i].state = stateEmpty
		if newPayload != nil {
			r.slots[i].payload = newPayload()
		}
	}
	return r
}

// Dropped returns the number of slots recycled by overwrite since
// construction (spec §8, S5's frames_dropped).
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// AcquirePut returns a slot index and a pointer to its payload for the
// caller to write into, transitioning empty -> writing. Fails with
// dplerr.ErrNoSlot if all slots are "reading", or (when allowOverwrite is
// false) if the next slot is not empty.
func (r *Ring[T]) AcquirePut() (int, *T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.writeCursor
	if r.allowOverwrite {
		// Step past slots the consumer is reading, so NoSlot is returned
		// only when every slot is being read.
		for k := 0; k < len(r.slots) && r.slots[idx].state == stateReading; k++ {
			idx = (idx + 1) % len(r.slots)
		}
	}
	s := &r.slots[idx]

	switch s.state {
	case stateEmpty:
		// straightforward claim
	case stateFull:
		if !r.allowOverwrite {
			return 0, nil, dplerr.ErrNoSlot
		}
		r.dropped++
	case stateWriting, stateReading:
		return 0, nil, dplerr.ErrNoSlot
	}

	s.state = stateWriting
	r.lastPutIdx = idx
	r.putOpen = true
	return idx, &s.payload, nil
}

// CommitPut finalizes a previously acquired put. When valid, the slot
// transitions writing -> full and the write cursor advances; when
// invalid, it transitions writing -> empty and no data is published.
// Returns dplerr.ErrProtocolViolation if idx does not match the most
// recent AcquirePut.
func (r *Ring[T]) CommitPut(idx int, valid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.putOpen || idx != r.lastPutIdx || r.slots[idx].state != stateWriting {
		return dplerr.ErrProtocolViolation
	}
	r.putOpen = false

	if !valid {
		r.slots[idx].state = stateEmpty
		return nil
	}

	r.nextSeq++
	r.slots[idx].commitSeq = r.nextSeq
	r.slots[idx].state = stateFull
	r.writeCursor = (idx + 1) % len(r.slots)
	return nil
}

// AcquireGet returns the next readable slot and a pointer to its
// payload, transitioning full -> reading. In OrderLast mode it returns
// the most recently committed full slot and, when allowOverwrite is
// true, clears (to empty) any older full slots. Fails with
// dplerr.ErrNoData if no slot is full.
func (r *Ring[T]) AcquireGet() (int, *T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.pickReadable()
	if !ok {
		return 0, nil, dplerr.ErrNoData
	}

	if r.order == OrderLast && r.allowOverwrite {
		for i := range r.slots {
			if i != idx && r.slots[i].state == stateFull {
				r.slots[i].state = stateEmpty
			}
		}
	}

	r.slots[idx].state = stateReading
	r.lastGetIdx = idx
	r.getOpen = true
	if r.order == OrderFIFO {
		r.readCursor = (idx + 1) % len(r.slots)
	}
	return idx, &r.slots[idx].payload, nil
}

// pickReadable finds the slot AcquireGet should return, without
// mutating state. Caller holds r.mu.
func (r *Ring[T]) pickReadable() (int, bool) {
	switch r.order {
	case OrderFIFO:
		idx := r.readCursor
		if r.slots[idx].state == stateFull {
			return idx, true
		}
		return 0, false
	default: // OrderLast
		best := -1
		var bestSeq uint64
		for i := range r.slots {
			if r.slots[i].state == stateFull && (best < 0 || r.slots[i].commitSeq > bestSeq) {
				best = i
				bestSeq = r.slots[i].commitSeq
			}
		}
		if best < 0 {
			return 0, false
		}
		return best, true
	}
}

// CommitGet finalizes a previously acquired get, transitioning
// reading -> empty. Returns dplerr.ErrProtocolViolation if idx does not
// match the most recent AcquireGet.
func (r *Ring[T]) CommitGet(idx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.getOpen || idx != r.lastGetIdx || r.slots[idx].state != stateReading {
		return dplerr.ErrProtocolViolation
	}
	r.getOpen = false
	r.slots[idx].state = stateEmpty
	return nil
}

// Len reports how many slots are currently full, for diagnostics.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.slots {
		if r.slots[i].state == stateFull {
			n++
		}
	}
	return n
}

// Cap reports the ring's fixed slot count.
func (r *Ring[T]) Cap() int { return len(r.slots) }
