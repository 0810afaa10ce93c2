package ringbuf

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stereodpl/dpl/dplerr"
)

func TestFIFO_BasicOrder(t *testing.T) {
	c := qt.New(t)
	r := New[int](4, OrderFIFO, false, func() int { return 0 })

	for i := 1; i <= 3; i++ {
		idx, p, err := r.AcquirePut()
		c.Assert(err, qt.IsNil)
		*p = i
		c.Assert(r.CommitPut(idx, true), qt.IsNil)
	}

	for i := 1; i <= 3; i++ {
		idx, p, err := r.AcquireGet()
		c.Assert(err, qt.IsNil)
		c.Assert(*p, qt.Equals, i)
		c.Assert(r.CommitGet(idx), qt.IsNil)
	}

	_, _, err := r.AcquireGet()
	c.Assert(err, qt.Equals, dplerr.ErrNoData)
}

func TestFIFO_NoOverwrite_Backpressure(t *testing.T) {
	c := qt.New(t)
	r := New[int](2, OrderFIFO, false, func() int { return 0 })

	for i := 0; i < 2; i++ {
		idx, _, err := r.AcquirePut()
		c.Assert(err, qt.IsNil)
		c.Assert(r.CommitPut(idx, true), qt.IsNil)
	}

	_, _, err := r.AcquirePut()
	c.Assert(err, qt.Equals, dplerr.ErrNoSlot)
}

func TestLastMode_ReturnsNewestAndDrops(t *testing.T) {
	// S5 — overflow scenario: ingress ring depth 4, allow_overwrite=true,
	// submit frames 1..8 with the worker paused; resuming sees at most 4
	// frames, all numbered >= 5, ascending, with frames_dropped == 4.
	c := qt.New(t)
	r := New[int](4, OrderLast, true, func() int { return 0 })

	for i := 1; i <= 8; i++ {
		idx, p, err := r.AcquirePut()
		c.Assert(err, qt.IsNil)
		*p = i
		c.Assert(r.CommitPut(idx, true), qt.IsNil)
	}

	c.Assert(r.Dropped(), qt.Equals, uint64(4))

	idx, p, err := r.AcquireGet()
	c.Assert(err, qt.IsNil)
	c.Assert(*p, qt.Equals, 8)
	c.Assert(r.CommitGet(idx), qt.IsNil)

	_, _, err = r.AcquireGet()
	c.Assert(err, qt.Equals, dplerr.ErrNoData)
}

func TestCommitPut_ProtocolViolation_WrongIndex(t *testing.T) {
	c := qt.New(t)
	r := New[int](2, OrderFIFO, false, func() int { return 0 })
	idx, _, err := r.AcquirePut()
	c.Assert(err, qt.IsNil)
	err = r.CommitPut(idx+1, true)
	c.Assert(err, qt.Equals, dplerr.ErrProtocolViolation)
}

func TestCommitGet_ProtocolViolation_NoOpenGet(t *testing.T) {
	c := qt.New(t)
	r := New[int](2, OrderFIFO, false, func() int { return 0 })
	err := r.CommitGet(0)
	c.Assert(err, qt.Equals, dplerr.ErrProtocolViolation)
}

func TestCommitPut_Invalid_ReturnsToEmpty(t *testing.T) {
	c := qt.New(t)
	r := New[int](1, OrderFIFO, false, func() int { return 0 })
	idx, _, err := r.AcquirePut()
	c.Assert(err, qt.IsNil)
	c.Assert(r.CommitPut(idx, false), qt.IsNil)

	// Slot should be empty again, immediately writable.
	idx2, _, err := r.AcquirePut()
	c.Assert(err, qt.IsNil)
	c.Assert(idx2, qt.Equals, idx)
}

func TestReadingSlotIsExclusive(t *testing.T) {
	// A slot under "reading" must not be overwritten by the producer,
	// even in overwrite mode (spec §4.1: "fails ... if all slots are
	// reading").
	c := qt.New(t)
	r := New[int](1, OrderLast, true, func() int { return 0 })

	idx, p, _ := r.AcquirePut()
	*p = 1
	c.Assert(r.CommitPut(idx, true), qt.IsNil)

	gidx, _, err := r.AcquireGet()
	c.Assert(err, qt.IsNil)

	_, _, err = r.AcquirePut()
	c.Assert(err, qt.Equals, dplerr.ErrNoSlot)

	c.Assert(r.CommitGet(gidx), qt.IsNil)

	// Now the slot is empty again and can be written.
	_, _, err = r.AcquirePut()
	c.Assert(err, qt.IsNil)
}

func TestLenAndCap(t *testing.T) {
	c := qt.New(t)
	r := New[int](3, OrderFIFO, false, func() int { return 0 })
	c.Assert(r.Cap(), qt.Equals, 3)
	c.Assert(r.Len(), qt.Equals, 0)

	idx, _, _ := r.AcquirePut()
	r.CommitPut(idx, true)
	c.Assert(r.Len(), qt.Equals, 1)
}
