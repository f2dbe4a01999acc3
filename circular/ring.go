package circular

import (
	"github.com/grailbio/pemap/packedread"
)

const noOffset = -1

// WindowRing remembers the packed windows of the most recent chromosome
// offsets.  Slot i holds the window of the latest offset congruent to i modulo
// the ring size, and is tagged with that offset so that a window which has
// been overwritten is never returned for an older offset.
//
// A WindowRing is not safe for concurrent use; each scanner owns one.
type WindowRing struct {
	slots   []packedread.Read
	offsets []int
}

// NewWindowRing returns a ring able to look back at least depth offsets.  The
// actual capacity is rounded up to a power of 2.
func NewWindowRing(c *packedread.Codec, depth int) *WindowRing {
	if depth < 1 {
		depth = 1
	}
	n := CeilExp2(depth)
	r := &WindowRing{
		slots:   make([]packedread.Read, n),
		offsets: make([]int, n),
	}
	for i := range r.slots {
		r.slots[i] = c.NewWindow()
	}
	r.Reset()
	return r
}

// Cap returns the number of slots.
func (r *WindowRing) Cap() int { return len(r.slots) }

// Reset marks every slot empty.  The slots themselves are reused.
func (r *WindowRing) Reset() {
	for i := range r.offsets {
		r.offsets[i] = noOffset
	}
}

// Put stores a copy of w as the window ending at offset.  offset must be
// non-negative.
func (r *WindowRing) Put(offset int, w *packedread.Read) {
	slot := Mod(offset, len(r.slots))
	r.slots[slot].CopyFrom(w)
	r.offsets[slot] = offset
}

// Get returns the window stored for offset.  The second result is false if
// the offset was never stored or has since been overwritten.  The returned
// Read is owned by the ring and is only valid until the next Put.
func (r *WindowRing) Get(offset int) (*packedread.Read, bool) {
	if offset < 0 {
		return nil, false
	}
	slot := Mod(offset, len(r.slots))
	if r.offsets[slot] != offset {
		return nil, false
	}
	return &r.slots[slot], true
}
