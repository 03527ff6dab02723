package exec

import (
	"sync/atomic"

	"github.com/meritra/ordex/internal/conflict"
)

// Context is the speculation record of one in-flight item: the element, the
// conflict-detection state, and the undo log recorded by the operator. A
// Context is created when an item is admitted into a round, destroyed on
// commit, and reset for retry on abort.
type Context[T any] struct {
	elem T
	base conflict.Ctx
	undo []func()

	// Arena bookkeeping: the shard the Context came from and the free-list
	// link used when it goes back.
	home     int32
	freeNext atomic.Pointer[Context[T]]
}

// Elem returns the item this iteration executes.
func (c *Context[T]) Elem() T { return c.elem }

// IsSource reports whether the iteration is still eligible to commit.
func (c *Context[T]) IsSource() bool { return c.base.IsSource() }

// Disable marks the iteration as conflicted for this round.
func (c *Context[T]) Disable() { c.base.Disable() }

// commitIteration accepts the iteration's effects: the undo log is discarded
// and all held words released.
func (c *Context[T]) commitIteration() {
	c.undo = c.undo[:0]
	c.base.ReleaseAll()
}

// cancelIteration rolls the iteration back: undo actions run in reverse
// order, then all held words are released.
func (c *Context[T]) cancelIteration() {
	for i := len(c.undo) - 1; i >= 0; i-- {
		c.undo[i]()
	}
	c.undo = c.undo[:0]
	c.base.ReleaseAll()
}

// reset re-arms a cancelled iteration so the same Context can retry next
// round.
func (c *Context[T]) reset() {
	c.base.Enable()
}
