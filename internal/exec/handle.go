package exec

import (
	"errors"

	"github.com/meritra/ordex/internal/conflict"
)

// errNoIteration is surfaced (and treated as fatal) when user code calls
// Acquire outside of a neighborhood or operator invocation.
var errNoIteration = errors.New("exec: lock acquire outside an iteration")

// Handle is the per-worker scratch handed to the neighborhood and operator
// functions: the lock-acquire entry point, the push buffer for new items and
// the undo log of the running iteration. Handles are never shared between
// workers and are reset before every invocation.
type Handle[T any] struct {
	tid       int
	slots     *conflict.Slots
	needsPush bool

	push []T
	undo []func()
}

// Acquire locks w on behalf of the running iteration. It returns
// conflict.ErrConflict when the iteration lost the word to an earlier peer;
// the caller should return that error unchanged so the round driver can
// reschedule the iteration.
func (h *Handle[T]) Acquire(w *conflict.Word) error {
	cur := h.slots.Get(h.tid)
	if cur == nil {
		return errNoIteration
	}
	return cur.Acquire(w)
}

// Push adds a new item produced by the operator. The loop must have been
// configured with pushes enabled; a loop that declared none has its window
// source chosen without insertion support.
func (h *Handle[T]) Push(x T) {
	if !h.needsPush {
		panic("exec: operator pushed into a loop configured without pushes")
	}
	h.push = append(h.push, x)
}

// Undo records a reversible action. If the iteration aborts, recorded
// actions run in reverse order; on commit they are discarded.
func (h *Handle[T]) Undo(fn func()) {
	h.undo = append(h.undo, fn)
}

func (h *Handle[T]) reset() {
	h.push = h.push[:0]
	h.undo = h.undo[:0]
}
