package conflict

import "sync/atomic"

// Ctx is the conflict-detection record of one in-flight iteration. The
// executor embeds one Ctx per iteration context; the element itself and the
// undo log live with the embedding type. Back-references go through the
// opaque self value so that Words can stay a single untyped pointer.
type Ctx struct {
	source atomic.Bool
	held   []*Word

	self any
	less func(a, b any) bool
}

// Init binds c to its embedding context and the executor's element order.
// less receives the self values of the two contexts being compared.
func (c *Ctx) Init(self any, less func(a, b any) bool) {
	c.self = self
	c.less = less
	c.source.Store(true)
}

// IsSource reports whether the iteration is still eligible to commit in the
// current round.
func (c *Ctx) IsSource() bool { return c.source.Load() }

// Disable marks the iteration as having observed a conflict. It will be
// cancelled and retried in a later round.
func (c *Ctx) Disable() { c.source.Store(false) }

// Enable re-arms the iteration for the next round after a cancel.
func (c *Ctx) Enable() { c.source.Store(true) }

// Self returns the embedding context bound by Init.
func (c *Ctx) Self() any { return c.self }

func (c *Ctx) precedes(other *Ctx) bool {
	return c.less(c.self, other.self)
}

// Word is the per-shared-object ownership field. The zero value is unlocked.
type Word struct {
	owner atomic.Pointer[Ctx]
}

// Owner returns the iteration currently holding w, or nil.
func (w *Word) Owner() *Ctx { return w.owner.Load() }
