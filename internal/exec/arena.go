package exec

// Per-worker slab allocation for Contexts. Each worker owns a shard and
// allocates from it without synchronization. Frees from the owning worker go
// on a plain local list; frees from another worker go on the shard's
// lock-free remote stack and are drained by the owner on its next
// allocation. Contexts admitted by refill all come from worker 0's shard, and
// the apply phase commits an iteration on whichever worker claimed its chunk,
// so with more than one worker many commits free through the remote stack.

const slabSize = 256

type arena[T any] struct {
	shards []shard[T]
}

type shard[T any] struct {
	slabs [][]Context[T]
	used  int // cells handed out of the newest slab

	local  *Context[T] // free list, owner-only
	remote remoteStack[T]
	_      [32]byte
}

func newArena[T any](workers int) *arena[T] {
	return &arena[T]{shards: make([]shard[T], workers)}
}

// alloc returns a zero-or-recycled Context from worker tid's shard. Callers
// reinitialize every field they use; recycled Contexts keep slice capacity.
func (a *arena[T]) alloc(tid int) *Context[T] {
	s := &a.shards[tid]
	if c := s.local; c != nil {
		s.local = c.freeNext.Load()
		c.freeNext.Store(nil)
		return c
	}
	if head := s.remote.drain(); head != nil {
		s.local = head.freeNext.Load()
		head.freeNext.Store(nil)
		return head
	}
	if len(s.slabs) == 0 || s.used == slabSize {
		s.slabs = append(s.slabs, make([]Context[T], slabSize))
		s.used = 0
	}
	c := &s.slabs[len(s.slabs)-1][s.used]
	s.used++
	c.home = int32(tid)
	return c
}

// free returns c to its home shard. tid is the calling worker.
func (a *arena[T]) free(tid int, c *Context[T]) {
	home := int(c.home)
	if home == tid {
		s := &a.shards[home]
		c.freeNext.Store(s.local)
		s.local = c
		return
	}
	a.shards[home].remote.push(c)
}
