// Package exec implements the two-phase ordered speculative loop executor.
//
// Items are admitted from a priority-ordered window source into rounds. Each
// round runs two bulk-synchronous parallel phases over the admitted
// iterations: expand, where the neighborhood function locks everything the
// operator will touch, and apply, where the operator runs on the iterations
// that survived expansion. Lock contention is resolved by element order, so
// the globally least item always commits. Aborted iterations are rolled back
// and retried in a later round; the window size is regulated toward a target
// commit ratio between rounds.
package exec

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/meritra/ordex/internal/conflict"
	"github.com/meritra/ordex/internal/eventbus"
	"github.com/meritra/ordex/internal/events"
	"github.com/meritra/ordex/internal/pool"
	"github.com/meritra/ordex/internal/runid"
	"github.com/meritra/ordex/internal/window"
)

// Neighborhood locks every shared object the operator will touch for one
// item. Returning conflict.ErrConflict aborts the iteration for this round;
// any other error is fatal to the loop.
type Neighborhood[T any] func(elem T, h *Handle[T]) error

// Operator applies one item's effects. It may record undo actions and, when
// pushes are enabled, produce new items. It must only touch state covered by
// the words acquired during the neighborhood phase.
type Operator[T any] func(elem T, h *Handle[T]) error

// WideNeighborhood is the unstable-variant neighborhood function: it
// additionally sees every element admitted into the current round, so it can
// recompute which iterations are sources when the dependency structure is
// not static.
type WideNeighborhood[T any] func(elem T, h *Handle[T], window iter.Seq[T]) error

// Serial runs between the expand and apply phases of the unstable variant,
// once per live source, on a single thread.
type Serial[T any] func(elem T)

type executor[T any] struct {
	cfg  Config
	less func(a, b T) bool

	nh     Neighborhood[T]
	wideNh WideNeighborhood[T]
	serial Serial[T]
	op     Operator[T]
	win    window.Source[T]

	workers *pool.Pool
	slots   *conflict.Slots
	mem     *arena[T]
	handles []*Handle[T]
	lessAny func(a, b any) bool

	windowSize  int
	rounds      uint64
	prevCommits uint64
	spills      uint64
	committed   *pool.Accumulator
	attempts    *pool.Accumulator

	failOnce sync.Once
	failErr  error
}

func newExecutor[T any](cfg Config, less func(a, b T) bool, win window.Source[T]) *executor[T] {
	e := &executor[T]{cfg: cfg, less: less, win: win}
	e.lessAny = func(a, b any) bool {
		return e.less(a.(*Context[T]).elem, b.(*Context[T]).elem)
	}
	return e
}

// execute spins up the workers, fills the window source and drives rounds
// until the workset drains.
func (e *executor[T]) execute(ctx context.Context, items []T) (Stats, error) {
	e.workers = pool.New(e.cfg.Threads)
	defer e.workers.Close()

	n := e.workers.Size()
	e.slots = conflict.NewSlots(n)
	e.mem = newArena[T](n)
	e.committed = pool.NewAccumulator(n)
	e.attempts = pool.NewAccumulator(n)
	e.handles = make([]*Handle[T], n)
	for i := range e.handles {
		e.handles[i] = &Handle[T]{tid: i, slots: e.slots, needsPush: e.cfg.NeedsPush}
	}

	e.win.InitFill(items)
	return e.run(ctx, len(items))
}

func (e *executor[T]) run(ctx context.Context, items int) (Stats, error) {
	ctx, _ = runid.NewContext(ctx)

	curr := newContextBag[T](e.workers.Size())
	next := newContextBag[T](e.workers.Size())
	var snap []*Context[T]

	log.Debugf("loop %q: %d items on %d workers", e.cfg.Name, items, e.workers.Size())
	eventbus.Publish(ctx, events.LoopStart{
		Name:    e.cfg.Name,
		Items:   items,
		Threads: e.workers.Size(),
	})

	var err error
	for {
		if cerr := ctx.Err(); cerr != nil {
			err = cerr
			break
		}

		e.prepareRound(ctx, &curr, &next)
		if curr.sizeAll() == 0 {
			break
		}

		snap = curr.snapshot(snap[:0])
		commitsBefore := e.committed.Reduce()
		start := time.Now()
		eventbus.Publish(ctx, events.RoundStart{
			Name:   e.cfg.Name,
			Round:  e.rounds,
			Window: len(snap),
		})

		e.expand(snap)

		if e.serial != nil {
			for _, c := range snap {
				if c.base.IsSource() {
					e.serial(c.elem)
				}
			}
		}

		e.apply(snap, next)

		eventbus.Publish(ctx, events.RoundFinish{
			Name:     e.cfg.Name,
			Round:    e.rounds,
			Commits:  e.committed.Reduce() - commitsBefore,
			Attempts: uint64(len(snap)),
			Duration: time.Since(start),
		})

		if e.failErr != nil {
			err = e.failErr
			break
		}
	}

	st := e.stats()
	log.Debugf("%s", st)
	eventbus.Publish(ctx, events.LoopFinish{
		Name:     st.Name,
		Rounds:   st.Rounds,
		Commits:  st.Commits,
		Attempts: st.Attempts,
		Spills:   st.Spills,
	})
	return st, err
}

// prepareRound swaps the round buffers, settles last round's commit count and
// refills the current worklist from the window source.
func (e *executor[T]) prepareRound(ctx context.Context, curr, next **contextBag[T]) {
	e.rounds++
	*curr, *next = *next, *curr

	// After the swap, next holds the buffer the previous round executed
	// from; its (stale) size is the number of attempted iterations.
	prevWindow := (*next).sizeAll()
	(*next).clearAll()

	currCommits := e.committed.Reduce() - e.prevCommits
	e.prevCommits += currCommits

	e.refill(ctx, *curr, currCommits, prevWindow)
}

// expand runs the neighborhood phase: every admitted iteration locks its
// neighborhood, losers of priority conflicts are disabled.
func (e *executor[T]) expand(snap []*Context[T]) {
	e.workers.DoAll(len(snap), e.cfg.ChunkSize, func(tid, i int) {
		c := snap[i]
		h := e.handles[tid]
		h.reset()
		if e.wideNh != nil {
			win := e.windowElems(snap)
			e.catching(tid, c, func() error { return e.wideNh(c.elem, h, win) })
		} else {
			e.catching(tid, c, func() error { return e.nh(c.elem, h) })
		}
		e.attempts.Add(tid, 1)
	})
}

// apply runs the operator phase: surviving sources commit, everything else
// is rolled back and carried into the next round.
func (e *executor[T]) apply(snap []*Context[T], next *contextBag[T]) {
	var minElem T
	var haveMin bool
	if e.cfg.NeedsPush {
		minElem, haveMin = e.win.Min()
	}

	e.workers.DoAll(len(snap), e.cfg.ChunkSize, func(tid, i int) {
		c := snap[i]
		h := e.handles[tid]
		h.reset()

		commit := false
		if c.base.IsSource() {
			e.catching(tid, c, func() error { return e.op(c.elem, h) })
			// The operator can still lose a word mid-flight.
			commit = c.base.IsSource()
		}

		if commit {
			e.committed.Add(tid, 1)
			if e.cfg.NeedsPush {
				for _, x := range h.push {
					if !haveMin || !e.less(minElem, x) {
						// x orders at or before everything still queued, so
						// it may join the very next round directly.
						next.push(tid, e.makeContext(tid, x))
					} else {
						e.win.Push(x)
					}
				}
			}
			c.commitIteration()
			e.mem.free(tid, c)
		} else {
			c.undo = append(c.undo, h.undo...)
			c.cancelIteration()
			c.reset()
			next.push(tid, c)
		}
	})
}

// catching invokes fn with c installed as the worker's current iteration and
// translates its outcome: nil passes, ErrConflict disables the iteration,
// anything else fails the loop.
func (e *executor[T]) catching(tid int, c *Context[T], fn func() error) {
	e.slots.Set(tid, &c.base)
	err := fn()
	e.slots.Clear(tid)

	switch {
	case err == nil:
	case errors.Is(err, conflict.ErrConflict):
		c.base.Disable()
	default:
		e.fail(fmt.Errorf("exec: loop %q: %w", e.cfg.Name, err))
		c.base.Disable()
	}
}

func (e *executor[T]) fail(err error) {
	e.failOnce.Do(func() { e.failErr = err })
}

func (e *executor[T]) makeContext(tid int, x T) *Context[T] {
	c := e.mem.alloc(tid)
	c.elem = x
	c.undo = c.undo[:0]
	c.base.Init(c, e.lessAny)
	return c
}

func (e *executor[T]) windowElems(snap []*Context[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, c := range snap {
			if !yield(c.elem) {
				return
			}
		}
	}
}

func (e *executor[T]) stats() Stats {
	return Stats{
		Name:     e.cfg.Name,
		Rounds:   e.rounds,
		Commits:  e.committed.Reduce(),
		Attempts: e.attempts.Reduce(),
		Spills:   e.spills,
	}
}
