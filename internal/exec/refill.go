package exec

import (
	"context"

	"github.com/meritra/ordex/internal/eventbus"
	"github.com/meritra/ordex/internal/events"
)

// Window sizing constants. The first refill of a non-pushing loop aims to
// finish within initMaxRounds; afterwards the size tracks the commit ratio:
// doubling while the round meets the target, shrinking proportionally when
// it falls short, never below chunk × workers.
const (
	initMaxRounds     = 500
	threadMultFactor  = 16
	winOverSizeFactor = 8
)

// refill recomputes the window size from last round's commit ratio, spills
// the round buffer when pushes have outrun commits, and tops curr up from
// the window source.
func (e *executor[T]) refill(ctx context.Context, curr *contextBag[T], currCommits uint64, prevWindow int) {
	minWin := e.cfg.ChunkSize * e.workers.Size()

	if prevWindow == 0 {
		// Initial sizing.
		if e.cfg.NeedsPush {
			e.windowSize = max(e.win.InitSize(), threadMultFactor*minWin)
		} else {
			e.windowSize = min(e.win.InitSize()/initMaxRounds, threadMultFactor*minWin)
		}
	} else {
		ratio := float64(currCommits) / float64(prevWindow)
		if ratio >= e.cfg.TargetRatio {
			e.windowSize *= 2
		} else {
			e.windowSize = int(float64(e.windowSize) * ratio / e.cfg.TargetRatio)
		}
	}

	if e.windowSize < minWin {
		e.windowSize = minWin
	}

	if e.cfg.NeedsPush {
		if sz := curr.sizeAll(); sz > winOverSizeFactor*e.windowSize ||
			(e.win.Empty() && sz > e.windowSize) {
			// The operator is pushing faster than commits drain. Flush the
			// buffered iterations back into the window source so memory
			// stays proportional to the window.
			e.spillAll(ctx, curr)
		}
	}

	e.win.Poll(e.windowSize, curr.sizeAll(), func(x T) {
		curr.push(0, e.makeContext(0, x))
	})

	log.Tracef("loop %q: round %d window target %d actual %d",
		e.cfg.Name, e.rounds, e.windowSize, curr.sizeAll())
}

// spillAll moves every buffered iteration's element back into the window
// source and destroys the Contexts. Carried-over iterations were cancelled
// before they were buffered, so no words or undo records are live here.
func (e *executor[T]) spillAll(ctx context.Context, bag *contextBag[T]) {
	moved := bag.sizeAll()
	e.workers.Each(func(tid int) {
		row := &bag.rows[tid]
		for _, c := range row.items {
			e.win.Push(c.elem)
			e.mem.free(tid, c)
		}
		row.items = row.items[:0]
	})
	e.spills++

	log.Debugf("loop %q: round %d spilled %d buffered items", e.cfg.Name, e.rounds, moved)
	eventbus.Publish(ctx, events.Spill{Name: e.cfg.Name, Round: e.rounds, Moved: moved})
}
