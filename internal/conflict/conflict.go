// Package conflict implements the lock substrate for speculative iterations.
//
// Every shared object that participates in conflict detection embeds a Word:
// a single machine word holding either nil or the iteration that currently
// owns the object. Ownership is taken by compare-and-swap while a worker runs
// user code on behalf of an iteration. Contention between two live iterations
// is resolved by priority: the iteration whose element orders first always
// wins, so the globally least item can never lose a lock and progress is
// monotone.
package conflict

import "errors"

// ErrConflict is returned from Ctx.Acquire when the calling iteration lost a
// word to an earlier-ordered peer. The round driver translates it into a
// disabled iteration; it never escapes the executor.
var ErrConflict = errors.New("conflict: word owned by an earlier iteration")

// Acquire attempts to take w on behalf of c.
//
// Free word: install c and record the word for later release. Word already
// held by c: no-op. Word held by another live iteration: the element order
// decides. If c orders first it steals the word and the incumbent is
// disabled; otherwise c loses and ErrConflict is reported so the caller can
// abort the iteration.
func (c *Ctx) Acquire(w *Word) error {
	for {
		if w.owner.CompareAndSwap(nil, c) {
			c.held = append(c.held, w)
			return nil
		}
		o := w.owner.Load()
		if o == c {
			return nil
		}
		if o == nil {
			// Released between the CAS and the load; try again.
			continue
		}
		if c.precedes(o) {
			if w.owner.CompareAndSwap(o, c) {
				o.Disable()
				c.held = append(c.held, w)
				return nil
			}
			continue
		}
		return ErrConflict
	}
}

// ReleaseAll drops every word c still owns. Words stolen by a higher-priority
// iteration are skipped: the CAS from c to nil fails and the thief keeps its
// ownership record intact.
func (c *Ctx) ReleaseAll() {
	for _, w := range c.held {
		w.owner.CompareAndSwap(c, nil)
	}
	c.held = c.held[:0]
}

// Holding reports the number of words currently recorded as held. Stolen
// words stay in the record until ReleaseAll; the count is an upper bound.
func (c *Ctx) Holding() int { return len(c.held) }
