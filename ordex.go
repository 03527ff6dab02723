package ordex

import (
	"context"

	"github.com/btcsuite/btclog"

	"github.com/meritra/ordex/internal/conflict"
	"github.com/meritra/ordex/internal/exec"
)

// Word is the per-shared-object lock field consulted during conflict
// detection. Embed one in every object the operator may touch and acquire it
// from the neighborhood function. The zero value is unlocked.
type Word = conflict.Word

// ErrConflict is returned by Handle.Acquire when the calling iteration lost
// a word to an earlier-ordered peer. Neighborhood and operator functions
// should return it unchanged.
var ErrConflict = conflict.ErrConflict

// Handle is the per-worker scratch passed to user functions: lock acquire,
// push buffer and undo log.
type Handle[T any] = exec.Handle[T]

// Neighborhood locks everything the operator will touch for one item.
type Neighborhood[T any] = exec.Neighborhood[T]

// Operator applies one item's effects and may push new items.
type Operator[T any] = exec.Operator[T]

// WideNeighborhood is the unstable-variant neighborhood function, which also
// sees every element admitted into the current round.
type WideNeighborhood[T any] = exec.WideNeighborhood[T]

// Serial runs single-threaded between the phases of the unstable variant.
type Serial[T any] = exec.Serial[T]

// Stats is the end-of-loop report.
type Stats = exec.Stats

// Option configures a loop.
type Option = exec.Option

// WithName labels the loop in logs, stats, spans and metrics.
func WithName(name string) Option { return exec.WithName(name) }

// WithThreads sets the worker count. Defaults to GOMAXPROCS.
func WithThreads(n int) Option { return exec.WithThreads(n) }

// WithChunkSize sets the preferred per-worker claim inside a phase.
func WithChunkSize(n int) Option { return exec.WithChunkSize(n) }

// WithPushes declares that the operator may push new items.
func WithPushes() Option { return exec.WithPushes() }

// WithTargetCommitRatio sets the commit-ratio set point for window sizing.
func WithTargetCommitRatio(r float64) Option { return exec.WithTargetCommitRatio(r) }

// ForEach processes items in parallel while committing them in the strict
// order defined by less: for any two iterations whose neighborhoods overlap,
// the one whose element orders first commits first. nh must acquire every
// word the operator will touch; op applies the item's effects and, when
// WithPushes is set, may push new items. ForEach returns after the workset
// drains, or early with the context's error checked at round boundaries.
func ForEach[T any](
	ctx context.Context,
	items []T,
	less func(a, b T) bool,
	nh Neighborhood[T],
	op Operator[T],
	opts ...Option,
) (Stats, error) {
	return exec.Run(ctx, items, less, nh, op, opts...)
}

// ForEachUnstable is the variant for loops whose neighborhoods cannot be
// established from the element alone: nh also receives the elements of the
// whole admitted round, and serial runs between the phases on every live
// source.
func ForEachUnstable[T any](
	ctx context.Context,
	items []T,
	less func(a, b T) bool,
	nh WideNeighborhood[T],
	op Operator[T],
	serial Serial[T],
	opts ...Option,
) (Stats, error) {
	return exec.RunUnstable(ctx, items, less, nh, op, serial, opts...)
}

// UseLogger routes library logging to the given logger. Logging is disabled
// by default.
func UseLogger(logger btclog.Logger) {
	exec.UseLogger(logger)
}
