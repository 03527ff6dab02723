package exec

import (
	"context"

	"github.com/meritra/ordex/internal/window"
)

// Run executes the stable variant over items in the order defined by less.
// The window source is chosen from the configuration: a sorted range when
// the operator never pushes, a heap otherwise.
func Run[T any](
	ctx context.Context,
	items []T,
	less func(a, b T) bool,
	nh Neighborhood[T],
	op Operator[T],
	opts ...Option,
) (Stats, error) {
	cfg := newConfig(opts...)

	var win window.Source[T]
	if cfg.NeedsPush {
		win = window.NewHeap(less)
	} else {
		win = window.NewSortedRange(less)
	}

	e := newExecutor(cfg, less, win)
	e.nh = nh
	e.op = op
	return e.execute(ctx, items)
}

// RunUnstable executes the unstable variant: the neighborhood function sees
// the whole admitted window and serial runs between the phases on every
// live source. The heap window source is always used.
func RunUnstable[T any](
	ctx context.Context,
	items []T,
	less func(a, b T) bool,
	nh WideNeighborhood[T],
	op Operator[T],
	serial Serial[T],
	opts ...Option,
) (Stats, error) {
	cfg := newConfig(opts...)

	e := newExecutor(cfg, less, window.NewHeap(less))
	e.wideNh = nh
	e.op = op
	e.serial = serial
	return e.execute(ctx, items)
}
