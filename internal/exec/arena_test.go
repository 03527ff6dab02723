package exec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArena_AllocDistinct(t *testing.T) {
	a := newArena[int](2)

	seen := map[*Context[int]]bool{}
	for i := 0; i < 3*slabSize; i++ {
		c := a.alloc(0)
		require.False(t, seen[c], "allocation %d returned a live Context", i)
		seen[c] = true
	}
}

func TestArena_LocalFreeRecycles(t *testing.T) {
	a := newArena[int](1)

	c := a.alloc(0)
	a.free(0, c)
	require.Same(t, c, a.alloc(0), "local free list is LIFO")
}

func TestArena_RemoteFreeReturnsHome(t *testing.T) {
	a := newArena[int](2)

	c := a.alloc(0)
	require.Equal(t, int32(0), c.home)

	// Freed by a different worker: lands on shard 0's remote stack and is
	// drained by the owner's next allocation.
	a.free(1, c)
	require.Same(t, c, a.alloc(0))
}

func TestArena_RemoteChainDrains(t *testing.T) {
	a := newArena[int](2)

	c1 := a.alloc(0)
	c2 := a.alloc(0)
	a.free(1, c1)
	a.free(1, c2)

	x, y := a.alloc(0), a.alloc(0)
	require.ElementsMatch(t, []*Context[int]{c1, c2}, []*Context[int]{x, y},
		"both remote frees must come back to shard 0")
}

func TestContext_CancelRunsUndoInReverse(t *testing.T) {
	c := &Context[int]{}
	var order []int
	c.undo = append(c.undo,
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
		func() { order = append(order, 3) },
	)

	c.cancelIteration()

	require.Equal(t, []int{3, 2, 1}, order)
	require.Empty(t, c.undo)
}

func TestContext_CommitDiscardsUndo(t *testing.T) {
	c := &Context[int]{}
	ran := false
	c.undo = append(c.undo, func() { ran = true })

	c.commitIteration()

	require.False(t, ran)
	require.Empty(t, c.undo)
}
