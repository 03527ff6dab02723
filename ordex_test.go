package ordex_test

import (
	"context"
	"iter"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/meritra/ordex"
)

func TestForEach_OrderedCommits(t *testing.T) {
	var gate ordex.Word
	var out []int

	stats, err := ordex.ForEach(context.Background(), []int{5, 1, 4, 2, 3},
		func(a, b int) bool { return a < b },
		func(_ int, h *ordex.Handle[int]) error { return h.Acquire(&gate) },
		func(elem int, _ *ordex.Handle[int]) error {
			out = append(out, elem)
			return nil
		},
		ordex.WithName("api-sorted"), ordex.WithThreads(2))
	require.NoError(t, err)

	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, out); diff != "" {
		t.Fatalf("commit order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, uint64(5), stats.Commits)
	require.Contains(t, stats.String(), `"api-sorted"`)
}

func TestForEach_ConflictErrorSurfacesAsAbortNotFailure(t *testing.T) {
	words := make([]ordex.Word, 10)
	var applied atomic.Int32

	_, err := ordex.ForEach(context.Background(), []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		func(a, b int) bool { return a < b },
		func(elem int, h *ordex.Handle[int]) error {
			// Overlapping neighborhoods: each item also locks its successor.
			if err := h.Acquire(&words[elem]); err != nil {
				return err
			}
			return h.Acquire(&words[(elem+1)%10])
		},
		func(_ int, _ *ordex.Handle[int]) error {
			applied.Add(1)
			return nil
		},
		ordex.WithName("api-overlap"), ordex.WithThreads(4))
	require.NoError(t, err, "conflicts must be absorbed, never returned")
	require.Equal(t, int32(10), applied.Load())
}

func TestForEachUnstable_Smoke(t *testing.T) {
	var out []int

	stats, err := ordex.ForEachUnstable(context.Background(), []int{2, 1},
		func(a, b int) bool { return a < b },
		func(_ int, _ *ordex.Handle[int], _ iter.Seq[int]) error { return nil },
		func(elem int, _ *ordex.Handle[int]) error { return nil },
		func(elem int) { out = append(out, elem) },
		ordex.WithName("api-unstable"), ordex.WithThreads(2))
	require.NoError(t, err)
	require.Equal(t, uint64(2), stats.Commits)
	require.NotEmpty(t, out)
}
