package pool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEach_RunsOnEveryWorker(t *testing.T) {
	p := New(4)
	defer p.Close()

	var mu sync.Mutex
	seen := map[int]int{}
	p.Each(func(tid int) {
		mu.Lock()
		seen[tid]++
		mu.Unlock()
	})

	require.Equal(t, map[int]int{0: 1, 1: 1, 2: 1, 3: 1}, seen)
}

func TestDoAll_CoversEveryIndexOnce(t *testing.T) {
	p := New(3)
	defer p.Close()

	const n = 1000
	counts := make([]atomic.Int32, n)
	p.DoAll(n, 7, func(_, i int) {
		counts[i].Add(1)
	})

	for i := range counts {
		require.Equal(t, int32(1), counts[i].Load(), "index %d", i)
	}
}

func TestDoAll_EmptyAndTinyChunk(t *testing.T) {
	p := New(2)
	defer p.Close()

	p.DoAll(0, 4, func(_, _ int) { t.Fatal("no work expected") })

	var ran atomic.Int32
	p.DoAll(3, 0, func(_, _ int) { ran.Add(1) })
	require.Equal(t, int32(3), ran.Load())
}

func TestNew_ClampsWorkers(t *testing.T) {
	p := New(0)
	defer p.Close()
	require.Equal(t, 1, p.Size())
}

func TestAccumulator_ReduceAfterBarrier(t *testing.T) {
	p := New(4)
	defer p.Close()

	acc := NewAccumulator(p.Size())
	p.Each(func(tid int) {
		for i := 0; i < 100; i++ {
			acc.Add(tid, 1)
		}
	})

	require.Equal(t, uint64(400), acc.Reduce())

	p.Each(func(tid int) { acc.Add(tid, uint64(tid)) })
	require.Equal(t, uint64(406), acc.Reduce())
}
