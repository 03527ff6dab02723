package pool

// Accumulator is a per-worker counter reduced at round boundaries. Each
// worker increments only its own padded cell, so there are no atomics on the
// hot path; the phase barrier in Pool.Each orders the writes before any
// Reduce by the driver.
type Accumulator struct {
	cells []cell
}

type cell struct {
	n uint64
	_ [56]byte
}

// NewAccumulator returns an accumulator with one cell per worker.
func NewAccumulator(workers int) *Accumulator {
	return &Accumulator{cells: make([]cell, workers)}
}

// Add adds d to worker tid's cell. Must only be called from worker tid
// inside a phase, or from the driver while the pool is idle.
func (a *Accumulator) Add(tid int, d uint64) { a.cells[tid].n += d }

// Reduce sums all cells. Must be called outside a phase.
func (a *Accumulator) Reduce() uint64 {
	var sum uint64
	for i := range a.cells {
		sum += a.cells[i].n
	}
	return sum
}
