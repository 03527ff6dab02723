package conflict

// Slots holds the per-worker current-iteration pointer consulted by lock
// acquisition while user code runs. The round driver sets a worker's slot
// before invoking the neighborhood or operator function and clears it
// afterwards, so an aborted iteration can never leak the pointer.
type Slots struct {
	cur []slot
}

type slot struct {
	c *Ctx
	_ [56]byte // keep neighboring workers off the same cache line
}

// NewSlots returns a slot array for n workers.
func NewSlots(n int) *Slots {
	return &Slots{cur: make([]slot, n)}
}

// Set installs c as worker tid's current iteration.
func (s *Slots) Set(tid int, c *Ctx) { s.cur[tid].c = c }

// Clear removes worker tid's current iteration.
func (s *Slots) Clear(tid int) { s.cur[tid].c = nil }

// Get returns worker tid's current iteration, or nil outside a phase.
func (s *Slots) Get(tid int) *Ctx { return s.cur[tid].c }
