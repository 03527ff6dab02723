package exec

import "fmt"

// Stats is the end-of-loop report: rounds driven, iterations committed and
// attempted, and spill events.
type Stats struct {
	Name     string
	Rounds   uint64
	Commits  uint64
	Attempts uint64
	Spills   uint64
}

// Efficiency is commits over attempts across the whole loop.
func (s Stats) Efficiency() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Commits) / float64(s.Attempts)
}

// AvgParallelism is commits per round.
func (s Stats) AvgParallelism() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Commits) / float64(s.Rounds)
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"loop %q: rounds=%d commits=%d attempts=%d efficiency=%.3f avg-parallelism=%.2f spills=%d",
		s.Name, s.Rounds, s.Commits, s.Attempts, s.Efficiency(), s.AvgParallelism(), s.Spills)
}
