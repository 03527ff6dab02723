// Package events defines the typed lifecycle events published by the
// executor. Observers subscribe through the eventbus; the executor never
// depends on who is listening.
package events

import "time"

// LoopStart is published once when an ordered loop begins executing.
type LoopStart struct {
	Name    string
	Items   int
	Threads int
}

// LoopFinish is published after the loop drains.
type LoopFinish struct {
	Name     string
	Rounds   uint64
	Commits  uint64
	Attempts uint64
	Spills   uint64
}

// RoundStart is published after refill, before the expand phase.
type RoundStart struct {
	Name   string
	Round  uint64
	Window int
}

// RoundFinish is published after the apply phase commits.
type RoundFinish struct {
	Name     string
	Round    uint64
	Commits  uint64
	Attempts uint64
	Duration time.Duration
}

// Spill is published when the round buffer is flushed back into the window
// source to cap memory.
type Spill struct {
	Name  string
	Round uint64
	Moved int
}
