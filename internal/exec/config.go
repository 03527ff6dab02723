package exec

import "runtime"

// Defaults for the executor configuration record.
const (
	DefaultChunkSize   = 16
	DefaultTargetRatio = 0.80
)

// Config is the executor-configuration record. It replaces per-function
// policy traits: the chunk size and push capability are declared up front
// and select the window variant and refill policy.
type Config struct {
	// Name labels the loop in logs, stats, spans and metrics.
	Name string

	// Threads is the number of workers; defaults to GOMAXPROCS.
	Threads int

	// ChunkSize is the preferred per-worker claim inside a parallel phase.
	// The minimum window size is ChunkSize × Threads.
	ChunkSize int

	// NeedsPush declares that the operator may push new items. It selects
	// the heap window source and the push-aware refill policy.
	NeedsPush bool

	// TargetRatio is the commit-to-attempt set point regulating window
	// growth.
	TargetRatio float64
}

// Option mutates Config.
type Option func(*Config)

func WithName(name string) Option     { return func(c *Config) { c.Name = name } }
func WithThreads(n int) Option        { return func(c *Config) { c.Threads = n } }
func WithChunkSize(n int) Option      { return func(c *Config) { c.ChunkSize = n } }
func WithPushes() Option              { return func(c *Config) { c.NeedsPush = true } }
func WithTargetCommitRatio(r float64) Option { return func(c *Config) { c.TargetRatio = r } }

func newConfig(opts ...Option) Config {
	cfg := Config{
		Name:        "ordered-loop",
		Threads:     runtime.GOMAXPROCS(0),
		ChunkSize:   DefaultChunkSize,
		TargetRatio: DefaultTargetRatio,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 1
	}
	if cfg.TargetRatio <= 0 || cfg.TargetRatio > 1 {
		cfg.TargetRatio = DefaultTargetRatio
	}
	return cfg
}
