package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meritra/ordex"
	"github.com/meritra/ordex/internal/eventbus"
	"github.com/meritra/ordex/internal/metrics"
	"github.com/meritra/ordex/internal/otel"
)

const rootUsage = `ordex — ordered speculative parallel loop runner

USAGE:
  ordex <command> [flags]

COMMANDS:
  run              Execute a demo workload on the ordered executor
  help             Show help for any command
`

const runUsage = `run FLAGS:
  -workload <name>        Workload: sorted | contend | disjoint | countdown (default: sorted)
  -n <count>              Number of items (default: 100000)
  -threads <count>        Worker threads (default: GOMAXPROCS)
  -chunk <count>          Parallel chunk size (default: 16)
  -cratio <ratio>         Target commit ratio (default: 0.80)
  -debug                  Log executor debug output to stderr
  -otel.endpoint <addr>   OTLP collector endpoint
  -otel.service <name>    OpenTelemetry service name (default: ordex)
  -metrics.addr <addr>    Serve Prometheus metrics on this address
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("ordex", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "run":
		return cmdRun(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "run":
		fmt.Print(runUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdRun(args []string) error {
	workload := "sorted"
	n := 100000
	threads := 0
	chunk := 16
	cratio := 0.80
	debug := false
	otelEndpoint := ""
	otelService := "ordex"
	metricsAddr := ""

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&workload, "workload", workload, "Workload name")
	fs.IntVar(&n, "n", n, "Number of items")
	fs.IntVar(&threads, "threads", threads, "Worker threads")
	fs.IntVar(&chunk, "chunk", chunk, "Parallel chunk size")
	fs.Float64Var(&cratio, "cratio", cratio, "Target commit ratio")
	fs.BoolVar(&debug, "debug", debug, "Log executor debug output")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	fs.StringVar(&metricsAddr, "metrics.addr", metricsAddr, "Prometheus listen address")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, runUsage)
		return err
	}
	if n < 1 {
		return fmt.Errorf("-n must be positive")
	}

	if debug {
		backend := btclog.NewBackend(os.Stderr)
		logger := backend.Logger("ORDX")
		logger.SetLevel(btclog.LevelDebug)
		ordex.UseLogger(logger)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			return fmt.Errorf("metrics register: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	opts := []ordex.Option{
		ordex.WithName(workload),
		ordex.WithChunkSize(chunk),
		ordex.WithTargetCommitRatio(cratio),
	}
	if threads > 0 {
		opts = append(opts, ordex.WithThreads(threads))
	}

	start := time.Now()
	var stats ordex.Stats
	switch workload {
	case "sorted":
		stats, err = runSorted(n, opts)
	case "contend":
		stats, err = runContend(n, opts)
	case "disjoint":
		stats, err = runDisjoint(n, opts)
	case "countdown":
		stats, err = runCountdown(n, opts)
	default:
		fmt.Fprint(os.Stderr, runUsage)
		return fmt.Errorf("unknown workload %q", workload)
	}
	if err != nil {
		return err
	}

	fmt.Println(stats)
	fmt.Printf("wall time: %v\n", time.Since(start))
	return nil
}

// runSorted drains a shuffled range through a single shared word. Only the
// least admitted item can hold it, so commits arrive in ascending order.
func runSorted(n int, opts []ordex.Option) (ordex.Stats, error) {
	items := rand.Perm(n)

	var gate ordex.Word
	out := make([]int, 0, n)

	stats, err := ordex.ForEach(context.Background(), items,
		func(a, b int) bool { return a < b },
		func(_ int, h *ordex.Handle[int]) error {
			return h.Acquire(&gate)
		},
		func(elem int, _ *ordex.Handle[int]) error {
			out = append(out, elem)
			return nil
		},
		opts...)
	if err != nil {
		return stats, err
	}

	if !slices.IsSorted(out) || len(out) != n {
		return stats, fmt.Errorf("sorted: commit order violated")
	}
	fmt.Printf("sorted: %d commits in ascending order\n", len(out))
	return stats, nil
}

// runContend puts every iteration's neighborhood and operator behind one
// shared word: every item still commits, in ascending order, but most
// attempts abort, so the reported efficiency shows the speculation cost.
func runContend(n int, opts []ordex.Option) (ordex.Stats, error) {
	items := make([]int, n)
	for i := range items {
		items[i] = i + 1
	}

	var gate ordex.Word
	out := make([]int, 0, n)

	stats, err := ordex.ForEach(context.Background(), items,
		func(a, b int) bool { return a < b },
		func(_ int, h *ordex.Handle[int]) error {
			return h.Acquire(&gate)
		},
		func(elem int, h *ordex.Handle[int]) error {
			if err := h.Acquire(&gate); err != nil {
				return err
			}
			out = append(out, elem)
			return nil
		},
		opts...)
	if err != nil {
		return stats, err
	}

	if len(out) != n || !slices.IsSorted(out) {
		return stats, fmt.Errorf("contend: commit order violated")
	}
	fmt.Printf("contend: %d commits, %d attempts, efficiency %.3f\n",
		len(out), stats.Attempts, stats.Efficiency())
	return stats, nil
}

// runDisjoint gives every item its own word; nothing conflicts and every
// attempt commits.
func runDisjoint(n int, opts []ordex.Option) (ordex.Stats, error) {
	items := rand.Perm(n)

	words := make([]ordex.Word, n)
	out := make([]int, n)

	stats, err := ordex.ForEach(context.Background(), items,
		func(a, b int) bool { return a < b },
		func(elem int, h *ordex.Handle[int]) error {
			return h.Acquire(&words[elem])
		},
		func(elem int, _ *ordex.Handle[int]) error {
			out[elem] = elem * 2
			return nil
		},
		opts...)
	if err != nil {
		return stats, err
	}

	for i, v := range out {
		if v != i*2 {
			return stats, fmt.Errorf("disjoint: item %d not applied", i)
		}
	}
	fmt.Printf("disjoint: %d items applied, efficiency %.3f\n", n, stats.Efficiency())
	return stats, nil
}

// runCountdown seeds the loop with a single item and lets the operator push
// its predecessor, exercising the heap window and the push admission rule.
func runCountdown(n int, opts []ordex.Option) (ordex.Stats, error) {
	words := make([]ordex.Word, n+1)
	out := make([]int, 0, n+1)

	opts = append(opts, ordex.WithPushes())
	stats, err := ordex.ForEach(context.Background(), []int{n},
		func(a, b int) bool { return a > b },
		func(elem int, h *ordex.Handle[int]) error {
			return h.Acquire(&words[elem])
		},
		func(elem int, h *ordex.Handle[int]) error {
			out = append(out, elem)
			if elem > 0 {
				h.Push(elem - 1)
			}
			return nil
		},
		opts...)
	if err != nil {
		return stats, err
	}

	if len(out) != n+1 {
		return stats, fmt.Errorf("countdown: committed %d of %d", len(out), n+1)
	}
	for i, v := range out {
		if v != n-i {
			return stats, fmt.Errorf("countdown: commit order violated at %d", i)
		}
	}
	fmt.Printf("countdown: %d commits in descending order\n", len(out))
	return stats, nil
}
