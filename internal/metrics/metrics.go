// Package metrics exposes executor lifecycle events as Prometheus
// collectors, labelled by loop name.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meritra/ordex/internal/eventbus"
	"github.com/meritra/ordex/internal/events"
)

type collectors struct {
	rounds        *prometheus.CounterVec
	commits       *prometheus.CounterVec
	aborts        *prometheus.CounterVec
	spills        *prometheus.CounterVec
	spilledItems  *prometheus.CounterVec
	windowSize    *prometheus.GaugeVec
	roundDuration *prometheus.HistogramVec
}

// Register creates the executor collectors, registers them with reg and
// subscribes them to the global event bus.
func Register(reg prometheus.Registerer) error {
	c := &collectors{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_rounds_total",
			Help: "Rounds driven per loop.",
		}, []string{"loop"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_commits_total",
			Help: "Committed iterations per loop.",
		}, []string{"loop"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_aborts_total",
			Help: "Aborted iteration attempts per loop.",
		}, []string{"loop"}),
		spills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_spills_total",
			Help: "Spill events per loop.",
		}, []string{"loop"}),
		spilledItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordex_spilled_items_total",
			Help: "Items moved back into the window source by spills.",
		}, []string{"loop"}),
		windowSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ordex_window_size",
			Help: "Iterations admitted into the most recent round.",
		}, []string{"loop"}),
		roundDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ordex_round_duration_seconds",
			Help:    "Wall time per round.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 12),
		}, []string{"loop"}),
	}

	for _, col := range []prometheus.Collector{
		c.rounds, c.commits, c.aborts, c.spills, c.spilledItems,
		c.windowSize, c.roundDuration,
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}

	c.subscribe()
	return nil
}

func (c *collectors) subscribe() {
	eventbus.Subscribe(func(_ context.Context, e events.RoundStart) {
		c.rounds.WithLabelValues(e.Name).Inc()
		c.windowSize.WithLabelValues(e.Name).Set(float64(e.Window))
	})

	eventbus.Subscribe(func(_ context.Context, e events.RoundFinish) {
		c.commits.WithLabelValues(e.Name).Add(float64(e.Commits))
		c.aborts.WithLabelValues(e.Name).Add(float64(e.Attempts - e.Commits))
		c.roundDuration.WithLabelValues(e.Name).Observe(e.Duration.Seconds())
	})

	eventbus.Subscribe(func(_ context.Context, e events.Spill) {
		c.spills.WithLabelValues(e.Name).Inc()
		c.spilledItems.WithLabelValues(e.Name).Add(float64(e.Moved))
	})
}
