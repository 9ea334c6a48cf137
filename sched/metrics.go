package sched

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Instrumentation is optional scheduler metrics, mirroring
// cuemby-warren's pkg/metrics histogram-and-counter pairing but scoped
// to a caller-owned prometheus.Registerer instead of the global default
// registry, since a library must not assume it is the only thing in the
// process registering metrics.
type Instrumentation struct {
	logger zerolog.Logger

	tickDuration prometheus.Histogram
	systemRuns   *prometheus.CounterVec
}

// NewInstrumentation builds and registers a tick-duration histogram and
// a per-system run counter against reg, logging through logger. Pass
// zerolog.Nop() for logger to silence logging entirely.
func NewInstrumentation(reg prometheus.Registerer, logger zerolog.Logger) *Instrumentation {
	inst := &Instrumentation{
		logger: logger,
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loom_sched_tick_duration_seconds",
			Help:    "Wall-clock duration of one scheduler tick.",
			Buckets: prometheus.DefBuckets,
		}),
		systemRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_sched_system_runs_total",
			Help: "Total number of times each system's Update ran.",
		}, []string{"system"}),
	}
	reg.MustRegister(inst.tickDuration)
	reg.MustRegister(inst.systemRuns)
	return inst
}

func (i *Instrumentation) observeTick(d time.Duration) {
	i.tickDuration.Observe(d.Seconds())
	i.logger.Debug().Dur("duration", d).Msg("scheduler tick completed")
}

func (i *Instrumentation) observeSystemRun(name string) {
	i.systemRuns.WithLabelValues(name).Inc()
}
