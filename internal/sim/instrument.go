package sim

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Instruments records run counts and latencies. A nil *Instruments is valid
// and records nothing.
type Instruments struct {
	Runs     *prometheus.CounterVec
	Segments prometheus.Counter
	Duration prometheus.Histogram
}

func NewInstruments(reg prometheus.Registerer) (*Instruments, error) {
	inst := &Instruments{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "psmc_runs_total",
				Help: "Model runs by outcome",
			},
			[]string{"outcome"},
		),
		Segments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psmc_segments_total",
			Help: "States integrated across all successful runs",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "psmc_run_duration_seconds",
			Help:    "Wall time of a model run",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{inst.Runs, inst.Segments, inst.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (i *Instruments) observeRun(start time.Time, result *dynamo.Result, err error) {
	if i == nil {
		return
	}
	i.Duration.Observe(time.Since(start).Seconds())
	i.Runs.WithLabelValues(outcome(err)).Inc()
	if err == nil && result != nil {
		i.Segments.Add(float64(result.Segments))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dynamo.ErrInvalidStateSequence):
		return "invalid_states"
	case errors.Is(err, dynamo.ErrUnknownOperatingMode):
		return "unknown_mode"
	case errors.Is(err, dynamo.ErrModelConfiguration):
		return "bad_config"
	case errors.Is(err, dynamo.ErrNumericDomain):
		return "numeric"
	default:
		return "error"
	}
}
