package mixer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus metrics of a Mixer. All methods are
// safe to call on a nil *Metrics.
type Metrics struct {
	callbacksTotal   prometheus.Counter
	callbackDuration prometheus.Histogram
	activeStreams    prometheus.Gauge
	finishedTotal    prometheus.Counter
	loopsTotal       prometheus.Counter
}

// NewMetrics creates the mixer metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		callbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streammixer_callbacks_total",
			Help: "Total number of device callbacks served by the mixer",
		}),
		callbackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "streammixer_callback_duration_seconds",
			Help:    "Time spent mixing one device buffer",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50µs to ~100ms
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streammixer_active_streams",
			Help: "Number of streams in the active registry",
		}),
		finishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streammixer_streams_finished_total",
			Help: "Total number of streams which reached their iteration limit",
		}),
		loopsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streammixer_loops_total",
			Help: "Total number of loop boundaries crossed",
		}),
	}
	if reg != nil {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.callbacksTotal.Describe(ch)
	m.callbackDuration.Describe(ch)
	m.activeStreams.Describe(ch)
	m.finishedTotal.Describe(ch)
	m.loopsTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.callbacksTotal.Collect(ch)
	m.callbackDuration.Collect(ch)
	m.activeStreams.Collect(ch)
	m.finishedTotal.Collect(ch)
	m.loopsTotal.Collect(ch)
}

func (m *Metrics) callback(d time.Duration, active int) {
	if m == nil {
		return
	}
	m.callbacksTotal.Inc()
	m.callbackDuration.Observe(d.Seconds())
	m.activeStreams.Set(float64(active))
}

func (m *Metrics) finished() {
	if m == nil {
		return
	}
	m.finishedTotal.Inc()
}

func (m *Metrics) loops(n int) {
	if m == nil || n == 0 {
		return
	}
	m.loopsTotal.Add(float64(n))
}
