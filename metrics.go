package alarm

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector mirrors a Service's per-alarm Stats updates out to an
// external aggregator as they happen, rather than requiring that
// aggregator to poll StatsSnapshot on every alarm. Wire one in with
// WithMetricsCollector.
type MetricsCollector interface {
	ScheduledAlarm(name string)
	CanceledAlarm(name string)
	RescheduledAlarm(name string)
	ObserveCallbackExecution(name string, ms int64)
	ObserveSchedulingJitter(name string, ms int64)
}

// PrometheusMetrics is a MetricsCollector backed by
// github.com/prometheus/client_golang, the metrics library used
// throughout this corpus (NavarchProject-navarch wires the same
// CounterVec/HistogramVec shapes for its own request pipeline). Register
// it with a prometheus.Registerer via Register before passing it to
// WithMetricsCollector.
type PrometheusMetrics struct {
	scheduled   *prometheus.CounterVec
	canceled    *prometheus.CounterVec
	rescheduled *prometheus.CounterVec
	execution   *prometheus.HistogramVec
	jitter      *prometheus.HistogramVec
}

// NewPrometheusMetrics constructs an unregistered PrometheusMetrics.
// namespace is used as the Prometheus metric namespace (e.g. "alarmsvc").
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	labels := []string{"name"}
	return &PrometheusMetrics{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_scheduled_total",
			Help:      "Total number of times an alarm was armed via Set or SetOnQueue.",
		}, labels),
		canceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_canceled_total",
			Help:      "Total number of times an armed alarm was canceled.",
		}, labels),
		rescheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_rescheduled_total",
			Help:      "Total number of periodic re-arms performed by the dispatcher.",
		}, labels),
		execution: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alarm_callback_execution_ms",
			Help:      "Wall-clock duration of user callback invocations, in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, labels),
		jitter: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alarm_scheduling_jitter_ms",
			Help:      "Signed delay between an alarm's effective deadline and its actual firing time, in milliseconds. Positive is overdue, negative is premature.",
			Buckets:   prometheus.LinearBuckets(-50, 10, 20),
		}, labels),
	}
}

// Register adds every underlying collector to reg.
func (m *PrometheusMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.scheduled, m.canceled, m.rescheduled, m.execution, m.jitter} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *PrometheusMetrics) ScheduledAlarm(name string)   { m.scheduled.WithLabelValues(name).Inc() }
func (m *PrometheusMetrics) CanceledAlarm(name string)    { m.canceled.WithLabelValues(name).Inc() }
func (m *PrometheusMetrics) RescheduledAlarm(name string) { m.rescheduled.WithLabelValues(name).Inc() }

func (m *PrometheusMetrics) ObserveCallbackExecution(name string, ms int64) {
	m.execution.WithLabelValues(name).Observe(float64(ms))
}

func (m *PrometheusMetrics) ObserveSchedulingJitter(name string, ms int64) {
	m.jitter.WithLabelValues(name).Observe(float64(ms))
}
