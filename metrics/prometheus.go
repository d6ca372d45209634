package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus exports Collector events as Prometheus metrics.
type Prometheus struct {
	slotWait      *prometheus.HistogramVec
	slotOutcomes  *prometheus.CounterVec
	calls         *prometheus.CounterVec
	callLatency   *prometheus.HistogramVec
	inFlight      *prometheus.GaugeVec
	registrations *prometheus.CounterVec
	lookups       *prometheus.CounterVec
}

// NewPrometheus registers annkit metrics with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Prometheus{
		slotWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annkit_slot_wait_seconds",
				Help:    "Time callers spend suspended waiting for an execution slot",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"algorithm"},
		),
		slotOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annkit_slot_acquire_total",
				Help: "Execution slot acquisitions by outcome",
			},
			[]string{"algorithm", "status"},
		),
		calls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annkit_index_calls_total",
				Help: "Delegated index calls by operation and status",
			},
			[]string{"algorithm", "op", "status"},
		),
		callLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annkit_index_call_duration_seconds",
				Help:    "Latency of delegated index calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"algorithm", "op"},
		),
		inFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "annkit_index_calls_in_flight",
				Help: "Index calls currently holding an execution slot",
			},
			[]string{"algorithm"},
		),
		registrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annkit_registrations_total",
				Help: "Registry registration attempts by status",
			},
			[]string{"algorithm", "status"},
		),
		lookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annkit_lookups_total",
				Help: "Registry lookups by status",
			},
			[]string{"algorithm", "status"},
		),
	}
}

// RecordSlotWait implements Collector.
func (p *Prometheus) RecordSlotWait(algorithm string, wait time.Duration, err error) {
	status := Status(err)
	p.slotOutcomes.WithLabelValues(algorithm, status).Inc()
	if err == nil {
		p.slotWait.WithLabelValues(algorithm).Observe(wait.Seconds())
	}
}

// RecordCall implements Collector.
func (p *Prometheus) RecordCall(algorithm, op string, duration time.Duration, err error) {
	p.calls.WithLabelValues(algorithm, op, Status(err)).Inc()
	p.callLatency.WithLabelValues(algorithm, op).Observe(duration.Seconds())
}

// RecordInFlight implements Collector.
func (p *Prometheus) RecordInFlight(algorithm string, delta int) {
	p.inFlight.WithLabelValues(algorithm).Add(float64(delta))
}

// RecordRegister implements Collector.
func (p *Prometheus) RecordRegister(algorithm string, err error) {
	p.registrations.WithLabelValues(algorithm, Status(err)).Inc()
}

// RecordLookup implements Collector.
func (p *Prometheus) RecordLookup(algorithm string, err error) {
	p.lookups.WithLabelValues(algorithm, Status(err)).Inc()
}
