package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the slot offer flow.
type SchedulingMetrics struct {
	offersTotal    *prometheus.CounterVec
	offerLatency   *prometheus.HistogramVec
	slotConflicts  prometheus.Counter
	integrityWarns prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		offersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psychbook",
			Subsystem: "scheduling",
			Name:      "offers_total",
			Help:      "Total slot offer computations",
		}, []string{"status"}),
		offerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "psychbook",
			Subsystem: "scheduling",
			Name:      "offer_latency_seconds",
			Help:      "Latency of slot offer computation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "psychbook",
			Subsystem: "scheduling",
			Name:      "slot_conflicts_total",
			Help:      "Booking submissions rejected because the slot was taken",
		}),
		integrityWarns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "psychbook",
			Subsystem: "network",
			Name:      "integrity_warnings_total",
			Help:      "Data-integrity warnings emitted by the bookability resolver",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.offersTotal, m.offerLatency, m.slotConflicts, m.integrityWarns)
	return m
}

func (m *SchedulingMetrics) ObserveOffer(status string, seconds float64) {
	if m == nil {
		return
	}
	m.offersTotal.WithLabelValues(status).Inc()
	m.offerLatency.WithLabelValues(status).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *SchedulingMetrics) ObserveIntegrityWarnings(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.integrityWarns.Add(float64(n))
}

// EligibilityMetrics counts live eligibility checks by outcome.
type EligibilityMetrics struct {
	checksTotal *prometheus.CounterVec
}

func NewEligibilityMetrics(reg prometheus.Registerer) *EligibilityMetrics {
	m := &EligibilityMetrics{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psychbook",
			Subsystem: "eligibility",
			Name:      "checks_total",
			Help:      "Total live eligibility checks",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checksTotal)
	return m
}

func (m *EligibilityMetrics) ObserveCheck(result string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(result).Inc()
}
