package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveOffer("ok", 0.02)
	m.ObserveOffer("error", 0.5)
	m.ObserveSlotConflict()
	m.ObserveIntegrityWarnings(2)
	m.ObserveIntegrityWarnings(0)
}

func TestEligibilityMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEligibilityMetrics(reg)
	m.ObserveCheck("managed_care")
	m.ObserveCheck("fee_for_service")
}

func TestMetricsNilSafe(t *testing.T) {
	var s *SchedulingMetrics
	s.ObserveOffer("ok", 0.1)
	s.ObserveSlotConflict()
	s.ObserveIntegrityWarnings(1)

	var e *EligibilityMetrics
	e.ObserveCheck("error")
}
