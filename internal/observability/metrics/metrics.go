package metrics

import (
	"strconv"
	"time"

	"hospital-booking/internal/booking"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the booking wizard and
// appointment creation. It implements booking.Observer.
type BookingMetrics struct {
	transitions      *prometheus.CounterVec
	availabilityTime *prometheus.HistogramVec
	submissions      *prometheus.CounterVec
	appointments     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

var _ booking.Observer = (*BookingMetrics)(nil)

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "wizard_transitions_total",
			Help:      "Total booking wizard step transitions",
		}, []string{"from", "to"}),
		availabilityTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "availability_fetch_seconds",
			Help:      "Latency of doctor availability loads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"success"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "wizard_submissions_total",
			Help:      "Total booking wizard submissions by outcome",
		}, []string{"outcome"}),
		appointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "appointments_total",
			Help:      "Total appointment create/cancel operations by result",
		}, []string{"operation", "result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hospital",
			Subsystem: "booking",
			Name:      "wizard_sessions_active",
			Help:      "Booking wizard sessions currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.availabilityTime, m.submissions, m.appointments, m.activeSessions)
	return m
}

func (m *BookingMetrics) ObserveTransition(from, to booking.Step) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *BookingMetrics) ObserveAvailabilityFetch(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.availabilityTime.WithLabelValues(strconv.FormatBool(err == nil)).Observe(elapsed.Seconds())
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveAppointment counts backend appointment operations ("create", "cancel").
func (m *BookingMetrics) ObserveAppointment(operation, result string) {
	if m == nil {
		return
	}
	m.appointments.WithLabelValues(operation, result).Inc()
}

func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
