package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labtest"

// Metrics holds the application counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	BookingsCreated    prometheus.Counter
	BookingTransitions *prometheus.CounterVec
	ReportsUploaded    prometheus.Counter
	UploadsRejected    *prometheus.CounterVec
	LoginFailures      prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers all application metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers all application metrics on reg and serves them from gatherer
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total number of bookings created by patients",
		}),
		BookingTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Total number of booking status changes by target status and outcome",
		}, []string{"status", "outcome"}),
		ReportsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_uploaded_total",
			Help:      "Total number of PDF reports stored",
		}),
		UploadsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_uploads_rejected_total",
			Help:      "Total number of rejected report uploads by validation code",
		}, []string{"code"}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_failures_total",
			Help:      "Total number of failed login attempts",
		}),
		gatherer: gatherer,
	}
}

func (m *Metrics) BookingCreated() {
	if m == nil {
		return
	}
	m.BookingsCreated.Inc()
}

// Transition records a booking status change attempt
func (m *Metrics) Transition(status string, ok bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !ok {
		outcome = "rejected"
	}
	m.BookingTransitions.WithLabelValues(status, outcome).Inc()
}

func (m *Metrics) ReportUploaded() {
	if m == nil {
		return
	}
	m.ReportsUploaded.Inc()
}

func (m *Metrics) UploadRejected(code string) {
	if m == nil {
		return
	}
	m.UploadsRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) LoginFailed() {
	if m == nil {
		return
	}
	m.LoginFailures.Inc()
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
