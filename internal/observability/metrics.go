package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	accessDecisionsTotal   *prometheus.CounterVec
	attendanceScansTotal   *prometheus.CounterVec
	quizTokensIssuedTotal  prometheus.Counter
	quizVerificationsTotal *prometheus.CounterVec
	attendanceFeedClients  prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signlab_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signlab_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		accessDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signlab_access_decisions_total",
			Help: "Step access evaluations by decision outcome.",
		}, []string{"decision"})

		attendanceScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signlab_attendance_scans_total",
			Help: "Attendance scan attempts by result.",
		}, []string{"result"})

		quizTokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signlab_quiz_tokens_issued_total",
			Help: "Timed quiz tokens issued.",
		})

		quizVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signlab_quiz_verifications_total",
			Help: "Quiz token verifications by result.",
		}, []string{"result"})

		attendanceFeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signlab_attendance_feed_clients",
			Help: "Currently connected live attendance feed clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			accessDecisionsTotal,
			attendanceScansTotal,
			quizTokensIssuedTotal,
			quizVerificationsTotal,
			attendanceFeedClients,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// AccessDecisions exposes the step access decision counter.
func AccessDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return accessDecisionsTotal
}

// AttendanceScans exposes the attendance scan counter.
func AttendanceScans() *prometheus.CounterVec {
	RegisterMetrics()
	return attendanceScansTotal
}

// QuizTokensIssued exposes the issued token counter.
func QuizTokensIssued() prometheus.Counter {
	RegisterMetrics()
	return quizTokensIssuedTotal
}

// QuizVerifications exposes the verification result counter.
func QuizVerifications() *prometheus.CounterVec {
	RegisterMetrics()
	return quizVerificationsTotal
}

// AttendanceFeedClients exposes the live feed client gauge.
func AttendanceFeedClients() prometheus.Gauge {
	RegisterMetrics()
	return attendanceFeedClients
}
