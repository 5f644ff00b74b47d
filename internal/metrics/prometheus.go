package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_chat_requests_total",
			Help: "Total chat turns processed",
		},
		[]string{"status"},
	)

	ChatLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_chat_turn_duration_seconds",
			Help:    "Wall-clock duration of a chat turn including the flow call",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_chat_upstream_errors_total",
			Help: "Flow-execution call failures by kind",
		},
		[]string{"kind"},
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_chat_analysis_duration_seconds",
			Help:    "Background quality analysis duration",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30},
		},
	)

	AnalysisFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rag_chat_analysis_failures_total",
			Help: "Analytics entries dropped because analysis failed",
		},
	)

	QualityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_chat_quality_score",
			Help:    "Quality scores of analyzed answers",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	InteractionsLogged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_chat_interactions_logged_total",
			Help: "Interactions persisted to the analytics index",
		},
		[]string{"quality_label"},
	)

	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_chat_store_errors_total",
			Help: "Analytics store failures by operation",
		},
		[]string{"operation"},
	)

	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_chat_auth_attempts_total",
			Help: "Admin login attempts",
		},
		[]string{"result"},
	)
)

func Init() {
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatLatency)
	prometheus.MustRegister(UpstreamErrors)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(AnalysisFailures)
	prometheus.MustRegister(QualityScore)
	prometheus.MustRegister(InteractionsLogged)
	prometheus.MustRegister(StoreErrors)
	prometheus.MustRegister(AuthAttempts)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
