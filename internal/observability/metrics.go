package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	verificationCounter   *prometheus.CounterVec
	settlementCounter     *prometheus.CounterVec
	amlAlertCounter       *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	wsClientsGauge        prometheus.Gauge
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		verificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_verifications_total",
			Help: "Cashier verification outcomes",
		}, []string{"outcome"})

		settlementCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_transitions_total",
			Help: "Settlement request status transitions",
		}, []string{"status"})

		amlAlertCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aml_alerts_total",
			Help: "AML alerts raised per rule",
		}, []string{"rule"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		wsClientsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Currently connected WebSocket clients",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			verificationCounter,
			settlementCounter,
			amlAlertCounter,
			idempotencyCounter,
			wsClientsGauge,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementVerification(outcome string) {
	if verificationCounter == nil {
		return
	}
	verificationCounter.WithLabelValues(outcome).Inc()
}

func IncrementSettlementTransition(status string) {
	if settlementCounter == nil {
		return
	}
	settlementCounter.WithLabelValues(status).Inc()
}

func IncrementAmlAlert(rule string) {
	if amlAlertCounter == nil {
		return
	}
	amlAlertCounter.WithLabelValues(rule).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetWebSocketClients(count int64) {
	if wsClientsGauge == nil {
		return
	}
	wsClientsGauge.Set(float64(count))
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
