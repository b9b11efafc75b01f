// Package metrics exposes Prometheus collectors for the matching engine,
// the ledger and webhook delivery. A nil *Registry is valid and records
// nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/efreitasn/arcclear/internal/domain"
)

// Registry holds the process collectors.
type Registry struct {
	registry      *prometheus.Registry
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	proposals     *prometheus.CounterVec
	bookDepth     *prometheus.GaugeVec
	ledgerTxTotal *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New creates a Registry with every collector registered.
func New() *Registry {
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcclear_match_cycles_total",
		Help: "Matching cycles run, by whether the iteration cap was hit",
	}, []string{"cap_hit"})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arcclear_match_cycle_duration_seconds",
		Help:    "Wall time of one matching cycle",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	proposals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcclear_match_proposals_total",
		Help: "Match proposals sent to the ledger, by outcome",
	}, []string{"outcome"})

	depth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arcclear_book_depth",
		Help: "Intents resting on a book after the last cycle",
	}, []string{"asset", "side"})

	ledgerTx := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcclear_ledger_transactions_total",
		Help: "Ledger transactions, by operation and result",
	}, []string{"op", "result"})

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcclear_webhook_deliveries_total",
		Help: "Webhook delivery attempts, by result",
	}, []string{"result"})

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arcclear_http_requests_total",
		Help: "HTTP requests served, by method and status code",
	}, []string{"method", "status"})

	r := prometheus.NewRegistry()
	r.MustRegister(cycles, duration, proposals, depth, ledgerTx, deliveries, requests)

	return &Registry{
		registry:      r,
		cyclesTotal:   cycles,
		cycleDuration: duration,
		proposals:     proposals,
		bookDepth:     depth,
		ledgerTxTotal: ledgerTx,
		deliveries:    deliveries,
		httpRequests:  requests,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records one finished matching cycle.
func (m *Registry) ObserveCycle(d time.Duration, capHit bool) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(strconv.FormatBool(capHit)).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// IncProposal counts a match proposal outcome: created, lost_race,
// rejected or stale.
func (m *Registry) IncProposal(outcome string) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(outcome).Inc()
}

// SetBookDepth records the resting depth of one side of a book.
func (m *Registry) SetBookDepth(asset string, side domain.Side, n int) {
	if m == nil {
		return
	}
	m.bookDepth.WithLabelValues(asset, string(side)).Set(float64(n))
}

// ObserveTx implements ledger.TxObserver. Failed transactions are
// labelled with the error kind.
func (m *Registry) ObserveTx(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	m.ledgerTxTotal.WithLabelValues(op, result).Inc()
}

// IncDelivery counts a webhook delivery attempt.
func (m *Registry) IncDelivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

// IncRequest counts a served HTTP request.
func (m *Registry) IncRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
