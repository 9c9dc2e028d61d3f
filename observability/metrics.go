package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"randomnft/core/events"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record API
// activity per route.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "randomnft",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route, method and outcome.",
			}, []string{"route", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "randomnft",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route, method, and status code.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "randomnft",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "randomnft",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"route", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied route and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(route, reason string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(route, reason).Inc()
}

// LedgerMetrics tracks the mint lifecycle. It consumes ledger events and
// fulfillment outcomes, so it can be attached as an emitter and as the
// oracle consumer's observer.
type LedgerMetrics struct {
	requests     prometheus.Counter
	fulfillments *prometheus.CounterVec
	pending      prometheus.Gauge
	withdrawals  prometheus.Counter
	treasury     prometheus.Gauge

	mu          sync.Mutex
	treasuryWei *big.Int
}

// Ledger returns the singleton ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			requests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "randomnft",
				Name:      "requests_total",
				Help:      "Count of admitted mint requests.",
			}),
			fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "randomnft",
				Name:      "fulfillments_total",
				Help:      "Count of randomness fulfillments segmented by outcome.",
			}, []string{"outcome"}),
			pending: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "randomnft",
				Name:      "pending_requests",
				Help:      "Requests admitted but not yet fulfilled.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "randomnft",
				Name:      "withdrawals_total",
				Help:      "Count of treasury withdrawals.",
			}),
			treasury: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "randomnft",
				Name:      "treasury_wei",
				Help:      "Fees held by the treasury in wei.",
			}),
			treasuryWei: big.NewInt(0),
		}
		prometheus.MustRegister(
			ledgerRegistry.requests,
			ledgerRegistry.fulfillments,
			ledgerRegistry.pending,
			ledgerRegistry.withdrawals,
			ledgerRegistry.treasury,
		)
	})
	return ledgerRegistry
}

// Seed initialises the gauges from persisted state at startup.
func (m *LedgerMetrics) Seed(pending uint64, treasury *big.Int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending.Set(float64(pending))
	m.treasuryWei = new(big.Int)
	if treasury != nil {
		m.treasuryWei.Set(treasury)
	}
	m.treasury.Set(bigToFloat(m.treasuryWei))
}

// Emit implements events.Emitter.
func (m *LedgerMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e := evt.(type) {
	case events.AssetRequested:
		m.requests.Inc()
		m.pending.Inc()
		if e.Paid != nil {
			m.treasuryWei.Add(m.treasuryWei, e.Paid)
		}
	case events.AssetMinted:
		m.pending.Dec()
	case events.TreasuryWithdrawn:
		m.withdrawals.Inc()
		m.treasuryWei.SetInt64(0)
	default:
		return
	}
	m.treasury.Set(bigToFloat(m.treasuryWei))
}

// ObserveFulfillment counts a fulfillment by outcome, e.g. "minted" or
// "only_coordinator".
func (m *LedgerMetrics) ObserveFulfillment(outcome string) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.fulfillments.WithLabelValues(outcome).Inc()
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
