// Package metrics implements the wallet MetricsCollector on Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ledgerpay/internal/services/wallet"
)

type PrometheusCollector struct {
	operationDuration *prometheus.HistogramVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	balanceGauge      *prometheus.GaugeVec
	errors            *prometheus.CounterVec
	transactions      *prometheus.CounterVec
	transactionVolume *prometheus.CounterVec
	withdrawals       *prometheus.CounterVec
}

// NewPrometheusCollector registers the collectors on the given registerer.
// Pass prometheus.DefaultRegisterer for the standard /metrics endpoint.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerpay_operation_duration_seconds",
			Help:    "Duration of wallet and ledger operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpay_cache_hits_total",
			Help: "Cache hits by key type.",
		}, []string{"key"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpay_cache_misses_total",
			Help: "Cache misses by key type.",
		}, []string{"key"}),
		balanceGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledgerpay_wallet_balance",
			Help: "Last observed wallet balance.",
		}, []string{"user_id"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpay_errors_total",
			Help: "Errors by operation and kind.",
		}, []string{"operation", "kind"}),
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpay_transactions_total",
			Help: "Committed transactions by type.",
		}, []string{"type"}),
		transactionVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpay_transaction_volume",
			Help: "Total committed transaction volume by type.",
		}, []string{"type"}),
		withdrawals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpay_withdrawals_total",
			Help: "Withdrawal state transitions by resulting status.",
		}, []string{"status"}),
	}
}

var _ wallet.MetricsCollector = (*PrometheusCollector)(nil)

func (c *PrometheusCollector) RecordOperationDuration(operation string, d time.Duration) {
	c.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordCacheHit(key string) {
	c.cacheHits.WithLabelValues(key).Inc()
}

func (c *PrometheusCollector) RecordCacheMiss(key string) {
	c.cacheMisses.WithLabelValues(key).Inc()
}

func (c *PrometheusCollector) RecordBalanceChange(userID uint, _, newBalance float64) {
	c.balanceGauge.WithLabelValues(strconv.FormatUint(uint64(userID), 10)).Set(newBalance)
}

func (c *PrometheusCollector) RecordError(operation, kind string) {
	c.errors.WithLabelValues(operation, kind).Inc()
}

func (c *PrometheusCollector) RecordTransaction(txType string, amount float64) {
	c.transactions.WithLabelValues(txType).Inc()
	c.transactionVolume.WithLabelValues(txType).Add(amount)
}

func (c *PrometheusCollector) RecordWithdrawal(status string) {
	c.withdrawals.WithLabelValues(status).Inc()
}
