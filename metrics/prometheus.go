package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CDP Metrics Collector
// Shared by the chain's end blocker and the API service

const namespace = "cdp"

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all CDP metrics
type Collector struct {
	// Trove metrics
	TroveOpsTotal    *prometheus.CounterVec
	TroveOpLatency   *prometheus.HistogramVec
	TrovesOpen       prometheus.Gauge
	TrovesAtRisk     prometheus.Gauge
	CollateralLocked prometheus.Gauge
	DebtOutstanding  prometheus.Gauge
	CollateralRatio  prometheus.Histogram
	FeesCollected    *prometheus.CounterVec

	// Liquidation metrics
	LiquidationsTotal prometheus.Counter
	CollateralSeized  prometheus.Counter
	DebtWrittenOff    prometheus.Counter

	// Oracle metrics
	OraclePrice        *prometheus.GaugeVec
	OracleUpdatesTotal *prometheus.CounterVec
	OracleRejections   *prometheus.CounterVec

	// Stability pool metrics
	PoolDeposits       prometheus.Gauge
	PoolDepositors     prometheus.Gauge
	PoolOpsTotal       *prometheus.CounterVec
	PoolRewardsClaimed *prometheus.CounterVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	APIErrorsTotal    *prometheus.CounterVec
	RateLimitHits     *prometheus.CounterVec

	// System metrics
	BlockHeight       prometheus.Gauge
	EndBlockerLatency prometheus.Histogram
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector(prometheus.DefaultRegisterer)
	})
	return collector
}

// NewCollector creates a collector registered on reg. Tests pass a fresh
// registry to avoid duplicate registration on the default one.
func NewCollector(reg prometheus.Registerer) *Collector {
	return newCollector(reg)
}

func newCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{}

	// Trove metrics
	c.TroveOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "operations_total",
			Help:      "Trove operations by type and outcome",
		},
		[]string{"op", "status"},
	)

	c.TroveOpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "operation_latency_ms",
			Help:      "Trove operation latency in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50},
		},
		[]string{"op"},
	)

	c.TrovesOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "open",
			Help:      "Number of open troves",
		},
	)

	c.TrovesAtRisk = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "at_risk",
			Help:      "Number of troves below the minimum collateral ratio",
		},
	)

	c.CollateralLocked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "collateral_locked",
			Help:      "Total collateral held in custody, in native base units",
		},
	)

	c.DebtOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "debt_outstanding",
			Help:      "Total amount to close across open troves",
		},
	)

	c.CollateralRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "collateral_ratio",
			Help:      "Collateral ratio distribution of open troves",
			Buckets:   []float64{1.0, 1.1, 1.25, 1.5, 2, 3, 5},
		},
	)

	c.FeesCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trove",
			Name:      "fees_collected",
			Help:      "Borrowing fees collected, in debt-token units",
		},
		[]string{"kind"},
	)

	// Liquidation metrics
	c.LiquidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidations",
			Name:      "total",
			Help:      "Total number of liquidations",
		},
	)

	c.CollateralSeized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidations",
			Name:      "collateral_seized",
			Help:      "Collateral seized by liquidations, in native base units",
		},
	)

	c.DebtWrittenOff = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidations",
			Name:      "debt_written_off",
			Help:      "Outstanding debt of liquidated troves",
		},
	)

	// Oracle metrics
	c.OraclePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "price",
			Help:      "Latest published price",
		},
		[]string{"feed_id"},
	)

	c.OracleUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "updates_total",
			Help:      "Accepted price updates",
		},
		[]string{"feed_id"},
	)

	c.OracleRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "rejections_total",
			Help:      "Price reads rejected as unavailable or stale",
		},
		[]string{"feed_id", "reason"},
	)

	// Stability pool metrics
	c.PoolDeposits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stability_pool",
			Name:      "deposits",
			Help:      "Total debt tokens deposited",
		},
	)

	c.PoolDepositors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stability_pool",
			Name:      "depositors",
			Help:      "Number of open pool entries",
		},
	)

	c.PoolOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stability_pool",
			Name:      "operations_total",
			Help:      "Stability pool operations by type and outcome",
		},
		[]string{"op", "status"},
	)

	c.PoolRewardsClaimed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stability_pool",
			Name:      "rewards_claimed",
			Help:      "Claimed rewards by kind",
		},
		[]string{"kind"},
	)

	// WebSocket metrics
	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages sent",
		},
		[]string{"channel"},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.APIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Total API errors",
		},
		[]string{"method", "path", "error_type"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limit_hits",
			Help:      "Total rate limit hits",
		},
		[]string{"limit_type"},
	)

	// System metrics
	c.BlockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "block_height",
			Help:      "Current block height",
		},
	)

	c.EndBlockerLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "end_blocker_ms",
			Help:      "End blocker duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)

	c.registerAll(reg)

	return c
}

// registerAll registers all metrics with reg
func (c *Collector) registerAll(reg prometheus.Registerer) {
	reg.MustRegister(
		c.TroveOpsTotal,
		c.TroveOpLatency,
		c.TrovesOpen,
		c.TrovesAtRisk,
		c.CollateralLocked,
		c.DebtOutstanding,
		c.CollateralRatio,
		c.FeesCollected,

		c.LiquidationsTotal,
		c.CollateralSeized,
		c.DebtWrittenOff,

		c.OraclePrice,
		c.OracleUpdatesTotal,
		c.OracleRejections,

		c.PoolDeposits,
		c.PoolDepositors,
		c.PoolOpsTotal,
		c.PoolRewardsClaimed,

		c.WSConnectionsActive,
		c.WSMessagesTotal,

		c.APIRequestsTotal,
		c.APIRequestLatency,
		c.APIErrorsTotal,
		c.RateLimitHits,

		c.BlockHeight,
		c.EndBlockerLatency,
	)
}

// ============ Recording Helpers ============

// RecordTroveOp records a trove operation and its latency
func (c *Collector) RecordTroveOp(op string, err error, latencyMs float64) {
	c.TroveOpsTotal.WithLabelValues(op, status(err)).Inc()
	c.TroveOpLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordFees records the fees charged on a borrow
func (c *Collector) RecordFees(depositorFee, teamFee uint64) {
	c.FeesCollected.WithLabelValues("depositor").Add(float64(depositorFee))
	c.FeesCollected.WithLabelValues("team").Add(float64(teamFee))
}

// RecordLiquidation records a liquidation
func (c *Collector) RecordLiquidation(collateral, debt uint64) {
	c.LiquidationsTotal.Inc()
	c.CollateralSeized.Add(float64(collateral))
	c.DebtWrittenOff.Add(float64(debt))
}

// RecordTroveBook sets the aggregate trove gauges
func (c *Collector) RecordTroveBook(open, atRisk int, collateral, debt float64) {
	c.TrovesOpen.Set(float64(open))
	c.TrovesAtRisk.Set(float64(atRisk))
	c.CollateralLocked.Set(collateral)
	c.DebtOutstanding.Set(debt)
}

// RecordCollateralRatio observes one trove's collateral ratio
func (c *Collector) RecordCollateralRatio(ratio float64) {
	c.CollateralRatio.Observe(ratio)
}

// RecordPrice records an accepted price update
func (c *Collector) RecordPrice(feedID string, price float64) {
	c.OraclePrice.WithLabelValues(feedID).Set(price)
	c.OracleUpdatesTotal.WithLabelValues(feedID).Inc()
}

// RecordOracleRejection records a rejected price read
func (c *Collector) RecordOracleRejection(feedID, reason string) {
	c.OracleRejections.WithLabelValues(feedID, reason).Inc()
}

// RecordPoolOp records a stability pool operation
func (c *Collector) RecordPoolOp(op string, err error) {
	c.PoolOpsTotal.WithLabelValues(op, status(err)).Inc()
}

// RecordPoolState sets the stability pool gauges
func (c *Collector) RecordPoolState(deposits float64, depositors uint64) {
	c.PoolDeposits.Set(deposits)
	c.PoolDepositors.Set(float64(depositors))
}

// RecordClaim records claimed pool rewards
func (c *Collector) RecordClaim(token, governance, coin uint64) {
	c.PoolRewardsClaimed.WithLabelValues("token").Add(float64(token))
	c.PoolRewardsClaimed.WithLabelValues("governance").Add(float64(governance))
	c.PoolRewardsClaimed.WithLabelValues("coin").Add(float64(coin))
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordAPIError records an API error by type
func (c *Collector) RecordAPIError(method, path, errorType string) {
	c.APIErrorsTotal.WithLabelValues(method, path, errorType).Inc()
}

// RecordRateLimitHit records a rejected request
func (c *Collector) RecordRateLimitHit(limitType string) {
	c.RateLimitHits.WithLabelValues(limitType).Inc()
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(channel string) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
}

// RecordEndBlock records the block height and end blocker duration
func (c *Collector) RecordEndBlock(height int64, durationMs float64) {
	c.BlockHeight.Set(float64(height))
	c.EndBlockerLatency.Observe(durationMs)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
