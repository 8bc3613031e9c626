package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cycle metrics
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upbit_bot_cycles_total",
			Help: "Total number of trading cycles by outcome",
		},
		[]string{"kind", "outcome"},
	)

	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upbit_bot_cycle_duration_seconds",
			Help:    "Distribution of trading cycle durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Order metrics
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upbit_bot_orders_total",
			Help: "Total number of orders by side and result",
		},
		[]string{"side", "result"},
	)

	orderAmountKRW = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upbit_bot_order_amount_krw",
			Help:    "Distribution of order sizes in KRW",
			Buckets: []float64{5000, 10000, 50000, 100000, 500000, 1000000, 5000000},
		},
		[]string{"side"},
	)

	// Portfolio metrics
	portfolioValueKRW = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "upbit_bot_portfolio_value_krw",
			Help: "Total portfolio value including KRW balance",
		},
	)

	positionRiskPct = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upbit_bot_position_risk_pct",
			Help: "Position risk as percent of portfolio value",
		},
		[]string{"ticker"},
	)

	atrPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upbit_bot_atr_percent",
			Help: "ATR as percent of current price",
		},
		[]string{"ticker"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upbit_bot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(cycleDuration)
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(orderAmountKRW)
	prometheus.MustRegister(portfolioValueKRW)
	prometheus.MustRegister(positionRiskPct)
	prometheus.MustRegister(atrPercent)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus scrape endpoint.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordCycle records the outcome and duration of one trading cycle.
func RecordCycle(kind, outcome string, seconds float64) {
	cyclesTotal.WithLabelValues(kind, outcome).Inc()
	cycleDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordOrder records a placed order and its terminal result.
func RecordOrder(side, result string, amountKRW float64) {
	ordersTotal.WithLabelValues(side, result).Inc()
	if amountKRW > 0 {
		orderAmountKRW.WithLabelValues(side).Observe(amountKRW)
	}
}

// UpdatePortfolioValue updates the total portfolio value gauge.
func UpdatePortfolioValue(valueKRW float64) {
	portfolioValueKRW.Set(valueKRW)
}

// UpdatePositionRisk updates the per-position risk gauges.
func UpdatePositionRisk(ticker string, riskPct, atrPct float64) {
	positionRiskPct.WithLabelValues(ticker).Set(riskPct)
	atrPercent.WithLabelValues(ticker).Set(atrPct)
}

// RecordError records an error by its category.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
