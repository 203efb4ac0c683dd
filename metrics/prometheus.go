// Package metrics Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 订单指标
	orderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingtrader_order_total",
			Help: "Total number of orders executed",
		},
		[]string{"strategy", "ticker", "side", "reason"},
	)

	orderValue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingtrader_order_value_total",
			Help: "Total executed order value in account currency",
		},
		[]string{"strategy", "side"},
	)

	feeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingtrader_fee_total",
			Help: "Total commission paid",
		},
		[]string{"strategy"},
	)

	// 组合指标
	equityGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swingtrader_equity",
			Help: "Current total equity",
		},
		[]string{"strategy"},
	)

	cashGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swingtrader_cash",
			Help: "Current cash balance",
		},
		[]string{"strategy"},
	)

	positionCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swingtrader_position_count",
			Help: "Number of open positions",
		},
		[]string{"strategy"},
	)

	pendingOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "swingtrader_pending_orders",
			Help: "Number of queued limit orders",
		},
	)

	// 运行指标
	backtestRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swingtrader_backtest_runs_total",
			Help: "Total number of completed backtests",
		},
	)

	backtestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swingtrader_backtest_duration_seconds",
			Help:    "Backtest run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swingtrader_run_duration_seconds",
			Help:    "Live run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)
)

// RecordOrder 记录一笔成交
func RecordOrder(strategy, ticker, side, reason string, value float64) {
	orderTotal.WithLabelValues(strategy, ticker, side, reason).Inc()
	orderValue.WithLabelValues(strategy, side).Add(value)
}

// RecordFee 记录手续费
func RecordFee(strategy string, fee float64) {
	if fee > 0 {
		feeTotal.WithLabelValues(strategy).Add(fee)
	}
}

// SetPortfolio 更新组合指标
func SetPortfolio(strategy string, equity, cash float64, positions int) {
	equityGauge.WithLabelValues(strategy).Set(equity)
	cashGauge.WithLabelValues(strategy).Set(cash)
	positionCount.WithLabelValues(strategy).Set(float64(positions))
}

// SetPendingOrders 更新排队订单数量
func SetPendingOrders(n int) {
	pendingOrders.Set(float64(n))
}

// RecordBacktest 记录一次完成的回测
func RecordBacktest(duration time.Duration) {
	backtestRuns.Inc()
	backtestDuration.Observe(duration.Seconds())
}

// RecordRun 记录一次实盘流程耗时
func RecordRun(mode string, duration time.Duration) {
	runDuration.WithLabelValues(mode).Observe(duration.Seconds())
}
