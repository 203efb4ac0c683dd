package backtest

import (
	"math"

	"swingtrader/portfolio"
)

// Metrics 回测绩效指标
type Metrics struct {
	ROIPct              float64 `json:"roi_pct"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	VolatilityPct       float64 `json:"volatility_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	WinRate             float64 `json:"win_rate"`
	ProfitFactor        float64 `json:"profit_factor"`
	TotalTrades         int     `json:"total_trades"`
	TotalFees           float64 `json:"total_fees"`
	FinalEquity         float64 `json:"final_equity"`
}

// tradingDaysPerYear 年化折算用的交易日数
const tradingDaysPerYear = 252

// ComputeMetrics 从权益曲线和成交流水计算绩效指标
func ComputeMetrics(curve []EquityPoint, trades []portfolio.TradeRecord, initialCapital float64) Metrics {
	m := Metrics{TotalTrades: len(trades)}
	if len(curve) == 0 || initialCapital <= 0 {
		return m
	}

	final := curve[len(curve)-1].Equity
	m.FinalEquity = final
	m.ROIPct = (final - initialCapital) / initialCapital * 100

	// 最大回撤
	peak := curve[0].Equity
	maxDD := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	m.MaxDrawdownPct = maxDD * 100

	// 年化收益
	if len(curve) > 1 && final > 0 {
		years := float64(len(curve)) / tradingDaysPerYear
		if years > 0 {
			m.AnnualizedReturnPct = (math.Pow(final/initialCapital, 1/years) - 1) * 100
		}
	}

	// 年化波动率与夏普比率（日收益率, 无风险利率取 0）
	if len(curve) > 2 {
		returns := make([]float64, 0, len(curve)-1)
		for i := 1; i < len(curve); i++ {
			prev := curve[i-1].Equity
			if prev > 0 {
				returns = append(returns, (curve[i].Equity-prev)/prev)
			}
		}
		if len(returns) > 1 {
			mean := 0.0
			for _, r := range returns {
				mean += r
			}
			mean /= float64(len(returns))

			variance := 0.0
			for _, r := range returns {
				variance += (r - mean) * (r - mean)
			}
			std := math.Sqrt(variance / float64(len(returns)-1))
			m.VolatilityPct = std * math.Sqrt(tradingDaysPerYear) * 100
			if std > 0 {
				m.SharpeRatio = mean / std * math.Sqrt(tradingDaysPerYear)
			}
		}
	}

	// 胜率和盈亏比: 按平仓往返统计（FIFO 成本）
	m.WinRate, m.ProfitFactor = roundTripStats(trades)

	for _, t := range trades {
		m.TotalFees += t.Fee
	}

	return m
}

// roundTripStats 按 FIFO 成本把卖出成交折算成平仓往返
// 返回胜率（百分比）和盈亏比（毛利/毛亏, 无亏损时为 0）
func roundTripStats(trades []portfolio.TradeRecord) (float64, float64) {
	type lot struct {
		qty   int64
		price float64
	}
	lots := make(map[string][]lot)

	wins, closed := 0, 0
	grossProfit, grossLoss := 0.0, 0.0
	for _, t := range trades {
		switch t.Side {
		case portfolio.SideBuy:
			lots[t.Ticker] = append(lots[t.Ticker], lot{qty: t.Quantity, price: t.Price})
		case portfolio.SideSell:
			remaining := t.Quantity
			cost := 0.0
			costQty := int64(0)
			queue := lots[t.Ticker]
			for remaining > 0 && len(queue) > 0 {
				take := queue[0].qty
				if take > remaining {
					take = remaining
				}
				cost += float64(take) * queue[0].price
				costQty += take
				queue[0].qty -= take
				remaining -= take
				if queue[0].qty == 0 {
					queue = queue[1:]
				}
			}
			lots[t.Ticker] = queue

			if costQty > 0 {
				closed++
				pnl := float64(costQty)*t.Price - cost
				if pnl > 0 {
					wins++
					grossProfit += pnl
				} else {
					grossLoss += -pnl
				}
			}
		}
	}

	if closed == 0 {
		return 0, 0
	}

	profitFactor := 0.0
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}
	return float64(wins) / float64(closed) * 100, profitFactor
}
