package indicators

import "swingtrader/market"

// ATR 平均真实波幅，真实波幅序列经 EMA 平滑
// 止损距离和仓位大小都以它为波动基准
type ATR struct {
	period int
}

// NewATR 创建 ATR 指标
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Name 指标名称
func (a *ATR) Name() string { return "ATR" }

// Period 所需最小K线数
func (a *ATR) Period() int { return a.period + 1 }

// Calculate 计算 ATR 序列，尾部对齐
func (a *ATR) Calculate(bars []market.Bar) []float64 {
	if len(bars) <= a.period {
		return nil
	}
	return EMA(TrueRangeSeries(bars), a.period)
}

// CurrentATR 最新一根K线的 ATR，数据不足时返回 0
func (a *ATR) CurrentATR(bars []market.Bar) float64 {
	values := a.Calculate(bars)
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
