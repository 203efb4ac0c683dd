package indicators

import "swingtrader/market"

// 超买超卖阈值
const (
	rsiOversold   = 30
	rsiOverbought = 70
)

// RSI 相对强弱指数，涨跌幅经 EMA 平滑
type RSI struct {
	period int
}

// NewRSI 创建 RSI 指标
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Name 指标名称
func (r *RSI) Name() string { return "RSI" }

// Period 所需最小K线数
func (r *RSI) Period() int { return r.period + 1 }

// Calculate 计算 RSI 序列，尾部对齐
func (r *RSI) Calculate(bars []market.Bar) []float64 {
	closes := ClosePrices(bars)
	if len(closes) <= r.period {
		return nil
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		switch delta := closes[i] - closes[i-1]; {
		case delta > 0:
			gains[i-1] = delta
		case delta < 0:
			losses[i-1] = -delta
		}
	}

	avgGain := EMA(gains, r.period)
	avgLoss := EMA(losses, r.period)
	if avgGain == nil || avgLoss == nil {
		return nil
	}

	out := make([]float64, len(avgGain))
	for i := range out {
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		out[i] = 100 - 100/(1+avgGain[i]/avgLoss[i])
	}
	return out
}

// Signal 固定阈值信号：超卖买入，超买卖出
func (r *RSI) Signal(bars []market.Bar) int {
	values := r.Calculate(bars)
	if len(values) == 0 {
		return 0
	}
	switch last := values[len(values)-1]; {
	case last < rsiOversold:
		return 1
	case last > rsiOverbought:
		return -1
	default:
		return 0
	}
}
