package indicators

import (
	"math"

	"swingtrader/market"
)

// SMA 简单移动平均，返回长度 len(values)-period+1 的尾部对齐序列
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)
	var window float64
	for i, v := range values {
		window += v
		if i >= period {
			window -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, window/float64(period))
		}
	}
	return out
}

// EMA 指数移动平均，首值用前 period 个数据的均值做种子
// 返回尾部对齐序列，长度 len(values)-period+1
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	k := 2.0 / float64(period+1)
	prev := seed
	for _, v := range values[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// TrueRange 单日真实波幅
func TrueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if d := math.Abs(high - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// TrueRangeSeries 真实波幅序列，首根K线没有前收无法计算
func TrueRangeSeries(bars []market.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}

	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		out = append(out, TrueRange(bars[i].High, bars[i].Low, bars[i-1].Close))
	}
	return out
}

// ClosePrices 提取收盘价序列
func ClosePrices(bars []market.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i := range bars {
		closes[i] = bars[i].Close
	}
	return closes
}

// CrossOver 金叉：fast 从下方或重合上穿 slow
func CrossOver(fast, slow []float64) bool {
	nf, ns := len(fast), len(slow)
	if nf < 2 || ns < 2 {
		return false
	}
	return fast[nf-2] <= slow[ns-2] && fast[nf-1] > slow[ns-1]
}

// CrossUnder 死叉：fast 从上方或重合下穿 slow
func CrossUnder(fast, slow []float64) bool {
	nf, ns := len(fast), len(slow)
	if nf < 2 || ns < 2 {
		return false
	}
	return fast[nf-2] >= slow[ns-2] && fast[nf-1] < slow[ns-1]
}
