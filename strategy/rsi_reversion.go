package strategy

import (
	"swingtrader/indicators"
	"swingtrader/market"
)

// RSIReversion RSI 均值回归策略
// RSI 跌破超卖线买入，突破超买线卖出
type RSIReversion struct {
	period        int
	buyThreshold  float64
	sellThreshold float64
	atrPeriod     int
}

// NewRSIReversion 创建 RSI 均值回归策略
func NewRSIReversion(params map[string]float64) *RSIReversion {
	return &RSIReversion{
		period:        int(param(params, "rsi_period", 14)),
		buyThreshold:  param(params, "buy_threshold", 30),
		sellThreshold: param(params, "sell_threshold", 70),
		atrPeriod:     int(param(params, "atr_period", 14)),
	}
}

// Name 策略名称
func (s *RSIReversion) Name() string {
	return "rsi_reversion"
}

// Params 策略参数
func (s *RSIReversion) Params() map[string]float64 {
	return map[string]float64{
		"rsi_period":     float64(s.period),
		"buy_threshold":  s.buyThreshold,
		"sell_threshold": s.sellThreshold,
		"atr_period":     float64(s.atrPeriod),
	}
}

// Compute 基于全量历史计算逐日信号
func (s *RSIReversion) Compute(history market.History) ([]Signal, error) {
	var signals []Signal

	for _, ticker := range sortedTickers(history) {
		bars := history[ticker]
		rsi := indicators.NewRSI(s.period).Calculate(bars)
		if rsi == nil {
			continue
		}
		atr := atrAligned(bars, s.atrPeriod)

		// RSI 序列相对 bars 的偏移
		offset := len(bars) - len(rsi)
		for i, value := range rsi {
			idx := offset + i
			bar := bars[idx]

			var action Action
			switch {
			case value < s.buyThreshold:
				action = ActionBuy
			case value > s.sellThreshold:
				action = ActionSell
			default:
				continue
			}

			signals = append(signals, Signal{
				Ticker: ticker,
				Date:   bar.Date,
				Action: action,
				Price:  bar.Close,
				ATR:    atr[idx],
			})
		}
	}

	return signals, nil
}
