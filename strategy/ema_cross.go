package strategy

import (
	"swingtrader/indicators"
	"swingtrader/market"
)

// EMACross 双均线交叉策略
// 快线上穿慢线买入（金叉），下穿卖出（死叉）
type EMACross struct {
	fastPeriod int
	slowPeriod int
	atrPeriod  int
}

// NewEMACross 创建双均线交叉策略
func NewEMACross(params map[string]float64) *EMACross {
	return &EMACross{
		fastPeriod: int(param(params, "fast_period", 20)),
		slowPeriod: int(param(params, "slow_period", 50)),
		atrPeriod:  int(param(params, "atr_period", 14)),
	}
}

// Name 策略名称
func (s *EMACross) Name() string {
	return "ema_cross"
}

// Params 策略参数
func (s *EMACross) Params() map[string]float64 {
	return map[string]float64{
		"fast_period": float64(s.fastPeriod),
		"slow_period": float64(s.slowPeriod),
		"atr_period":  float64(s.atrPeriod),
	}
}

// Compute 基于全量历史计算逐日信号
func (s *EMACross) Compute(history market.History) ([]Signal, error) {
	var signals []Signal

	for _, ticker := range sortedTickers(history) {
		bars := history[ticker]
		closes := indicators.ClosePrices(bars)
		fast := indicators.EMA(closes, s.fastPeriod)
		slow := indicators.EMA(closes, s.slowPeriod)
		if fast == nil || slow == nil {
			continue
		}
		atr := atrAligned(bars, s.atrPeriod)

		// 对齐到 bars 索引：EMA 序列尾部与 bars 尾部对齐
		fastOffset := len(bars) - len(fast)
		slowOffset := len(bars) - len(slow)

		// 从慢线有前一个值的位置开始判断交叉
		for idx := slowOffset + 1; idx < len(bars); idx++ {
			prevFast := fast[idx-1-fastOffset]
			prevSlow := slow[idx-1-slowOffset]
			curFast := fast[idx-fastOffset]
			curSlow := slow[idx-slowOffset]

			var action Action
			switch {
			case prevFast <= prevSlow && curFast > curSlow:
				action = ActionBuy
			case prevFast >= prevSlow && curFast < curSlow:
				action = ActionSell
			default:
				continue
			}

			bar := bars[idx]
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
