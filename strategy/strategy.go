// Package strategy 交易策略
// 每个策略基于全量日线历史计算逐日信号，由回测器或实盘流程按日期消费
package strategy

import (
	"fmt"
	"sort"
	"time"

	"swingtrader/indicators"
	"swingtrader/market"
)

// Action 信号方向
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal 单个标的在某个交易日的信号
type Signal struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Action Action    `json:"action"`
	Price  float64   `json:"price"` // 信号日收盘价
	ATR    float64   `json:"atr"`   // 信号日 ATR，供风控计算仓位
}

// Strategy 策略接口
type Strategy interface {
	// Name 策略名称
	Name() string
	// Params 策略参数
	Params() map[string]float64
	// Compute 基于全量历史计算逐日信号
	Compute(history market.History) ([]Signal, error)
}

// factories 闭合的策略工厂表，不支持运行时注册
var factories = map[string]func(params map[string]float64) Strategy{
	"rsi_reversion": func(params map[string]float64) Strategy { return NewRSIReversion(params) },
	"ema_cross":     func(params map[string]float64) Strategy { return NewEMACross(params) },
}

// New 按名称创建策略
func New(name string, params map[string]float64) (Strategy, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("未知策略: %s (可用: %v)", name, Names())
	}
	return factory(params), nil
}

// Names 列出所有可用策略名称
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortedTickers 固定遍历顺序，信号表的行序决定同轮评估的资金分配
func sortedTickers(history market.History) []string {
	tickers := make([]string, 0, len(history))
	for ticker := range history {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// param 读取参数，缺失时使用默认值
func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// atrAligned 计算与 bars 等长的 ATR 序列，不足周期的前段为 0
func atrAligned(bars []market.Bar, period int) []float64 {
	result := make([]float64, len(bars))
	values := indicators.NewATR(period).Calculate(bars)
	if values == nil {
		return result
	}
	offset := len(bars) - len(values)
	for i, v := range values {
		result[offset+i] = v
	}
	return result
}

// SignalsOn 过滤出指定交易日的信号
func SignalsOn(signals []Signal, date time.Time) []Signal {
	day := market.Day(date)
	var result []Signal
	for _, s := range signals {
		if s.Date.Equal(day) {
			result = append(result, s)
		}
	}
	return result
}
