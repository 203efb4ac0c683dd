// Package indicators 技术指标库
// 基于日线 Bar 序列计算，供策略信号和风控仓位使用
package indicators

import "swingtrader/market"

// Indicator 指标接口
type Indicator interface {
	// Name 指标名称
	Name() string
	// Calculate 计算指标值
	Calculate(bars []market.Bar) []float64
	// Period 计算所需的最小周期数
	Period() int
}

// SignalIndicator 信号指标接口
type SignalIndicator interface {
	Indicator
	// Signal 返回交易信号：1=买入，-1=卖出，0=观望
	Signal(bars []market.Bar) int
}
