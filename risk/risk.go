// Package risk 风控
// 把策略信号转换为经过仓位控制的订单，并负责盘中止损止盈扫描
package risk

import (
	"fmt"
	"math"
	"time"

	"swingtrader/logger"
	"swingtrader/market"
	"swingtrader/portfolio"
	"swingtrader/strategy"
)

// 止损止盈出场原因
const (
	ReasonSignal     = "SIGNAL"
	ReasonStopLoss   = "STOP_LOSS"
	ReasonGapStop    = "GAP_STOP"
	ReasonTakeProfit = "TAKE_PROFIT"
	ReasonGapTarget  = "GAP_TARGET"
)

// Manager 风控管理器
type Manager struct {
	riskPerTrade      float64 // 单笔风险占权益比例
	stopATRMultiplier float64 // 止损距离的 ATR 倍数
}

// NewManager 创建风控管理器，参数必须为正
func NewManager(riskPerTrade, stopATRMultiplier float64) (*Manager, error) {
	if riskPerTrade <= 0 {
		return nil, fmt.Errorf("risk_per_trade 必须为正: %f", riskPerTrade)
	}
	if stopATRMultiplier <= 0 {
		return nil, fmt.Errorf("stop_atr_multiplier 必须为正: %f", stopATRMultiplier)
	}
	return &Manager{
		riskPerTrade:      riskPerTrade,
		stopATRMultiplier: stopATRMultiplier,
	}, nil
}

// Evaluate 把当日信号转换为订单，纯函数，只读入参不碰账本
// 先处理卖出释放模拟现金，再按风险预算为买入定仓
// 权益是调用方取好的快照，整轮评估使用同一基数
func (m *Manager) Evaluate(signals []strategy.Signal, equity, cash float64, positions []portfolio.Position) []portfolio.Order {
	var orders []portfolio.Order

	simCash := cash

	// 本轮已卖出的标的视为不再持有
	held := make(map[string]int64, len(positions))
	for _, pos := range positions {
		held[pos.Ticker] = pos.Quantity
	}

	// 第一遍：卖出
	for _, sig := range signals {
		if sig.Action != strategy.ActionSell {
			continue
		}
		qty := held[sig.Ticker]
		if qty <= 0 {
			continue
		}

		orders = append(orders, portfolio.Order{
			Ticker:   sig.Ticker,
			Side:     portfolio.SideSell,
			Quantity: qty,
			Price:    sig.Price,
			Reason:   ReasonSignal,
			Date:     sig.Date,
		})
		simCash += float64(qty) * sig.Price
		held[sig.Ticker] = 0
	}

	// 第二遍：买入
	for _, sig := range signals {
		if sig.Action != strategy.ActionBuy {
			continue
		}
		// 不加仓
		if held[sig.Ticker] > 0 {
			continue
		}
		if sig.ATR <= 0 {
			logger.Debug("跳过 %s: ATR 非正 (%.4f)", sig.Ticker, sig.ATR)
			continue
		}

		stopDistance := sig.ATR * m.stopATRMultiplier
		stopLoss := sig.Price - stopDistance
		if stopLoss <= 0 {
			logger.Debug("跳过 %s: 止损价非正 (%.4f)", sig.Ticker, stopLoss)
			continue
		}

		// 风险预算定仓，再受可用现金约束
		budget := equity * m.riskPerTrade
		shares := int64(math.Floor(budget / stopDistance))
		affordable := int64(math.Floor(simCash / sig.Price))
		if affordable < shares {
			shares = affordable
		}
		if shares < 1 {
			logger.Debug("跳过 %s: 可买数量不足 1 股", sig.Ticker)
			continue
		}

		takeProfit := sig.Price + 2*stopDistance

		orders = append(orders, portfolio.Order{
			Ticker:     sig.Ticker,
			Side:       portfolio.SideBuy,
			Quantity:   shares,
			Price:      sig.Price,
			StopLoss:   stopLoss,
			TakeProfit: takeProfit,
			Reason:     ReasonSignal,
			Date:       sig.Date,
		})
		simCash -= float64(shares) * sig.Price
		held[sig.Ticker] = shares
	}

	if len(orders) > 0 {
		logger.Info("🛡️ 风控评估: %d 个信号 -> %d 个订单", len(signals), len(orders))
	}
	return orders
}

// CheckIntradayStops 扫描当日K线，生成止损止盈出场订单
// 止损优先于止盈；跳空穿越止损/止盈价时按开盘价成交
func (m *Manager) CheckIntradayStops(ledger *portfolio.Manager, history market.History, date time.Time) []portfolio.Order {
	var orders []portfolio.Order

	for _, pos := range ledger.Positions() {
		bar, ok := market.BarOn(history, pos.Ticker, date)
		if !ok {
			continue
		}

		// 止损优先
		if pos.StopLoss > 0 && bar.Low <= pos.StopLoss {
			price := pos.StopLoss
			reason := ReasonStopLoss
			if bar.Open <= pos.StopLoss {
				price = bar.Open
				reason = ReasonGapStop
			}
			orders = append(orders, portfolio.Order{
				Ticker:   pos.Ticker,
				Side:     portfolio.SideSell,
				Quantity: pos.Quantity,
				Price:    price,
				Reason:   reason,
				Date:     market.Day(date),
			})
			continue
		}

		if pos.TakeProfit > 0 && bar.High >= pos.TakeProfit {
			price := pos.TakeProfit
			reason := ReasonTakeProfit
			if bar.Open >= pos.TakeProfit {
				price = bar.Open
				reason = ReasonGapTarget
			}
			orders = append(orders, portfolio.Order{
				Ticker:   pos.Ticker,
				Side:     portfolio.SideSell,
				Quantity: pos.Quantity,
				Price:    price,
				Reason:   reason,
				Date:     market.Day(date),
			})
		}
	}

	return orders
}

// RiskPerTrade 单笔风险比例
func (m *Manager) RiskPerTrade() float64 {
	return m.riskPerTrade
}

// StopATRMultiplier 止损 ATR 倍数
func (m *Manager) StopATRMultiplier() float64 {
	return m.stopATRMultiplier
}
