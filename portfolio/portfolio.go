// Package portfolio 组合账本
// 维护现金、持仓和成交流水，是回测与实盘共用的唯一资金状态
package portfolio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"swingtrader/logger"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Position 持仓
// Quantity 恒为正，清仓即从账本删除
type Position struct {
	Ticker     string    `json:"ticker"`
	Quantity   int64     `json:"quantity"`
	AvgPrice   float64   `json:"avg_price"`
	LastPrice  float64   `json:"last_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OpenDate   time.Time `json:"open_date"`
}

// Order 待执行订单
type Order struct {
	Ticker     string    `json:"ticker"`
	Side       Side      `json:"side"`
	Quantity   int64     `json:"quantity"`
	Price      float64   `json:"price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Reason     string    `json:"reason"`
	Date       time.Time `json:"date"`
}

// TradeRecord 成交记录（只追加）
type TradeRecord struct {
	Date     time.Time `json:"date"`
	Ticker   string    `json:"ticker"`
	Side     Side      `json:"side"`
	Quantity int64     `json:"quantity"`
	Price    float64   `json:"price"`
	Value    float64   `json:"value"`
	Fee      float64   `json:"fee"`
	Reason   string    `json:"reason"`
}

// Snapshot 账本快照，用于持久化
type Snapshot struct {
	Cash      float64       `json:"cash"`
	Positions []Position    `json:"positions"`
	Trades    []TradeRecord `json:"trades"`
}

// Manager 账本管理器
type Manager struct {
	mu        sync.RWMutex
	cash      float64
	positions map[string]*Position
	trades    []TradeRecord
}

// NewManager 创建账本
func NewManager(initialCash float64) *Manager {
	return &Manager{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

// Cash 当前现金
func (m *Manager) Cash() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash
}

// SetCash 直接设置现金（仅用于加载持久化状态）
func (m *Manager) SetCash(cash float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash = cash
}

// MarkToMarket 用当日收盘价更新持仓市值
// 缺价的标的保留上一次的标记价，估值不中断
func (m *Manager) MarkToMarket(closes map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ticker, pos := range m.positions {
		if price, ok := closes[ticker]; ok && price > 0 {
			pos.LastPrice = price
		}
	}
}

// TotalEquity 总权益 = 现金 + 持仓市值（按最近标记价）
func (m *Manager) TotalEquity() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	equity := m.cash
	for _, pos := range m.positions {
		equity += float64(pos.Quantity) * pos.LastPrice
	}
	return equity
}

// ExecuteOrder 执行订单并登记流水
// 不做资金充足性校验，出现负现金仅告警，由风控层负责事前约束
func (m *Manager) ExecuteOrder(order Order) error {
	if order.Quantity <= 0 {
		return fmt.Errorf("订单数量非法: %s %s qty=%d", order.Side, order.Ticker, order.Quantity)
	}
	if order.Price <= 0 {
		return fmt.Errorf("订单价格非法: %s %s price=%f", order.Side, order.Ticker, order.Price)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch order.Side {
	case SideBuy:
		return m.executeBuy(order)
	case SideSell:
		return m.executeSell(order)
	default:
		return fmt.Errorf("未知订单方向: %s", order.Side)
	}
}

func (m *Manager) executeBuy(order Order) error {
	value := float64(order.Quantity) * order.Price
	m.cash -= value
	if m.cash < 0 {
		logger.Warn("⚠️ 现金为负: %.2f (买入 %s x%d @%.2f)", m.cash, order.Ticker, order.Quantity, order.Price)
	}

	if pos, ok := m.positions[order.Ticker]; ok {
		// 加仓：成本加权，止损止盈以最新订单为准
		// 订单未带止损止盈(零值)时保留原有档位
		totalQty := pos.Quantity + order.Quantity
		pos.AvgPrice = (pos.AvgPrice*float64(pos.Quantity) + value) / float64(totalQty)
		pos.Quantity = totalQty
		pos.LastPrice = order.Price
		if order.StopLoss > 0 {
			pos.StopLoss = order.StopLoss
		}
		if order.TakeProfit > 0 {
			pos.TakeProfit = order.TakeProfit
		}
	} else {
		m.positions[order.Ticker] = &Position{
			Ticker:     order.Ticker,
			Quantity:   order.Quantity,
			AvgPrice:   order.Price,
			LastPrice:  order.Price,
			StopLoss:   order.StopLoss,
			TakeProfit: order.TakeProfit,
			OpenDate:   order.Date,
		}
	}

	m.trades = append(m.trades, TradeRecord{
		Date:     order.Date,
		Ticker:   order.Ticker,
		Side:     SideBuy,
		Quantity: order.Quantity,
		Price:    order.Price,
		Value:    value,
		Reason:   order.Reason,
	})

	logger.Info("📈 买入 %s x%d @%.2f (SL=%.2f TP=%.2f) 现金=%.2f",
		order.Ticker, order.Quantity, order.Price, order.StopLoss, order.TakeProfit, m.cash)
	return nil
}

func (m *Manager) executeSell(order Order) error {
	pos, ok := m.positions[order.Ticker]
	if !ok {
		return fmt.Errorf("卖出失败: 未持有 %s", order.Ticker)
	}

	qty := order.Quantity
	if qty > pos.Quantity {
		logger.Warn("⚠️ 卖出数量 %d 超过持仓 %d, 按持仓全部卖出: %s", qty, pos.Quantity, order.Ticker)
		qty = pos.Quantity
	}

	value := float64(qty) * order.Price
	m.cash += value

	pos.Quantity -= qty
	if pos.Quantity <= 0 {
		delete(m.positions, order.Ticker)
	} else {
		pos.LastPrice = order.Price
	}

	m.trades = append(m.trades, TradeRecord{
		Date:     order.Date,
		Ticker:   order.Ticker,
		Side:     SideSell,
		Quantity: qty,
		Price:    order.Price,
		Value:    value,
		Reason:   order.Reason,
	})

	logger.Info("📉 卖出 %s x%d @%.2f (%s) 现金=%.2f", order.Ticker, qty, order.Price, order.Reason, m.cash)
	return nil
}

// DebitFee 从现金扣除手续费，并计入最近一笔成交
func (m *Manager) DebitFee(fee float64) {
	if fee <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cash -= fee
	if n := len(m.trades); n > 0 {
		m.trades[n-1].Fee += fee
	}
	if m.cash < 0 {
		logger.Warn("⚠️ 扣除手续费后现金为负: %.2f", m.cash)
	}
}

// Position 查询单个持仓（副本），第二个返回值表示是否持有
func (m *Manager) Position(ticker string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.positions[ticker]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions 全部持仓快照，按标的排序
func (m *Manager) Positions() []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Position, 0, len(m.positions))
	for _, pos := range m.positions {
		result = append(result, *pos)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ticker < result[j].Ticker })
	return result
}

// PositionCount 持仓数量
func (m *Manager) PositionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}

// Trades 成交流水副本
func (m *Manager) Trades() []TradeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]TradeRecord, len(m.trades))
	copy(result, m.trades)
	return result
}

// TakeSnapshot 导出账本快照
func (m *Manager) TakeSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{Cash: m.cash}
	for _, pos := range m.positions {
		snap.Positions = append(snap.Positions, *pos)
	}
	sort.Slice(snap.Positions, func(i, j int) bool { return snap.Positions[i].Ticker < snap.Positions[j].Ticker })
	snap.Trades = make([]TradeRecord, len(m.trades))
	copy(snap.Trades, m.trades)
	return snap
}

// Restore 从快照恢复账本
func (m *Manager) Restore(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cash = snap.Cash
	m.positions = make(map[string]*Position, len(snap.Positions))
	for _, pos := range snap.Positions {
		if pos.Quantity <= 0 {
			continue
		}
		p := pos
		m.positions[pos.Ticker] = &p
	}
	m.trades = make([]TradeRecord, len(snap.Trades))
	copy(m.trades, snap.Trades)
}
