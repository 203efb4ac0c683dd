// Package backtest 回测引擎
// 按交易日推进的影子执行：周度决策、次日开盘成交、盘中止损止盈
package backtest

import (
	"fmt"
	"time"

	"swingtrader/config"
	"swingtrader/logger"
	"swingtrader/market"
	"swingtrader/portfolio"
	"swingtrader/risk"
	"swingtrader/strategy"
)

// EquityPoint 权益曲线上的一个点
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
	Cash   float64   `json:"cash"`
}

// Result 单个策略的回测结果
type Result struct {
	Strategy    string                  `json:"strategy"`
	Params      map[string]float64      `json:"params"`
	EquityCurve []EquityPoint           `json:"equity_curve"`
	Trades      []portfolio.TradeRecord `json:"trades"`
	Metrics     Metrics                 `json:"metrics"`
}

// Simulator 单策略回测器
type Simulator struct {
	cfg      *config.Config
	strat    strategy.Strategy
	riskMgr  *risk.Manager
	ledger   *portfolio.Manager
	pending  []portfolio.Order
	decision time.Weekday
}

// NewSimulator 创建回测器，每次回测使用独立的账本和风控
func NewSimulator(cfg *config.Config, strat strategy.Strategy) (*Simulator, error) {
	riskMgr, err := risk.NewManager(cfg.Risk.RiskPerTrade, cfg.Risk.StopATRMultiplier)
	if err != nil {
		return nil, fmt.Errorf("创建风控失败: %w", err)
	}

	return &Simulator{
		cfg:      cfg,
		strat:    strat,
		riskMgr:  riskMgr,
		ledger:   portfolio.NewManager(cfg.Backtest.InitialCapital),
		decision: cfg.DecisionWeekday(),
	}, nil
}

// Run 执行回测
// 历史数据只读共享，所有可变状态都在回测器内部
func (s *Simulator) Run(history market.History) (*Result, error) {
	days := market.TradingDays(history)
	if len(days) == 0 {
		return nil, fmt.Errorf("历史数据为空")
	}

	signals, err := s.strat.Compute(history)
	if err != nil {
		return nil, fmt.Errorf("策略 %s 计算信号失败: %w", s.strat.Name(), err)
	}

	warmup := s.cfg.Backtest.WarmupDays
	if warmup >= len(days) {
		return nil, fmt.Errorf("预热期 %d 不小于交易日总数 %d", warmup, len(days))
	}

	logger.Info("🚀 回测开始: 策略=%s 交易日=%d 预热=%d 初始资金=%.2f",
		s.strat.Name(), len(days), warmup, s.cfg.Backtest.InitialCapital)

	curve := make([]EquityPoint, 0, len(days)-warmup)

	// 亏损也不提前终止，完整跑完整个区间
	for i := warmup; i < len(days); i++ {
		day := days[i]
		closes := market.ClosesOn(history, day)

		// 1. 先按今日收盘标记持仓，决策日的风险预算基于当日权益
		s.ledger.MarkToMarket(closes)

		// 2. 上一决策日排队的买入按今日开盘成交，未成交即作废
		s.fillPending(history, day)

		// 3. 盘中止损止盈扫描
		for _, order := range s.riskMgr.CheckIntradayStops(s.ledger, history, day) {
			s.execute(order)
		}

		// 4. 决策日: 卖出当日收盘执行, 买入排队到下一开盘
		if day.Weekday() == s.decision {
			s.decide(signals, day)
		}

		// 5. 收盘再标记一次，今日开盘买入的持仓也按收盘计入权益
		s.ledger.MarkToMarket(closes)
		curve = append(curve, EquityPoint{
			Date:   day,
			Equity: s.ledger.TotalEquity(),
			Cash:   s.ledger.Cash(),
		})
	}

	trades := s.ledger.Trades()
	metrics := ComputeMetrics(curve, trades, s.cfg.Backtest.InitialCapital)

	logger.Info("✅ 回测完成: 策略=%s 成交=%d 收益率=%.2f%% 最大回撤=%.2f%%",
		s.strat.Name(), len(trades), metrics.ROIPct, metrics.MaxDrawdownPct)

	return &Result{
		Strategy:    s.strat.Name(),
		Params:      s.strat.Params(),
		EquityCurve: curve,
		Trades:      trades,
		Metrics:     metrics,
	}, nil
}

// fillPending 以当日开盘价成交排队买单，队列单次消费不重试
func (s *Simulator) fillPending(history market.History, day time.Time) {
	queued := s.pending
	s.pending = nil

	for _, order := range queued {
		bar, ok := market.BarOn(history, order.Ticker, day)
		if !ok {
			logger.Debug("排队买单作废: %s 当日无行情", order.Ticker)
			continue
		}
		order.Price = bar.Open
		order.Date = day
		s.execute(order)
	}
}

// decide 执行一轮风控评估
func (s *Simulator) decide(signals []strategy.Signal, day time.Time) {
	todaySignals := strategy.SignalsOn(signals, day)
	if len(todaySignals) == 0 {
		return
	}

	orders := s.riskMgr.Evaluate(todaySignals, s.ledger.TotalEquity(), s.ledger.Cash(), s.ledger.Positions())
	for _, order := range orders {
		if order.Side == portfolio.SideSell {
			s.execute(order)
		} else {
			s.pending = append(s.pending, order)
		}
	}
}

// execute 执行订单并结算手续费
func (s *Simulator) execute(order portfolio.Order) {
	if err := s.ledger.ExecuteOrder(order); err != nil {
		logger.Warn("⚠️ 订单执行失败: %v", err)
		return
	}

	value := float64(order.Quantity) * order.Price
	fee := s.cfg.Fees.Fixed + value*s.cfg.Fees.Percentage
	s.ledger.DebitFee(fee)
}

// Ledger 回测账本（测试与报表用）
func (s *Simulator) Ledger() *portfolio.Manager {
	return s.ledger
}
