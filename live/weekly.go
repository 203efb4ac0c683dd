package live

import (
	"context"
	"fmt"
	"time"

	"swingtrader/logger"
	"swingtrader/market"
	"swingtrader/metrics"
	"swingtrader/portfolio"
	"swingtrader/strategy"
)

// RunWeekly 周度流程
// 全量补数 -> 恢复账本 -> 计算信号 -> 风控评估
// 卖出当日执行，买入作为限价单挂到下一个交易日
func (r *Runner) RunWeekly(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.RecordRun("weekly", time.Since(start)) }()

	if err := r.acquireLock(ctx); err != nil {
		return err
	}
	defer r.runLock.Unlock(ctx, runLockKey)

	logger.Info("🚀 周度流程开始: 策略=%s", r.cfg.ActiveStrategy)

	ledger, err := r.loadLedger(ctx)
	if err != nil {
		return err
	}

	// 指标需要完整历史，补数范围带上已移出宇宙的持仓
	// 本周挂单随后整体重挂，无需并入旧挂单标的
	end := time.Now()
	historyStart := end.AddDate(-r.cfg.Backtest.Years, 0, 0).AddDate(0, 0, -r.cfg.Backtest.WarmupDays*2)
	history, err := r.refreshBars(r.fetchTickers(ledger, nil), historyStart, end)
	if err != nil {
		return err
	}

	days := market.TradingDays(history)
	if len(days) == 0 {
		return fmt.Errorf("没有可用的交易日数据")
	}
	today := days[len(days)-1]

	ledger.MarkToMarket(market.ClosesOn(history, today))

	strat, err := strategy.New(r.cfg.ActiveStrategy, r.cfg.Strategies[r.cfg.ActiveStrategy])
	if err != nil {
		return fmt.Errorf("创建策略失败: %w", err)
	}

	signals, err := strat.Compute(history)
	if err != nil {
		return fmt.Errorf("计算信号失败: %w", err)
	}
	todaySignals := strategy.SignalsOn(signals, today)
	logger.Info("📊 %s 当日信号: %d 个", today.Format("2006-01-02"), len(todaySignals))

	// 卖出立即执行，买入挂限价单
	var queued []portfolio.Order
	orders := r.riskMgr.Evaluate(todaySignals, ledger.TotalEquity(), ledger.Cash(), ledger.Positions())
	for _, order := range orders {
		if order.Side == portfolio.SideSell {
			r.execute(ledger, order)
		} else {
			queued = append(queued, order)
		}
	}

	if err := r.pending.Save(ctx, queued); err != nil {
		return fmt.Errorf("保存挂单失败: %w", err)
	}
	metrics.SetPendingOrders(len(queued))
	if len(queued) > 0 {
		logger.Info("📤 已挂 %d 个限价买单", len(queued))
	}

	if err := r.persist(ctx, ledger); err != nil {
		return err
	}

	logger.Info("✅ 周度流程完成: 权益=%.2f 现金=%.2f 持仓=%d",
		ledger.TotalEquity(), ledger.Cash(), ledger.PositionCount())
	return nil
}
