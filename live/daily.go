package live

import (
	"context"
	"fmt"
	"time"

	"swingtrader/logger"
	"swingtrader/market"
	"swingtrader/metrics"
	"swingtrader/portfolio"
)

// RunDaily 日度流程
// 恢复账本 -> 补数 -> 止损止盈 -> 挂单成交 -> 标记落库
// 未成交挂单保留到下一个交易日，直到周度流程重新挂单
func (r *Runner) RunDaily(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.RecordRun("daily", time.Since(start)) }()

	if err := r.acquireLock(ctx); err != nil {
		return err
	}
	defer r.runLock.Unlock(ctx, runLockKey)

	logger.Info("🚀 日度流程开始")

	ledger, err := r.loadLedger(ctx)
	if err != nil {
		return err
	}
	orders, err := r.pending.Load(ctx)
	if err != nil {
		return fmt.Errorf("读取挂单失败: %w", err)
	}

	// 最近一个月增量补数，覆盖持仓和挂单里已移出宇宙的标的
	end := time.Now()
	history, err := r.refreshBars(r.fetchTickers(ledger, orders), end.AddDate(0, -1, 0), end)
	if err != nil {
		return err
	}

	days := market.TradingDays(history)
	if len(days) == 0 {
		return fmt.Errorf("没有可用的交易日数据")
	}
	today := days[len(days)-1]

	// 止损止盈扫描
	exits := r.riskMgr.CheckIntradayStops(ledger, history, today)
	for _, order := range exits {
		r.execute(ledger, order)
	}
	if len(exits) > 0 {
		logger.Info("🛑 触发 %d 个止损止盈出场", len(exits))
	}

	// 挂单成交
	if err := r.fillPending(ctx, ledger, history, today, orders); err != nil {
		return err
	}

	ledger.MarkToMarket(market.ClosesOn(history, today))

	if err := r.persist(ctx, ledger); err != nil {
		return err
	}

	logger.Info("✅ 日度流程完成: %s 权益=%.2f 现金=%.2f 持仓=%d",
		today.Format("2006-01-02"), ledger.TotalEquity(), ledger.Cash(), ledger.PositionCount())
	return nil
}

// fillPending 消费挂单队列
// 限价买单当日最低价触及限价即成交，成交价取开盘价与限价的较小者
// 未触及限价或当日无行情的挂单保留，等下一个交易日继续尝试
func (r *Runner) fillPending(ctx context.Context, ledger *portfolio.Manager, history market.History, today time.Time, orders []portfolio.Order) error {
	if len(orders) == 0 {
		return nil
	}

	var remaining []portfolio.Order
	for _, order := range orders {
		bar, ok := market.BarOn(history, order.Ticker, today)
		if !ok {
			logger.Debug("挂单保留: %s 当日无行情", order.Ticker)
			remaining = append(remaining, order)
			continue
		}
		if bar.Low > order.Price {
			logger.Debug("挂单保留: %s 最低价 %.2f 未触及限价 %.2f", order.Ticker, bar.Low, order.Price)
			remaining = append(remaining, order)
			continue
		}

		price := order.Price
		if bar.Open < price {
			price = bar.Open
		}
		order.Price = price
		order.Date = today
		r.execute(ledger, order)
	}

	logger.Info("📥 挂单成交 %d/%d, 保留 %d 个", len(orders)-len(remaining), len(orders), len(remaining))
	metrics.SetPendingOrders(len(remaining))

	if len(remaining) == 0 {
		if err := r.pending.Clear(ctx); err != nil {
			return fmt.Errorf("清空挂单失败: %w", err)
		}
		return nil
	}
	if err := r.pending.Save(ctx, remaining); err != nil {
		return fmt.Errorf("保存挂单失败: %w", err)
	}
	return nil
}
