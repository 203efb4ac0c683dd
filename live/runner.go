// Package live 实盘影子执行
// 日度流程处理止损止盈和挂单成交，周度流程评估信号并生成新挂单
package live

import (
	"context"
	"fmt"
	"sort"
	"time"

	"swingtrader/config"
	"swingtrader/database"
	"swingtrader/lock"
	"swingtrader/logger"
	"swingtrader/market"
	"swingtrader/metrics"
	"swingtrader/pending"
	"swingtrader/portfolio"
	"swingtrader/risk"
	"swingtrader/storage"
)

// 运行锁参数
const (
	runLockKey = "live_run"
	runLockTTL = 10 * time.Minute
)

// Runner 实盘流程执行器
type Runner struct {
	cfg      *config.Config
	provider market.Provider
	bars     *storage.SQLiteStorage
	db       *database.GormDatabase
	pending  pending.Store
	runLock  lock.DistributedLock
	riskMgr  *risk.Manager
}

// New 创建实盘执行器并装配依赖
func New(cfg *config.Config, provider market.Provider) (*Runner, error) {
	riskMgr, err := risk.NewManager(cfg.Risk.RiskPerTrade, cfg.Risk.StopATRMultiplier)
	if err != nil {
		return nil, fmt.Errorf("创建风控失败: %w", err)
	}

	bars, err := storage.NewSQLiteStorage(cfg.MarketData.CacheDir + "/bars.db")
	if err != nil {
		return nil, fmt.Errorf("创建行情库失败: %w", err)
	}

	db, err := database.NewGormDatabase(&cfg.Database)
	if err != nil {
		bars.Close()
		return nil, fmt.Errorf("创建组合库失败: %w", err)
	}

	store, err := pending.New(&cfg.Redis, cfg.MarketData.CacheDir+"/pending.json")
	if err != nil {
		bars.Close()
		db.Close()
		return nil, fmt.Errorf("创建挂单存储失败: %w", err)
	}

	runLock, err := lock.New(&cfg.Redis)
	if err != nil {
		bars.Close()
		db.Close()
		store.Close()
		return nil, fmt.Errorf("创建运行锁失败: %w", err)
	}

	return &Runner{
		cfg:      cfg,
		provider: provider,
		bars:     bars,
		db:       db,
		pending:  store,
		runLock:  runLock,
		riskMgr:  riskMgr,
	}, nil
}

// Close 释放全部资源
func (r *Runner) Close() {
	r.bars.Close()
	r.db.Close()
	r.pending.Close()
	r.runLock.Close()
}

// acquireLock 获取运行锁，已被占用时返回错误
func (r *Runner) acquireLock(ctx context.Context) error {
	ok, err := r.runLock.TryLock(ctx, runLockKey, runLockTTL)
	if err != nil {
		return fmt.Errorf("获取运行锁失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("另一个实盘流程正在运行")
	}
	return nil
}

// loadLedger 从数据库恢复账本，空库用初始资金起步
func (r *Runner) loadLedger(ctx context.Context) (*portfolio.Manager, error) {
	ledger := portfolio.NewManager(r.cfg.Backtest.InitialCapital)

	snap, found, err := r.db.LoadPortfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载组合失败: %w", err)
	}
	if found {
		ledger.Restore(snap)
		logger.Info("✅ 已恢复组合: 现金=%.2f 持仓=%d", snap.Cash, len(snap.Positions))
	} else {
		logger.Info("🆕 空账本起步: 初始资金=%.2f", r.cfg.Backtest.InitialCapital)
	}
	return ledger, nil
}

// refreshBars 增量下载并入库最近的日线
func (r *Runner) refreshBars(tickers []string, start, end time.Time) (market.History, error) {
	history, err := r.provider.GetHistory(tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("下载行情失败: %w", err)
	}

	for _, bars := range history {
		if err := r.bars.UpsertBars(bars); err != nil {
			return nil, fmt.Errorf("行情入库失败: %w", err)
		}
	}
	return history, nil
}

// fetchTickers 宇宙、持仓和挂单标的的并集
// 被移出宇宙的持仓仍要标记、扫描止损和成交挂单
func (r *Runner) fetchTickers(ledger *portfolio.Manager, pending []portfolio.Order) []string {
	seen := make(map[string]bool, len(r.cfg.Universe.Tickers))
	tickers := make([]string, 0, len(r.cfg.Universe.Tickers))

	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}
	for _, t := range r.cfg.Universe.Tickers {
		add(t)
	}
	if ledger != nil {
		for _, pos := range ledger.Positions() {
			add(pos.Ticker)
		}
	}
	for _, order := range pending {
		add(order.Ticker)
	}

	sort.Strings(tickers)
	return tickers
}

// execute 执行订单并结算手续费
func (r *Runner) execute(ledger *portfolio.Manager, order portfolio.Order) {
	if err := ledger.ExecuteOrder(order); err != nil {
		logger.Warn("⚠️ 订单执行失败: %v", err)
		return
	}

	value := float64(order.Quantity) * order.Price
	fee := r.cfg.Fees.Fixed + value*r.cfg.Fees.Percentage
	ledger.DebitFee(fee)

	metrics.RecordOrder(r.cfg.ActiveStrategy, order.Ticker, string(order.Side), order.Reason, value)
	metrics.RecordFee(r.cfg.ActiveStrategy, fee)
}

// persist 落库并刷新组合指标
func (r *Runner) persist(ctx context.Context, ledger *portfolio.Manager) error {
	if err := r.db.SavePortfolio(ctx, ledger.TakeSnapshot()); err != nil {
		return fmt.Errorf("保存组合失败: %w", err)
	}
	metrics.SetPortfolio(r.cfg.ActiveStrategy, ledger.TotalEquity(), ledger.Cash(), ledger.PositionCount())
	return nil
}
