package backtest

import (
	"fmt"
	"sort"
	"time"

	"swingtrader/config"
	"swingtrader/logger"
	"swingtrader/market"
	"swingtrader/metrics"
	"swingtrader/strategy"
)

// Runner 批量回测
// 所有策略共享同一份只读历史，逐个顺序执行，互不共享账本
type Runner struct {
	cfg      *config.Config
	recorder *Recorder
}

// NewRunner 创建批量回测器
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		cfg:      cfg,
		recorder: NewRecorder(cfg.Backtest.OutputDir),
	}
}

// RunAll 依次回测配置中的全部策略并记录会话，返回结果和会话目录
func (r *Runner) RunAll(history market.History) (map[string]*Result, string, error) {
	names := make([]string, 0, len(r.cfg.Strategies))
	for name := range r.cfg.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, "", fmt.Errorf("配置中没有任何策略")
	}

	sessionDir, err := r.recorder.CreateSession(time.Now())
	if err != nil {
		return nil, "", err
	}

	results := make(map[string]*Result, len(names))
	for _, name := range names {
		start := time.Now()

		strat, err := strategy.New(name, r.cfg.Strategies[name])
		if err != nil {
			logger.Error("❌ 跳过策略 %s: %v", name, err)
			continue
		}

		sim, err := NewSimulator(r.cfg, strat)
		if err != nil {
			logger.Error("❌ 跳过策略 %s: %v", name, err)
			continue
		}

		result, err := sim.Run(history)
		if err != nil {
			logger.Error("❌ 策略 %s 回测失败: %v", name, err)
			continue
		}
		results[name] = result

		metrics.RecordBacktest(time.Since(start))

		if err := r.recorder.WriteResult(sessionDir, result, r.cfg); err != nil {
			// 落盘失败不影响回测结果本身
			logger.Warn("⚠️ 保存策略 %s 结果失败: %v", name, err)
		}
	}

	if len(results) == 0 {
		return nil, "", fmt.Errorf("所有策略均回测失败")
	}

	logger.Info("✅ 批量回测完成: %d/%d 个策略, 会话=%s", len(results), len(names), sessionDir)
	return results, sessionDir, nil
}
