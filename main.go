package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swingtrader/backtest"
	"swingtrader/config"
	"swingtrader/database"
	"swingtrader/live"
	"swingtrader/logger"
	"swingtrader/market"
	"swingtrader/storage"
	"swingtrader/web"
)

// Version 版本号
var Version = "1.0.0"

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "配置文件路径")
		mode        = flag.String("mode", "backtest", "运行模式: backtest, daily, weekly, server")
		strategyFlg = flag.String("strategy", "", "覆盖配置中的激活策略")
		capitalFlg  = flag.Float64("capital", 0, "覆盖配置中的初始资金")
		yearsFlg    = flag.Int("years", 0, "覆盖配置中的回测年数")
		showVersion = flag.Bool("version", false, "打印版本号")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("SwingTrader\nVersion: %s\n", Version)
		os.Exit(0)
	}

	// 配置缺失或非法直接退出，风险参数绝不用默认值兜底
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if _, statErr := os.Stat(*configPath); os.IsNotExist(statErr) && *mode == "server" {
			// server 模式允许首次启动自动生成最小配置
			cfg = config.CreateMinimalConfig()
			if saveErr := config.SaveConfig(cfg, *configPath); saveErr != nil {
				fmt.Fprintf(os.Stderr, "生成最小配置失败: %v\n", saveErr)
				os.Exit(1)
			}
			fmt.Printf("ℹ️ 配置文件不存在，已生成最小配置: %s\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
			os.Exit(1)
		}
	}

	// 命令行覆盖配置，覆盖后重新校验
	if *strategyFlg != "" {
		cfg.ActiveStrategy = *strategyFlg
	}
	if *capitalFlg > 0 {
		cfg.Backtest.InitialCapital = *capitalFlg
	}
	if *yearsFlg > 0 {
		cfg.Backtest.Years = *yearsFlg
	}
	if *strategyFlg != "" || *capitalFlg > 0 || *yearsFlg > 0 {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "命令行参数非法: %v\n", err)
			os.Exit(1)
		}
	}

	logger.SetLevel(logger.ParseLogLevel(cfg.System.LogLevel))
	if cfg.System.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.System.Timezone); err == nil {
			logger.SetLocation(loc)
		} else {
			logger.Warn("⚠️ 时区设置失败: %v", err)
		}
	}

	logger.Info("🚀 SwingTrader v%s 启动: 模式=%s 策略=%s", Version, *mode, cfg.ActiveStrategy)

	switch *mode {
	case "backtest":
		err = runBacktest(cfg)
	case "daily":
		err = runLive(cfg, func(ctx context.Context, r *live.Runner) error { return r.RunDaily(ctx) })
	case "weekly":
		err = runLive(cfg, func(ctx context.Context, r *live.Runner) error { return r.RunWeekly(ctx) })
	case "server":
		err = runServer(cfg, *configPath)
	default:
		err = fmt.Errorf("未知运行模式: %s", *mode)
	}

	if err != nil {
		logger.Error("❌ 运行失败: %v", err)
		os.Exit(1)
	}
}

// runBacktest 下载历史并批量回测全部策略
func runBacktest(cfg *config.Config) error {
	fetcher := market.NewFetcher(&cfg.MarketData)

	end := time.Now()
	start := end.AddDate(-cfg.Backtest.Years, 0, 0).AddDate(0, 0, -cfg.Backtest.WarmupDays*2)

	history, err := fetcher.GetHistory(cfg.Universe.Tickers, start, end)
	if err != nil {
		return fmt.Errorf("获取历史数据失败: %w", err)
	}

	_, _, err = backtest.NewRunner(cfg).RunAll(history)
	return err
}

// runLive 执行一次实盘流程
func runLive(cfg *config.Config, run func(context.Context, *live.Runner) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	runner, err := live.New(cfg, market.NewFetcher(&cfg.MarketData))
	if err != nil {
		return err
	}
	defer runner.Close()

	return run(ctx, runner)
}

// runServer 启动 Web API，收到信号后退出
func runServer(cfg *config.Config, configPath string) error {
	db, err := database.NewGormDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("创建组合库失败: %w", err)
	}
	defer db.Close()

	bars, err := storage.NewSQLiteStorage(cfg.MarketData.CacheDir + "/bars.db")
	if err != nil {
		return fmt.Errorf("创建行情库失败: %w", err)
	}
	defer bars.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置热更新: 仅调整日志级别，风险参数改动需要重启
	watcher, err := config.NewConfigWatcher(configPath, func(newCfg *config.Config) {
		logger.SetLevel(logger.ParseLogLevel(newCfg.System.LogLevel))
		logger.Info("🔄 配置已重载")
	})
	if err != nil {
		logger.Warn("⚠️ 配置监听启动失败: %v", err)
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("⚠️ 配置监听启动失败: %v", err)
		}
		defer watcher.Stop()
	}

	server := web.NewServer(cfg, db, bars)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("👋 收到信号 %v, 退出", sig)
		return nil
	}
}
