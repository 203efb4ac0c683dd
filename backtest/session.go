package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"swingtrader/config"
	"swingtrader/logger"
)

// Recorder 回测会话记录器
// 每次批量回测写入一个时间戳目录，策略各占一个子目录
type Recorder struct {
	baseDir string
}

// NewRecorder 创建记录器
func NewRecorder(baseDir string) *Recorder {
	return &Recorder{baseDir: baseDir}
}

// CreateSession 创建会话目录，重名时追加序号后缀
func (r *Recorder) CreateSession(at time.Time) (string, error) {
	name := at.Format("20060102_150405")
	dir := filepath.Join(r.baseDir, name)

	for i := 1; ; i++ {
		err := os.MkdirAll(filepath.Dir(dir), 0755)
		if err != nil {
			return "", fmt.Errorf("创建会话根目录失败: %w", err)
		}
		err = os.Mkdir(dir, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("创建会话目录失败: %w", err)
		}
		dir = filepath.Join(r.baseDir, fmt.Sprintf("%s_%d", name, i))
	}

	logger.Info("💾 会话目录: %s", dir)
	return dir, nil
}

// WriteResult 把单个策略的结果写入会话目录
// 写盘失败只告警，不中断其他策略的记录
func (r *Recorder) WriteResult(sessionDir string, result *Result, cfg *config.Config) error {
	dir := filepath.Join(sessionDir, result.Strategy)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建策略目录失败: %w", err)
	}

	if err := writeEquityCurve(filepath.Join(dir, "equity_curve.csv"), result.EquityCurve); err != nil {
		return err
	}
	if err := writeTrades(filepath.Join(dir, "trades.csv"), result); err != nil {
		return err
	}
	if err := writeRunConfig(filepath.Join(dir, "config.json"), result, cfg); err != nil {
		return err
	}

	logger.Info("💾 已保存策略结果: %s", dir)
	return nil
}

func writeEquityCurve(path string, curve []EquityPoint) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 %s 失败: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"date", "equity", "cash"}); err != nil {
		return err
	}
	for _, p := range curve {
		rec := []string{
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.Equity, 'f', 2, 64),
			strconv.FormatFloat(p.Cash, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeTrades(path string, result *Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 %s 失败: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"date", "ticker", "side", "quantity", "price", "value", "fee", "reason"}); err != nil {
		return err
	}
	for _, t := range result.Trades {
		rec := []string{
			t.Date.Format("2006-01-02"),
			t.Ticker,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			strconv.FormatFloat(t.Price, 'f', 4, 64),
			strconv.FormatFloat(t.Value, 'f', 2, 64),
			strconv.FormatFloat(t.Fee, 'f', 4, 64),
			t.Reason,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// runConfig 会话配置快照，用于结果复现
type runConfig struct {
	Strategy       string             `json:"strategy"`
	Params         map[string]float64 `json:"params"`
	InitialCapital float64            `json:"initial_capital"`
	WarmupDays     int                `json:"warmup_days"`
	DecisionDay    string             `json:"decision_day"`
	Risk           config.RiskConfig  `json:"risk"`
	Fees           config.FeesConfig  `json:"fees"`
	Tickers        []string           `json:"tickers"`
	Metrics        Metrics            `json:"metrics"`
}

func writeRunConfig(path string, result *Result, cfg *config.Config) error {
	rc := runConfig{
		Strategy:       result.Strategy,
		Params:         result.Params,
		InitialCapital: cfg.Backtest.InitialCapital,
		WarmupDays:     cfg.Backtest.WarmupDays,
		DecisionDay:    cfg.Backtest.DecisionWeekday,
		Risk:           cfg.Risk,
		Fees:           cfg.Fees,
		Tickers:        cfg.Universe.Tickers,
		Metrics:        result.Metrics,
	}

	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}
