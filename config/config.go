package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RiskConfig 风险参数配置
// 两个参数都是必填项：缺失或非正数会直接导致启动失败，绝不静默使用默认值
type RiskConfig struct {
	RiskPerTrade      float64 `yaml:"risk_per_trade" json:"risk_per_trade"`           // 单笔交易风险占总权益的比例（如 0.02 表示 2%）
	StopATRMultiplier float64 `yaml:"stop_atr_multiplier" json:"stop_atr_multiplier"` // 止损距离的 ATR 倍数
}

// FeesConfig 手续费配置
type FeesConfig struct {
	Fixed      float64 `yaml:"fixed" json:"fixed"`           // 每笔固定费用
	Percentage float64 `yaml:"percentage" json:"percentage"` // 按成交金额收取的比例费用
}

// BacktestConfig 回测配置
type BacktestConfig struct {
	InitialCapital  float64 `yaml:"initial_capital"`  // 初始资金
	Years           int     `yaml:"years"`            // 回测历史年数
	WarmupDays      int     `yaml:"warmup_days"`      // 指标预热天数（回测起点之前额外加载的数据）
	DecisionWeekday string  `yaml:"decision_weekday"` // 每周信号评估日（如 "Friday"），可配置以便用合成日历测试
	OutputDir       string  `yaml:"output_dir"`       // 回测会话输出目录
}

// UniverseConfig 标的池配置
type UniverseConfig struct {
	Tickers []string `yaml:"tickers"` // 观察的标的列表
}

// DatabaseConfig 数据库配置（支持 SQLite、PostgreSQL、MySQL）
type DatabaseConfig struct {
	Type            string `yaml:"type"`              // 数据库类型: sqlite, postgres, mysql，默认 sqlite
	DSN             string `yaml:"dsn"`               // 数据源名称，默认 ./data/swingtrader.db
	MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数，默认10
	MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数，默认2
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（秒），默认3600
	LogLevel        string `yaml:"log_level"`         // 日志级别: silent, error, warn, info，默认 error
}

// RedisConfig Redis 配置（挂单存储 + 运行锁）
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`   // 是否启用 Redis（未启用时使用本地文件挂单存储和空锁）
	Addr     string `yaml:"addr"`      // Redis 地址，默认 localhost:6379
	Password string `yaml:"password"`  // Redis 密码，默认为空
	DB       int    `yaml:"db"`        // Redis 数据库，默认0
	Prefix   string `yaml:"prefix"`    // 键前缀，默认 "swingtrader:"
	PoolSize int    `yaml:"pool_size"` // 连接池大小，默认10
}

// ServerConfig Web 服务配置
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"` // 是否启用 Web API
	Host    string `yaml:"host"`    // 监听地址，默认 0.0.0.0
	Port    int    `yaml:"port"`    // 监听端口，默认 8080
}

// MarketDataConfig 行情数据配置
type MarketDataConfig struct {
	BaseURL       string  `yaml:"base_url"`        // 日线数据服务地址
	RatePerSecond float64 `yaml:"rate_per_second"` // 请求限速（每秒请求数），默认 5
	CacheDir      string  `yaml:"cache_dir"`       // 本地 CSV 缓存目录
	TimeoutSec    int     `yaml:"timeout_sec"`     // 单次请求超时（秒），默认 30
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel string `yaml:"log_level"` // 日志级别
	Timezone string `yaml:"timezone"`  // 时区，如 "Europe/Rome"
	Currency string `yaml:"currency"`  // 组合计价货币，整个生命周期固定
}

// Config 系统总配置
type Config struct {
	ActiveStrategy string                        `yaml:"active_strategy"` // 当前激活的策略名
	Strategies     map[string]map[string]float64 `yaml:"strategies"`      // 各策略参数表
	Risk           RiskConfig                    `yaml:"risk"`
	Fees           FeesConfig                    `yaml:"fees"`
	Backtest       BacktestConfig                `yaml:"backtest"`
	Universe       UniverseConfig                `yaml:"universe"`
	Database       DatabaseConfig                `yaml:"database"`
	Redis          RedisConfig                   `yaml:"redis"`
	Server         ServerConfig                  `yaml:"server"`
	MarketData     MarketDataConfig              `yaml:"marketdata"`
	System         SystemConfig                  `yaml:"system"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes 从字节流加载配置
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &cfg, nil
}

// ParseWeekday 解析星期字符串
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("无法识别的星期: %s", name)
	}
}

// DecisionWeekday 返回已解析的每周评估日
// Validate 保证该字段合法，此处直接返回
func (c *Config) DecisionWeekday() time.Weekday {
	wd, _ := ParseWeekday(c.Backtest.DecisionWeekday)
	return wd
}

// Validate 验证配置并填充默认值
// 风险参数采取严格模式：缺失即失败，绝不默认
func (c *Config) Validate() error {
	// ==== 风险参数（FAIL FAST，无默认值）====
	if c.Risk.RiskPerTrade <= 0 {
		return fmt.Errorf("风险参数 risk.risk_per_trade 缺失或非正数，无法计算仓位")
	}
	if c.Risk.RiskPerTrade >= 1 {
		return fmt.Errorf("风险参数 risk.risk_per_trade 必须小于1（当前: %v）", c.Risk.RiskPerTrade)
	}
	if c.Risk.StopATRMultiplier <= 0 {
		return fmt.Errorf("风险参数 risk.stop_atr_multiplier 缺失或非正数，无法计算止损距离")
	}

	// ==== 手续费 ====
	if c.Fees.Fixed < 0 || c.Fees.Percentage < 0 {
		return fmt.Errorf("手续费不能为负数")
	}

	// ==== 策略 ====
	if c.ActiveStrategy == "" {
		return fmt.Errorf("必须指定激活策略 (active_strategy)")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("未配置任何策略参数 (strategies)")
	}
	if _, ok := c.Strategies[c.ActiveStrategy]; !ok {
		return fmt.Errorf("激活策略 %s 在 strategies 中没有参数配置", c.ActiveStrategy)
	}

	// ==== 回测 ====
	if c.Backtest.InitialCapital <= 0 {
		c.Backtest.InitialCapital = 10000
	}
	if c.Backtest.Years <= 0 {
		c.Backtest.Years = 2
	}
	if c.Backtest.WarmupDays <= 0 {
		c.Backtest.WarmupDays = 100
	}
	if c.Backtest.DecisionWeekday == "" {
		c.Backtest.DecisionWeekday = "Friday"
	}
	if _, err := ParseWeekday(c.Backtest.DecisionWeekday); err != nil {
		return fmt.Errorf("回测配置错误: %v", err)
	}
	if c.Backtest.OutputDir == "" {
		c.Backtest.OutputDir = "data/backtests"
	}

	// ==== 数据库 ====
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./data/swingtrader.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 2
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = 3600
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "error"
	}

	// ==== Redis ====
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "swingtrader:"
	}
	if c.Redis.PoolSize <= 0 {
		c.Redis.PoolSize = 10
	}

	// ==== Web ====
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}

	// ==== 行情数据 ====
	if c.MarketData.BaseURL == "" {
		c.MarketData.BaseURL = "https://stooq.com/q/d/l/"
	}
	if c.MarketData.RatePerSecond <= 0 {
		c.MarketData.RatePerSecond = 5
	}
	if c.MarketData.CacheDir == "" {
		c.MarketData.CacheDir = "data/cache"
	}
	if c.MarketData.TimeoutSec <= 0 {
		c.MarketData.TimeoutSec = 30
	}

	// ==== 系统 ====
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.System.Currency == "" {
		c.System.Currency = "EUR"
	}

	return nil
}

// SaveConfig 保存配置到文件
func SaveConfig(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %v", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %v", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %v", err)
	}

	return nil
}

// CreateMinimalConfig 创建最小可用配置（用于测试和首次部署）
func CreateMinimalConfig() *Config {
	cfg := &Config{
		ActiveStrategy: "rsi_reversion",
		Strategies: map[string]map[string]float64{
			"rsi_reversion": {"rsi_period": 14, "buy_threshold": 30, "sell_threshold": 70, "atr_period": 14},
			"ema_cross":     {"fast_period": 20, "slow_period": 50, "atr_period": 14},
		},
		Risk: RiskConfig{
			RiskPerTrade:      0.02,
			StopATRMultiplier: 2.0,
		},
		Fees: FeesConfig{
			Fixed:      1.0,
			Percentage: 0.001,
		},
		Universe: UniverseConfig{
			Tickers: []string{"AAPL", "MSFT"},
		},
	}
	// 填充剩余默认值
	cfg.Validate()
	return cfg
}
