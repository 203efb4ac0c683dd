// Package database 组合持久化
// GORM 驱动的账本落库，实盘流程跨日恢复现金、持仓和流水
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"swingtrader/config"
	"swingtrader/portfolio"
)

// GormDatabase GORM 数据库实现
type GormDatabase struct {
	db *gorm.DB
}

// NewGormDatabase 创建 GORM 数据库实例
func NewGormDatabase(cfg *config.DatabaseConfig) (*GormDatabase, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", cfg.Type)
	}

	// 日志级别
	logLevel := gormlogger.Silent
	switch cfg.LogLevel {
	case "error":
		logLevel = gormlogger.Error
	case "warn":
		logLevel = gormlogger.Warn
	case "info":
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接失败: %w", err)
	}

	// 配置连接池
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := db.AutoMigrate(
		&PositionRow{},
		&TradeRow{},
		&AccountRow{},
	); err != nil {
		return nil, fmt.Errorf("自动迁移失败: %w", err)
	}

	return &GormDatabase{db: db}, nil
}

// SavePortfolio 保存账本快照
// 持仓表整体重写，流水只追加新记录
func (g *GormDatabase) SavePortfolio(ctx context.Context, snap portfolio.Snapshot) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 现金
		account := AccountRow{ID: 1, Cash: snap.Cash, UpdatedAt: time.Now()}
		if err := tx.Save(&account).Error; err != nil {
			return fmt.Errorf("保存现金失败: %w", err)
		}

		// 持仓: 清空重写，账本里没有的就是已清仓
		if err := tx.Where("1 = 1").Delete(&PositionRow{}).Error; err != nil {
			return fmt.Errorf("清空持仓失败: %w", err)
		}
		for _, pos := range snap.Positions {
			row := positionToRow(pos)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("保存持仓 %s 失败: %w", pos.Ticker, err)
			}
		}

		// 流水: 只追加数据库中还没有的尾部
		var count int64
		if err := tx.Model(&TradeRow{}).Count(&count).Error; err != nil {
			return fmt.Errorf("统计流水失败: %w", err)
		}
		for i := int(count); i < len(snap.Trades); i++ {
			row := tradeToRow(snap.Trades[i])
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("保存流水失败: %w", err)
			}
		}

		return nil
	})
}

// LoadPortfolio 加载账本快照
// 数据库为空时返回 (zero, false, nil)，调用方用初始资金起步
func (g *GormDatabase) LoadPortfolio(ctx context.Context) (portfolio.Snapshot, bool, error) {
	var snap portfolio.Snapshot

	var account AccountRow
	err := g.db.WithContext(ctx).First(&account, 1).Error
	if err == gorm.ErrRecordNotFound {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("加载现金失败: %w", err)
	}
	snap.Cash = account.Cash

	var positions []PositionRow
	if err := g.db.WithContext(ctx).Find(&positions).Error; err != nil {
		return snap, false, fmt.Errorf("加载持仓失败: %w", err)
	}
	for _, row := range positions {
		snap.Positions = append(snap.Positions, rowToPosition(row))
	}

	var trades []TradeRow
	if err := g.db.WithContext(ctx).Order("id ASC").Find(&trades).Error; err != nil {
		return snap, false, fmt.Errorf("加载流水失败: %w", err)
	}
	for _, row := range trades {
		snap.Trades = append(snap.Trades, rowToTrade(row))
	}

	return snap, true, nil
}

// GetTrades 按时间倒序读取流水
func (g *GormDatabase) GetTrades(ctx context.Context, limit int) ([]portfolio.TradeRecord, error) {
	query := g.db.WithContext(ctx).Model(&TradeRow{}).Order("date DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []TradeRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("读取流水失败: %w", err)
	}

	trades := make([]portfolio.TradeRecord, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, rowToTrade(row))
	}
	return trades, nil
}

// Close 关闭数据库
func (g *GormDatabase) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
