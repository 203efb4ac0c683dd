// Package storage 行情库
// SQLite 持久化日线数据，实盘流程增量补数、回测全量读取
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"swingtrader/logger"
	"swingtrader/market"
)

// SQLiteStorage SQLite 行情存储
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage 创建 SQLite 行情存储
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// 使用 WAL 模式提高并发性能
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// SQLite 并发限制
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建表失败: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// createTables 创建表
func createTables(db *sql.DB) error {
	barsSQL := `
	CREATE TABLE IF NOT EXISTS bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		UNIQUE(ticker, date)
	);
	CREATE INDEX IF NOT EXISTS idx_bars_ticker_date ON bars(ticker, date);`

	_, err := db.Exec(barsSQL)
	return err
}

// UpsertBars 批量写入日线，同一 (ticker, date) 覆盖更新
func (s *SQLiteStorage) UpsertBars(bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO bars (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.Exec(b.Ticker, b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("写入 %s %s 失败: %w", b.Ticker, b.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	logger.Debug("💾 已写入 %d 根日线", len(bars))
	return nil
}

// GetBars 读取单个标的的日线，按日期升序
func (s *SQLiteStorage) GetBars(ticker string, start, end time.Time) ([]market.Bar, error) {
	rows, err := s.db.Query(`
		SELECT ticker, date, open, high, low, close, volume
		FROM bars
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("查询日线失败: %w", err)
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		var b market.Bar
		var dateStr string
		if err := rows.Scan(&b.Ticker, &dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("扫描日线失败: %w", err)
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("解析日期 %s 失败: %w", dateStr, err)
		}
		b.Date = date
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetHistory 读取一组标的的日线历史
func (s *SQLiteStorage) GetHistory(tickers []string, start, end time.Time) (market.History, error) {
	history := make(market.History)
	for _, ticker := range tickers {
		bars, err := s.GetBars(ticker, start, end)
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			history[ticker] = bars
		}
	}
	return history, nil
}

// LatestDate 返回标的最新的日线日期，没有数据时返回零值
func (s *SQLiteStorage) LatestDate(ticker string) (time.Time, error) {
	var dateStr sql.NullString
	err := s.db.QueryRow(`SELECT MAX(date) FROM bars WHERE ticker = ?`, ticker).Scan(&dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("查询最新日期失败: %w", err)
	}
	if !dateStr.Valid {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", dateStr.String)
}

// Close 关闭数据库
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
