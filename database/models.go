package database

import (
	"time"

	"swingtrader/portfolio"
)

// AccountRow 现金表（单行）
type AccountRow struct {
	ID        uint      `gorm:"primaryKey"`
	Cash      float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName 表名
func (AccountRow) TableName() string {
	return "account"
}

// PositionRow 持仓表
type PositionRow struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Ticker     string    `gorm:"uniqueIndex;not null"`
	Quantity   int64     `gorm:"not null"`
	AvgPrice   float64   `gorm:"not null"`
	LastPrice  float64   `gorm:"not null"`
	StopLoss   float64
	TakeProfit float64
	OpenDate   time.Time
}

// TableName 表名
func (PositionRow) TableName() string {
	return "positions"
}

// TradeRow 成交流水表
type TradeRow struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	Date     time.Time `gorm:"index;not null"`
	Ticker   string    `gorm:"index;not null"`
	Side     string    `gorm:"not null"`
	Quantity int64     `gorm:"not null"`
	Price    float64   `gorm:"not null"`
	Value    float64
	Fee      float64
	Reason   string
}

// TableName 表名
func (TradeRow) TableName() string {
	return "trades"
}

func positionToRow(pos portfolio.Position) PositionRow {
	return PositionRow{
		Ticker:     pos.Ticker,
		Quantity:   pos.Quantity,
		AvgPrice:   pos.AvgPrice,
		LastPrice:  pos.LastPrice,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		OpenDate:   pos.OpenDate,
	}
}

func rowToPosition(row PositionRow) portfolio.Position {
	return portfolio.Position{
		Ticker:     row.Ticker,
		Quantity:   row.Quantity,
		AvgPrice:   row.AvgPrice,
		LastPrice:  row.LastPrice,
		StopLoss:   row.StopLoss,
		TakeProfit: row.TakeProfit,
		OpenDate:   row.OpenDate,
	}
}

func tradeToRow(t portfolio.TradeRecord) TradeRow {
	return TradeRow{
		Date:     t.Date,
		Ticker:   t.Ticker,
		Side:     string(t.Side),
		Quantity: t.Quantity,
		Price:    t.Price,
		Value:    t.Value,
		Fee:      t.Fee,
		Reason:   t.Reason,
	}
}

func rowToTrade(row TradeRow) portfolio.TradeRecord {
	return portfolio.TradeRecord{
		Date:     row.Date,
		Ticker:   row.Ticker,
		Side:     portfolio.Side(row.Side),
		Quantity: row.Quantity,
		Price:    row.Price,
		Value:    row.Value,
		Fee:      row.Fee,
		Reason:   row.Reason,
	}
}
