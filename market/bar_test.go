package market

import (
	"testing"
	"time"
)

func d(day int) time.Time {
	return time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC)
}

func testHistory() History {
	return History{
		"AAPL": {
			{Ticker: "AAPL", Date: d(3), Open: 100, High: 101, Low: 99, Close: 100.5},
			{Ticker: "AAPL", Date: d(4), Open: 101, High: 102, Low: 100, Close: 101.5},
			{Ticker: "AAPL", Date: d(5), Open: 102, High: 103, Low: 101, Close: 102.5},
		},
		"MSFT": {
			{Ticker: "MSFT", Date: d(4), Open: 300, High: 301, Low: 299, Close: 300.5},
			{Ticker: "MSFT", Date: d(6), Open: 301, High: 302, Low: 300, Close: 301.5},
		},
	}
}

func TestTradingDays(t *testing.T) {
	days := TradingDays(testHistory())
	if len(days) != 4 {
		t.Fatalf("交易日数量错误: got %d, want 4", len(days))
	}
	// 去重且升序
	want := []time.Time{d(3), d(4), d(5), d(6)}
	for i, day := range want {
		if !days[i].Equal(day) {
			t.Errorf("交易日[%d] = %v, want %v", i, days[i], day)
		}
	}

	if len(TradingDays(History{})) != 0 {
		t.Error("空历史应返回空交易日")
	}
}

func TestBarOn(t *testing.T) {
	h := testHistory()

	bar, ok := BarOn(h, "AAPL", d(4))
	if !ok {
		t.Fatal("应找到 AAPL 6/4 的K线")
	}
	if bar.Open != 101 {
		t.Errorf("K线内容错误: %+v", bar)
	}

	// 停牌日
	if _, ok := BarOn(h, "MSFT", d(5)); ok {
		t.Error("MSFT 6/5 停牌, 不应找到K线")
	}
	// 未知标的
	if _, ok := BarOn(h, "NVDA", d(4)); ok {
		t.Error("未知标的不应找到K线")
	}
}

func TestClosesOn(t *testing.T) {
	closes := ClosesOn(testHistory(), d(4))
	if len(closes) != 2 {
		t.Fatalf("收盘价数量错误: %d", len(closes))
	}
	if closes["AAPL"] != 101.5 || closes["MSFT"] != 300.5 {
		t.Errorf("收盘价错误: %v", closes)
	}

	closes = ClosesOn(testHistory(), d(5))
	if _, ok := closes["MSFT"]; ok {
		t.Error("停牌标的不应出现在收盘价表中")
	}
}

func TestDay(t *testing.T) {
	ts := time.Date(2024, 6, 3, 15, 30, 45, 123, time.FixedZone("CET", 3600))
	day := Day(ts)
	if day.Hour() != 0 || day.Minute() != 0 || day.Location() != time.UTC {
		t.Errorf("Day 应截断到 UTC 零点: %v", day)
	}
}
