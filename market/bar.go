package market

import (
	"sort"
	"time"
)

// Bar 日线数据
type Bar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// History 标的 -> 日线序列（按日期升序）
type History map[string][]Bar

// Provider 历史数据提供者
// 回测消费的是已经加载到内存的 History，数据来源（HTTP、数据库缓存）对核心透明
type Provider interface {
	// GetHistory 获取一组标的的日线历史，覆盖 [start, end]
	GetHistory(tickers []string, start, end time.Time) (History, error)
}

// TradingDays 提取 History 中出现过的所有交易日（升序去重）
// 模拟循环的时间轴由实际数据驱动，节假日自然缺席
func TradingDays(h History) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, bars := range h {
		for _, b := range bars {
			seen[b.Date] = struct{}{}
		}
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// BarOn 查找某标的在指定日期的日线，不存在返回 false
func BarOn(h History, ticker string, date time.Time) (Bar, bool) {
	bars, ok := h[ticker]
	if !ok {
		return Bar{}, false
	}
	// 日线序列按日期升序，二分查找
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(date) })
	if i < len(bars) && bars[i].Date.Equal(date) {
		return bars[i], true
	}
	return Bar{}, false
}

// ClosesOn 提取指定日期所有标的的收盘价（用于 Mark-to-Market）
func ClosesOn(h History, date time.Time) map[string]float64 {
	prices := make(map[string]float64)
	for ticker := range h {
		if bar, ok := BarOn(h, ticker, date); ok {
			prices[ticker] = bar.Close
		}
	}
	return prices
}

// Day 把时间截断到日期（UTC 零点），History 的日期键统一用这个规范
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
