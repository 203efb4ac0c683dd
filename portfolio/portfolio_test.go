package portfolio

import (
	"math"
	"testing"
	"time"
)

var testDay = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestExecuteBuy(t *testing.T) {
	m := NewManager(10000)

	err := m.ExecuteOrder(Order{
		Ticker: "AAPL", Side: SideBuy, Quantity: 20, Price: 100,
		StopLoss: 90, TakeProfit: 120, Date: testDay,
	})
	if err != nil {
		t.Fatalf("买入失败: %v", err)
	}

	if m.Cash() != 8000 {
		t.Errorf("现金错误: got %f, want 8000", m.Cash())
	}
	pos, ok := m.Position("AAPL")
	if !ok {
		t.Fatal("买入后应持有 AAPL")
	}
	if pos.Quantity != 20 || pos.AvgPrice != 100 || pos.StopLoss != 90 || pos.TakeProfit != 120 {
		t.Errorf("持仓字段错误: %+v", pos)
	}
	if len(m.Trades()) != 1 {
		t.Errorf("应登记一条成交, got %d", len(m.Trades()))
	}
}

func TestBuyMergesPosition(t *testing.T) {
	m := NewManager(100000)

	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 10, Price: 100, StopLoss: 90, TakeProfit: 120, Date: testDay}); err != nil {
		t.Fatal(err)
	}
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 10, Price: 200, StopLoss: 180, TakeProfit: 240, Date: testDay}); err != nil {
		t.Fatal(err)
	}

	pos, _ := m.Position("AAPL")
	if pos.Quantity != 20 {
		t.Errorf("加仓后数量错误: %d", pos.Quantity)
	}
	if math.Abs(pos.AvgPrice-150) > 1e-9 {
		t.Errorf("加权成本错误: got %f, want 150", pos.AvgPrice)
	}
	// 止损止盈以最新订单为准
	if pos.StopLoss != 180 || pos.TakeProfit != 240 {
		t.Errorf("止损止盈应被覆盖: %+v", pos)
	}
}

func TestBuyMergeKeepsStopsOnZeroOrder(t *testing.T) {
	m := NewManager(100000)

	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 10, Price: 100, StopLoss: 90, TakeProfit: 120, Date: testDay}); err != nil {
		t.Fatal(err)
	}
	// 不带止损止盈的加仓单不能抹掉已有档位
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 10, Price: 110, Date: testDay}); err != nil {
		t.Fatal(err)
	}

	pos, _ := m.Position("AAPL")
	if pos.Quantity != 20 {
		t.Errorf("加仓后数量错误: %d", pos.Quantity)
	}
	if pos.StopLoss != 90 || pos.TakeProfit != 120 {
		t.Errorf("零值订单不应清掉止损止盈: %+v", pos)
	}
}

func TestSellClosesPosition(t *testing.T) {
	m := NewManager(10000)
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 20, Price: 100, Date: testDay}); err != nil {
		t.Fatal(err)
	}

	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideSell, Quantity: 20, Price: 110, Reason: "SIGNAL", Date: testDay}); err != nil {
		t.Fatalf("卖出失败: %v", err)
	}

	if _, ok := m.Position("AAPL"); ok {
		t.Error("清仓后不应再持有 AAPL")
	}
	if m.PositionCount() != 0 {
		t.Errorf("持仓数应为 0, got %d", m.PositionCount())
	}
	// 10000 - 2000 + 2200
	if math.Abs(m.Cash()-10200) > 1e-9 {
		t.Errorf("现金错误: got %f, want 10200", m.Cash())
	}
}

func TestSellWithoutPosition(t *testing.T) {
	m := NewManager(10000)
	err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideSell, Quantity: 10, Price: 100, Date: testDay})
	if err == nil {
		t.Error("卖出未持有标的应返回错误")
	}
	if m.Cash() != 10000 {
		t.Errorf("失败的订单不应改变现金: %f", m.Cash())
	}
	if len(m.Trades()) != 0 {
		t.Error("失败的订单不应登记成交")
	}
}

func TestSellClampsToHolding(t *testing.T) {
	m := NewManager(10000)
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 10, Price: 100, Date: testDay}); err != nil {
		t.Fatal(err)
	}
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideSell, Quantity: 99, Price: 100, Date: testDay}); err != nil {
		t.Fatalf("超量卖出应被钳制而不是报错: %v", err)
	}
	if _, ok := m.Position("AAPL"); ok {
		t.Error("钳制后应清仓")
	}
	if math.Abs(m.Cash()-10000) > 1e-9 {
		t.Errorf("往返后现金应不变: %f", m.Cash())
	}
}

func TestInvalidOrders(t *testing.T) {
	m := NewManager(10000)
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 0, Price: 100, Date: testDay}); err == nil {
		t.Error("数量为 0 应返回错误")
	}
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: -5, Price: 100, Date: testDay}); err == nil {
		t.Error("负数量应返回错误")
	}
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 5, Price: 0, Date: testDay}); err == nil {
		t.Error("价格为 0 应返回错误")
	}
}

func TestMarkToMarketAndEquity(t *testing.T) {
	m := NewManager(10000)
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 20, Price: 100, Date: testDay}); err != nil {
		t.Fatal(err)
	}

	// 买入后权益不变（现金换持仓）
	if math.Abs(m.TotalEquity()-10000) > 1e-9 {
		t.Errorf("买入后权益错误: %f", m.TotalEquity())
	}

	m.MarkToMarket(map[string]float64{"AAPL": 110})
	if math.Abs(m.TotalEquity()-10200) > 1e-9 {
		t.Errorf("标记后权益错误: got %f, want 10200", m.TotalEquity())
	}

	// 缺价时保留上一次标记价
	m.MarkToMarket(map[string]float64{"MSFT": 300})
	if math.Abs(m.TotalEquity()-10200) > 1e-9 {
		t.Errorf("缺价不应改变估值: %f", m.TotalEquity())
	}
}

func TestDebitFee(t *testing.T) {
	m := NewManager(10000)
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 20, Price: 100, Date: testDay}); err != nil {
		t.Fatal(err)
	}

	m.DebitFee(3.0)
	if math.Abs(m.Cash()-7997) > 1e-9 {
		t.Errorf("扣费后现金错误: got %f, want 7997", m.Cash())
	}
	trades := m.Trades()
	if math.Abs(trades[0].Fee-3.0) > 1e-9 {
		t.Errorf("手续费应计入成交记录: %f", trades[0].Fee)
	}

	m.DebitFee(0)
	m.DebitFee(-1)
	if math.Abs(m.Cash()-7997) > 1e-9 {
		t.Error("非正手续费不应改变现金")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := NewManager(10000)
	if err := m.ExecuteOrder(Order{Ticker: "AAPL", Side: SideBuy, Quantity: 20, Price: 100, StopLoss: 90, TakeProfit: 120, Date: testDay}); err != nil {
		t.Fatal(err)
	}
	m.MarkToMarket(map[string]float64{"AAPL": 105})

	snap := m.TakeSnapshot()

	restored := NewManager(0)
	restored.Restore(snap)

	if restored.Cash() != m.Cash() {
		t.Errorf("恢复后现金不一致: %f vs %f", restored.Cash(), m.Cash())
	}
	pos, ok := restored.Position("AAPL")
	if !ok {
		t.Fatal("恢复后应持有 AAPL")
	}
	if pos.LastPrice != 105 || pos.StopLoss != 90 {
		t.Errorf("恢复的持仓字段错误: %+v", pos)
	}
	if len(restored.Trades()) != 1 {
		t.Errorf("恢复的成交流水错误: %d", len(restored.Trades()))
	}
}
