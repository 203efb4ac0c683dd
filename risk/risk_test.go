package risk

import (
	"math"
	"testing"
	"time"

	"swingtrader/market"
	"swingtrader/portfolio"
	"swingtrader/strategy"
)

var testDay = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

// evaluate 用账本当前状态快照调用 Evaluate
func evaluate(m *Manager, ledger *portfolio.Manager, signals []strategy.Signal) []portfolio.Order {
	return m.Evaluate(signals, ledger.TotalEquity(), ledger.Cash(), ledger.Positions())
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(0.02, 2.0)
	if err != nil {
		t.Fatalf("创建风控失败: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(0, 2.0); err == nil {
		t.Error("risk_per_trade 为 0 应返回错误")
	}
	if _, err := NewManager(0.02, -1); err == nil {
		t.Error("负的 stop_atr_multiplier 应返回错误")
	}
}

func TestEvaluateBuySizing(t *testing.T) {
	m := newTestManager(t)
	ledger := portfolio.NewManager(10000)

	signals := []strategy.Signal{
		{Ticker: "AAPL", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 5},
	}

	orders := evaluate(m, ledger, signals)
	if len(orders) != 1 {
		t.Fatalf("应产生 1 个订单, got %d", len(orders))
	}

	o := orders[0]
	// 预算 10000*0.02=200, 止损距离 5*2=10 -> 20 股
	if o.Quantity != 20 {
		t.Errorf("仓位错误: got %d, want 20", o.Quantity)
	}
	if math.Abs(o.StopLoss-90) > 1e-9 {
		t.Errorf("止损错误: got %f, want 90", o.StopLoss)
	}
	if math.Abs(o.TakeProfit-120) > 1e-9 {
		t.Errorf("止盈错误: got %f, want 120", o.TakeProfit)
	}
}

func TestEvaluateCashCap(t *testing.T) {
	m := newTestManager(t)
	// 权益很高但现金只有 500: 仓位受现金约束
	ledger := portfolio.NewManager(500)
	if err := ledger.ExecuteOrder(portfolio.Order{Ticker: "MSFT", Side: portfolio.SideBuy, Quantity: 100, Price: 300, Date: testDay}); err != nil {
		t.Fatal(err)
	}
	ledger.SetCash(500)
	ledger.MarkToMarket(map[string]float64{"MSFT": 300})

	orders := evaluate(m, ledger, []strategy.Signal{
		{Ticker: "AAPL", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 1},
	})
	if len(orders) != 1 {
		t.Fatalf("应产生 1 个订单, got %d", len(orders))
	}
	// 预算允许 305 股, 现金只够 5 股
	if orders[0].Quantity != 5 {
		t.Errorf("现金约束失效: got %d, want 5", orders[0].Quantity)
	}
}

func TestEvaluateSkipsHeldAndBadATR(t *testing.T) {
	m := newTestManager(t)
	ledger := portfolio.NewManager(10000)
	if err := ledger.ExecuteOrder(portfolio.Order{Ticker: "AAPL", Side: portfolio.SideBuy, Quantity: 10, Price: 100, Date: testDay}); err != nil {
		t.Fatal(err)
	}

	orders := evaluate(m, ledger, []strategy.Signal{
		// 已持有: 不加仓
		{Ticker: "AAPL", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 5},
		// ATR 非正
		{Ticker: "MSFT", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 0},
		// 止损价非正: 100 - 60*2 < 0
		{Ticker: "NVDA", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 60},
	})
	if len(orders) != 0 {
		t.Errorf("所有信号都应被跳过, got %d 个订单", len(orders))
	}
}

func TestEvaluateSkipsSubShareSize(t *testing.T) {
	m := newTestManager(t)
	// 预算 2000*0.02=40, 止损距离 50 -> 0 股
	ledger := portfolio.NewManager(2000)
	orders := evaluate(m, ledger, []strategy.Signal{
		{Ticker: "AAPL", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 25},
	})
	if len(orders) != 0 {
		t.Errorf("不足 1 股应跳过, got %d", len(orders))
	}
}

func TestEvaluateSellBeforeBuy(t *testing.T) {
	m := newTestManager(t)
	// 现金 0, 全部在持仓里
	ledger := portfolio.NewManager(10000)
	if err := ledger.ExecuteOrder(portfolio.Order{Ticker: "MSFT", Side: portfolio.SideBuy, Quantity: 100, Price: 100, Date: testDay}); err != nil {
		t.Fatal(err)
	}
	ledger.MarkToMarket(map[string]float64{"MSFT": 100})

	orders := evaluate(m, ledger, []strategy.Signal{
		{Ticker: "AAPL", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 5},
		{Ticker: "MSFT", Date: testDay, Action: strategy.ActionSell, Price: 100},
	})

	if len(orders) != 2 {
		t.Fatalf("应产生卖出+买入两个订单, got %d", len(orders))
	}
	// 卖出在前
	if orders[0].Side != portfolio.SideSell || orders[0].Ticker != "MSFT" {
		t.Errorf("第一个订单应为卖出 MSFT: %+v", orders[0])
	}
	// 卖出释放的模拟现金供买入使用
	if orders[1].Side != portfolio.SideBuy || orders[1].Quantity != 20 {
		t.Errorf("买入应使用释放后的现金定仓: %+v", orders[1])
	}
}

func TestEvaluateIsPure(t *testing.T) {
	m := newTestManager(t)

	// 不经过账本, 直接用快照入参定仓
	positions := []portfolio.Position{
		{Ticker: "MSFT", Quantity: 50, AvgPrice: 100, LastPrice: 119},
	}
	signals := []strategy.Signal{
		{Ticker: "AAPL", Date: testDay, Action: strategy.ActionBuy, Price: 100, ATR: 5},
		{Ticker: "MSFT", Date: testDay, Action: strategy.ActionSell, Price: 119},
	}

	// 权益 5000+50*119=10950, 预算 219, 止损距离 10 -> 21 股
	orders := m.Evaluate(signals, 10950, 5000, positions)
	if len(orders) != 2 {
		t.Fatalf("应产生卖出+买入两个订单, got %d", len(orders))
	}
	if orders[1].Quantity != 21 {
		t.Errorf("应按入参权益定仓: got %d, want 21", orders[1].Quantity)
	}

	// 入参不被修改, 重复调用结果一致
	if positions[0].Quantity != 50 {
		t.Errorf("持仓入参被修改: %+v", positions[0])
	}
	again := m.Evaluate(signals, 10950, 5000, positions)
	if len(again) != 2 || again[1].Quantity != orders[1].Quantity {
		t.Errorf("重复评估结果不一致: %+v", again)
	}
}

func TestEvaluateSellOnlyHeld(t *testing.T) {
	m := newTestManager(t)
	ledger := portfolio.NewManager(10000)

	orders := evaluate(m, ledger, []strategy.Signal{
		{Ticker: "AAPL", Date: testDay, Action: strategy.ActionSell, Price: 100},
	})
	if len(orders) != 0 {
		t.Errorf("未持有标的的卖出信号应被忽略, got %d", len(orders))
	}
}

func makeDayHistory(ticker string, open, high, low, closePrice float64) market.History {
	return market.History{ticker: []market.Bar{{
		Ticker: ticker, Date: testDay,
		Open: open, High: high, Low: low, Close: closePrice, Volume: 1000,
	}}}
}

func holdingLedger(t *testing.T, sl, tp float64) *portfolio.Manager {
	t.Helper()
	ledger := portfolio.NewManager(10000)
	err := ledger.ExecuteOrder(portfolio.Order{
		Ticker: "AAPL", Side: portfolio.SideBuy, Quantity: 20, Price: 100,
		StopLoss: sl, TakeProfit: tp, Date: testDay,
	})
	if err != nil {
		t.Fatal(err)
	}
	return ledger
}

func TestStopLossHit(t *testing.T) {
	m := newTestManager(t)
	ledger := holdingLedger(t, 90, 120)

	orders := m.CheckIntradayStops(ledger, makeDayHistory("AAPL", 95, 96, 88, 89), testDay)
	if len(orders) != 1 {
		t.Fatalf("应触发止损, got %d", len(orders))
	}
	if orders[0].Price != 90 || orders[0].Reason != ReasonStopLoss {
		t.Errorf("止损成交错误: %+v", orders[0])
	}
	if orders[0].Quantity != 20 {
		t.Errorf("应全仓出场: %d", orders[0].Quantity)
	}
}

func TestStopLossGapDown(t *testing.T) {
	m := newTestManager(t)
	ledger := holdingLedger(t, 90, 120)

	// 跳空低开 85, 按开盘价成交
	orders := m.CheckIntradayStops(ledger, makeDayHistory("AAPL", 85, 87, 84, 86), testDay)
	if len(orders) != 1 {
		t.Fatal("应触发跳空止损")
	}
	if orders[0].Price != 85 || orders[0].Reason != ReasonGapStop {
		t.Errorf("跳空止损成交错误: %+v", orders[0])
	}
}

func TestTakeProfitHit(t *testing.T) {
	m := newTestManager(t)
	ledger := holdingLedger(t, 90, 120)

	orders := m.CheckIntradayStops(ledger, makeDayHistory("AAPL", 115, 122, 114, 119), testDay)
	if len(orders) != 1 {
		t.Fatal("应触发止盈")
	}
	if orders[0].Price != 120 || orders[0].Reason != ReasonTakeProfit {
		t.Errorf("止盈成交错误: %+v", orders[0])
	}
}

func TestTakeProfitGapUp(t *testing.T) {
	m := newTestManager(t)
	ledger := holdingLedger(t, 90, 120)

	// 跳空高开 125, 按开盘价成交
	orders := m.CheckIntradayStops(ledger, makeDayHistory("AAPL", 125, 126, 123, 124), testDay)
	if len(orders) != 1 {
		t.Fatal("应触发跳空止盈")
	}
	if orders[0].Price != 125 || orders[0].Reason != ReasonGapTarget {
		t.Errorf("跳空止盈成交错误: %+v", orders[0])
	}
}

func TestStopPriorityOverTarget(t *testing.T) {
	m := newTestManager(t)
	ledger := holdingLedger(t, 90, 120)

	// 同日既破止损又破止盈: 止损优先
	orders := m.CheckIntradayStops(ledger, makeDayHistory("AAPL", 100, 125, 88, 110), testDay)
	if len(orders) != 1 {
		t.Fatal("应只产生一个出场订单")
	}
	if orders[0].Reason != ReasonStopLoss {
		t.Errorf("止损应优先于止盈: %s", orders[0].Reason)
	}
}

func TestNoExitInsideRange(t *testing.T) {
	m := newTestManager(t)
	ledger := holdingLedger(t, 90, 120)

	orders := m.CheckIntradayStops(ledger, makeDayHistory("AAPL", 100, 110, 95, 105), testDay)
	if len(orders) != 0 {
		t.Errorf("区间内运行不应出场, got %d", len(orders))
	}
}

func TestNoBarNoExit(t *testing.T) {
	m := newTestManager(t)
	ledger := holdingLedger(t, 90, 120)

	orders := m.CheckIntradayStops(ledger, market.History{}, testDay)
	if len(orders) != 0 {
		t.Errorf("当天无K线不应出场, got %d", len(orders))
	}
}
