package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"swingtrader/config"
	"swingtrader/database"
	"swingtrader/market"
	"swingtrader/portfolio"
	"swingtrader/storage"
)

func newTestServer(t *testing.T) (*Server, *database.GormDatabase, *storage.SQLiteStorage) {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		ActiveStrategy: "rsi_reversion",
		Strategies: map[string]map[string]float64{
			"rsi_reversion": {"rsi_period": 14},
		},
		Risk: config.RiskConfig{RiskPerTrade: 0.02, StopATRMultiplier: 2.0},
		Backtest: config.BacktestConfig{
			InitialCapital:  10000,
			Years:           2,
			WarmupDays:      20,
			DecisionWeekday: "Friday",
			OutputDir:       filepath.Join(dir, "backtests"),
		},
		Universe: config.UniverseConfig{Tickers: []string{"AAPL"}},
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}

	db, err := database.NewGormDatabase(&config.DatabaseConfig{
		Type: "sqlite", DSN: filepath.Join(dir, "portfolio.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	bars, err := storage.NewSQLiteStorage(filepath.Join(dir, "bars.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bars.Close() })

	return NewServer(cfg, db, bars), db, bars
}

func doRequest(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	var body map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("响应解析失败: %v (%s)", err, w.Body.String())
		}
	}
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("健康检查响应错误: %v", body)
	}
	if body["strategy"] != "rsi_reversion" {
		t.Errorf("应返回激活策略: %v", body)
	}
}

func TestPortfolioEndpointEmpty(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/portfolio")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", w.Code)
	}
	if body["cash"].(float64) != 10000 {
		t.Errorf("空库应返回初始资金: %v", body)
	}
}

func TestPortfolioEndpoint(t *testing.T) {
	s, db, _ := newTestServer(t)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	snap := portfolio.Snapshot{
		Cash: 8000,
		Positions: []portfolio.Position{
			{Ticker: "AAPL", Quantity: 20, AvgPrice: 100, LastPrice: 105, OpenDate: day},
		},
	}
	if err := db.SavePortfolio(context.Background(), snap); err != nil {
		t.Fatal(err)
	}

	w, body := doRequest(t, s, http.MethodGet, "/api/portfolio")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", w.Code)
	}
	// 8000 + 20*105 = 10100
	if body["equity"].(float64) != 10100 {
		t.Errorf("权益计算错误: %v", body["equity"])
	}
	positions := body["positions"].([]any)
	if len(positions) != 1 {
		t.Errorf("持仓数量错误: %d", len(positions))
	}
}

func TestTradesEndpointBadLimit(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, _ := doRequest(t, s, http.MethodGet, "/api/trades?limit=abc")
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法 limit 应返回 400: %d", w.Code)
	}
}

func TestSessionsEndpointEmpty(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/sessions")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", w.Code)
	}
	if sessions, ok := body["sessions"].([]any); ok && len(sessions) != 0 {
		t.Errorf("应返回空会话列表: %v", body)
	}
}

func TestBacktestEndpointNoData(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, _ := doRequest(t, s, http.MethodPost, "/api/backtest")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("无行情数据应返回 422: %d", w.Code)
	}
}

func TestBacktestEndpoint(t *testing.T) {
	s, _, bars := newTestServer(t)

	// 造 200 天横盘数据
	var data []market.Bar
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		data = append(data, market.Bar{
			Ticker: "AAPL", Date: base.AddDate(0, 0, i),
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		})
	}
	if err := bars.UpsertBars(data); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/backtest",
		strings.NewReader(`{"start":"2024-01-01","end":"2024-12-31"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("回测接口失败: %d %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	results := body["results"].(map[string]any)
	if _, ok := results["rsi_reversion"]; !ok {
		t.Errorf("应包含激活策略的结果: %v", results)
	}
}
