package web

import (
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"swingtrader/backtest"
	"swingtrader/logger"
)

// getHealth 健康检查
func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"strategy": s.cfg.ActiveStrategy,
		"time":     time.Now().Format(time.RFC3339),
	})
}

// getPortfolio 当前组合
func (s *Server) getPortfolio(c *gin.Context) {
	snap, found, err := s.db.LoadPortfolio(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{
			"cash":      s.cfg.Backtest.InitialCapital,
			"positions": []any{},
		})
		return
	}

	equity := snap.Cash
	for _, pos := range snap.Positions {
		equity += float64(pos.Quantity) * pos.LastPrice
	}

	c.JSON(http.StatusOK, gin.H{
		"cash":      snap.Cash,
		"equity":    equity,
		"positions": snap.Positions,
	})
}

// getTrades 成交流水（时间倒序）
func (s *Server) getTrades(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是正整数"})
			return
		}
		limit = n
	}

	trades, err := s.db.GetTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// getSessions 回测会话列表
func (s *Server) getSessions(c *gin.Context) {
	entries, err := os.ReadDir(s.cfg.Backtest.OutputDir)
	if os.IsNotExist(err) {
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var sessions []string
	for _, e := range entries {
		if e.IsDir() {
			sessions = append(sessions, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(sessions)))
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// backtestRequest 回测请求参数
type backtestRequest struct {
	Start string `json:"start"` // 起始日期 YYYY-MM-DD，缺省按配置年数
	End   string `json:"end"`   // 结束日期 YYYY-MM-DD，缺省到今天
}

// runBacktest 基于行情库触发一次批量回测
func (s *Server) runBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体解析失败"})
		return
	}

	end := time.Now()
	start := end.AddDate(-s.cfg.Backtest.Years, 0, 0)
	var err error
	if req.Start != "" {
		if start, err = time.Parse("2006-01-02", req.Start); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start 日期格式错误"})
			return
		}
	}
	if req.End != "" {
		if end, err = time.Parse("2006-01-02", req.End); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end 日期格式错误"})
			return
		}
	}

	history, err := s.bars.GetHistory(s.cfg.Universe.Tickers, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(history) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "行情库中没有可用数据, 请先运行周度流程补数"})
		return
	}

	results, sessionDir, err := backtest.NewRunner(s.cfg).RunAll(history)
	if err != nil {
		logger.Error("❌ API 触发回测失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summary := make(map[string]backtest.Metrics, len(results))
	for name, result := range results {
		summary[name] = result.Metrics
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionDir, "results": summary})
}
