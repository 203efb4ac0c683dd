// Package web HTTP API
// 查询组合、回测会话，以及触发一次批量回测
package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swingtrader/config"
	"swingtrader/database"
	"swingtrader/logger"
	"swingtrader/storage"
)

// Server Web 服务
type Server struct {
	cfg    *config.Config
	db     *database.GormDatabase
	bars   *storage.SQLiteStorage
	engine *gin.Engine
}

// NewServer 创建 Web 服务
func NewServer(cfg *config.Config, db *database.GormDatabase, bars *storage.SQLiteStorage) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		cfg:    cfg,
		db:     db,
		bars:   bars,
		engine: engine,
	}
	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// Prometheus 抓取端点
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/health", s.getHealth)
		api.GET("/portfolio", s.getPortfolio)
		api.GET("/trades", s.getTrades)
		api.GET("/sessions", s.getSessions)
		api.POST("/backtest", s.runBacktest)
	}
}

// Run 启动服务（阻塞）
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	logger.Info("🌐 Web 服务启动: http://%s", addr)
	return s.engine.Run(addr)
}

// Engine 返回底层引擎（测试用）
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// requestLogger 请求日志中间件
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("❌ %s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
		} else {
			logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
		}
	}
}
