package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"
	"github.com/yujm888/finrag/internal/config"
	"github.com/yujm888/finrag/internal/hybrid"
	"github.com/yujm888/finrag/internal/memory"
	"github.com/yujm888/finrag/internal/rag"
	"github.com/yujm888/finrag/internal/schema"
	"github.com/yujm888/finrag/internal/textsql"
)

// HTTPServer 基于 Gin 的 HTTP 服务器
type HTTPServer struct {
	config      *config.Config
	engine      *gin.Engine
	server      *http.Server
	ragPipeline *rag.Pipeline
	sqlEngine   *textsql.Engine
	hybridEng   *hybrid.Engine
	memoryMgr   *memory.Manager
	schemaCache *schema.Cached
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(cfg *config.Config, ragPipeline *rag.Pipeline, sqlEngine *textsql.Engine,
	hybridEng *hybrid.Engine, memoryMgr *memory.Manager, schemaCache *schema.Cached) *HTTPServer {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		config:      cfg,
		engine:      gin.New(),
		ragPipeline: ragPipeline,
		sqlEngine:   sqlEngine,
		hybridEng:   hybridEng,
		memoryMgr:   memoryMgr,
		schemaCache: schemaCache,
	}

	s.registerMiddlewares()
	s.registerRoutes()

	return s
}

// registerMiddlewares 注册中间件
func (s *HTTPServer) registerMiddlewares() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(s.corsMiddleware())
}

// loggingMiddleware 自定义日志中间件
func (s *HTTPServer) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		logx.Info("HTTP request, method %s, path %s, status %d, duration %s, remote_addr %s",
			method, path, c.Writer.Status(), duration, c.ClientIP())
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/chat", s.handleChat)
		api.POST("/rag/ask", s.handleRAGAsk)
		api.POST("/sql/ask", s.handleSQLAsk)
		api.POST("/schema/refresh", s.handleSchemaRefresh)
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	logx.Info("HTTP server listening on %s", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	logx.Info("Shutting down HTTP server...")
	return s.server.Shutdown(ctx)
}
