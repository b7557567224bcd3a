package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finplan/backend/internal/ledger/api"
	"github.com/finplan/backend/internal/platform/metrics"
)

// Server 封装 HTTP 服务
type Server struct {
	engine *gin.Engine
	logger *zap.Logger
	port   string
	server *http.Server
}

// NewServer 初始化 HTTP Server (包含网关逻辑)
func NewServer(
	logger *zap.Logger,
	cfgPort string,
	cfgMode string,
	// 依赖注入：传入具体的 Handler
	ledgerHandler *api.LedgerHandler,
) *Server {
	if cfgMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		engine: NewEngine(logger, ledgerHandler),
		logger: logger,
		port:   cfgPort,
	}
}

// NewEngine 组装中间件与路由，测试直接使用
func NewEngine(logger *zap.Logger, ledgerHandler *api.LedgerHandler) *gin.Engine {
	r := gin.New()

	// ==========================================
	// Logical Gateway Layer (逻辑网关层)
	// ==========================================

	// 1. Recovery (防崩)
	r.Use(gin.Recovery())

	// 2. Request ID
	r.Use(RequestID())

	// 3. 访问日志 + 指标
	r.Use(AccessLog(logger))

	// 4. CORS (跨域处理 - 允许前端访问)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-User-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// ==========================================
	// Routing Layer (路由分发)
	// ==========================================

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	v1 := r.Group("/api/v1", Owner())
	{
		ledgerHandler.RegisterRoutes(v1)
	}
	return r
}

// RequestID 透传或生成 X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// AccessLog 记录访问日志，按路由模板统计请求数
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next() // 执行后续逻辑

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Duration("cost", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Error("HTTP Request", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("HTTP Request", fields...)
	}
}

// Owner 从 X-User-ID 解析当前用户
// 认证由上游网关完成，这里只负责隔离数据
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResp{Error: "missing or invalid X-User-ID"})
			return
		}
		c.Set(api.OwnerKey, id)
		c.Next()
	}
}

// Run 启动服务
func (s *Server) Run() error {
	s.server = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("FinPlan ledger API started", zap.String("port", s.port))
	return s.server.ListenAndServe()
}

// Shutdown 优雅停机 (Graceful Shutdown)
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
