package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"multiscan/internal/core/config"
	"multiscan/pkg/dirscan"
	"multiscan/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 扫描 HTTP API 服务
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	wordlist   []string

	// transport 为空时每个引擎自行创建 fasthttp 客户端
	transport dirscan.Transport
}

// NewServer 创建 API 服务；配置了字典文件时在此加载
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	wordlist, err := cfg.Scan.BaseWordlist()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:   cfg,
		engine:   gin.New(),
		wordlist: wordlist,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// SetTransport 替换引擎使用的传输层
func (s *Server) SetTransport(t dirscan.Transport) {
	s.transport = t
}

// Handler 返回路由处理器
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Recovery())

	s.engine.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logger.Debugf("API请求: %s %s -> %d (%s, %s)",
			param.Method, param.Path, param.StatusCode, param.Latency, param.ClientIP)
		return ""
	}))

	// CORS
	s.engine.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func (s *Server) setupRoutes() {
	s.engine.POST("/scan", s.handleScan)
	s.engine.GET("/dictionary/default", s.handleDefaultDictionary)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start 启动监听，ctx 取消时优雅关闭
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Server.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Infof("API服务启动: %s", s.config.Server.Listen)

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			logger.Errorf("API服务关闭失败: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 关闭服务，等待进行中的请求最多5秒
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	logger.Info("正在关闭API服务")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
