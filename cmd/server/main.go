package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advisor-stream/internal/advisor"
	"advisor-stream/internal/config"
	"advisor-stream/internal/handler"
	"advisor-stream/internal/storage"
	"advisor-stream/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 初始化存储
	store := storage.NewMemoryStorage()
	if err := store.Init(); err != nil {
		logger.Fatalf("存储初始化失败: %v", err)
	}

	// 未配置 API Key 时使用内置顾问，保证离线可用
	var engine advisor.Engine
	if cfg.Model.APIKey != "" {
		engine = advisor.NewOpenAIEngine(cfg.Model)
		logger.Infof("使用模型引擎: %s", cfg.Model.Model)
	} else {
		engine = advisor.NewCannedEngine()
		logger.Info("未配置模型 API Key，使用内置顾问")
	}

	svc := advisor.NewService(cfg, engine, store)
	streamHandler := handler.NewStreamHandler(svc)

	router := setupRouter(cfg, streamHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	if err := server.Close(); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}

func setupRouter(cfg *config.Config, streamHandler *handler.StreamHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// API路由
	api := router.Group("/api")
	{
		api.POST("/advisor/stream", streamHandler.MentorStream)
		api.POST("/dataset/:dataset_id/stream", streamHandler.DatasetStream)
		api.POST("/analysis/stream", streamHandler.AnalysisStream)
		api.GET("/conversation/:conversation_id", streamHandler.GetConversation)
	}

	return router
}
