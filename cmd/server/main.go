package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/parkgazer/internal/api/handlers"
	"github.com/langchou/parkgazer/internal/config"
	"github.com/langchou/parkgazer/internal/repository"
	"github.com/langchou/parkgazer/internal/service"
	"github.com/langchou/parkgazer/internal/store"
	"github.com/langchou/parkgazer/pkg/ws"
)

// journalBuffer 审计订阅的缓冲区，容纳数据库短暂变慢时的积压
const journalBuffer = 1024

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Parkgazer", zap.String("port", cfg.ServerPort))

	pricing, err := store.ParsePricing(cfg.SeedPricing)
	if err != nil {
		logger.Fatal("Invalid SEED_PRICING", zap.Error(err))
	}

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库（可选，仅用于事件审计）
	var (
		eventRepo       *repository.EventRepository
		reservationRepo *repository.ReservationRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database migrated successfully")

		eventRepo = repository.NewEventRepository(db)
		reservationRepo = repository.NewReservationRepository(db)
	} else {
		logger.Info("DATABASE_URL not set, event journal disabled")
	}

	// 创建停车场存储
	parkingStore := store.New(logger,
		store.WithRand(store.NewRand(cfg.RandomSeed)),
		store.WithRefreshInterval(cfg.RefreshInterval),
		store.WithRefreshProbability(cfg.RefreshProbability),
		store.WithPricing(pricing),
	)

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run(ctx)

	// 事件转发
	relay := service.NewRelay(logger, parkingStore.Subscribe(), wsHub)
	if eventRepo != nil {
		relay.SetJournal(parkingStore.SubscribeBuffered(journalBuffer), eventRepo, reservationRepo)
	}
	relay.Start(ctx)

	parkingStore.Start(ctx)

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(logger, parkingStore, eventRepo, wsHub)
	wsHub.SetInitDataProvider(handler.InitData)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 停止刷新
	parkingStore.Stop()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	cancel()
	relay.Wait()

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
