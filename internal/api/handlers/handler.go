package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/parkgazer/internal/repository"
	"github.com/langchou/parkgazer/internal/store"
	"github.com/langchou/parkgazer/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger    *zap.Logger
	store     *store.Store
	eventRepo *repository.EventRepository // 未配置数据库时为 nil
	wsHub     *ws.Hub
	upgrader  websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	parkingStore *store.Store,
	eventRepo *repository.EventRepository,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:    logger,
		store:     parkingStore,
		eventRepo: eventRepo,
		wsHub:     wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// 车位
		api.GET("/spots", h.ListSpots)
		api.POST("/spots", h.AddSpot)
		api.GET("/spots/:id", h.GetSpot)
		api.PATCH("/spots/:id", h.UpdateSpot)
		api.DELETE("/spots/:id", h.DeleteSpot)
		api.PUT("/spots/:id/status", h.UpdateSpotStatus)
		api.GET("/spots/:id/events", h.GetSpotEvents)

		// 预订
		api.GET("/spots/:id/quote", h.QuoteSpot)
		api.POST("/spots/:id/reserve", h.ReserveSpot)
		api.GET("/reservations", h.ListReservations)

		// 统计
		api.GET("/stats", h.GetStats)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// InitData WebSocket 初始数据
func (h *Handler) InitData() *ws.InitData {
	return &ws.InitData{
		Spots:        h.store.Spots(),
		Reservations: h.store.Reservations(),
		Stats:        h.store.Stats(),
	}
}

// writeStoreError 把存储错误映射为 HTTP 响应
func (h *Handler) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrSpotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Spot not found"})
	case errors.Is(err, store.ErrSpotExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Spot already exists"})
	case errors.Is(err, store.ErrSpotUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "Spot is not available"})
	case errors.Is(err, store.ErrInvalidSpot), errors.Is(err, store.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Store operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
		"journal":    h.eventRepo != nil,
	})
}
