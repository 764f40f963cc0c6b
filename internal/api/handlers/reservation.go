package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/parkgazer/internal/models"
)

// maxReserveHours 单次预订的最长时长（小时）
const maxReserveHours = 24

type reserveRequest struct {
	Duration float64 `json:"duration"`
}

// QuoteSpot 预订报价
// GET /api/spots/:id/quote?duration=2
func (h *Handler) QuoteSpot(c *gin.Context) {
	duration, err := strconv.ParseFloat(c.DefaultQuery("duration", "1"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid duration"})
		return
	}

	if duration > maxReserveHours {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Duration exceeds 24 hours"})
		return
	}

	quote, err := h.store.Quote(c.Param("id"), duration)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// ReserveSpot 预订车位
// POST /api/spots/:id/reserve
// 只有空闲车位可以预订
func (h *Handler) ReserveSpot(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Duration > maxReserveHours {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Duration exceeds 24 hours"})
		return
	}

	id := c.Param("id")
	res, err := h.store.ReserveAvailable(id, req.Duration)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	h.logger.Info("Reservation created via API",
		zap.String("spot_id", id),
		zap.String("reservation_id", res.ID))
	c.JSON(http.StatusCreated, gin.H{"data": res})
}

// ListReservations 获取预订列表
// GET /api/reservations?status=&spot_id=
func (h *Handler) ListReservations(c *gin.Context) {
	status := models.ReservationStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation status"})
		return
	}
	spotID := c.Query("spot_id")

	reservations := make([]*models.Reservation, 0)
	for _, r := range h.store.Reservations() {
		if status != "" && r.Status != status {
			continue
		}
		if spotID != "" && r.SpotID != spotID {
			continue
		}
		reservations = append(reservations, r)
	}

	c.JSON(http.StatusOK, gin.H{"data": reservations, "total": len(reservations)})
}

// GetStats 获取汇总统计
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.store.Stats()})
}
