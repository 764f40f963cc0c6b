package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/parkgazer/internal/models"
)

// addSpotRequest 新增车位请求，缺省值与管理页表单一致
type addSpotRequest struct {
	ID            string            `json:"id"`
	Type          models.SpotType   `json:"type"`
	Price         *float64          `json:"price"`
	Status        models.SpotStatus `json:"status"`
	TimeRemaining *int              `json:"time_remaining"`
}

type statusRequest struct {
	Status models.SpotStatus `json:"status"`
}

// ListSpots 获取车位列表
// GET /api/spots?status=&type=
func (h *Handler) ListSpots(c *gin.Context) {
	var (
		status models.SpotStatus
		typ    models.SpotType
		err    error
	)
	if v := c.Query("status"); v != "" {
		if status, err = models.ParseSpotStatus(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if v := c.Query("type"); v != "" {
		if typ, err = models.ParseSpotType(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	spots := make([]*models.ParkingSpot, 0)
	for _, spot := range h.store.Spots() {
		if status != "" && spot.Status != status {
			continue
		}
		if typ != "" && spot.Type != typ {
			continue
		}
		spots = append(spots, spot)
	}

	c.JSON(http.StatusOK, gin.H{"data": spots, "total": len(spots)})
}

// GetSpot 获取车位详情
func (h *Handler) GetSpot(c *gin.Context) {
	spot, err := h.store.Spot(c.Param("id"))
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	resp := gin.H{"data": spot}
	if since, ok := h.store.StatusSince(spot.ID); ok {
		resp["status_since"] = since
	}
	c.JSON(http.StatusOK, resp)
}

// AddSpot 新增车位
// POST /api/spots
func (h *Handler) AddSpot(c *gin.Context) {
	var req addSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Spot ID is required"})
		return
	}

	spot := models.ParkingSpot{
		ID:            req.ID,
		Type:          models.SpotRegular,
		Price:         5.00,
		Status:        models.SpotAvailable,
		TimeRemaining: req.TimeRemaining,
	}
	if req.Type != "" {
		spot.Type = req.Type
	}
	if req.Price != nil {
		spot.Price = *req.Price
	}
	if req.Status != "" {
		spot.Status = req.Status
	}

	added, err := h.store.AddSpot(spot)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	h.logger.Info("Spot added via API", zap.String("spot_id", added.ID))
	c.JSON(http.StatusCreated, gin.H{"data": added})
}

// UpdateSpot 部分更新车位
// PATCH /api/spots/:id
func (h *Handler) UpdateSpot(c *gin.Context) {
	var patch models.SpotPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	spot, err := h.store.UpdateSpot(c.Param("id"), patch)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": spot})
}

// UpdateSpotStatus 设置车位状态
// PUT /api/spots/:id/status
func (h *Handler) UpdateSpotStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id := c.Param("id")
	if err := h.store.UpdateSpotStatus(id, req.Status); err != nil {
		h.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"spot_id": id,
		"status":  req.Status,
	})
}

// DeleteSpot 删除车位
// DELETE /api/spots/:id
func (h *Handler) DeleteSpot(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteSpot(id); err != nil {
		h.writeStoreError(c, err)
		return
	}

	h.logger.Info("Spot deleted via API", zap.String("spot_id", id))
	c.Status(http.StatusNoContent)
}

// GetSpotEvents 获取车位的历史事件
// GET /api/spots/:id/events?limit=50
func (h *Handler) GetSpotEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if limit > 500 {
		limit = 500
	}

	if h.eventRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event journal disabled"})
		return
	}

	id := c.Param("id")
	events, err := h.eventRepo.ListBySpotID(c.Request.Context(), id, limit)
	if err != nil {
		h.logger.Error("Failed to list spot events", zap.Error(err), zap.String("spot_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list spot events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}
