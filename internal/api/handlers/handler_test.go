package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/langchou/parkgazer/internal/models"
	"github.com/langchou/parkgazer/internal/store"
	"github.com/langchou/parkgazer/pkg/ws"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
	Error string          `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	s := store.New(logger, store.WithRand(store.NewRand(99)))
	h := NewHandler(logger, s, nil, ws.NewHub(logger))

	r := gin.New()
	h.RegisterRoutes(r)
	return r, s
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestListSpots(t *testing.T) {
	r, s := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/spots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.SeedSpotCount, env.Total)

	var spots []models.ParkingSpot
	require.NoError(t, json.Unmarshal(env.Data, &spots))
	assert.Equal(t, "A-01", spots[0].ID)

	require.NoError(t, s.UpdateSpotStatus("A-01", models.SpotOccupied))
	w, env = do(t, r, http.MethodGet, "/api/spots?status=occupied&type=handicapped", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &spots))
	for _, spot := range spots {
		assert.Equal(t, models.SpotOccupied, spot.Status)
		assert.Equal(t, models.SpotHandicapped, spot.Type)
	}
	assert.NotEmpty(t, spots)

	w, _ = do(t, r, http.MethodGet, "/api/spots?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, r, http.MethodGet, "/api/spots?type=bus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSpot(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/spots/A-07", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var spot models.ParkingSpot
	require.NoError(t, json.Unmarshal(env.Data, &spot))
	assert.Equal(t, "A-07", spot.ID)

	w, env = do(t, r, http.MethodGet, "/api/spots/Z-01", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Spot not found", env.Error)
}

func TestReserveSpot(t *testing.T) {
	r, s := newTestRouter(t)
	require.NoError(t, s.UpdateSpotStatus("A-05", models.SpotAvailable))

	w, env := do(t, r, http.MethodPost, "/api/spots/A-05/reserve", gin.H{"duration": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "A-05", res.SpotID)
	assert.Equal(t, 10.00, res.Amount)
	assert.Equal(t, 2.0, res.Duration)
	assert.Equal(t, models.ReservationActive, res.Status)

	spot, err := s.Spot("A-05")
	require.NoError(t, err)
	assert.Equal(t, models.SpotReserved, spot.Status)
	assert.Len(t, s.Reservations(), 4)

	// 已预订的车位不能再次预订
	w, env = do(t, r, http.MethodPost, "/api/spots/A-05/reserve", gin.H{"duration": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Spot is not available", env.Error)
	assert.Len(t, s.Reservations(), 4)
}

func TestReserveSpot_Errors(t *testing.T) {
	r, s := newTestRouter(t)
	require.NoError(t, s.UpdateSpotStatus("A-06", models.SpotAvailable))

	w, _ := do(t, r, http.MethodPost, "/api/spots/Q-01/reserve", gin.H{"duration": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/spots/A-06/reserve", gin.H{"duration": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/spots/A-06/reserve", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/spots/A-06/reserve", gin.H{"duration": 1e7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, r, http.MethodPost, "/api/spots/A-06/reserve", gin.H{"duration": 25})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Duration exceeds 24 hours", env.Error)

	assert.Len(t, s.Reservations(), 3)
}

func TestReserveSpot_ConcurrentRequests(t *testing.T) {
	r, s := newTestRouter(t)
	require.NoError(t, s.UpdateSpotStatus("A-10", models.SpotAvailable))

	const workers = 16
	codes := make(chan int, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			req := httptest.NewRequest(http.MethodPost, "/api/spots/A-10/reserve", strings.NewReader(`{"duration":1}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	close(start)
	wg.Wait()
	close(codes)

	created, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
	assert.Len(t, s.Reservations(), 4)
}

func TestQuoteSpot(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/spots/A-04/quote?duration=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var q models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, 4.50, q.Price)
	assert.Equal(t, 13.50, q.Amount)

	w, _ = do(t, r, http.MethodGet, "/api/spots/A-04/quote?duration=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddSpot(t *testing.T) {
	r, s := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/spots", gin.H{"id": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Spot ID is required", env.Error)

	w, env = do(t, r, http.MethodPost, "/api/spots", gin.H{
		"id":     "B-01",
		"type":   "electric",
		"price":  6.00,
		"status": "available",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var spot models.ParkingSpot
	require.NoError(t, json.Unmarshal(env.Data, &spot))
	assert.Equal(t, models.SpotElectric, spot.Type)
	require.NotNil(t, spot.SensorData)
	assert.GreaterOrEqual(t, spot.SensorData.Temperature, 20.0)
	assert.Less(t, spot.SensorData.Temperature, 30.0)

	w, env = do(t, r, http.MethodPost, "/api/spots", gin.H{"id": "B-02"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &spot))
	assert.Equal(t, models.SpotRegular, spot.Type)
	assert.Equal(t, 5.00, spot.Price)
	assert.Equal(t, models.SpotAvailable, spot.Status)

	w, _ = do(t, r, http.MethodPost, "/api/spots", gin.H{"id": "B-01"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/spots", gin.H{"id": "B-03", "type": "bus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Len(t, s.Spots(), store.SeedSpotCount+2)
}

func TestUpdateSpot(t *testing.T) {
	r, s := newTestRouter(t)
	before, err := s.Spot("A-03")
	require.NoError(t, err)

	w, env := do(t, r, http.MethodPatch, "/api/spots/A-03", gin.H{"price": 9.99})
	require.Equal(t, http.StatusOK, w.Code)
	var spot models.ParkingSpot
	require.NoError(t, json.Unmarshal(env.Data, &spot))
	assert.Equal(t, 9.99, spot.Price)
	assert.Equal(t, before.Status, spot.Status)
	assert.Equal(t, before.Type, spot.Type)

	w, _ = do(t, r, http.MethodPatch, "/api/spots/A-03", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPatch, "/api/spots/A-03", gin.H{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPatch, "/api/spots/none", gin.H{"price": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateSpotStatus(t *testing.T) {
	r, s := newTestRouter(t)

	w, _ := do(t, r, http.MethodPut, "/api/spots/A-09/status", gin.H{"status": "occupied"})
	require.Equal(t, http.StatusOK, w.Code)
	spot, err := s.Spot("A-09")
	require.NoError(t, err)
	assert.Equal(t, models.SpotOccupied, spot.Status)

	w, _ = do(t, r, http.MethodPut, "/api/spots/A-09/status", gin.H{"status": "gone"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPut, "/api/spots/none/status", gin.H{"status": "occupied"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSpot(t *testing.T) {
	r, s := newTestRouter(t)

	w, _ := do(t, r, http.MethodDelete, "/api/spots/A-18", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, s.Spots(), store.SeedSpotCount-1)

	// 该车位上的有效预订被取消
	w, env := do(t, r, http.MethodGet, "/api/reservations?spot_id=A-18", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res []models.Reservation
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res, 1)
	assert.Equal(t, models.ReservationCancelled, res[0].Status)

	w, _ = do(t, r, http.MethodDelete, "/api/spots/A-18", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReservations(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, env.Total)

	w, env = do(t, r, http.MethodGet, "/api/reservations?status=active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.Total)

	w, _ = do(t, r, http.MethodGet, "/api/reservations?status=pending", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, store.SeedSpotCount, stats.TotalSpots)
	assert.Equal(t, store.SeedSpotCount, stats.AvailableSpots+stats.OccupiedSpots+stats.ReservedSpots)
	assert.Equal(t, 3, stats.TotalReservations)
	assert.Equal(t, 2, stats.ActiveReservations)
	assert.InDelta(t, 30.0, stats.TotalSpent, 1e-9)
}

func TestGetSpotEvents_JournalDisabled(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := do(t, r, http.MethodGet, "/api/spots/A-01/events", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetSpotEvents_InvalidLimit(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, q := range []string{"abc", "0", "-3"} {
		w, env := do(t, r, http.MethodGet, "/api/spots/A-01/events?limit="+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", q)
		assert.Equal(t, "Invalid limit", env.Error)
	}
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["journal"])
}
