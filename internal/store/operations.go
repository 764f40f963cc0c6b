package store

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/parkgazer/internal/models"
)

// setStatus 设置车位状态并驱动状态机，调用方需持有写锁
func (s *Store) setStatus(spot *models.ParkingSpot, status models.SpotStatus) {
	spot.Status = status

	machine := s.machines.GetOrCreate(spot.ID, status)
	if err := machine.Transition(status); err != nil {
		s.logger.Warn("Failed to record status transition",
			zap.String("spot_id", spot.ID),
			zap.Error(err))
	}
}

// maxDurationHours time.Duration 能表示的最大小时数
const maxDurationHours = float64(math.MaxInt64) / float64(time.Hour)

func validDuration(hours float64) bool {
	return hours > 0 && hours < maxDurationHours && !math.IsNaN(hours)
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// UpdateSpotStatus 更新车位状态
func (s *Store) UpdateSpotStatus(spotID string, status models.SpotStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidSpot, status)
	}

	s.mu.Lock()
	defer s.unlock()

	_, spot := s.find(spotID)
	if spot == nil {
		return fmt.Errorf("%w: %s", ErrSpotNotFound, spotID)
	}

	s.setStatus(spot, status)
	return nil
}

// ReserveSpot 预订车位
//
// 金额按当前价格快照计算，车位状态置为 reserved。是否允许预订非空闲车位由调用方判断。
func (s *Store) ReserveSpot(spotID string, duration float64) (*models.Reservation, error) {
	if !validDuration(duration) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	s.mu.Lock()
	defer s.unlock()

	_, spot := s.find(spotID)
	if spot == nil {
		return nil, fmt.Errorf("%w: %s", ErrSpotNotFound, spotID)
	}

	return s.reserve(spot, duration), nil
}

// ReserveAvailable 仅当车位空闲时预订，检查与预订在同一把锁内完成
func (s *Store) ReserveAvailable(spotID string, duration float64) (*models.Reservation, error) {
	if !validDuration(duration) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	s.mu.Lock()
	defer s.unlock()

	_, spot := s.find(spotID)
	if spot == nil {
		return nil, fmt.Errorf("%w: %s", ErrSpotNotFound, spotID)
	}
	if spot.Status != models.SpotAvailable {
		return nil, fmt.Errorf("%w: %s is %s", ErrSpotUnavailable, spotID, spot.Status)
	}

	return s.reserve(spot, duration), nil
}

// reserve 创建预订，调用方需持有写锁
func (s *Store) reserve(spot *models.ParkingSpot, duration float64) *models.Reservation {
	now := s.now()
	res := &models.Reservation{
		ID:        s.newID(),
		SpotID:    spot.ID,
		Duration:  duration,
		Amount:    spot.Price * duration,
		Status:    models.ReservationActive,
		StartTime: now,
		EndTime:   now.Add(hoursToDuration(duration)),
	}
	s.reservations = append(s.reservations, res)
	s.emit(models.EventReservationCreated, spot.ID, res.Clone())

	s.setStatus(spot, models.SpotReserved)

	s.logger.Info("Spot reserved",
		zap.String("spot_id", spot.ID),
		zap.String("reservation_id", res.ID),
		zap.Float64("duration_h", duration),
		zap.Float64("amount", res.Amount))

	return res.Clone()
}

// Quote 计算预订金额，不产生预订
func (s *Store) Quote(spotID string, duration float64) (models.Quote, error) {
	if !validDuration(duration) {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, spot := s.find(spotID)
	if spot == nil {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrSpotNotFound, spotID)
	}

	return models.Quote{
		SpotID:   spotID,
		Price:    spot.Price,
		Duration: duration,
		Amount:   spot.Price * duration,
	}, nil
}

// AddSpot 新增车位，传感器数据由存储生成
func (s *Store) AddSpot(spot models.ParkingSpot) (*models.ParkingSpot, error) {
	if err := spot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpot, err)
	}

	s.mu.Lock()
	defer s.unlock()

	if _, existing := s.find(spot.ID); existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrSpotExists, spot.ID)
	}

	added := spot.Clone()
	sd := s.newSensorData()
	added.SensorData = &sd

	s.spots = append(s.spots, added)
	s.machines.GetOrCreate(added.ID, added.Status)
	s.emit(models.EventSpotAdded, added.ID, added.Clone())

	s.logger.Info("Spot added",
		zap.String("spot_id", added.ID),
		zap.String("type", string(added.Type)),
		zap.Float64("price", added.Price))

	return added.Clone(), nil
}

// UpdateSpot 合并部分字段，未设置的字段保持不变
func (s *Store) UpdateSpot(spotID string, patch models.SpotPatch) (*models.ParkingSpot, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpot, err)
	}

	s.mu.Lock()
	defer s.unlock()

	_, spot := s.find(spotID)
	if spot == nil {
		return nil, fmt.Errorf("%w: %s", ErrSpotNotFound, spotID)
	}

	status := patch.Status
	patch.Status = nil
	patch.Apply(spot)
	if status != nil {
		s.setStatus(spot, *status)
	}

	s.emit(models.EventSpotUpdated, spotID, spot.Clone())
	return spot.Clone(), nil
}

// DeleteSpot 删除车位并取消该车位上仍有效的预订
func (s *Store) DeleteSpot(spotID string) error {
	s.mu.Lock()
	defer s.unlock()

	idx, spot := s.find(spotID)
	if spot == nil {
		return fmt.Errorf("%w: %s", ErrSpotNotFound, spotID)
	}

	s.spots = append(s.spots[:idx], s.spots[idx+1:]...)
	s.machines.Remove(spotID)

	cancelled := 0
	for _, r := range s.reservations {
		if r.SpotID != spotID || r.Status != models.ReservationActive {
			continue
		}
		r.Status = models.ReservationCancelled
		cancelled++
		s.emit(models.EventReservationCancelled, spotID, r.Clone())
	}

	s.emit(models.EventSpotDeleted, spotID, nil)

	s.logger.Info("Spot deleted",
		zap.String("spot_id", spotID),
		zap.Int("cancelled_reservations", cancelled))

	return nil
}
