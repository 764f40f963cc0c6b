package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/parkgazer/internal/models"
)

// Start 启动传感器刷新循环
func (s *Store) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.running {
		s.logger.Info("Parking store already running, skipping start")
		return
	}
	s.stopCh = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.refreshLoop(ctx, s.stopCh)

	s.logger.Info("Sensor refresh loop started",
		zap.Duration("interval", s.refreshInterval),
		zap.Float64("probability", s.refreshProbability))
}

// Stop 停止刷新循环并等待退出
func (s *Store) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.runMu.Unlock()

	s.wg.Wait()
	s.logger.Info("Sensor refresh loop stopped")
}

// refreshLoop 刷新循环
func (s *Store) refreshLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshSensors()
		}
	}
}

// refreshSensors 每个车位以给定概率获得新读数，返回更新的车位数
func (s *Store) refreshSensors() int {
	s.mu.Lock()
	defer s.unlock()

	var readings []models.SensorReading
	for _, spot := range s.spots {
		if s.rng.Float64() >= s.refreshProbability {
			continue
		}
		sd := s.newSensorData()
		spot.SensorData = &sd
		readings = append(readings, models.SensorReading{SpotID: spot.ID, SensorData: sd})
	}

	if len(readings) > 0 {
		s.emit(models.EventSensorUpdate, "", readings)
	}

	s.logger.Debug("Sensor data refreshed", zap.Int("updated", len(readings)), zap.Int("spots", len(s.spots)))
	return len(readings)
}
