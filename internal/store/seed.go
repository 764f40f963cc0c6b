package store

import (
	"fmt"
	"time"

	"github.com/langchou/parkgazer/internal/models"
)

// Pricing 初始价格推导方式
type Pricing string

const (
	// PricingCycle 价格取自按 i%4 循环的类型表，与显示的类型可能不一致（兼容旧演示数据）
	PricingCycle Pricing = "cycle"
	// PricingType 价格取自车位实际类型
	PricingType Pricing = "type"
)

// ParsePricing 解析价格推导方式
func ParsePricing(v string) (Pricing, error) {
	switch p := Pricing(v); p {
	case PricingCycle, PricingType:
		return p, nil
	}
	return "", fmt.Errorf("invalid pricing mode %q", v)
}

// SeedSpotCount 初始车位数量
const SeedSpotCount = 24

var pricingCycle = []models.SpotType{
	models.SpotRegular,
	models.SpotHandicapped,
	models.SpotElectric,
	models.SpotCompact,
}

// seedType 按序号推导车位类型
func seedType(i int) models.SpotType {
	switch {
	case i%8 == 0:
		return models.SpotHandicapped
	case i%6 == 0:
		return models.SpotElectric
	case i%4 == 0:
		return models.SpotCompact
	default:
		return models.SpotRegular
	}
}

// PriceFor 类型对应的每小时价格
func PriceFor(t models.SpotType) float64 {
	switch t {
	case models.SpotElectric:
		return 6.00
	case models.SpotCompact:
		return 4.50
	default:
		return 5.00
	}
}

func (s *Store) seedPrice(i int, typ models.SpotType) float64 {
	if s.pricing == PricingType {
		return PriceFor(typ)
	}
	return PriceFor(pricingCycle[i%len(pricingCycle)])
}

// newSensorData 生成一次模拟读数，调用方需持有锁
func (s *Store) newSensorData() models.SensorData {
	return models.SensorData{
		Temperature: float64(s.rng.IntN(10) + 20),
		Humidity:    float64(s.rng.IntN(30) + 50),
		LastUpdate:  s.now(),
	}
}

// seed 写入初始车位和示例预订
func (s *Store) seed() {
	s.spots = make([]*models.ParkingSpot, 0, SeedSpotCount)

	for i := 0; i < SeedSpotCount; i++ {
		typ := seedType(i)
		spot := &models.ParkingSpot{
			ID:     fmt.Sprintf("A-%02d", i+1),
			Status: models.SpotStatuses[s.rng.IntN(len(models.SpotStatuses))],
			Type:   typ,
			Price:  s.seedPrice(i, typ),
		}
		if s.rng.Float64() > 0.5 {
			minutes := s.rng.IntN(120) + 30
			spot.TimeRemaining = &minutes
		}
		sd := s.newSensorData()
		spot.SensorData = &sd

		s.spots = append(s.spots, spot)
		s.machines.GetOrCreate(spot.ID, spot.Status)
	}

	s.reservations = seedReservations()
}

func seedReservations() []*models.Reservation {
	at := func(hour, minute int) time.Time {
		return time.Date(2024, time.January, 15, hour, minute, 0, 0, time.UTC)
	}

	return []*models.Reservation{
		{
			ID:        "res-001",
			SpotID:    "A-05",
			Duration:  2,
			Amount:    10.00,
			Status:    models.ReservationActive,
			StartTime: at(14, 30),
			EndTime:   at(16, 30),
		},
		{
			ID:        "res-002",
			SpotID:    "A-12",
			Duration:  1,
			Amount:    5.00,
			Status:    models.ReservationCompleted,
			StartTime: at(12, 0),
			EndTime:   at(13, 0),
		},
		{
			ID:        "res-003",
			SpotID:    "A-18",
			Duration:  3,
			Amount:    15.00,
			Status:    models.ReservationActive,
			StartTime: at(15, 0),
			EndTime:   at(18, 0),
		},
	}
}
