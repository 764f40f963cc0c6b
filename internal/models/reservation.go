package models

import "time"

// ReservationStatus 预订状态
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Valid 是否为合法状态
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationActive, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// Reservation 车位预订记录
type Reservation struct {
	ID        string            `json:"id" db:"id"`
	SpotID    string            `json:"spot_id" db:"spot_id"`
	Duration  float64           `json:"duration" db:"duration"` // 小时
	Amount    float64           `json:"amount" db:"amount"`     // 预订时 price * duration 的快照
	Status    ReservationStatus `json:"status" db:"status"`
	StartTime time.Time         `json:"start_time" db:"start_time"`
	EndTime   time.Time         `json:"end_time" db:"end_time"`
}

// Clone 拷贝
func (r *Reservation) Clone() *Reservation {
	c := *r
	return &c
}

// Stats 汇总统计
type Stats struct {
	TotalSpots         int     `json:"total_spots"`
	AvailableSpots     int     `json:"available_spots"`
	OccupiedSpots      int     `json:"occupied_spots"`
	ReservedSpots      int     `json:"reserved_spots"`
	OccupancyPercent   float64 `json:"occupancy_percent"`
	TotalReservations  int     `json:"total_reservations"`
	ActiveReservations int     `json:"active_reservations"`
	TotalSpent         float64 `json:"total_spent"`
}

// Quote 预订报价
type Quote struct {
	SpotID   string  `json:"spot_id"`
	Price    float64 `json:"price"`
	Duration float64 `json:"duration"`
	Amount   float64 `json:"amount"`
}
