package models

import "time"

// EventType 存储变更事件类型
type EventType string

const (
	EventSpotAdded            EventType = "spot_added"
	EventSpotUpdated          EventType = "spot_updated"
	EventSpotDeleted          EventType = "spot_deleted"
	EventSpotStatus           EventType = "spot_status"
	EventSensorUpdate         EventType = "sensor_update"
	EventReservationCreated   EventType = "reservation_created"
	EventReservationCancelled EventType = "reservation_cancelled"
)

// Event 存储变更事件
//
// Data 取值:
//   - spot_added / spot_updated: *ParkingSpot
//   - spot_deleted: nil
//   - spot_status: StatusChange
//   - sensor_update: []SensorReading
//   - reservation_*: *Reservation
type Event struct {
	Type   EventType   `json:"type"`
	SpotID string      `json:"spot_id,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Time   time.Time   `json:"time"`
}

// StatusChange 车位状态变化
type StatusChange struct {
	From  SpotStatus `json:"from"`
	To    SpotStatus `json:"to"`
	Since time.Time  `json:"since"`
}

// SensorReading 某车位的新传感器读数
type SensorReading struct {
	SpotID     string     `json:"spot_id"`
	SensorData SensorData `json:"sensor_data"`
}
