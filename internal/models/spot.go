package models

import (
	"fmt"
	"time"
)

// SpotStatus 车位状态
type SpotStatus string

const (
	SpotAvailable SpotStatus = "available"
	SpotOccupied  SpotStatus = "occupied"
	SpotReserved  SpotStatus = "reserved"
)

// SpotStatuses 全部车位状态，顺序与初始化随机选择一致
var SpotStatuses = []SpotStatus{SpotAvailable, SpotOccupied, SpotReserved}

// Valid 是否为合法状态
func (s SpotStatus) Valid() bool {
	switch s {
	case SpotAvailable, SpotOccupied, SpotReserved:
		return true
	}
	return false
}

// ParseSpotStatus 解析车位状态
func ParseSpotStatus(v string) (SpotStatus, error) {
	s := SpotStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid spot status %q", v)
	}
	return s, nil
}

// SpotType 车位类型
type SpotType string

const (
	SpotRegular     SpotType = "regular"
	SpotHandicapped SpotType = "handicapped"
	SpotElectric    SpotType = "electric"
	SpotCompact     SpotType = "compact"
)

// Valid 是否为合法类型
func (t SpotType) Valid() bool {
	switch t {
	case SpotRegular, SpotHandicapped, SpotElectric, SpotCompact:
		return true
	}
	return false
}

// ParseSpotType 解析车位类型
func ParseSpotType(v string) (SpotType, error) {
	t := SpotType(v)
	if !t.Valid() {
		return "", fmt.Errorf("invalid spot type %q", v)
	}
	return t, nil
}

// SensorData 模拟传感器读数
type SensorData struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %
	LastUpdate  time.Time `json:"last_update"`
}

// ParkingSpot 车位
type ParkingSpot struct {
	ID            string      `json:"id"`
	Status        SpotStatus  `json:"status"`
	Type          SpotType    `json:"type"`
	Price         float64     `json:"price"`                    // 每小时价格
	TimeRemaining *int        `json:"time_remaining,omitempty"` // 分钟
	SensorData    *SensorData `json:"sensor_data,omitempty"`
}

// Clone 深拷贝
func (p *ParkingSpot) Clone() *ParkingSpot {
	c := *p
	if p.TimeRemaining != nil {
		v := *p.TimeRemaining
		c.TimeRemaining = &v
	}
	if p.SensorData != nil {
		sd := *p.SensorData
		c.SensorData = &sd
	}
	return &c
}

// Validate 校验车位字段
func (p *ParkingSpot) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("spot id is required")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid spot status %q", p.Status)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("invalid spot type %q", p.Type)
	}
	if p.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if p.TimeRemaining != nil && *p.TimeRemaining < 0 {
		return fmt.Errorf("time remaining must not be negative")
	}
	return nil
}

// SpotPatch 车位部分更新，nil 字段保持不变
type SpotPatch struct {
	Status        *SpotStatus `json:"status,omitempty"`
	Type          *SpotType   `json:"type,omitempty"`
	Price         *float64    `json:"price,omitempty"`
	TimeRemaining *int        `json:"time_remaining,omitempty"`
}

// Empty 是否没有任何字段
func (p SpotPatch) Empty() bool {
	return p.Status == nil && p.Type == nil && p.Price == nil && p.TimeRemaining == nil
}

// Validate 校验已设置的字段
func (p SpotPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("invalid spot status %q", *p.Status)
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("invalid spot type %q", *p.Type)
	}
	if p.Price != nil && *p.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if p.TimeRemaining != nil && *p.TimeRemaining < 0 {
		return fmt.Errorf("time remaining must not be negative")
	}
	return nil
}

// Apply 合并到车位上
func (p SpotPatch) Apply(spot *ParkingSpot) {
	if p.Status != nil {
		spot.Status = *p.Status
	}
	if p.Type != nil {
		spot.Type = *p.Type
	}
	if p.Price != nil {
		spot.Price = *p.Price
	}
	if p.TimeRemaining != nil {
		v := *p.TimeRemaining
		spot.TimeRemaining = &v
	}
}
