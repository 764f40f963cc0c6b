package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/langchou/parkgazer/internal/models"
)

// 事件常量
const (
	EventFree    = "free"
	EventOccupy  = "occupy"
	EventReserve = "reserve"
)

var allStatuses = []string{
	string(models.SpotAvailable),
	string(models.SpotOccupied),
	string(models.SpotReserved),
}

// EventFor 返回转换到目标状态对应的事件
func EventFor(status models.SpotStatus) (string, error) {
	switch status {
	case models.SpotAvailable:
		return EventFree, nil
	case models.SpotOccupied:
		return EventOccupy, nil
	case models.SpotReserved:
		return EventReserve, nil
	}
	return "", fmt.Errorf("no event for status %q", status)
}

// ChangeFunc 状态变化回调
type ChangeFunc func(spotID string, from, to models.SpotStatus, since time.Time)

// Machine 车位状态机
//
// 不限制转换路径，任何状态都可以转到任何状态；只负责记录当前状态的开始时间
// 并在真正发生变化时回调。
type Machine struct {
	mu            sync.RWMutex
	spotID        string
	fsm           *fsm.FSM
	since         time.Time
	now           func() time.Time
	onStateChange ChangeFunc
}

// NewMachine 创建状态机
func NewMachine(spotID string, initial models.SpotStatus, now func() time.Time, onStateChange ChangeFunc) *Machine {
	if !initial.Valid() {
		initial = models.SpotAvailable
	}
	if now == nil {
		now = time.Now
	}

	m := &Machine{
		spotID:        spotID,
		since:         now(),
		now:           now,
		onStateChange: onStateChange,
	}

	m.fsm = fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: EventFree, Src: allStatuses, Dst: string(models.SpotAvailable)},
			{Name: EventOccupy, Src: allStatuses, Dst: string(models.SpotOccupied)},
			{Name: EventReserve, Src: allStatuses, Dst: string(models.SpotReserved)},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if e.Src == e.Dst {
					return
				}
				m.since = m.now()
				if m.onStateChange != nil {
					m.onStateChange(m.spotID, models.SpotStatus(e.Src), models.SpotStatus(e.Dst), m.since)
				}
			},
		},
	)

	return m
}

// Current 当前状态
func (m *Machine) Current() models.SpotStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.SpotStatus(m.fsm.Current())
}

// Since 当前状态开始时间
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition 转换到目标状态，目标与当前相同时不做任何事
func (m *Machine) Transition(to models.SpotStatus) error {
	event, err := EventFor(to)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fsm.Current() == string(to) {
		return nil
	}

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}
	return nil
}

// Manager 状态机管理器
type Manager struct {
	mu       sync.RWMutex
	machines map[string]*Machine
	now      func() time.Time
	onChange ChangeFunc
}

// NewManager 创建管理器
func NewManager(now func() time.Time, onChange ChangeFunc) *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
		now:      now,
		onChange: onChange,
	}
}

// GetOrCreate 获取或创建状态机
func (m *Manager) GetOrCreate(spotID string, initial models.SpotStatus) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if machine, ok := m.machines[spotID]; ok {
		return machine
	}

	machine := NewMachine(spotID, initial, m.now, m.onChange)
	m.machines[spotID] = machine
	return machine
}

// Get 获取状态机
func (m *Manager) Get(spotID string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	machine, ok := m.machines[spotID]
	return machine, ok
}

// Remove 删除状态机
func (m *Manager) Remove(spotID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.machines, spotID)
}

// Len 状态机数量
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.machines)
}
