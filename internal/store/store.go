package store

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/parkgazer/internal/models"
	"github.com/langchou/parkgazer/internal/state"
)

var (
	ErrSpotNotFound    = errors.New("spot not found")
	ErrSpotExists      = errors.New("spot already exists")
	ErrInvalidSpot     = errors.New("invalid spot")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrSpotUnavailable = errors.New("spot not available")
)

const (
	DefaultRefreshInterval    = 5 * time.Second
	DefaultRefreshProbability = 0.2

	subscriberBuffer = 64
)

// Option 存储配置项
type Option func(*Store)

// WithRand 注入随机源，测试时使用固定种子
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator 注入预订 ID 生成器
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithRefreshInterval 传感器刷新间隔
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithRefreshProbability 每次刷新时单个车位被更新的概率
func WithRefreshProbability(p float64) Option {
	return func(s *Store) {
		if p >= 0 && p <= 1 {
			s.refreshProbability = p
		}
	}
}

// WithPricing 初始价格推导方式
func WithPricing(p Pricing) Option {
	return func(s *Store) { s.pricing = p }
}

// NewRand 创建随机源，seed 为 0 时按当前时间生成
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Store 停车场内存存储
//
// 车位与预订列表的唯一所有者。所有写操作都经过命名方法并在同一把锁下完成，
// 读操作返回深拷贝。
type Store struct {
	logger             *zap.Logger
	rng                *rand.Rand
	now                func() time.Time
	newID              func() string
	refreshInterval    time.Duration
	refreshProbability float64
	pricing            Pricing

	mu           sync.RWMutex
	spots        []*models.ParkingSpot
	reservations []*models.Reservation
	machines     *state.Manager
	pending      []models.Event // 锁内产生、解锁后发送

	subMu       sync.RWMutex
	subscribers []chan models.Event

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New 创建存储并写入初始数据
func New(logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		logger:             logger,
		now:                time.Now,
		newID:              func() string { return "res-" + uuid.NewString() },
		refreshInterval:    DefaultRefreshInterval,
		refreshProbability: DefaultRefreshProbability,
		pricing:            PricingCycle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand(0)
	}

	s.machines = state.NewManager(s.now, s.onStatusChange)
	s.seed()

	s.logger.Info("Parking store seeded",
		zap.Int("spots", len(s.spots)),
		zap.Int("reservations", len(s.reservations)),
		zap.String("pricing", string(s.pricing)))

	return s
}

// unlock 释放写锁并发送锁内积累的事件
func (s *Store) unlock() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ev := range events {
		s.notifySubscribers(ev)
	}
}

func (s *Store) emit(typ models.EventType, spotID string, data interface{}) {
	s.pending = append(s.pending, models.Event{
		Type:   typ,
		SpotID: spotID,
		Data:   data,
		Time:   s.now(),
	})
}

// onStatusChange 状态机回调，总是在持有写锁时触发
func (s *Store) onStatusChange(spotID string, from, to models.SpotStatus, since time.Time) {
	s.pending = append(s.pending, models.Event{
		Type:   models.EventSpotStatus,
		SpotID: spotID,
		Data:   models.StatusChange{From: from, To: to, Since: since},
		Time:   since,
	})
	s.logger.Debug("Spot status changed",
		zap.String("spot_id", spotID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
}

// Subscribe 订阅变更事件
func (s *Store) Subscribe() <-chan models.Event {
	return s.SubscribeBuffered(subscriberBuffer)
}

// SubscribeBuffered 指定缓冲区大小订阅变更事件
func (s *Store) SubscribeBuffered(size int) <-chan models.Event {
	if size < 1 {
		size = subscriberBuffer
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan models.Event, size)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// notifySubscribers 通知订阅者
func (s *Store) notifySubscribers(ev models.Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// 跳过慢消费者
			s.logger.Warn("Dropping event for slow subscriber", zap.String("type", string(ev.Type)))
		}
	}
}

// find 按 ID 线性查找，调用方需持有锁
func (s *Store) find(spotID string) (int, *models.ParkingSpot) {
	for i, spot := range s.spots {
		if spot.ID == spotID {
			return i, spot
		}
	}
	return -1, nil
}

// Spots 所有车位（插入顺序）
func (s *Store) Spots() []*models.ParkingSpot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spots := make([]*models.ParkingSpot, 0, len(s.spots))
	for _, spot := range s.spots {
		spots = append(spots, spot.Clone())
	}
	return spots
}

// Spot 获取单个车位
func (s *Store) Spot(spotID string) (*models.ParkingSpot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, spot := s.find(spotID)
	if spot == nil {
		return nil, fmt.Errorf("%w: %s", ErrSpotNotFound, spotID)
	}
	return spot.Clone(), nil
}

// Reservations 所有预订（插入顺序）
func (s *Store) Reservations() []*models.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]*models.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		reservations = append(reservations, r.Clone())
	}
	return reservations
}

// StatusSince 车位当前状态的开始时间
func (s *Store) StatusSince(spotID string) (time.Time, bool) {
	machine, ok := s.machines.Get(spotID)
	if !ok {
		return time.Time{}, false
	}
	return machine.Since(), true
}

// Stats 汇总统计
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.Stats{
		TotalSpots:        len(s.spots),
		TotalReservations: len(s.reservations),
	}
	for _, spot := range s.spots {
		switch spot.Status {
		case models.SpotAvailable:
			stats.AvailableSpots++
		case models.SpotOccupied:
			stats.OccupiedSpots++
		case models.SpotReserved:
			stats.ReservedSpots++
		}
	}
	if stats.TotalSpots > 0 {
		stats.OccupancyPercent = float64(stats.OccupiedSpots) / float64(stats.TotalSpots) * 100
	}
	for _, r := range s.reservations {
		if r.Status == models.ReservationActive {
			stats.ActiveReservations++
		}
		stats.TotalSpent += r.Amount
	}
	return stats
}
