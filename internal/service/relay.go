package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/parkgazer/internal/models"
)

// Broadcaster 推送事件给实时客户端
type Broadcaster interface {
	BroadcastMessage(msgType string, data interface{})
}

// EventJournal 事件审计日志
type EventJournal interface {
	Create(ctx context.Context, ev models.Event) (int64, error)
}

// ReservationJournal 预订审计日志
type ReservationJournal interface {
	Upsert(ctx context.Context, res *models.Reservation) error
}

const journalTimeout = 5 * time.Second

// Relay 把存储事件转发到 WebSocket 和审计日志
//
// 推送与审计各自订阅、各自一个协程，数据库变慢不会拖住实时推送。
// 审计是尽力而为的：订阅缓冲区满时存储会丢弃事件并记录告警。
type Relay struct {
	logger       *zap.Logger
	events       <-chan models.Event
	hub          Broadcaster
	journalCh    <-chan models.Event
	journal      EventJournal
	reservations ReservationJournal

	wg sync.WaitGroup
}

// NewRelay 创建转发器
func NewRelay(logger *zap.Logger, events <-chan models.Event, hub Broadcaster) *Relay {
	return &Relay{
		logger: logger,
		events: events,
		hub:    hub,
	}
}

// SetJournal 启用审计日志，events 为审计专用的订阅
func (r *Relay) SetJournal(events <-chan models.Event, journal EventJournal, reservations ReservationJournal) {
	r.journalCh = events
	r.journal = journal
	r.reservations = reservations
}

// Start 启动转发协程
func (r *Relay) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx, r.events, func(ev models.Event) { r.broadcast(ev) })

	if r.journalCh != nil {
		r.wg.Add(1)
		go r.run(ctx, r.journalCh, func(ev models.Event) { r.record(ctx, ev) })
	}
}

// Wait 等待转发协程退出
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) run(ctx context.Context, events <-chan models.Event, handle func(models.Event)) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			handle(ev)
		}
	}
}

// broadcast 推送给实时客户端
func (r *Relay) broadcast(ev models.Event) {
	if r.hub != nil {
		r.hub.BroadcastMessage(string(ev.Type), ev)
	}
}

// record 写入审计日志，传感器读数不落库
func (r *Relay) record(ctx context.Context, ev models.Event) {
	if ev.Type == models.EventSensorUpdate {
		return
	}

	jctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()

	if r.journal != nil {
		if _, err := r.journal.Create(jctx, ev); err != nil {
			r.logger.Error("Failed to journal event",
				zap.Error(err),
				zap.String("type", string(ev.Type)),
				zap.String("spot_id", ev.SpotID))
		}
	}

	if r.reservations != nil {
		if res, ok := ev.Data.(*models.Reservation); ok {
			if err := r.reservations.Upsert(jctx, res); err != nil {
				r.logger.Error("Failed to journal reservation",
					zap.Error(err),
					zap.String("reservation_id", res.ID))
			}
		}
	}
}
