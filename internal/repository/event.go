package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/langchou/parkgazer/internal/models"
)

// EventRecord 已落库的事件
type EventRecord struct {
	ID         int64            `json:"id"`
	Type       models.EventType `json:"type"`
	SpotID     *string          `json:"spot_id,omitempty"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventRepository 车位事件仓库
type EventRepository struct {
	db *DB
}

// NewEventRepository 创建事件仓库
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create 写入一条事件
func (r *EventRepository) Create(ctx context.Context, ev models.Event) (int64, error) {
	var payload []byte
	if ev.Data != nil {
		var err error
		payload, err = json.Marshal(ev.Data)
		if err != nil {
			return 0, fmt.Errorf("marshal event payload: %w", err)
		}
	}

	var spotID *string
	if ev.SpotID != "" {
		spotID = &ev.SpotID
	}

	query := `
		INSERT INTO spot_events (type, spot_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := r.db.Pool.QueryRow(ctx, query, string(ev.Type), spotID, payload, ev.Time).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert spot event: %w", err)
	}
	return id, nil
}

// ListBySpotID 获取车位的事件列表（按时间倒序）
func (r *EventRepository) ListBySpotID(ctx context.Context, spotID string, limit int) ([]*EventRecord, error) {
	query := `
		SELECT id, type, spot_id, payload, occurred_at
		FROM spot_events
		WHERE spot_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, spotID, limit)
	if err != nil {
		return nil, fmt.Errorf("query spot events: %w", err)
	}
	defer rows.Close()

	var records []*EventRecord
	for rows.Next() {
		rec := &EventRecord{}
		var typ string
		if err := rows.Scan(&rec.ID, &typ, &rec.SpotID, &rec.Payload, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan spot event: %w", err)
		}
		rec.Type = models.EventType(typ)
		records = append(records, rec)
	}
	return records, rows.Err()
}
