package repository

import (
	"context"
	"fmt"

	"github.com/langchou/parkgazer/internal/models"
)

// ReservationRepository 预订数据仓库
type ReservationRepository struct {
	db *DB
}

// NewReservationRepository 创建预订仓库
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Upsert 写入或更新预订
func (r *ReservationRepository) Upsert(ctx context.Context, res *models.Reservation) error {
	query := `
		INSERT INTO reservations (id, spot_id, duration, amount, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
	`
	_, err := r.db.Pool.Exec(ctx, query,
		res.ID,
		res.SpotID,
		res.Duration,
		res.Amount,
		string(res.Status),
		res.StartTime,
		res.EndTime,
	)
	if err != nil {
		return fmt.Errorf("upsert reservation: %w", err)
	}
	return nil
}

// ListBySpotID 获取车位的预订记录
func (r *ReservationRepository) ListBySpotID(ctx context.Context, spotID string) ([]*models.Reservation, error) {
	query := `
		SELECT id, spot_id, duration, amount, status, start_time, end_time
		FROM reservations
		WHERE spot_id = $1
		ORDER BY start_time DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, spotID)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res := &models.Reservation{}
		var status string
		if err := rows.Scan(
			&res.ID,
			&res.SpotID,
			&res.Duration,
			&res.Amount,
			&status,
			&res.StartTime,
			&res.EndTime,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Status = models.ReservationStatus(status)
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}
