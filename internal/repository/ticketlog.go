package repository

import (
	"context"
	"time"

	"github.com/aman-churiwal/exchange-governor/internal/models"
	"github.com/aman-churiwal/exchange-governor/internal/storage"
)

type TicketLogRepository struct {
	db *storage.Postgres
}

func NewTicketLogRepository(db *storage.Postgres) *TicketLogRepository {
	return &TicketLogRepository{db: db}
}

// Inserts a single resolved ticket
func (r *TicketLogRepository) Create(ctx context.Context, log *models.TicketLog) error {
	return r.db.DB.WithContext(ctx).Create(log).Error
}

// Inserts a batch of resolved tickets
func (r *TicketLogRepository) CreateBatch(ctx context.Context, logs []*models.TicketLog) error {
	if len(logs) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&logs).Error
}

// Retrieves resolutions within a time range, newest first
func (r *TicketLogRepository) FindByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]models.TicketLog, error) {
	var logs []models.TicketLog

	err := r.db.DB.WithContext(ctx).
		Where("resolved_at BETWEEN ? AND ?", from, to).
		Order("resolved_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error

	return logs, err
}

// Retrieves resolutions with a specific outcome (granted, timeout, ...)
func (r *TicketLogRepository) FindByOutcome(ctx context.Context, outcome string, from, to time.Time, limit, offset int) ([]models.TicketLog, error) {
	var logs []models.TicketLog

	err := r.db.DB.WithContext(ctx).
		Where("outcome = ? AND resolved_at BETWEEN ? AND ?", outcome, from, to).
		Order("resolved_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error

	return logs, err
}

// Counts resolutions in a time range
func (r *TicketLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.TicketLog{}).
		Where("resolved_at BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

// Returns resolution counts grouped by tier and outcome
func (r *TicketLogRepository) CountByTierAndOutcome(ctx context.Context, from, to time.Time) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.TicketLog{}).
		Select("tier, outcome, COUNT(*) as count").
		Where("resolved_at BETWEEN ? AND ?", from, to).
		Group("tier, outcome").
		Order("tier, outcome").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tier, outcome string
		var count int64

		if err := rows.Scan(&tier, &outcome, &count); err != nil {
			return nil, err
		}

		results = append(results, map[string]interface{}{
			"tier":    tier,
			"outcome": outcome,
			"count":   count,
		})
	}

	return results, nil
}

// Calculates the average queue wait for granted tickets
func (r *TicketLogRepository) GetAverageWaitMs(ctx context.Context, from, to time.Time) (float64, error) {
	var avg float64

	err := r.db.DB.WithContext(ctx).
		Model(&models.TicketLog{}).
		Where("outcome = ? AND resolved_at BETWEEN ? AND ?", "granted", from, to).
		Select("COALESCE(AVG(wait_ms), 0)").
		Scan(&avg).Error

	return avg, err
}

// Calculates a queue-wait percentile for granted tickets
func (r *TicketLogRepository) GetWaitPercentile(ctx context.Context, from, to time.Time, percentile float64) (int, error) {
	var result int
	query := `
		SELECT COALESCE(PERCENTILE_CONT(?) WITHIN GROUP (ORDER BY wait_ms), 0)
		FROM ticket_logs
		WHERE outcome = 'granted' AND resolved_at BETWEEN ? AND ?
	`

	err := r.db.DB.WithContext(ctx).Raw(query, percentile, from, to).Scan(&result).Error
	return result, err
}

// Deletes resolutions older than the given time, for retention
func (r *TicketLogRepository) DeleteOldLogs(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("resolved_at < ?", before).
		Delete(&models.TicketLog{})

	return result.RowsAffected, result.Error
}
