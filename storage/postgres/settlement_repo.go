package postgres

import (
	"context"
	"time"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/storage"
)

type settlementRepo struct {
	db  DB
	log logger.ILogger
}

func NewSettlementRepo(db DB, log logger.ILogger) storage.ISettlementStorage {
	return &settlementRepo{db: db, log: log}
}

func (r *settlementRepo) CompletedTotals(ctx context.Context, from, to time.Time) ([]*models.PayoutGroup, error) {
	query := `
		SELECT partner_id, driver_id, SUM(price) AS total_amount
		FROM orders
		WHERE order_status = 'completed' AND created_at >= $1 AND created_at < $2
		GROUP BY partner_id, driver_id
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		r.log.Error("failed to aggregate completed orders", logger.Error(err))
		return nil, &models.PersistenceError{Op: "aggregate completed orders", Err: err}
	}
	defer rows.Close()

	var groups []*models.PayoutGroup
	for rows.Next() {
		var g models.PayoutGroup
		if err := rows.Scan(&g.PartnerID, &g.DriverID, &g.Total); err != nil {
			return nil, &models.PersistenceError{Op: "scan payout group", Err: err}
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "aggregate completed orders", Err: err}
	}
	return groups, nil
}

func (r *settlementRepo) Insert(ctx context.Context, s *models.Settlement) error {
	query := `
		INSERT INTO settlements (partner_id, driver_id, total, period_start, period_end)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		s.PartnerID,
		s.DriverID,
		s.Total,
		s.PeriodStart,
		s.PeriodEnd,
	).Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		r.log.Error("failed to insert settlement", logger.Error(err))
		return &models.PersistenceError{Op: "insert settlement", Err: err}
	}
	return nil
}

func (r *settlementRepo) WindowSettled(ctx context.Context, periodStart time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM settlements WHERE period_start = $1)`
	if err := r.db.QueryRow(ctx, query, periodStart).Scan(&exists); err != nil {
		r.log.Error("failed to check settlement window", logger.Error(err))
		return false, &models.PersistenceError{Op: "check settlement window", Err: err}
	}
	return exists, nil
}
