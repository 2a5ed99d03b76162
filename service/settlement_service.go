package service

import (
	"context"
	"time"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/storage"
)

type SettlementService interface {
	// SettleWindow pays every (partner, driver) pair their share of the
	// completed orders inside [periodStart, periodEnd). The whole run is one
	// atomic unit; a window that already has settlement rows returns
	// models.ErrWindowSettled and inserts nothing.
	SettleWindow(ctx context.Context, periodStart, periodEnd time.Time) ([]*models.Settlement, error)
}

type settlementService struct {
	stg storage.IStorage
	log logger.ILogger
}

func NewSettlementService(stg storage.IStorage, log logger.ILogger) SettlementService {
	return &settlementService{
		stg: stg,
		log: log,
	}
}

// TrailingWindow computes the settlement window of the given number of days
// ending at the most recent Monday midnight UTC. Anchoring to the week
// boundary instead of the invocation day means the scheduled run and any
// manual re-run later in the same week target the same idempotency key,
// never an overlapping-but-distinct window.
func TrailingWindow(now time.Time, days int) (time.Time, time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	end := day.AddDate(0, 0, -sinceMonday)
	return end.AddDate(0, 0, -days), end
}

func (s *settlementService) SettleWindow(ctx context.Context, periodStart, periodEnd time.Time) ([]*models.Settlement, error) {
	if !periodEnd.After(periodStart) {
		return nil, &models.ValidationError{Field: "period", Reason: "end must be after start"}
	}

	var settlements []*models.Settlement
	err := s.stg.WithTx(ctx, func(tx storage.IStorage) error {
		settled, err := tx.Settlement().WindowSettled(ctx, periodStart)
		if err != nil {
			return err
		}
		if settled {
			return models.ErrWindowSettled
		}

		groups, err := tx.Settlement().CompletedTotals(ctx, periodStart, periodEnd)
		if err != nil {
			return err
		}

		for _, g := range groups {
			st := &models.Settlement{
				PartnerID:   g.PartnerID,
				DriverID:    g.DriverID,
				Total:       g.Total * PartnerShare,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
			}
			if err := tx.Settlement().Insert(ctx, st); err != nil {
				return err
			}

			_, err := tx.Ledger().Insert(ctx, &models.Transaction{
				PartnerID: g.PartnerID,
				DriverID:  g.DriverID,
				Amount:    st.Total,
				Type:      models.TxPartnerWeeklyPayment,
			})
			if err != nil {
				return err
			}

			settlements = append(settlements, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("settlement window processed",
		logger.Time("period_start", periodStart),
		logger.Time("period_end", periodEnd),
		logger.Int("payouts", len(settlements)),
	)
	return settlements, nil
}
