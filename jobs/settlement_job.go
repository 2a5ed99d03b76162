package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/service"
)

// SettlementJob triggers the weekly payout run on a cron schedule. The run
// itself is atomic and idempotent per window, so an overlapping or repeated
// trigger settles nothing twice.
type SettlementJob struct {
	settler    service.SettlementService
	cron       *cron.Cron
	spec       string
	windowDays int
	log        logger.ILogger
}

func NewSettlementJob(settler service.SettlementService, spec string, windowDays int, log logger.ILogger) *SettlementJob {
	return &SettlementJob{
		settler:    settler,
		cron:       cron.New(),
		spec:       spec,
		windowDays: windowDays,
		log:        log,
	}
}

func (j *SettlementJob) Start() error {
	_, err := j.cron.AddFunc(j.spec, func() {
		j.Run(context.Background(), time.Now())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.log.Info("settlement job started", logger.String("schedule", j.spec))
	return nil
}

// Run settles the trailing window ending at now. An already-settled window
// is a no-op, not a failure.
func (j *SettlementJob) Run(ctx context.Context, now time.Time) {
	start, end := service.TrailingWindow(now, j.windowDays)

	settlements, err := j.settler.SettleWindow(ctx, start, end)
	if err != nil {
		if errors.Is(err, models.ErrWindowSettled) {
			j.log.Info("settlement window already processed", logger.Time("period_start", start))
			return
		}
		j.log.Error("settlement run failed", logger.Error(err))
		return
	}

	j.log.Info("settlement run finished", logger.Int("payouts", len(settlements)))
}

func (j *SettlementJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.log.Info("settlement job stopped")
}
