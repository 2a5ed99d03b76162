package main

import (
	"context"
	"flag"
	"time"

	"taxiflow/config"
	"taxiflow/pkg/logger"
	"taxiflow/service"
	"taxiflow/storage/postgres"
)

// One-shot settlement trigger: settles the trailing window anchored to the
// most recent Monday, computed from today or from -end if given (YYYY-MM-DD).
// Safe to re-run, an already-settled window is reported and left untouched.
func main() {
	endFlag := flag.String("end", "", "window anchor date (YYYY-MM-DD), defaults to today")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	now := time.Now()
	if *endFlag != "" {
		parsed, err := time.Parse("2006-01-02", *endFlag)
		if err != nil {
			log.Error("invalid -end date", logger.Error(err))
			return
		}
		now = parsed
	}

	ctx := context.Background()
	pg, err := postgres.New(ctx, cfg, log)
	if err != nil {
		panic(err)
	}
	defer pg.Close()

	settler := service.NewSettlementService(pg, log)
	start, end := service.TrailingWindow(now, cfg.SettlementWindowDays)

	settlements, err := settler.SettleWindow(ctx, start, end)
	if err != nil {
		log.Error("settlement failed", logger.Error(err))
		return
	}

	log.Info("settlement done",
		logger.Time("period_start", start),
		logger.Time("period_end", end),
		logger.Int("payouts", len(settlements)),
	)
}
