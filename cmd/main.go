package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"taxiflow/config"
	"taxiflow/jobs"
	"taxiflow/notify"
	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/service"
	"taxiflow/storage/postgres"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize Shared Storage (Postgres)
	pgStore, err := postgres.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pgStore.Close()

	// 4. Notification bus: local broker fronted by the LISTEN/NOTIFY bridge
	// so driver listeners on every instance get the cue.
	broker := notify.NewBroker(log)
	bridge := notify.NewPGBridge(pgStore.Pool(), broker, cfg.NotifyChannel, log)

	go func() {
		if err := bridge.Listen(ctx); err != nil {
			log.Error("notification listener stopped", logger.Error(err))
		}
	}()

	// 5. Services
	svc := service.New(pgStore, bridge, log)

	// Events are cues, not state: on each new_order we re-query the open
	// orders rather than trusting the payload.
	go func() {
		sub := bridge.Subscribe(cfg.BusBuffer)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.C():
				if !ok {
					return
				}
				if ev.Kind != models.EventNewOrder {
					continue
				}
				open, err := svc.Order().GetUnassignedOrders(ctx)
				if err != nil {
					log.Error("failed to refresh open orders", logger.Error(err))
					continue
				}
				log.Info("open orders waiting for a driver", logger.Int("count", len(open)))
			}
		}
	}()

	// 6. Weekly settlement job
	settlementJob := jobs.NewSettlementJob(svc.Settlement(), cfg.SettlementCron, cfg.SettlementWindowDays, log)
	if err := settlementJob.Start(); err != nil {
		log.Error("Failed to start settlement job", logger.Error(err))
		os.Exit(1)
	}

	log.Info("taxiflow core is running")

	// 7. Graceful Shutdown listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Shutting down...")
	settlementJob.Stop()
	cancel()
}
