package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	// Notification bus
	NotifyChannel string
	BusBuffer     int

	// Settlement job
	SettlementCron       string
	SettlementWindowDays int
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "taxiflow"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))

	cfg.PostgresHost = cast.ToString(getOrReturnDefault("POSTGRES_HOST", "localhost"))
	cfg.PostgresPort = cast.ToString(getOrReturnDefault("POSTGRES_PORT", "5432"))
	cfg.PostgresUser = cast.ToString(getOrReturnDefault("POSTGRES_USER", "postgres"))
	cfg.PostgresPassword = cast.ToString(getOrReturnDefault("POSTGRES_PASSWORD", "1234"))
	cfg.PostgresDB = cast.ToString(getOrReturnDefault("POSTGRES_DB", "taxiflow"))

	cfg.NotifyChannel = cast.ToString(getOrReturnDefault("NOTIFY_CHANNEL", "order-events"))
	cfg.BusBuffer = cast.ToInt(getOrReturnDefault("BUS_BUFFER", 64))

	// Monday 03:00 by default, settling the week that just ended.
	cfg.SettlementCron = cast.ToString(getOrReturnDefault("SETTLEMENT_CRON", "0 3 * * 1"))
	cfg.SettlementWindowDays = cast.ToInt(getOrReturnDefault("SETTLEMENT_WINDOW_DAYS", 7))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
