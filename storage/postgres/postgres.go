package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxiflow/config"
	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/storage"
)

// DB is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so the
// same repo code runs inside and outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	db   DB
	inTx bool
	log  logger.ILogger
}

func New(ctx context.Context, cfg config.Config, log logger.ILogger) (*Store, error) {
	url := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresDB,
	)

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		log.Error("error while parsing Postgres config", logger.Error(err))
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("failed to connect Postgres", logger.Error(err))
		return nil, err
	}

	cwd, _ := os.Getwd()
	mPath := filepath.Join(cwd, "migrations")

	m, err := migrate.New("file://"+mPath, url)
	if err != nil {
		log.Error("migration init error or no migrations found", logger.Error(err))
	} else {
		if err = m.Up(); err != nil {
			if strings.Contains(err.Error(), "no change") {
				log.Info("no migrations to apply")
			} else {
				log.Error("migration up error", logger.Error(err))
				return nil, err
			}
		}
	}

	log.Info("Postgres connected")

	return &Store{
		pool: pool,
		db:   pool,
		log:  log,
	}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying pool for components that need a dedicated
// connection, such as the LISTEN/NOTIFY bridge.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// WithTx executes fn against a transaction-bound copy of the store. Row
// locks taken by conditional updates inside fn are held until commit, which
// is what serializes racing transitions on the same order.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.IStorage) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.log.Error("failed to begin transaction", logger.Error(err))
		return &models.PersistenceError{Op: "begin", Err: err}
	}

	txStore := &Store{pool: s.pool, db: tx, inTx: true, log: s.log}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			s.log.Error("rollback failed", logger.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.log.Error("failed to commit transaction", logger.Error(err))
		return &models.PersistenceError{Op: "commit", Err: err}
	}

	return nil
}

func (s *Store) Order() storage.IOrderStorage           { return NewOrderRepo(s.db, s.log) }
func (s *Store) Ledger() storage.ILedgerStorage         { return NewLedgerRepo(s.db, s.log) }
func (s *Store) Settlement() storage.ISettlementStorage { return NewSettlementRepo(s.db, s.log) }
func (s *Store) Event() storage.IEventStorage           { return NewEventRepo(s.db, s.log) }
