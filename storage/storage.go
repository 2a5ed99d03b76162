package storage

import (
	"context"
	"time"

	"taxiflow/pkg/models"
)

type IStorage interface {
	Order() IOrderStorage
	Ledger() ILedgerStorage
	Settlement() ISettlementStorage
	Event() IEventStorage

	// WithTx runs fn against a transaction-scoped view of the store. The
	// transaction commits only if fn returns nil; any error rolls back every
	// mutation fn made. Nested calls reuse the enclosing transaction.
	WithTx(ctx context.Context, fn func(tx IStorage) error) error

	Close()
}

type IOrderStorage interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)

	// Conditional transitions. Each succeeds only when the row is currently
	// in a legal source state; otherwise InvalidTransitionError (or
	// NotFoundError for an unknown id) is returned.
	AssignDriver(ctx context.Context, orderID, driverID int64) error
	MarkInProgress(ctx context.Context, orderID int64) error
	Complete(ctx context.Context, orderID int64) error
	Cancel(ctx context.Context, orderID int64) error

	GetUserOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	GetDriverOrders(ctx context.Context, driverID int64) ([]*models.Order, error)
	GetPartnerOrders(ctx context.Context, partnerID int64) ([]*models.Order, error)
	GetUnassignedOrders(ctx context.Context) ([]*models.Order, error)
}

type ILedgerStorage interface {
	Insert(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
	GetDriverTransactions(ctx context.Context, driverID int64) ([]*models.Transaction, error)
	GetPartnerTransactions(ctx context.Context, partnerID int64) ([]*models.Transaction, error)
}

type ISettlementStorage interface {
	CompletedTotals(ctx context.Context, from, to time.Time) ([]*models.PayoutGroup, error)
	Insert(ctx context.Context, s *models.Settlement) error
	WindowSettled(ctx context.Context, periodStart time.Time) (bool, error)
}

type IEventStorage interface {
	Append(ctx context.Context, ev *models.Event) error
	ListRecent(ctx context.Context, limit int) ([]*models.Event, error)
}
