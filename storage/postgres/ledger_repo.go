package postgres

import (
	"context"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/storage"
)

type ledgerRepo struct {
	db  DB
	log logger.ILogger
}

func NewLedgerRepo(db DB, log logger.ILogger) storage.ILedgerStorage {
	return &ledgerRepo{db: db, log: log}
}

func (r *ledgerRepo) Insert(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (user_id, partner_id, driver_id, order_id, amount, transaction_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, transaction_time
	`
	err := r.db.QueryRow(ctx, query,
		tx.UserID,
		tx.PartnerID,
		tx.DriverID,
		tx.OrderID,
		tx.Amount,
		tx.Type,
	).Scan(&tx.ID, &tx.CreatedAt)

	if err != nil {
		r.log.Error("failed to insert ledger entry", logger.String("type", string(tx.Type)), logger.Error(err))
		return nil, &models.PersistenceError{Op: "insert transaction", Err: err}
	}

	return tx, nil
}

func (r *ledgerRepo) GetUserTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, partner_id, driver_id, order_id, amount, transaction_type, transaction_time
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_time DESC
	`
	return r.scanTransactions(ctx, query, userID)
}

func (r *ledgerRepo) GetDriverTransactions(ctx context.Context, driverID int64) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, partner_id, driver_id, order_id, amount, transaction_type, transaction_time
		FROM transactions
		WHERE driver_id = $1
		ORDER BY transaction_time DESC
	`
	return r.scanTransactions(ctx, query, driverID)
}

func (r *ledgerRepo) GetPartnerTransactions(ctx context.Context, partnerID int64) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, partner_id, driver_id, order_id, amount, transaction_type, transaction_time
		FROM transactions
		WHERE partner_id = $1
		ORDER BY transaction_time DESC
	`
	return r.scanTransactions(ctx, query, partnerID)
}

func (r *ledgerRepo) scanTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list transactions", Err: err}
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.PartnerID, &t.DriverID, &t.OrderID, &t.Amount, &t.Type, &t.CreatedAt)
		if err != nil {
			return nil, &models.PersistenceError{Op: "scan transaction", Err: err}
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "list transactions", Err: err}
	}
	return txs, nil
}
