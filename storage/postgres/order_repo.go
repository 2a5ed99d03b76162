package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/storage"
)

const orderColumns = `id, type_order, user_id, partner_id, driver_id, car_id, start_location, end_location, distance, price, payment_mode, payment_status, order_status, message, created_at`

type orderRepo struct {
	db  DB
	log logger.ILogger
}

func NewOrderRepo(db DB, log logger.ILogger) storage.IOrderStorage {
	return &orderRepo{db: db, log: log}
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	query := `
		INSERT INTO orders (type_order, user_id, partner_id, car_id, start_location, end_location, distance, price, payment_mode, payment_status, order_status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		order.Type,
		order.UserID,
		order.PartnerID,
		order.CarID,
		order.StartLocation,
		order.EndLocation,
		order.Distance,
		order.Price,
		order.PaymentMode,
		order.PaymentStatus,
		order.Status,
		order.Message,
	).Scan(&order.ID, &order.CreatedAt)

	if err != nil {
		r.log.Error("failed to create order", logger.Error(err))
		return nil, &models.PersistenceError{Op: "insert order", Err: err}
	}

	return order, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.Type,
		&order.UserID,
		&order.PartnerID,
		&order.DriverID,
		&order.CarID,
		&order.StartLocation,
		&order.EndLocation,
		&order.Distance,
		&order.Price,
		&order.PaymentMode,
		&order.PaymentStatus,
		&order.Status,
		&order.Message,
		&order.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		r.log.Error("failed to get order by id", logger.Int64("id", id), logger.Error(err))
		return nil, &models.PersistenceError{Op: "get order", Err: err}
	}

	return &order, nil
}

func (r *orderRepo) AssignDriver(ctx context.Context, orderID, driverID int64) error {
	query := `UPDATE orders SET driver_id = $1, order_status = $2 WHERE id = $3 AND order_status = $4`
	return r.transition(ctx, orderID, models.StatusAccepted, query, driverID, models.StatusAccepted, orderID, models.StatusPending)
}

func (r *orderRepo) MarkInProgress(ctx context.Context, orderID int64) error {
	query := `UPDATE orders SET order_status = $1 WHERE id = $2 AND order_status = $3`
	return r.transition(ctx, orderID, models.StatusInProgress, query, models.StatusInProgress, orderID, models.StatusAccepted)
}

func (r *orderRepo) Complete(ctx context.Context, orderID int64) error {
	query := `UPDATE orders SET order_status = $1 WHERE id = $2 AND order_status = ANY($3)`
	return r.transition(ctx, orderID, models.StatusCompleted, query,
		models.StatusCompleted, orderID, []string{string(models.StatusAccepted), string(models.StatusInProgress)})
}

func (r *orderRepo) Cancel(ctx context.Context, orderID int64) error {
	query := `UPDATE orders SET order_status = $1 WHERE id = $2 AND order_status = ANY($3)`
	return r.transition(ctx, orderID, models.StatusCancelled, query,
		models.StatusCancelled, orderID, []string{string(models.StatusPending), string(models.StatusAccepted)})
}

// transition runs a conditional UPDATE. Zero affected rows means either the
// order does not exist or another caller already moved it out of the source
// state; a follow-up read tells the two apart.
func (r *orderRepo) transition(ctx context.Context, orderID int64, to models.OrderStatus, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to update order status", logger.Int64("order_id", orderID), logger.Error(err))
		return &models.PersistenceError{Op: "update order status", Err: err}
	}

	if tag.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		return &models.InvalidTransitionError{OrderID: orderID, From: current.Status, To: to}
	}

	return nil
}

func (r *orderRepo) GetUserOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return r.scanOrders(ctx, query, userID)
}

func (r *orderRepo) GetDriverOrders(ctx context.Context, driverID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE driver_id = $1 ORDER BY created_at DESC`
	return r.scanOrders(ctx, query, driverID)
}

func (r *orderRepo) GetPartnerOrders(ctx context.Context, partnerID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE partner_id = $1 ORDER BY created_at DESC`
	return r.scanOrders(ctx, query, partnerID)
}

func (r *orderRepo) GetUnassignedOrders(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_status = 'pending' AND driver_id IS NULL ORDER BY created_at`
	return r.scanOrders(ctx, query)
}

func (r *orderRepo) scanOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list orders", Err: err}
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.Type, &o.UserID, &o.PartnerID, &o.DriverID, &o.CarID,
			&o.StartLocation, &o.EndLocation, &o.Distance, &o.Price,
			&o.PaymentMode, &o.PaymentStatus, &o.Status, &o.Message, &o.CreatedAt,
		)
		if err != nil {
			return nil, &models.PersistenceError{Op: "scan order", Err: err}
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "list orders", Err: err}
	}
	return orders, nil
}
