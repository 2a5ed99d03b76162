package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"taxiflow/notify"
	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/storage"
)

type OrderService interface {
	CreateOrder(ctx context.Context, order *models.Order, payment *models.PaymentSpec) (int64, error)
	AssignDriver(ctx context.Context, orderID, driverID int64) error
	StartTrip(ctx context.Context, orderID int64) error
	CompleteOrder(ctx context.Context, orderID, userID int64, partnerID, driverID *int64, paymentAmount float64) error
	CancelOrder(ctx context.Context, orderID int64) error

	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	GetDriverOrders(ctx context.Context, driverID int64) ([]*models.Order, error)
	GetPartnerOrders(ctx context.Context, partnerID int64) ([]*models.Order, error)
	GetUnassignedOrders(ctx context.Context) ([]*models.Order, error)
	GetUserTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error)
	GetDriverTransactions(ctx context.Context, driverID int64) ([]*models.Transaction, error)
	GetPartnerTransactions(ctx context.Context, partnerID int64) ([]*models.Transaction, error)
	ListRecentEvents(ctx context.Context, limit int) ([]*models.Event, error)
}

type orderService struct {
	stg storage.IStorage
	bus notify.Bus
	log logger.ILogger
}

func NewOrderService(stg storage.IStorage, bus notify.Bus, log logger.ILogger) OrderService {
	return &orderService{
		stg: stg,
		bus: bus,
		log: log,
	}
}

// CreateOrder persists the order and its payment_received ledger entry as
// one unit, then announces the order to listening drivers. The event goes
// out strictly after the commit: a listener can never observe an order that
// might still be rolled back.
func (s *orderService) CreateOrder(ctx context.Context, order *models.Order, payment *models.PaymentSpec) (int64, error) {
	if order == nil {
		return 0, &models.ValidationError{Field: "order", Reason: "is required"}
	}
	if order.UserID == 0 {
		return 0, &models.ValidationError{Field: "user_id", Reason: "is required"}
	}
	if order.StartLocation == "" {
		return 0, &models.ValidationError{Field: "start_location", Reason: "is required"}
	}
	if order.Price < 0 {
		return 0, &models.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if payment == nil {
		return 0, &models.ValidationError{Field: "payment", Reason: "is required"}
	}
	if payment.Amount < 0 {
		return 0, &models.ValidationError{Field: "payment.amount", Reason: "must not be negative"}
	}
	if !models.ValidPaymentMode(payment.Mode) {
		return 0, &models.ValidationError{Field: "payment.mode", Reason: "is not a known payment mode"}
	}

	order.Status = models.StatusPending
	order.PaymentStatus = models.PaymentPending
	order.PaymentMode = payment.Mode
	order.DriverID = nil

	var created *models.Order
	err := s.stg.WithTx(ctx, func(tx storage.IStorage) error {
		var err error
		created, err = tx.Order().Create(ctx, order)
		if err != nil {
			return err
		}

		_, err = tx.Ledger().Insert(ctx, &models.Transaction{
			UserID:    &created.UserID,
			PartnerID: created.PartnerID,
			OrderID:   &created.ID,
			Amount:    payment.Amount,
			Type:      models.TxPaymentReceived,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("order created",
		logger.Int64("order_id", created.ID),
		logger.Float64("price", created.Price),
		logger.String("payment_mode", string(created.PaymentMode)),
	)
	s.publish(ctx, models.EventNewOrder, created)

	return created.ID, nil
}

// AssignDriver moves a pending order to accepted. Racing callers are
// serialized by the store: the conditional update lets exactly one of them
// observe status = pending, the rest get InvalidTransitionError.
func (s *orderService) AssignDriver(ctx context.Context, orderID, driverID int64) error {
	if driverID <= 0 {
		return &models.ValidationError{Field: "driver_id", Reason: "is required"}
	}

	if err := s.stg.Order().AssignDriver(ctx, orderID, driverID); err != nil {
		return err
	}

	s.log.Info("driver assigned", logger.Int64("order_id", orderID), logger.Int64("driver_id", driverID))
	s.publishSnapshot(ctx, models.EventOrderAssigned, orderID)
	return nil
}

func (s *orderService) StartTrip(ctx context.Context, orderID int64) error {
	return s.stg.Order().MarkInProgress(ctx, orderID)
}

// CompleteOrder closes the trip and books the partner's share of the fare
// in the same unit. No partial outcome exists: either the order is
// completed and the ledger entry written, or neither happened.
func (s *orderService) CompleteOrder(ctx context.Context, orderID, userID int64, partnerID, driverID *int64, paymentAmount float64) error {
	if paymentAmount < 0 {
		return &models.ValidationError{Field: "payment_amount", Reason: "must not be negative"}
	}

	err := s.stg.WithTx(ctx, func(tx storage.IStorage) error {
		if err := tx.Order().Complete(ctx, orderID); err != nil {
			return err
		}

		_, err := tx.Ledger().Insert(ctx, &models.Transaction{
			UserID:    &userID,
			PartnerID: partnerID,
			DriverID:  driverID,
			OrderID:   &orderID,
			Amount:    paymentAmount * PartnerShare,
			Type:      models.TxPartnerPayment,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("order completed", logger.Int64("order_id", orderID), logger.Float64("amount", paymentAmount))
	s.publishSnapshot(ctx, models.EventOrderCompleted, orderID)
	return nil
}

// CancelOrder is legal from pending or accepted. No ledger mutation: refund
// bookkeeping is the caller's policy.
func (s *orderService) CancelOrder(ctx context.Context, orderID int64) error {
	if err := s.stg.Order().Cancel(ctx, orderID); err != nil {
		return err
	}
	s.log.Info("order cancelled", logger.Int64("order_id", orderID))
	return nil
}

func (s *orderService) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	return s.stg.Order().GetByID(ctx, id)
}

func (s *orderService) GetUserOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	return s.stg.Order().GetUserOrders(ctx, userID)
}

func (s *orderService) GetDriverOrders(ctx context.Context, driverID int64) ([]*models.Order, error) {
	return s.stg.Order().GetDriverOrders(ctx, driverID)
}

func (s *orderService) GetPartnerOrders(ctx context.Context, partnerID int64) ([]*models.Order, error) {
	return s.stg.Order().GetPartnerOrders(ctx, partnerID)
}

func (s *orderService) GetUnassignedOrders(ctx context.Context) ([]*models.Order, error) {
	return s.stg.Order().GetUnassignedOrders(ctx)
}

func (s *orderService) GetUserTransactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	return s.stg.Ledger().GetUserTransactions(ctx, userID)
}

func (s *orderService) GetDriverTransactions(ctx context.Context, driverID int64) ([]*models.Transaction, error) {
	return s.stg.Ledger().GetDriverTransactions(ctx, driverID)
}

func (s *orderService) GetPartnerTransactions(ctx context.Context, partnerID int64) ([]*models.Transaction, error) {
	return s.stg.Ledger().GetPartnerTransactions(ctx, partnerID)
}

// defaultEventLimit caps audit reads when the caller gives no usable limit.
const defaultEventLimit = 50

// ListRecentEvents reads the audit copy of published events. Inspection
// only: the table is best-effort and delivery never depends on it.
func (s *orderService) ListRecentEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	return s.stg.Event().ListRecent(ctx, limit)
}

func (s *orderService) publishSnapshot(ctx context.Context, kind models.EventKind, orderID int64) {
	order, err := s.stg.Order().GetByID(ctx, orderID)
	if err != nil {
		s.log.Warning("could not load order snapshot for event",
			logger.Int64("order_id", orderID), logger.Error(err))
		order = &models.Order{ID: orderID}
	}
	s.publish(ctx, kind, order)
}

// publish fires the event and keeps a best-effort audit copy. Failures are
// logged only: the commit already happened and must not be reverted.
func (s *orderService) publish(ctx context.Context, kind models.EventKind, order *models.Order) {
	ev := models.Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		OrderID: order.ID,
		Order:   order,
		At:      time.Now().UTC(),
	}

	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Error("event publish failed", logger.String("kind", string(kind)), logger.Error(err))
	}

	if err := s.stg.Event().Append(ctx, &ev); err != nil {
		s.log.Warning("event audit append failed", logger.String("kind", string(kind)), logger.Error(err))
	}
}
