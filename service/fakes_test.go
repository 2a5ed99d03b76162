package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"taxiflow/pkg/models"
	"taxiflow/storage"
)

// memStore is an in-memory storage.IStorage with transactional WithTx
// semantics: mutations made inside a failed unit are restored from a
// snapshot, so rollback behaviour can be asserted without a database.
type memStore struct {
	mu sync.Mutex
	// txMu serializes units, standing in for the store's isolation.
	txMu sync.Mutex

	orders      map[int64]*models.Order
	nextOrderID int64
	ledger      []*models.Transaction
	nextTxID    int64
	settlements []*models.Settlement
	events      []*models.Event

	inTx bool

	// test hooks
	failLedger          bool
	failSettlementAfter int // fail the Nth settlement insert, 0 = never
	settlementInserts   int
	beforeCommit        func()
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[int64]*models.Order)}
}

func (s *memStore) Order() storage.IOrderStorage           { return ordersFacet{s} }
func (s *memStore) Ledger() storage.ILedgerStorage         { return ledgerFacet{s} }
func (s *memStore) Settlement() storage.ISettlementStorage { return settlementFacet{s} }
func (s *memStore) Event() storage.IEventStorage           { return eventFacet{s} }
func (s *memStore) Close()                                 {}

type memSnapshot struct {
	orders      map[int64]models.Order
	nextOrderID int64
	ledgerLen   int
	settleLen   int
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		orders:      make(map[int64]models.Order, len(s.orders)),
		nextOrderID: s.nextOrderID,
		ledgerLen:   len(s.ledger),
		settleLen:   len(s.settlements),
	}
	for id, o := range s.orders {
		snap.orders[id] = *o
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[int64]*models.Order, len(snap.orders))
	for id, o := range snap.orders {
		cp := o
		s.orders[id] = &cp
	}
	s.nextOrderID = snap.nextOrderID
	s.ledger = s.ledger[:snap.ledgerLen]
	s.settlements = s.settlements[:snap.settleLen]
}

func (s *memStore) WithTx(_ context.Context, fn func(tx storage.IStorage) error) error {
	if s.inTx {
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	s.inTx = true
	err := fn(s)
	s.inTx = false

	if err != nil {
		s.restore(snap)
		return err
	}

	if s.beforeCommit != nil {
		s.beforeCommit()
	}
	return nil
}

// --- order facet ---

type ordersFacet struct{ s *memStore }

func (f ordersFacet) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CreatedAt = time.Now().UTC()
	cp := *order
	s.orders[order.ID] = &cp
	return order, nil
}

func (f ordersFacet) GetByID(_ context.Context, id int64) (*models.Order, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "order", ID: id}
	}
	cp := *o
	return &cp, nil
}

func (f ordersFacet) AssignDriver(_ context.Context, orderID, driverID int64) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return &models.NotFoundError{Entity: "order", ID: orderID}
	}
	if o.Status != models.StatusPending {
		return &models.InvalidTransitionError{OrderID: orderID, From: o.Status, To: models.StatusAccepted}
	}
	d := driverID
	o.DriverID = &d
	o.Status = models.StatusAccepted
	return nil
}

func (f ordersFacet) MarkInProgress(_ context.Context, orderID int64) error {
	return f.s.conditional(orderID, models.StatusInProgress, models.StatusAccepted)
}

func (f ordersFacet) Complete(_ context.Context, orderID int64) error {
	return f.s.conditional(orderID, models.StatusCompleted, models.StatusAccepted, models.StatusInProgress)
}

func (f ordersFacet) Cancel(_ context.Context, orderID int64) error {
	return f.s.conditional(orderID, models.StatusCancelled, models.StatusPending, models.StatusAccepted)
}

func (s *memStore) conditional(orderID int64, to models.OrderStatus, from ...models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return &models.NotFoundError{Entity: "order", ID: orderID}
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = to
			return nil
		}
	}
	return &models.InvalidTransitionError{OrderID: orderID, From: o.Status, To: to}
}

func (f ordersFacet) GetUserOrders(_ context.Context, userID int64) ([]*models.Order, error) {
	return f.s.filterOrders(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (f ordersFacet) GetDriverOrders(_ context.Context, driverID int64) ([]*models.Order, error) {
	return f.s.filterOrders(func(o *models.Order) bool { return o.DriverID != nil && *o.DriverID == driverID }), nil
}

func (f ordersFacet) GetPartnerOrders(_ context.Context, partnerID int64) ([]*models.Order, error) {
	return f.s.filterOrders(func(o *models.Order) bool { return o.PartnerID != nil && *o.PartnerID == partnerID }), nil
}

func (f ordersFacet) GetUnassignedOrders(_ context.Context) ([]*models.Order, error) {
	return f.s.filterOrders(func(o *models.Order) bool {
		return o.Status == models.StatusPending && o.DriverID == nil
	}), nil
}

func (s *memStore) filterOrders(keep func(*models.Order) bool) []*models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- ledger facet ---

type ledgerFacet struct{ s *memStore }

func (f ledgerFacet) Insert(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLedger {
		return nil, &models.PersistenceError{Op: "insert transaction", Err: errors.New("ledger unavailable")}
	}
	s.nextTxID++
	tx.ID = s.nextTxID
	tx.CreatedAt = time.Now().UTC()
	cp := *tx
	s.ledger = append(s.ledger, &cp)
	return tx, nil
}

func (f ledgerFacet) GetUserTransactions(_ context.Context, userID int64) ([]*models.Transaction, error) {
	return f.s.filterLedger(func(t *models.Transaction) bool { return t.UserID != nil && *t.UserID == userID }), nil
}

func (f ledgerFacet) GetDriverTransactions(_ context.Context, driverID int64) ([]*models.Transaction, error) {
	return f.s.filterLedger(func(t *models.Transaction) bool { return t.DriverID != nil && *t.DriverID == driverID }), nil
}

func (f ledgerFacet) GetPartnerTransactions(_ context.Context, partnerID int64) ([]*models.Transaction, error) {
	return f.s.filterLedger(func(t *models.Transaction) bool { return t.PartnerID != nil && *t.PartnerID == partnerID }), nil
}

func (s *memStore) filterLedger(keep func(*models.Transaction) bool) []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Transaction
	for _, t := range s.ledger {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (s *memStore) ledgerByType(kind models.TransactionType) []*models.Transaction {
	return s.filterLedger(func(t *models.Transaction) bool { return t.Type == kind })
}

// --- settlement facet ---

type settlementFacet struct{ s *memStore }

func (f settlementFacet) CompletedTotals(_ context.Context, from, to time.Time) ([]*models.PayoutGroup, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ partner, driver int64 }
	totals := make(map[key]*models.PayoutGroup)
	var keys []key
	for _, o := range s.orders {
		if o.Status != models.StatusCompleted {
			continue
		}
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		k := key{}
		if o.PartnerID != nil {
			k.partner = *o.PartnerID
		}
		if o.DriverID != nil {
			k.driver = *o.DriverID
		}
		g, ok := totals[k]
		if !ok {
			g = &models.PayoutGroup{PartnerID: o.PartnerID, DriverID: o.DriverID}
			totals[k] = g
			keys = append(keys, k)
		}
		g.Total += o.Price
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].partner != keys[j].partner {
			return keys[i].partner < keys[j].partner
		}
		return keys[i].driver < keys[j].driver
	})
	var out []*models.PayoutGroup
	for _, k := range keys {
		out = append(out, totals[k])
	}
	return out, nil
}

func (f settlementFacet) Insert(_ context.Context, st *models.Settlement) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlementInserts++
	if s.failSettlementAfter > 0 && s.settlementInserts >= s.failSettlementAfter {
		return &models.PersistenceError{Op: "insert settlement", Err: errors.New("settlement insert refused")}
	}
	cp := *st
	cp.ID = int64(len(s.settlements) + 1)
	cp.CreatedAt = time.Now().UTC()
	s.settlements = append(s.settlements, &cp)
	return nil
}

func (f settlementFacet) WindowSettled(_ context.Context, periodStart time.Time) (bool, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.settlements {
		if st.PeriodStart.Equal(periodStart) {
			return true, nil
		}
	}
	return false, nil
}

// --- event facet ---

type eventFacet struct{ s *memStore }

func (f eventFacet) Append(_ context.Context, ev *models.Event) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	s.events = append(s.events, &cp)
	return nil
}

func (f eventFacet) ListRecent(_ context.Context, limit int) ([]*models.Event, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	if limit < n {
		n = limit
	}
	out := make([]*models.Event, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		cp := *s.events[i]
		out = append(out, &cp)
	}
	return out, nil
}
