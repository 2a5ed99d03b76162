package postgres

import (
	"context"
	"encoding/json"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
	"taxiflow/storage"
)

// eventRepo keeps a best-effort audit copy of published events. It is not
// the delivery path: listeners re-query current state, the table is only
// there for inspection after the fact.
type eventRepo struct {
	db  DB
	log logger.ILogger
}

func NewEventRepo(db DB, log logger.ILogger) storage.IEventStorage {
	return &eventRepo{db: db, log: log}
}

func (r *eventRepo) Append(ctx context.Context, ev *models.Event) error {
	payload, err := json.Marshal(ev.Order)
	if err != nil {
		return &models.PersistenceError{Op: "encode event payload", Err: err}
	}

	query := `
		INSERT INTO events (id, kind, order_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(ctx, query, ev.ID, ev.Kind, ev.OrderID, payload, ev.At); err != nil {
		r.log.Error("failed to append event", logger.String("kind", string(ev.Kind)), logger.Error(err))
		return &models.PersistenceError{Op: "insert event", Err: err}
	}
	return nil
}

func (r *eventRepo) ListRecent(ctx context.Context, limit int) ([]*models.Event, error) {
	// A non-positive LIMIT is a Postgres error, not an empty result.
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, order_id, payload, created_at
		FROM events
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list events", Err: err}
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var (
			ev      models.Event
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.OrderID, &payload, &ev.At); err != nil {
			return nil, &models.PersistenceError{Op: "scan event", Err: err}
		}
		if len(payload) > 0 {
			var order models.Order
			if err := json.Unmarshal(payload, &order); err == nil {
				ev.Order = &order
			}
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "list events", Err: err}
	}
	return events, nil
}
