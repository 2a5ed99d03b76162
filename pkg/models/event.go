package models

import "time"

type EventKind string

const (
	EventNewOrder       EventKind = "new_order"
	EventOrderAssigned  EventKind = "order_assigned"
	EventOrderCompleted EventKind = "order_completed"
)

// Event is an ephemeral notification delivered over the bus. The order
// snapshot is a cue for listeners to re-query current state, not a source
// of truth: delivery is at-most-once and never replayed.
type Event struct {
	ID      string    `json:"id"`
	Kind    EventKind `json:"kind"`
	OrderID int64     `json:"order_id"`
	Order   *Order    `json:"order,omitempty"`
	At      time.Time `json:"at"`
}
