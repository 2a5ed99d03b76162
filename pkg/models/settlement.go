package models

import "time"

// Settlement is one computed weekly payout for a (partner, driver) pair.
// Rows are append-only; (partner_id, driver_id, period_start) is unique so
// a window can never be settled twice.
type Settlement struct {
	ID          int64     `json:"id"`
	PartnerID   *int64    `json:"partner_id"`
	DriverID    *int64    `json:"driver_id"`
	Total       float64   `json:"total"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	CreatedAt   time.Time `json:"created_at"`
}

// PayoutGroup is the per (partner, driver) sum of completed order prices
// within a settlement window, before the platform fee is deducted.
type PayoutGroup struct {
	PartnerID *int64
	DriverID  *int64
	Total     float64
}
