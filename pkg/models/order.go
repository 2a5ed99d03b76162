package models

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type OrderType string

const (
	OrderTypeTaxi   OrderType = "taxi"
	OrderTypeDriver OrderType = "driver"
	OrderTypeTow    OrderType = "tow"
)

type PaymentMode string

const (
	PaymentModeCard  PaymentMode = "card"
	PaymentModeSwish PaymentMode = "swish"
	PaymentModeCash  PaymentMode = "cash"
)

func ValidPaymentMode(m PaymentMode) bool {
	switch m {
	case PaymentModeCard, PaymentModeSwish, PaymentModeCash:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type Order struct {
	ID            int64         `json:"id"`
	Type          OrderType     `json:"type_order"`
	UserID        int64         `json:"user_id"`
	PartnerID     *int64        `json:"partner_id"`
	DriverID      *int64        `json:"driver_id"`
	CarID         *int64        `json:"car_id"`
	StartLocation string        `json:"start_location"`
	EndLocation   string        `json:"end_location"`
	Distance      float64       `json:"distance"`
	Price         float64       `json:"price"`
	PaymentMode   PaymentMode   `json:"payment_mode"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        OrderStatus   `json:"order_status"`
	Message       string        `json:"message"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PaymentSpec carries the payment details supplied alongside a new order.
type PaymentSpec struct {
	Amount float64     `json:"amount"`
	Mode   PaymentMode `json:"mode"`
}
