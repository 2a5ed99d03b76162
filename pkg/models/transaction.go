package models

import "time"

type TransactionType string

const (
	TxPaymentReceived      TransactionType = "payment_received"
	TxPartnerPayment       TransactionType = "partner_payment"
	TxPartnerWeeklyPayment TransactionType = "partner_weekly_payment"
)

// Transaction is one immutable ledger entry tied to an order.
type Transaction struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"user_id"`
	PartnerID *int64          `json:"partner_id"`
	DriverID  *int64          `json:"driver_id"`
	OrderID   *int64          `json:"order_id"`
	Amount    float64         `json:"amount"`
	Type      TransactionType `json:"transaction_type"`
	CreatedAt time.Time       `json:"transaction_time"`
}
