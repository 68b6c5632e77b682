package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Only complete orders count toward lifetime value.
const (
	OrderStatusPending  = "pending"
	OrderStatusComplete = "complete"
	OrderStatusRefunded = "refunded"
	OrderStatusFailed   = "failed"
)

type Order struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	Email     string          `json:"email"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}
