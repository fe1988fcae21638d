package models

import "time"

// Payment records a settlement against an installment. Amount is cents.
type Payment struct {
	ID            string    `db:"id" json:"id"`
	InstallmentID string    `db:"installment_id" json:"installment_id"`
	Amount        int64     `db:"amount" json:"amount"`
	Method        string    `db:"method" json:"method"`
	PaidAt        time.Time `db:"paid_at" json:"paid_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PaymentFilter provides filters for listing payments.
type PaymentFilter struct {
	InstallmentID string
	StudentID     string
	Month         int
	Year          int
	Page          int
	PageSize      int
}
