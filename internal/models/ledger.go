package models

import "time"

// LedgerType distinguishes income from expense entries.
type LedgerType string

// Ledger entry types.
const (
	LedgerTypeIncome  LedgerType = "INCOME"
	LedgerTypeExpense LedgerType = "EXPENSE"
)

// LedgerStatus represents settlement state of a ledger entry.
type LedgerStatus string

// Ledger entry statuses.
const (
	LedgerStatusPending LedgerStatus = "PENDING"
	LedgerStatusSettled LedgerStatus = "SETTLED"
)

// LedgerEntry is a cash-flow line item, optionally linked to an
// installment. Amount is cents.
type LedgerEntry struct {
	ID            string       `db:"id" json:"id"`
	Type          LedgerType   `db:"type" json:"type"`
	Description   string       `db:"description" json:"description"`
	Amount        int64        `db:"amount" json:"amount"`
	Date          time.Time    `db:"date" json:"date"`
	Status        LedgerStatus `db:"status" json:"status"`
	InstallmentID *string      `db:"installment_id" json:"installment_id,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// LedgerFilter provides composable filters for ledger listings.
type LedgerFilter struct {
	Type     LedgerType
	Status   LedgerStatus
	Month    int
	Year     int
	Page     int
	PageSize int
}
