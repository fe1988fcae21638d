package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusInactive EnrollmentStatus = "INACTIVE"
)

// Enrollment is a student's registration into one or more classes under a
// single tuition agreement. Tuition, Discount are cents.
type Enrollment struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	Tuition         int64            `db:"tuition" json:"tuition"`
	Discount        int64            `db:"discount" json:"discount"`
	DueDate         time.Time        `db:"due_date" json:"due_date"`
	ContractEndDate time.Time        `db:"contract_end_date" json:"contract_end_date"`
	FeeWaiver       bool             `db:"fee_waiver" json:"fee_waiver"`
	Scholarship     bool             `db:"scholarship" json:"scholarship"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and class info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string   `db:"student_name" json:"student_name"`
	ClassIDs    []string `json:"class_ids"`
	ClassNames  []string `json:"class_names,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	ClassID   string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// InstallmentStatus represents the lifecycle of a tuition installment.
type InstallmentStatus string

// Possible installment statuses.
const (
	InstallmentStatusPending  InstallmentStatus = "PENDING"
	InstallmentStatusPaid     InstallmentStatus = "PAID"
	InstallmentStatusCanceled InstallmentStatus = "CANCELED"
)

// Installment is one billing period's tuition charge derived from an
// enrollment. Amount is cents.
type Installment struct {
	ID           string            `db:"id" json:"id"`
	EnrollmentID string            `db:"enrollment_id" json:"enrollment_id"`
	Amount       int64             `db:"amount" json:"amount"`
	DueDate      time.Time         `db:"due_date" json:"due_date"`
	Status       InstallmentStatus `db:"status" json:"status"`
	PaymentDate  *time.Time        `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// InstallmentDetail enriches Installment with student context.
type InstallmentDetail struct {
	Installment
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
}

// InstallmentFilter provides composable filters for installment listings.
type InstallmentFilter struct {
	EnrollmentID string
	StudentID    string
	Status       InstallmentStatus
	Month        int
	Year         int
	Page         int
	PageSize     int
}
