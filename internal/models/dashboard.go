package models

// DashboardSummary aggregates the studio's month-at-a-glance figures.
// Monetary values are cents.
type DashboardSummary struct {
	Month             int   `db:"-" json:"month"`
	Year              int   `db:"-" json:"year"`
	IncomeSettled     int64 `db:"income_settled" json:"income_settled"`
	IncomeExpected    int64 `db:"income_expected" json:"income_expected"`
	Expenses          int64 `db:"expenses" json:"expenses"`
	ActiveStudents    int   `db:"active_students" json:"active_students"`
	ActiveEnrollments int   `db:"active_enrollments" json:"active_enrollments"`
	SessionsHeld      int   `db:"sessions_held" json:"sessions_held"`
}
