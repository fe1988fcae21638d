package models

import "time"

// SessionStatus represents the lifecycle of a generated class session.
type SessionStatus string

// Possible session statuses.
const (
	SessionStatusPlanned  SessionStatus = "PLANNED"
	SessionStatusHeld     SessionStatus = "HELD"
	SessionStatusCanceled SessionStatus = "CANCELED"
	SessionStatusMakeup   SessionStatus = "MAKEUP"
)

// Session is one concrete scheduled occurrence of a class. Rows are
// generated from the class's weekly slots and may be edited individually
// afterward without being regenerated.
type Session struct {
	ID                  string        `db:"id" json:"id"`
	ClassID             string        `db:"class_id" json:"class_id"`
	Title               string        `db:"title" json:"title"`
	StartsAt            time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt              time.Time     `db:"ends_at" json:"ends_at"`
	Status              SessionStatus `db:"status" json:"status"`
	SubstituteTeacherID *string       `db:"substitute_teacher_id" json:"substitute_teacher_id,omitempty"`
	Notes               string        `db:"notes" json:"notes"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionFilter defines criteria for listing sessions.
type SessionFilter struct {
	ClassID string
	Status  SessionStatus
	From    *time.Time
	To      *time.Time
}
