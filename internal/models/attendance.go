package models

import "time"

// Attendance marks a student's presence at one session.
type Attendance struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Present   bool      `db:"present" json:"present"`
	Note      string    `db:"note" json:"note"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AttendanceDetail enriches Attendance with student info.
type AttendanceDetail struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
}
