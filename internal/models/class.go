package models

import "time"

// Class represents a recurring dance class offered by the studio.
// MonthlyRate is the full period charge for the class in cents.
type Class struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Modality    string    `db:"modality" json:"modality"`
	Level       string    `db:"level" json:"level"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Capacity    int       `db:"capacity" json:"capacity"`
	MonthlyRate int64     `db:"monthly_rate" json:"monthly_rate"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with teacher information.
type ClassDetail struct {
	Class
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search    string
	Modality  string
	Level     string
	TeacherID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// WeeklySlot is a recurring (weekday, start time) template entry of a class.
// Weekday follows time.Weekday numbering (0 = Sunday).
type WeeklySlot struct {
	ID        string `db:"id" json:"id"`
	ClassID   string `db:"class_id" json:"class_id"`
	Weekday   int    `db:"weekday" json:"weekday"`
	StartTime string `db:"start_time" json:"start_time"`
}
