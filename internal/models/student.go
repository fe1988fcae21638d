package models

import "time"

// Student represents a learner registered at the studio.
type Student struct {
	ID            string     `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	Email         string     `db:"email" json:"email"`
	Phone         string     `db:"phone" json:"phone"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address       string     `db:"address" json:"address"`
	GuardianName  string     `db:"guardian_name" json:"guardian_name"`
	GuardianPhone string     `db:"guardian_phone" json:"guardian_phone"`
	Scholarship   bool       `db:"scholarship" json:"scholarship"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
