package models

import "time"

// SemesterType distinguishes the two halves of an academic year.
type SemesterType string

const (
	SemesterTypeAutumn SemesterType = "AUTUMN"
	SemesterTypeSpring SemesterType = "SPRING"
)

// Semester is the planning horizon of a schedule.
type Semester struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Type         SemesterType `db:"type" json:"type"`
	AcademicYear string       `db:"academic_year" json:"academic_year"`
	StartDate    time.Time    `db:"start_date" json:"start_date"`
	EndDate      time.Time    `db:"end_date" json:"end_date"`
	IsActive     bool         `db:"is_active" json:"is_active"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Week is a 7-day block of a semester counted from its start date. The last
// week ends on the semester end date and may be shorter.
type Week struct {
	ID         string    `db:"id" json:"id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	WeekNumber int       `db:"week_number" json:"week_number"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
}
