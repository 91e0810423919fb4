package models

import "time"

// Teacher represents an instructor who can be scheduled.
type Teacher struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FullName        string    `db:"full_name" json:"full_name"`
	MaxHoursPerWeek int       `db:"max_hours_per_week" json:"max_hours_per_week"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherSubject links a teacher to a subject they are qualified to teach.
type TeacherSubject struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}
