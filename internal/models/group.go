package models

import "time"

// Group is a cohort of students that attends lessons together.
type Group struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	StudentCount     int       `db:"student_count" json:"student_count"`
	DefaultRoomID    *string   `db:"default_room_id" json:"default_room_id,omitempty"`
	MaxLessonsPerDay int       `db:"max_lessons_per_day" json:"max_lessons_per_day"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// GroupSubjectLoad declares the weekly hours of one subject and lesson type
// a group must attend.
type GroupSubjectLoad struct {
	ID           string `db:"id" json:"id"`
	GroupID      string `db:"group_id" json:"group_id"`
	SubjectID    string `db:"subject_id" json:"subject_id"`
	LessonTypeID string `db:"lesson_type_id" json:"lesson_type_id"`
	HoursPerWeek int    `db:"hours_per_week" json:"hours_per_week"`
}
