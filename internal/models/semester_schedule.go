package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleStatus represents lifecycle phases for generated schedules.
type ScheduleStatus string

const (
	ScheduleStatusDraft    ScheduleStatus = "DRAFT"
	ScheduleStatusActive   ScheduleStatus = "ACTIVE"
	ScheduleStatusArchived ScheduleStatus = "ARCHIVED"
)

// Schedule is one generation run for a semester together with its outcome.
// Params holds the run parameters and Diagnostics the engine report.
type Schedule struct {
	ID               string         `db:"id" json:"id"`
	SemesterID       string         `db:"semester_id" json:"semester_id"`
	Name             string         `db:"name" json:"name"`
	Version          int            `db:"version" json:"version"`
	Status           ScheduleStatus `db:"status" json:"status"`
	Method           string         `db:"method" json:"method"`
	Outcome          string         `db:"outcome" json:"outcome"`
	Fitness          float64        `db:"fitness" json:"fitness"`
	PlacedCount      int            `db:"placed_count" json:"placed_count"`
	TotalCount       int            `db:"total_count" json:"total_count"`
	ConflictsCount   int            `db:"conflicts_count" json:"conflicts_count"`
	Iterations       int            `db:"iterations" json:"iterations"`
	GenerationTimeMS int64          `db:"generation_time_ms" json:"generation_time_ms"`
	Params           types.JSONText `db:"params" json:"params"`
	Diagnostics      types.JSONText `db:"diagnostics" json:"diagnostics"`
	CreatedBy        *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Lesson is a persisted placement inside a schedule. DayOfWeek counts from
// the first day of its week.
type Lesson struct {
	ID           string    `db:"id" json:"id"`
	ScheduleID   string    `db:"schedule_id" json:"schedule_id"`
	GroupID      string    `db:"group_id" json:"group_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	LessonTypeID string    `db:"lesson_type_id" json:"lesson_type_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	WeekID       string    `db:"week_id" json:"week_id"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	TimeSlot     int       `db:"time_slot" json:"time_slot"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	SemesterID string
	Status     ScheduleStatus
	Page       int
	PageSize   int
}

// LessonFilter narrows the lessons of a schedule.
type LessonFilter struct {
	GroupID   string
	TeacherID string
	RoomID    string
	WeekID    string
}
