package dto

import (
	"time"

	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/scheduler"
)

// GenerateSemesterRequest asks for a new schedule of every active group in a semester.
// Zero limits fall back to the configured defaults.
type GenerateSemesterRequest struct {
	SemesterID            string `json:"semesterId" validate:"required"`
	Name                  string `json:"name" validate:"omitempty,max=120"`
	MaxIterations         int    `json:"maxIterations" validate:"omitempty,min=1,max=50000000"`
	MaxLessonsPerDay      int    `json:"maxLessonsPerDay" validate:"omitempty,min=1,max=7"`
	MinDaysBetweenLessons *int   `json:"minDaysBetweenLessons" validate:"omitempty,min=0,max=6"`
	Seed                  *int64 `json:"seed"`
	Async                 bool   `json:"async"`
}

// GenerateSemesterResponse summarises a persisted generation run.
type GenerateSemesterResponse struct {
	ScheduleID       string                 `json:"scheduleId"`
	Version          int                    `json:"version"`
	Outcome          scheduler.Status       `json:"outcome"`
	Success          bool                   `json:"success"`
	Fitness          float64                `json:"fitness"`
	Placed           int                    `json:"placed"`
	Total            int                    `json:"total"`
	Iterations       int                    `json:"iterations"`
	GenerationTimeMS int64                  `json:"generationTimeMs"`
	Method           string                 `json:"method"`
	Diagnostics      []scheduler.Diagnostic `json:"diagnostics"`
	Unschedulable    []scheduler.Diagnostic `json:"unschedulable,omitempty"`
}

// GenerationJobStatus reports an asynchronous generation request.
type GenerationJobStatus struct {
	JobID      string                    `json:"jobId"`
	SemesterID string                    `json:"semesterId,omitempty"`
	State      string                    `json:"state"`
	Error      string                    `json:"error,omitempty"`
	EnqueuedAt time.Time                 `json:"enqueuedAt"`
	StartedAt  *time.Time                `json:"startedAt,omitempty"`
	FinishedAt *time.Time                `json:"finishedAt,omitempty"`
	Result     *GenerateSemesterResponse `json:"result,omitempty"`
}

// ScheduleListQuery filters stored schedules.
type ScheduleListQuery struct {
	SemesterID string `form:"semesterId" json:"semesterId"`
	Status     string `form:"status" json:"status" validate:"omitempty,oneof=DRAFT ACTIVE ARCHIVED"`
	Page       int    `form:"page" json:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=100"`
}

// LessonQuery narrows the lessons of a schedule to one resource.
type LessonQuery struct {
	GroupID   string `form:"groupId" json:"groupId"`
	TeacherID string `form:"teacherId" json:"teacherId"`
	RoomID    string `form:"roomId" json:"roomId"`
	WeekID    string `form:"weekId" json:"weekId"`
}

// ScheduleWeekGroup holds the lessons of one week.
type ScheduleWeekGroup struct {
	WeekID     string          `json:"weekId"`
	WeekNumber int             `json:"weekNumber"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	Lessons    []models.Lesson `json:"lessons"`
}

// ScheduleWeekView is the day-by-period grid of one week.
type ScheduleWeekView struct {
	ScheduleID string            `json:"scheduleId"`
	WeekID     string            `json:"weekId"`
	WeekNumber int               `json:"weekNumber"`
	StartDate  time.Time         `json:"startDate"`
	EndDate    time.Time         `json:"endDate"`
	Days       []ScheduleDayView `json:"days"`
}

// ScheduleDayView is one teaching day of a week view.
type ScheduleDayView struct {
	Day       int                `json:"day"`
	Date      time.Time          `json:"date"`
	Available bool               `json:"available"`
	Slots     []ScheduleSlotView `json:"slots"`
}

// ScheduleSlotView lists the lessons held in one period.
type ScheduleSlotView struct {
	TimeSlot int             `json:"timeSlot"`
	Lessons  []models.Lesson `json:"lessons"`
}

// MoveLessonRequest edits the placement of a single lesson. Empty fields keep their value.
type MoveLessonRequest struct {
	WeekID    string `json:"weekId"`
	DayOfWeek *int   `json:"dayOfWeek" validate:"omitempty,min=0,max=4"`
	TimeSlot  *int   `json:"timeSlot" validate:"omitempty,min=0,max=6"`
	TeacherID string `json:"teacherId"`
	RoomID    string `json:"roomId"`
}

// ExportQuery selects the format and the view of a schedule export.
type ExportQuery struct {
	Format string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
	View   string `form:"view" json:"view" validate:"omitempty,oneof=group teacher room"`
	ID     string `form:"resourceId" json:"resourceId"`
}

// GenerateWeeksResponse returns the rebuilt weeks of a semester.
type GenerateWeeksResponse struct {
	SemesterID string        `json:"semesterId"`
	Weeks      []models.Week `json:"weeks"`
}
