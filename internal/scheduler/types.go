// Package scheduler places the weekly lesson demand of a semester onto a
// conflict-free grid of (week, day, time, teacher, room) using depth-first
// backtracking search.
//
// The package is pure: callers load reference data from their own storage,
// build an Engine, call Generate exactly once and persist the Result.
package scheduler

import "time"

const (
	// DaysPerWeek is the number of teaching days in every week block.
	DaysPerWeek = 5
	// SlotsPerDay is the number of lesson periods in a teaching day.
	SlotsPerDay = 7
)

// TimeSlot identifies one cell of the schedule grid. It is comparable and is
// used directly as a key of the busy sets.
type TimeSlot struct {
	WeekID string `json:"weekId" yaml:"week_id"`
	Day    int    `json:"day" yaml:"day"`
	Time   int    `json:"time" yaml:"time"`
}

// LessonTask is one hour of a recurring (group, subject, lesson type) demand.
// The task list holds HoursPerWeek × weeks copies of it.
type LessonTask struct {
	GroupID      string `json:"groupId"`
	SubjectID    string `json:"subjectId"`
	LessonTypeID string `json:"lessonTypeId"`
	HoursPerWeek int    `json:"hoursPerWeek"`
}

// Week is a semester relative 7-day block. Day d of the week falls on
// StartDate+d. Days after EndDate are not available.
type Week struct {
	ID        string    `json:"id" yaml:"id"`
	Number    int       `json:"number" yaml:"number"`
	StartDate time.Time `json:"startDate" yaml:"start_date"`
	EndDate   time.Time `json:"endDate" yaml:"end_date"`
}

// AvailableDays lists the teaching days (0..DaysPerWeek-1) inside the week.
func (w Week) AvailableDays() []int {
	days := make([]int, 0, DaysPerWeek)
	for d := 0; d < DaysPerWeek; d++ {
		if !w.StartDate.IsZero() && !w.EndDate.IsZero() && w.StartDate.AddDate(0, 0, d).After(w.EndDate) {
			break
		}
		days = append(days, d)
	}
	return days
}

// DayTime is a (day, time) pair without a week.
type DayTime struct {
	Day  int `json:"day" yaml:"day"`
	Time int `json:"time" yaml:"time"`
}

// Teacher is an active teacher with the subjects they are qualified for.
type Teacher struct {
	ID              string    `json:"id" yaml:"id"`
	SubjectIDs      []string  `json:"subjectIds" yaml:"subjects"`
	Unavailable     []DayTime `json:"unavailable,omitempty" yaml:"unavailable"`
	MaxHoursPerWeek int       `json:"maxHoursPerWeek,omitempty" yaml:"max_hours_per_week"`
}

// Room is an active room.
type Room struct {
	ID        string `json:"id" yaml:"id"`
	Capacity  int    `json:"capacity" yaml:"capacity"`
	IsSpecial bool   `json:"isSpecial" yaml:"is_special"`
}

// Group is an active student group. MaxLessonsPerDay of 0 means the run
// level cap applies.
type Group struct {
	ID               string `json:"id" yaml:"id"`
	StudentCount     int    `json:"studentCount" yaml:"student_count"`
	DefaultRoomID    string `json:"defaultRoomId,omitempty" yaml:"default_room"`
	MaxLessonsPerDay int    `json:"maxLessonsPerDay,omitempty" yaml:"max_lessons_per_day"`
}

// LessonType is a kind of teaching activity such as a lecture or a lab.
type LessonType struct {
	ID                  string `json:"id" yaml:"id"`
	Name                string `json:"name,omitempty" yaml:"name"`
	RequiresSpecialRoom bool   `json:"requiresSpecialRoom" yaml:"requires_special_room"`
}

// LessonTypeConstraint bounds the day distance between an occurrence of
// TypeFromID and one of TypeToID for the same group. When SameSubjectOnly is
// false the rule also applies across subjects. A nil MaxDaysBetween is
// unbounded.
type LessonTypeConstraint struct {
	TypeFromID      string `json:"typeFromId" yaml:"from"`
	TypeToID        string `json:"typeToId" yaml:"to"`
	MinDaysBetween  int    `json:"minDaysBetween" yaml:"min_days"`
	MaxDaysBetween  *int   `json:"maxDaysBetween,omitempty" yaml:"max_days"`
	SameSubjectOnly bool   `json:"sameSubjectOnly" yaml:"same_subject_only"`
}

// Load declares the weekly hours a group needs for a subject and lesson type.
type Load struct {
	GroupID      string `json:"groupId" yaml:"group"`
	SubjectID    string `json:"subjectId" yaml:"subject"`
	LessonTypeID string `json:"lessonTypeId" yaml:"lesson_type"`
	HoursPerWeek int    `json:"hoursPerWeek" yaml:"hours_per_week"`
}

// ReferenceData is everything the engine reads during a run. It is never
// mutated by the engine and may be shared by sequential runs.
type ReferenceData struct {
	Weeks       []Week                 `json:"weeks" yaml:"weeks"`
	Teachers    []Teacher              `json:"teachers" yaml:"teachers"`
	Rooms       []Room                 `json:"rooms" yaml:"rooms"`
	Groups      []Group                `json:"groups" yaml:"groups"`
	LessonTypes []LessonType           `json:"lessonTypes" yaml:"lesson_types"`
	Constraints []LessonTypeConstraint `json:"constraints" yaml:"constraints"`
	Loads       []Load                 `json:"loads" yaml:"loads"`
}

// Lesson is one finalized placement.
type Lesson struct {
	GroupID      string `json:"groupId"`
	SubjectID    string `json:"subjectId"`
	LessonTypeID string `json:"lessonTypeId"`
	TeacherID    string `json:"teacherId"`
	RoomID       string `json:"roomId"`
	WeekID       string `json:"weekId"`
	Day          int    `json:"day"`
	TimeSlot     int    `json:"timeSlot"`
}

// Slot returns the grid cell of the lesson.
func (l Lesson) Slot() TimeSlot {
	return TimeSlot{WeekID: l.WeekID, Day: l.Day, Time: l.TimeSlot}
}
