package models

// ScheduleConflict describes lessons of a schedule that collide or break a
// scheduling rule.
type ScheduleConflict struct {
	Dimension  string   `json:"dimension"`
	WeekID     string   `json:"week_id,omitempty"`
	DayOfWeek  int      `json:"day_of_week"`
	TimeSlot   int      `json:"time_slot"`
	ResourceID string   `json:"resource_id"`
	LessonIDs  []string `json:"lesson_ids,omitempty"`
	Message    string   `json:"message"`
}

// ScheduleConflictError is returned when a manual change would break the schedule.
type ScheduleConflictError struct {
	Type     string             `json:"type"`
	Message  string             `json:"message"`
	Conflict ScheduleConflict   `json:"conflict"`
	Errors   []ScheduleConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
