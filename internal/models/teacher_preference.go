package models

// TeacherUnavailableSlot blocks a teacher for one period of a weekday in
// every week of the semester.
type TeacherUnavailableSlot struct {
	ID        string  `db:"id" json:"id"`
	TeacherID string  `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int     `db:"day_of_week" json:"day_of_week"`
	TimeSlot  int     `db:"time_slot" json:"time_slot"`
	Reason    *string `db:"reason" json:"reason,omitempty"`
}
