package models

// LessonType is a kind of teaching activity (lecture, seminar, lab).
type LessonType struct {
	ID                  string `db:"id" json:"id"`
	Name                string `db:"name" json:"name"`
	RequiresSpecialRoom bool   `db:"requires_special_room" json:"requires_special_room"`
}

// LessonTypeConstraint bounds the days between two lesson types of a group.
type LessonTypeConstraint struct {
	ID              string `db:"id" json:"id"`
	TypeFromID      string `db:"type_from_id" json:"type_from_id"`
	TypeToID        string `db:"type_to_id" json:"type_to_id"`
	MinDaysBetween  int    `db:"min_days_between" json:"min_days_between"`
	MaxDaysBetween  *int   `db:"max_days_between" json:"max_days_between,omitempty"`
	SameSubjectOnly bool   `db:"same_subject_only" json:"same_subject_only"`
}
