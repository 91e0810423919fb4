package scheduler

import (
	"fmt"
	"sort"
)

// Conflict dimensions.
const (
	DimensionGroup   = "GROUP"
	DimensionTeacher = "TEACHER"
	DimensionRoom    = "ROOM"
	DimensionDaily   = "DAILY_CAP"
	DimensionWeekly  = "WEEKLY_HOURS"
	DimensionSpacing = "SPACING"

	DimensionRoomFit       = "ROOM_FIT"
	DimensionQualification = "QUALIFICATION"
	DimensionUnavailable   = "TEACHER_UNAVAILABLE"
	DimensionTeacherHours  = "TEACHER_HOURS"
)

// Conflict describes lessons that break a scheduling rule. Lessons holds
// indices into the checked slice.
type Conflict struct {
	Dimension  string   `json:"dimension"`
	Slot       TimeSlot `json:"slot"`
	ResourceID string   `json:"resourceId"`
	Lessons    []int    `json:"lessons"`
	Message    string   `json:"message"`
}

// CheckConflicts groups lessons by exact (week, day, time) and reports every
// group, teacher and room booked more than once in the same cell.
func CheckConflicts(lessons []Lesson) []Conflict {
	bySlot := make(map[TimeSlot][]int)
	var order []TimeSlot
	for i, l := range lessons {
		slot := l.Slot()
		if _, ok := bySlot[slot]; !ok {
			order = append(order, slot)
		}
		bySlot[slot] = append(bySlot[slot], i)
	}

	var conflicts []Conflict
	for _, slot := range order {
		idx := bySlot[slot]
		if len(idx) < 2 {
			continue
		}
		conflicts = append(conflicts, collide(lessons, slot, idx, DimensionGroup, func(l Lesson) string { return l.GroupID })...)
		conflicts = append(conflicts, collide(lessons, slot, idx, DimensionTeacher, func(l Lesson) string { return l.TeacherID })...)
		conflicts = append(conflicts, collide(lessons, slot, idx, DimensionRoom, func(l Lesson) string { return l.RoomID })...)
	}
	return conflicts
}

func collide(lessons []Lesson, slot TimeSlot, idx []int, dimension string, key func(Lesson) string) []Conflict {
	byResource := make(map[string][]int)
	var order []string
	for _, i := range idx {
		id := key(lessons[i])
		if _, ok := byResource[id]; !ok {
			order = append(order, id)
		}
		byResource[id] = append(byResource[id], i)
	}
	var out []Conflict
	for _, id := range order {
		if len(byResource[id]) < 2 {
			continue
		}
		out = append(out, Conflict{
			Dimension:  dimension,
			Slot:       slot,
			ResourceID: id,
			Lessons:    byResource[id],
			Message:    fmt.Sprintf("%s %s booked %d times in week %s day %d period %d", dimension, id, len(byResource[id]), slot.WeekID, slot.Day, slot.Time),
		})
	}
	return out
}

// Verify checks a placement against the reference data: slot collisions,
// room fit, teacher qualification, availability and weekly hours, group
// daily caps, weekly hours per declaration and spacing rules. It is
// independent of the search and can validate placements made by hand.
func Verify(data ReferenceData, lessons []Lesson, opts ...Option) ([]Conflict, error) {
	o := buildOptions(opts)
	p, err := newProblem(data, o.MaxLessonsPerDay)
	if err != nil {
		return nil, err
	}
	conflicts := CheckConflicts(lessons)

	daily := make(map[groupDayKey][]int)
	weekly := make(map[demandWeekKey]int)
	for i, l := range lessons {
		w, ok := p.weekIndex[l.WeekID]
		if !ok {
			return nil, inputError(ErrUnknownReference, "lesson %d refers to week %q", i, l.WeekID)
		}
		daily[groupDayKey{l.GroupID, w, l.Day}] = append(daily[groupDayKey{l.GroupID, w, l.Day}], i)
		weekly[demandWeekKey{l.GroupID, l.SubjectID, l.LessonTypeID, w}]++
	}
	conflicts = append(conflicts, placementConflicts(p, lessons)...)
	conflicts = append(conflicts, teacherHourConflicts(p, lessons)...)

	dailyKeys := make([]groupDayKey, 0, len(daily))
	for k := range daily {
		dailyKeys = append(dailyKeys, k)
	}
	sort.Slice(dailyKeys, func(i, j int) bool {
		a, b := dailyKeys[i], dailyKeys[j]
		if a.groupID != b.groupID {
			return a.groupID < b.groupID
		}
		return flatDay(a.week, a.day) < flatDay(b.week, b.day)
	})
	for _, k := range dailyKeys {
		if limit := p.dailyCap(k.groupID); len(daily[k]) > limit {
			conflicts = append(conflicts, Conflict{
				Dimension:  DimensionDaily,
				Slot:       TimeSlot{WeekID: p.weeks[k.week].ID, Day: k.day, Time: -1},
				ResourceID: k.groupID,
				Lessons:    daily[k],
				Message:    fmt.Sprintf("group %s has %d lessons on one day, limit %d", k.groupID, len(daily[k]), limit),
			})
		}
	}

	for _, load := range data.Loads {
		if load.HoursPerWeek <= 0 || len(p.subjectTeachers[load.SubjectID]) == 0 {
			continue
		}
		if _, ok := p.groups[load.GroupID]; !ok {
			continue
		}
		for w, week := range p.weeks {
			got := weekly[demandWeekKey{load.GroupID, load.SubjectID, load.LessonTypeID, w}]
			if got == load.HoursPerWeek {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Dimension:  DimensionWeekly,
				Slot:       TimeSlot{WeekID: week.ID, Day: -1, Time: -1},
				ResourceID: load.GroupID,
				Message:    fmt.Sprintf("group %s has %d of %d weekly hours of %s (%s) in week %d", load.GroupID, got, load.HoursPerWeek, load.SubjectID, load.LessonTypeID, week.Number),
			})
		}
	}

	conflicts = append(conflicts, spacingConflicts(p, lessons, o.MinDaysBetweenLessons)...)
	return conflicts, nil
}

func spacingConflicts(p *problem, lessons []Lesson, minDays int) []Conflict {
	var out []Conflict
	for i := 0; i < len(lessons); i++ {
		a := lessons[i]
		for j := i + 1; j < len(lessons); j++ {
			b := lessons[j]
			if a.GroupID != b.GroupID {
				continue
			}
			distance := absInt(flatDay(p.weekIndex[a.WeekID], a.Day) - flatDay(p.weekIndex[b.WeekID], b.Day))
			same := a.SubjectID == b.SubjectID
			rules := p.crossSubject
			if same {
				rules = p.constraints
			}
			broken := same && minDays > 0 && distance < minDays
			for _, c := range rules[typePair{a.LessonTypeID, b.LessonTypeID}] {
				if !c.allows(distance) {
					broken = true
				}
			}
			if !broken {
				continue
			}
			out = append(out, Conflict{
				Dimension:  DimensionSpacing,
				Slot:       b.Slot(),
				ResourceID: a.GroupID,
				Lessons:    []int{i, j},
				Message:    fmt.Sprintf("group %s lessons %s (%s) and %s (%s) are %d days apart", a.GroupID, a.SubjectID, a.LessonTypeID, b.SubjectID, b.LessonTypeID, distance),
			})
		}
	}
	return out
}

// placementConflicts checks each lesson on its own: the room must hold the
// group and carry special equipment when the lesson type needs it, and the
// teacher must teach the subject and be available at that time.
func placementConflicts(p *problem, lessons []Lesson) []Conflict {
	var out []Conflict
	add := func(i int, dimension, resourceID, format string, args ...interface{}) {
		out = append(out, Conflict{
			Dimension:  dimension,
			Slot:       lessons[i].Slot(),
			ResourceID: resourceID,
			Lessons:    []int{i},
			Message:    fmt.Sprintf(format, args...),
		})
	}

	for i, l := range lessons {
		room, ok := p.roomByID[l.RoomID]
		switch {
		case !ok:
			add(i, DimensionRoomFit, l.RoomID, "room %s is not known", l.RoomID)
		case room.Capacity < p.groups[l.GroupID].StudentCount:
			add(i, DimensionRoomFit, l.RoomID, "room %s holds %d students, group %s has %d", l.RoomID, room.Capacity, l.GroupID, p.groups[l.GroupID].StudentCount)
		case p.lessonTypes[l.LessonTypeID].RequiresSpecialRoom && !room.IsSpecial:
			add(i, DimensionRoomFit, l.RoomID, "lesson type %s of group %s needs a special room, %s is not", l.LessonTypeID, l.GroupID, l.RoomID)
		}

		if !p.qualified(l.TeacherID, l.SubjectID) {
			add(i, DimensionQualification, l.TeacherID, "teacher %s does not teach %s", l.TeacherID, l.SubjectID)
		}
		if !p.teacherAvailable(l.TeacherID, l.Day, l.TimeSlot) {
			add(i, DimensionUnavailable, l.TeacherID, "teacher %s is unavailable on day %d period %d", l.TeacherID, l.Day, l.TimeSlot)
		}
	}
	return out
}

// teacherHourConflicts reports teachers booked above their weekly cap.
func teacherHourConflicts(p *problem, lessons []Lesson) []Conflict {
	booked := make(map[resourceWeekKey][]int)
	var order []resourceWeekKey
	for i, l := range lessons {
		if p.teachers[l.TeacherID].MaxHoursPerWeek <= 0 {
			continue
		}
		k := resourceWeekKey{l.TeacherID, p.weekIndex[l.WeekID]}
		if _, ok := booked[k]; !ok {
			order = append(order, k)
		}
		booked[k] = append(booked[k], i)
	}

	var out []Conflict
	for _, k := range order {
		limit := p.teachers[k.id].MaxHoursPerWeek
		if len(booked[k]) <= limit {
			continue
		}
		week := p.weeks[k.week]
		out = append(out, Conflict{
			Dimension:  DimensionTeacherHours,
			Slot:       TimeSlot{WeekID: week.ID, Day: -1, Time: -1},
			ResourceID: k.id,
			Lessons:    booked[k],
			Message:    fmt.Sprintf("teacher %s teaches %d hours in week %d, limit %d", k.id, len(booked[k]), week.Number, limit),
		})
	}
	return out
}
