package scheduler

import "sort"

// Candidate is one (slot, teacher, room) placement for a task.
type Candidate struct {
	Slot      TimeSlot
	TeacherID string
	RoomID    string

	weekIndex int
}

// candidateIterator lazily walks weeks, days, periods, teachers and rooms
// for one task. It keeps its loop cursors between calls so the search can
// stop after any candidate and resume later. Checks always read the current
// state, which the search restores before calling Next again.
type candidateIterator struct {
	s    *search
	task LessonTask

	teachers []string
	rooms    []string
	weeks    []int
	days     []int
	times    []int

	week, day, time, teacher, room int
	inWeek, inDay                  bool
}

func (s *search) newCandidateIterator(task LessonTask) *candidateIterator {
	it := &candidateIterator{s: s, task: task}
	it.teachers = s.shuffled(s.p.subjectTeachers[task.SubjectID])
	it.rooms = s.shuffled(s.p.roomsFor(task.GroupID, task.LessonTypeID))
	if len(it.teachers) == 0 || len(it.rooms) == 0 {
		return it
	}
	it.weeks = s.weekOrder(task.GroupID)
	return it
}

// Next returns the next valid candidate, or false once the domain is spent.
func (it *candidateIterator) Next() (Candidate, bool) {
	for it.week < len(it.weeks) {
		w := it.weeks[it.week]
		if !it.inWeek {
			if !it.enterWeek(w) {
				it.week++
				continue
			}
			it.inWeek = true
		}
		for it.day < len(it.days) {
			d := it.days[it.day]
			if !it.inDay {
				if !it.enterDay(w, d) {
					it.day++
					continue
				}
				it.inDay = true
			}
			for it.time < len(it.times) {
				slot := TimeSlot{WeekID: it.s.p.weeks[w].ID, Day: d, Time: it.times[it.time]}
				if it.s.st.groupFree(it.task.GroupID, slot) {
					for it.teacher < len(it.teachers) {
						teacherID := it.teachers[it.teacher]
						if it.s.teacherUsable(teacherID, w, slot) {
							for it.room < len(it.rooms) {
								roomID := it.rooms[it.room]
								it.room++
								if it.s.st.roomFree(roomID, slot) {
									return Candidate{Slot: slot, TeacherID: teacherID, RoomID: roomID, weekIndex: w}, true
								}
							}
						}
						it.teacher++
						it.room = 0
					}
				}
				it.time++
				it.teacher, it.room = 0, 0
			}
			it.day++
			it.inDay = false
			it.time, it.teacher, it.room = 0, 0, 0
		}
		it.week++
		it.inWeek = false
		it.day = 0
	}
	return Candidate{}, false
}

// enterWeek rejects a week where the task's weekly hours are already placed
// and prepares the day order for it.
func (it *candidateIterator) enterWeek(w int) bool {
	key := demandWeekKey{it.task.GroupID, it.task.SubjectID, it.task.LessonTypeID, w}
	if it.s.st.demandWeekly[key] >= it.task.HoursPerWeek {
		return false
	}
	it.days = it.s.shuffledInts(it.s.p.weekDays[w])
	it.day = 0
	return len(it.days) > 0
}

// enterDay rejects a day at the group's daily cap or one that breaks a
// spacing rule, and prepares the period order for it.
func (it *candidateIterator) enterDay(w, d int) bool {
	if it.s.st.groupDaily[groupDayKey{it.task.GroupID, w, d}] >= it.s.p.dailyCap(it.task.GroupID) {
		return false
	}
	if !it.s.spacingAllows(it.task, flatDay(w, d)) {
		return false
	}
	if it.s.o.TimePreference != nil {
		it.times = it.s.o.TimePreference
	} else {
		it.times = it.s.shuffledInts(allTimes)
	}
	it.time = 0
	return true
}

var allTimes = []int{0, 1, 2, 3, 4, 5, 6}

func (s *search) teacherUsable(teacherID string, w int, slot TimeSlot) bool {
	if !s.st.teacherFree(teacherID, slot) {
		return false
	}
	if !s.p.teacherAvailable(teacherID, slot.Day, slot.Time) {
		return false
	}
	if limit := s.p.teachers[teacherID].MaxHoursPerWeek; limit > 0 && s.st.teacherWeekly[resourceWeekKey{teacherID, w}] >= limit {
		return false
	}
	return true
}

// spacingAllows checks a candidate day against every occurrence already
// placed for the group: the run level minimum gap and the lesson type rules
// for the same subject, then the cross-subject rules.
func (s *search) spacingAllows(task LessonTask, dayIndex int) bool {
	for _, occ := range s.st.subjectHistory[groupSubjectKey{task.GroupID, task.SubjectID}] {
		distance := absInt(dayIndex - occ.dayIndex)
		if s.o.MinDaysBetweenLessons > 0 && distance < s.o.MinDaysBetweenLessons {
			return false
		}
		for _, c := range s.p.constraints[typePair{occ.lessonTypeID, task.LessonTypeID}] {
			if !c.allows(distance) {
				return false
			}
		}
	}
	if len(s.p.crossSubject) == 0 {
		return true
	}
	for _, occ := range s.st.groupHistory[task.GroupID] {
		if occ.subjectID == task.SubjectID {
			continue
		}
		distance := absInt(dayIndex - occ.dayIndex)
		for _, c := range s.p.crossSubject[typePair{occ.lessonTypeID, task.LessonTypeID}] {
			if !c.allows(distance) {
				return false
			}
		}
	}
	return true
}

// weekOrder returns week indices in the order the domain visits them.
func (s *search) weekOrder(groupID string) []int {
	order := make([]int, len(s.p.weeks))
	for i := range order {
		order[i] = i
	}
	switch s.o.WeekOrder {
	case WeekOrderSequential:
		return order
	case WeekOrderLeastLoaded:
		s.o.Rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		sort.SliceStable(order, func(i, j int) bool {
			return s.st.groupWeekly[resourceWeekKey{groupID, order[i]}] < s.st.groupWeekly[resourceWeekKey{groupID, order[j]}]
		})
		return order
	default:
		s.o.Rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		return order
	}
}

func (s *search) shuffled(in []string) []string {
	out := append([]string(nil), in...)
	s.o.Rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (s *search) shuffledInts(in []int) []int {
	out := append([]int(nil), in...)
	s.o.Rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
