package scheduler

// Assignment is a task committed to a slot, teacher and room.
type Assignment struct {
	Task      LessonTask
	Slot      TimeSlot
	TeacherID string
	RoomID    string

	weekIndex int
	dayIndex  int
}

// Lesson flattens the assignment into its output record.
func (a Assignment) Lesson() Lesson {
	return Lesson{
		GroupID:      a.Task.GroupID,
		SubjectID:    a.Task.SubjectID,
		LessonTypeID: a.Task.LessonTypeID,
		TeacherID:    a.TeacherID,
		RoomID:       a.RoomID,
		WeekID:       a.Slot.WeekID,
		Day:          a.Slot.Day,
		TimeSlot:     a.Slot.Time,
	}
}

type resourceSlot struct {
	id   string
	slot TimeSlot
}

type groupDayKey struct {
	groupID string
	week    int
	day     int
}

type demandWeekKey struct {
	groupID      string
	subjectID    string
	lessonTypeID string
	week         int
}

type resourceWeekKey struct {
	id   string
	week int
}

type groupSubjectKey struct {
	groupID   string
	subjectID string
}

// occurrence is a placed lesson as seen by the spacing rules.
type occurrence struct {
	subjectID    string
	lessonTypeID string
	dayIndex     int
}

// state holds every busy set and counter of one search. assign and unassign
// are exact inverses: keys are removed when their counter reaches zero so an
// assign/unassign pair leaves the maps deeply equal to what they were.
type state struct {
	groupBusy   map[resourceSlot]struct{}
	teacherBusy map[resourceSlot]struct{}
	roomBusy    map[resourceSlot]struct{}

	groupDaily    map[groupDayKey]int
	demandWeekly  map[demandWeekKey]int
	teacherWeekly map[resourceWeekKey]int
	groupWeekly   map[resourceWeekKey]int

	subjectHistory map[groupSubjectKey][]occurrence
	groupHistory   map[string][]occurrence

	assignments []Assignment
}

func newState(capacity int) *state {
	return &state{
		groupBusy:      make(map[resourceSlot]struct{}, capacity),
		teacherBusy:    make(map[resourceSlot]struct{}, capacity),
		roomBusy:       make(map[resourceSlot]struct{}, capacity),
		groupDaily:     make(map[groupDayKey]int),
		demandWeekly:   make(map[demandWeekKey]int),
		teacherWeekly:  make(map[resourceWeekKey]int),
		groupWeekly:    make(map[resourceWeekKey]int),
		subjectHistory: make(map[groupSubjectKey][]occurrence),
		groupHistory:   make(map[string][]occurrence),
		assignments:    make([]Assignment, 0, capacity),
	}
}

func (s *state) depth() int { return len(s.assignments) }

func (s *state) assign(a Assignment) {
	t := a.Task
	s.groupBusy[resourceSlot{t.GroupID, a.Slot}] = struct{}{}
	s.teacherBusy[resourceSlot{a.TeacherID, a.Slot}] = struct{}{}
	s.roomBusy[resourceSlot{a.RoomID, a.Slot}] = struct{}{}

	s.groupDaily[groupDayKey{t.GroupID, a.weekIndex, a.Slot.Day}]++
	s.demandWeekly[demandWeekKey{t.GroupID, t.SubjectID, t.LessonTypeID, a.weekIndex}]++
	s.teacherWeekly[resourceWeekKey{a.TeacherID, a.weekIndex}]++
	s.groupWeekly[resourceWeekKey{t.GroupID, a.weekIndex}]++

	occ := occurrence{subjectID: t.SubjectID, lessonTypeID: t.LessonTypeID, dayIndex: a.dayIndex}
	gs := groupSubjectKey{t.GroupID, t.SubjectID}
	s.subjectHistory[gs] = append(s.subjectHistory[gs], occ)
	s.groupHistory[t.GroupID] = append(s.groupHistory[t.GroupID], occ)

	s.assignments = append(s.assignments, a)
}

// unassign reverts the most recent assign.
func (s *state) unassign() Assignment {
	last := len(s.assignments) - 1
	a := s.assignments[last]
	s.assignments = s.assignments[:last]
	t := a.Task

	delete(s.groupBusy, resourceSlot{t.GroupID, a.Slot})
	delete(s.teacherBusy, resourceSlot{a.TeacherID, a.Slot})
	delete(s.roomBusy, resourceSlot{a.RoomID, a.Slot})

	decrement(s.groupDaily, groupDayKey{t.GroupID, a.weekIndex, a.Slot.Day})
	decrement(s.demandWeekly, demandWeekKey{t.GroupID, t.SubjectID, t.LessonTypeID, a.weekIndex})
	decrement(s.teacherWeekly, resourceWeekKey{a.TeacherID, a.weekIndex})
	decrement(s.groupWeekly, resourceWeekKey{t.GroupID, a.weekIndex})

	pop(s.subjectHistory, groupSubjectKey{t.GroupID, t.SubjectID})
	pop(s.groupHistory, t.GroupID)

	return a
}

func (s *state) groupFree(groupID string, slot TimeSlot) bool {
	_, busy := s.groupBusy[resourceSlot{groupID, slot}]
	return !busy
}

func (s *state) teacherFree(teacherID string, slot TimeSlot) bool {
	_, busy := s.teacherBusy[resourceSlot{teacherID, slot}]
	return !busy
}

func (s *state) roomFree(roomID string, slot TimeSlot) bool {
	_, busy := s.roomBusy[resourceSlot{roomID, slot}]
	return !busy
}

// lessons copies the current assignments into output records.
func (s *state) lessons() []Lesson {
	out := make([]Lesson, len(s.assignments))
	for i, a := range s.assignments {
		out[i] = a.Lesson()
	}
	return out
}

func decrement[K comparable](m map[K]int, key K) {
	if m[key] <= 1 {
		delete(m, key)
		return
	}
	m[key]--
}

func pop[K comparable](m map[K][]occurrence, key K) {
	stack := m[key]
	if len(stack) <= 1 {
		delete(m, key)
		return
	}
	m[key] = stack[:len(stack)-1]
}
