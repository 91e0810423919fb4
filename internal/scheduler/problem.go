package scheduler

type typePair struct {
	from string
	to   string
}

type groupTypeKey struct {
	groupID      string
	lessonTypeID string
}

// problem is the read-only index of the reference data used by one engine.
type problem struct {
	weeks     []Week
	weekIndex map[string]int
	weekDays  [][]int

	teachers        map[string]Teacher
	subjectTeachers map[string][]string
	unavailable     map[string]map[DayTime]struct{}

	rooms    []Room
	roomByID map[string]Room

	groups      map[string]Group
	lessonTypes map[string]LessonType

	// constraints holds every rule under both orderings of its type pair.
	constraints map[typePair][]LessonTypeConstraint
	// crossSubject holds the rules with SameSubjectOnly unset.
	crossSubject map[typePair][]LessonTypeConstraint

	roomsCache map[groupTypeKey][]string
	maxPerDay  int
}

func newProblem(data ReferenceData, maxPerDay int) (*problem, error) {
	switch {
	case len(data.Weeks) == 0:
		return nil, inputError(ErrNoWeeks, "")
	case len(data.Teachers) == 0:
		return nil, inputError(ErrNoTeachers, "")
	case len(data.Rooms) == 0:
		return nil, inputError(ErrNoRooms, "")
	case len(data.Groups) == 0:
		return nil, inputError(ErrNoGroups, "")
	}

	p := &problem{
		weeks:           data.Weeks,
		weekIndex:       make(map[string]int, len(data.Weeks)),
		weekDays:        make([][]int, len(data.Weeks)),
		teachers:        make(map[string]Teacher, len(data.Teachers)),
		subjectTeachers: make(map[string][]string),
		unavailable:     make(map[string]map[DayTime]struct{}),
		rooms:           data.Rooms,
		roomByID:        make(map[string]Room, len(data.Rooms)),
		groups:          make(map[string]Group, len(data.Groups)),
		lessonTypes:     make(map[string]LessonType, len(data.LessonTypes)),
		constraints:     make(map[typePair][]LessonTypeConstraint),
		crossSubject:    make(map[typePair][]LessonTypeConstraint),
		roomsCache:      make(map[groupTypeKey][]string),
		maxPerDay:       maxPerDay,
	}

	for i, w := range data.Weeks {
		if _, dup := p.weekIndex[w.ID]; dup {
			return nil, inputError(ErrUnknownReference, "week %q listed twice", w.ID)
		}
		p.weekIndex[w.ID] = i
		p.weekDays[i] = w.AvailableDays()
	}

	for _, t := range data.Teachers {
		p.teachers[t.ID] = t
		seen := make(map[string]struct{}, len(t.SubjectIDs))
		for _, subjectID := range t.SubjectIDs {
			if _, ok := seen[subjectID]; ok {
				continue
			}
			seen[subjectID] = struct{}{}
			p.subjectTeachers[subjectID] = append(p.subjectTeachers[subjectID], t.ID)
		}
		if len(t.Unavailable) > 0 {
			blocked := make(map[DayTime]struct{}, len(t.Unavailable))
			for _, dt := range t.Unavailable {
				blocked[dt] = struct{}{}
			}
			p.unavailable[t.ID] = blocked
		}
	}

	for _, r := range data.Rooms {
		p.roomByID[r.ID] = r
	}
	for _, g := range data.Groups {
		p.groups[g.ID] = g
	}
	for _, lt := range data.LessonTypes {
		p.lessonTypes[lt.ID] = lt
	}

	for _, c := range data.Constraints {
		p.constraints[typePair{c.TypeFromID, c.TypeToID}] = append(p.constraints[typePair{c.TypeFromID, c.TypeToID}], c)
		if c.TypeFromID != c.TypeToID {
			p.constraints[typePair{c.TypeToID, c.TypeFromID}] = append(p.constraints[typePair{c.TypeToID, c.TypeFromID}], c)
		}
		if c.SameSubjectOnly {
			continue
		}
		p.crossSubject[typePair{c.TypeFromID, c.TypeToID}] = append(p.crossSubject[typePair{c.TypeFromID, c.TypeToID}], c)
		if c.TypeFromID != c.TypeToID {
			p.crossSubject[typePair{c.TypeToID, c.TypeFromID}] = append(p.crossSubject[typePair{c.TypeToID, c.TypeFromID}], c)
		}
	}

	return p, nil
}

// dailyCap is the effective per-day lesson limit of a group.
func (p *problem) dailyCap(groupID string) int {
	limit := p.maxPerDay
	if g, ok := p.groups[groupID]; ok && g.MaxLessonsPerDay > 0 && g.MaxLessonsPerDay < limit {
		limit = g.MaxLessonsPerDay
	}
	return limit
}

// roomsFor returns the rooms a group may use for a lesson type. The group's
// default room wins when it fits and no special equipment is needed.
func (p *problem) roomsFor(groupID, lessonTypeID string) []string {
	key := groupTypeKey{groupID, lessonTypeID}
	if rooms, ok := p.roomsCache[key]; ok {
		return rooms
	}
	group := p.groups[groupID]
	special := p.lessonTypes[lessonTypeID].RequiresSpecialRoom

	var rooms []string
	if group.DefaultRoomID != "" && !special {
		if r, ok := p.roomByID[group.DefaultRoomID]; ok && r.Capacity >= group.StudentCount {
			rooms = []string{r.ID}
		}
	}
	if rooms == nil {
		rooms = make([]string, 0, len(p.rooms))
		for _, r := range p.rooms {
			if r.Capacity < group.StudentCount {
				continue
			}
			if special && !r.IsSpecial {
				continue
			}
			rooms = append(rooms, r.ID)
		}
	}
	p.roomsCache[key] = rooms
	return rooms
}

func (p *problem) teacherAvailable(teacherID string, day, time int) bool {
	blocked, ok := p.unavailable[teacherID]
	if !ok {
		return true
	}
	_, hit := blocked[DayTime{Day: day, Time: time}]
	return !hit
}

func (p *problem) qualified(teacherID, subjectID string) bool {
	for _, id := range p.subjectTeachers[subjectID] {
		if id == teacherID {
			return true
		}
	}
	return false
}

// allows reports whether two occurrences distance days apart satisfy c.
func (c LessonTypeConstraint) allows(distance int) bool {
	if distance < c.MinDaysBetween {
		return false
	}
	if c.MaxDaysBetween != nil && distance > *c.MaxDaysBetween {
		return false
	}
	return true
}

func flatDay(weekIndex, day int) int {
	return weekIndex*DaysPerWeek + day
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
