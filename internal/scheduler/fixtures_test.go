package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

func testWeeks(n int) []Week {
	start := time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)
	weeks := make([]Week, n)
	for i := range weeks {
		ws := start.AddDate(0, 0, 7*i)
		weeks[i] = Week{ID: fmt.Sprintf("w%d", i+1), Number: i + 1, StartDate: ws, EndDate: ws.AddDate(0, 0, 6)}
	}
	return weeks
}

var (
	lecture = LessonType{ID: "lecture", Name: "Lecture"}
	seminar = LessonType{ID: "seminar", Name: "Seminar"}
	lab     = LessonType{ID: "lab", Name: "Lab", RequiresSpecialRoom: true}
)

// scenarioA is one group, one subject, two lecture hours a week.
func scenarioA() ReferenceData {
	return ReferenceData{
		Weeks:       testWeeks(2),
		Teachers:    []Teacher{{ID: "t1", SubjectIDs: []string{"math"}}},
		Rooms:       []Room{{ID: "r1", Capacity: 30}},
		Groups:      []Group{{ID: "g1", StudentCount: 25}},
		LessonTypes: []LessonType{lecture},
		Loads:       []Load{{GroupID: "g1", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 2}},
	}
}

// campusData is a small but busy instance with shared teachers, a single
// lab room and a lecture to lab spacing rule.
func campusData() ReferenceData {
	groups := []Group{
		{ID: "g1", StudentCount: 20},
		{ID: "g2", StudentCount: 25, DefaultRoomID: "r2"},
		{ID: "g3", StudentCount: 30, MaxLessonsPerDay: 3},
	}
	var loads []Load
	for _, g := range groups {
		loads = append(loads,
			Load{GroupID: g.ID, SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 2},
			Load{GroupID: g.ID, SubjectID: "math", LessonTypeID: "lab", HoursPerWeek: 1},
			Load{GroupID: g.ID, SubjectID: "physics", LessonTypeID: "lecture", HoursPerWeek: 2},
			Load{GroupID: g.ID, SubjectID: "history", LessonTypeID: "seminar", HoursPerWeek: 1},
			Load{GroupID: g.ID, SubjectID: "biology", LessonTypeID: "lecture", HoursPerWeek: 1},
		)
	}
	return ReferenceData{
		Weeks: testWeeks(3),
		Teachers: []Teacher{
			{ID: "t1", SubjectIDs: []string{"math", "physics"}},
			{ID: "t2", SubjectIDs: []string{"math"}, Unavailable: []DayTime{{Day: 0, Time: 1}, {Day: 0, Time: 2}}},
			{ID: "t3", SubjectIDs: []string{"history", "biology"}, MaxHoursPerWeek: 10},
			{ID: "t4", SubjectIDs: []string{"physics", "biology"}},
		},
		Rooms: []Room{
			{ID: "r1", Capacity: 40},
			{ID: "r2", Capacity: 30},
			{ID: "r3", Capacity: 35},
			{ID: "lab1", Capacity: 32, IsSpecial: true},
		},
		Groups:      groups,
		LessonTypes: []LessonType{lecture, seminar, lab},
		Constraints: []LessonTypeConstraint{
			{TypeFromID: "lecture", TypeToID: "lab", MinDaysBetween: 1, SameSubjectOnly: true},
		},
		Loads: loads,
	}
}

func newTestSearch(t *testing.T, data ReferenceData, opts ...Option) *search {
	t.Helper()
	o := buildOptions(append([]Option{WithSeed(1)}, opts...))
	p, err := newProblem(data, o.MaxLessonsPerDay)
	require.NoError(t, err)
	return &search{p: p, o: o, st: newState(0), started: time.Now(), logger: zap.NewNop()}
}

func countBy(lessons []Lesson, key func(Lesson) string) map[string]int {
	out := make(map[string]int)
	for _, l := range lessons {
		out[key(l)]++
	}
	return out
}
