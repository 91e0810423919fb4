package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, data ReferenceData, opts ...Option) *Result {
	t.Helper()
	engine, err := New(data, append([]Option{WithSeed(42)}, opts...)...)
	require.NoError(t, err)
	res, err := engine.Generate(context.Background())
	require.NoError(t, err)
	return res
}

func TestEngineGenerateSingleGroupTwoWeeks(t *testing.T) {
	res := generate(t, scenarioA())

	require.True(t, res.Success())
	assert.Equal(t, 1.0, res.Fitness)
	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Lessons, 4)
	assert.Equal(t, map[string]int{"w1": 2, "w2": 2}, countBy(res.Lessons, func(l Lesson) string { return l.WeekID }))
	for _, l := range res.Lessons {
		assert.Equal(t, "t1", l.TeacherID)
		assert.Equal(t, "r1", l.RoomID)
	}
	assert.Empty(t, CheckConflicts(res.Lessons))
	assert.Equal(t, 4, res.Iterations)
	assert.Equal(t, MethodCSP, res.Method)
}

func TestEngineGenerateSharedTeacher(t *testing.T) {
	data := ReferenceData{
		Weeks:       testWeeks(1),
		Teachers:    []Teacher{{ID: "t1", SubjectIDs: []string{"math"}}},
		Rooms:       []Room{{ID: "r1", Capacity: 30}, {ID: "r2", Capacity: 30}},
		Groups:      []Group{{ID: "g1", StudentCount: 20}, {ID: "g2", StudentCount: 20}},
		LessonTypes: []LessonType{lecture},
		Loads: []Load{
			{GroupID: "g1", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 1},
			{GroupID: "g2", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 1},
		},
	}
	res := generate(t, data)

	require.True(t, res.Success())
	require.Len(t, res.Lessons, 2)
	assert.Equal(t, "t1", res.Lessons[0].TeacherID)
	assert.Equal(t, "t1", res.Lessons[1].TeacherID)
	assert.NotEqual(t, res.Lessons[0].Slot(), res.Lessons[1].Slot())
	assert.ElementsMatch(t, []string{"g1", "g2"}, []string{res.Lessons[0].GroupID, res.Lessons[1].GroupID})
}

func TestEngineGenerateLectureSeminarSpacing(t *testing.T) {
	data := ReferenceData{
		Weeks:       testWeeks(2),
		Teachers:    []Teacher{{ID: "t1", SubjectIDs: []string{"math"}}},
		Rooms:       []Room{{ID: "r1", Capacity: 30}},
		Groups:      []Group{{ID: "g1", StudentCount: 20}},
		LessonTypes: []LessonType{lecture, seminar},
		Constraints: []LessonTypeConstraint{{TypeFromID: "lecture", TypeToID: "seminar", MinDaysBetween: 3, SameSubjectOnly: true}},
		Loads: []Load{
			{GroupID: "g1", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 1},
			{GroupID: "g1", SubjectID: "math", LessonTypeID: "seminar", HoursPerWeek: 1},
		},
	}

	for seed := int64(1); seed <= 5; seed++ {
		res := generate(t, data, WithSeed(seed))
		require.True(t, res.Success())
		require.Len(t, res.Lessons, 4)

		weekIdx := map[string]int{"w1": 0, "w2": 1}
		for _, a := range res.Lessons {
			if a.LessonTypeID != "lecture" {
				continue
			}
			for _, b := range res.Lessons {
				if b.LessonTypeID != "seminar" {
					continue
				}
				distance := absInt(flatDay(weekIdx[a.WeekID], a.Day) - flatDay(weekIdx[b.WeekID], b.Day))
				assert.GreaterOrEqual(t, distance, 3, "seed %d", seed)
			}
		}
	}
}

func TestEngineGenerateSkipsSubjectWithoutTeacher(t *testing.T) {
	data := scenarioA()
	data.Loads = append(data.Loads, Load{GroupID: "g1", SubjectID: "latin", LessonTypeID: "lecture", HoursPerWeek: 3})

	res := generate(t, data)

	require.True(t, res.Success())
	assert.Len(t, res.Lessons, 4)
	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Unschedulable, 1)
	assert.Equal(t, DiagnosticNoTeacher, res.Unschedulable[0].Kind)
	assert.Equal(t, "latin", res.Unschedulable[0].SubjectID)
	assert.Contains(t, res.Unschedulable[0].Message, "latin")
	for _, l := range res.Lessons {
		assert.Equal(t, "math", l.SubjectID)
	}
}

func TestEngineGenerateBudgetExhausted(t *testing.T) {
	res := generate(t, campusData(), WithMaxIterations(10))

	assert.Equal(t, StatusBudgetExhausted, res.Status)
	assert.Equal(t, 10, res.Iterations)
	assert.Less(t, res.Fitness, 1.0)
	assert.NotEmpty(t, res.Lessons)
	assert.LessOrEqual(t, len(res.Lessons), res.Total)
	assert.Equal(t, len(res.Lessons), res.Placed)
	assert.InDelta(t, float64(res.Placed)/float64(res.Total), res.Fitness, 1e-9)
	require.NotEmpty(t, res.Conflicts)
	assert.Equal(t, DiagnosticFrontier, res.Conflicts[0].Kind)
	assert.Equal(t, res.Placed, res.Conflicts[0].TaskIndex)
	assert.Empty(t, CheckConflicts(res.Lessons))
}

func TestEngineGenerateEmptyDemand(t *testing.T) {
	data := scenarioA()
	data.Loads = nil

	res := generate(t, data)

	assert.True(t, res.Success())
	assert.Equal(t, 1.0, res.Fitness)
	assert.Empty(t, res.Lessons)
	assert.Equal(t, 0, res.Iterations)
}

func TestEngineGenerateCampusProperties(t *testing.T) {
	data := campusData()
	for seed := int64(1); seed <= 8; seed++ {
		for _, order := range []WeekOrder{WeekOrderRandom, WeekOrderLeastLoaded, WeekOrderSequential} {
			res := generate(t, data, WithSeed(seed), WithWeekOrder(order), WithMaxLessonsPerDay(4))
			require.True(t, res.Success(), "seed %d order %d status %s", seed, order, res.Status)
			assert.Len(t, res.Lessons, 63)

			conflicts, err := Verify(data, res.Lessons, WithMaxLessonsPerDay(4))
			require.NoError(t, err)
			assert.Empty(t, conflicts, "seed %d order %d", seed, order)

			for _, l := range res.Lessons {
				if l.LessonTypeID == "lab" {
					assert.Equal(t, "lab1", l.RoomID)
				} else if l.GroupID == "g2" {
					assert.Equal(t, "r2", l.RoomID)
				}
				if l.TeacherID == "t2" {
					assert.False(t, l.Day == 0 && (l.TimeSlot == 1 || l.TimeSlot == 2), "t2 booked while unavailable")
				}
			}
			perTeacherWeek := countBy(res.Lessons, func(l Lesson) string { return l.TeacherID + "/" + l.WeekID })
			for _, w := range data.Weeks {
				assert.LessOrEqual(t, perTeacherWeek["t3/"+w.ID], 10)
			}
		}
	}
}

func TestEngineGenerateMinDaysBetweenLessons(t *testing.T) {
	data := scenarioA()
	res := generate(t, data, WithMinDaysBetweenLessons(2))

	require.True(t, res.Success())
	conflicts, err := Verify(data, res.Lessons, WithMinDaysBetweenLessons(2))
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestEngineGenerateClippedFinalWeek(t *testing.T) {
	data := scenarioA()
	// The semester ends on the Tuesday of its second week.
	data.Weeks[1].EndDate = data.Weeks[1].StartDate.AddDate(0, 0, 1)

	res := generate(t, data, WithMaxLessonsPerDay(1))

	require.True(t, res.Success())
	for _, l := range res.Lessons {
		if l.WeekID == "w2" {
			assert.Less(t, l.Day, 2)
		}
	}
	assert.Equal(t, 2, countBy(res.Lessons, func(l Lesson) string { return l.WeekID })["w2"])
}

func TestEngineGenerateClippedWeekTooShort(t *testing.T) {
	data := scenarioA()
	data.Weeks[1].EndDate = data.Weeks[1].StartDate

	res := generate(t, data, WithMaxLessonsPerDay(1))

	assert.Equal(t, StatusStructural, res.Status)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, DiagnosticNoSlots, res.Conflicts[0].Kind)
	assert.Equal(t, "w2", res.Conflicts[0].WeekID)
	assert.True(t, res.Conflicts[0].Kind.Structural())
	assert.Equal(t, 0, res.Iterations)
}

func TestEngineGenerateNoSuitableRoom(t *testing.T) {
	data := scenarioA()
	data.Groups[0].StudentCount = 60

	res := generate(t, data)

	assert.Equal(t, StatusStructural, res.Status)
	require.NotEmpty(t, res.Conflicts)
	assert.Equal(t, DiagnosticNoRoom, res.Conflicts[0].Kind)
	assert.Equal(t, 0.0, res.Fitness)
}

func TestEngineGenerateDefaultRoomTooSmall(t *testing.T) {
	data := scenarioA()
	data.Rooms = append(data.Rooms, Room{ID: "tiny", Capacity: 10})
	data.Groups[0].DefaultRoomID = "tiny"

	res := generate(t, data)

	require.True(t, res.Success())
	for _, l := range res.Lessons {
		assert.Equal(t, "r1", l.RoomID)
	}
}

func TestEngineGenerateInfeasibleContention(t *testing.T) {
	// One teacher cannot give 36 lessons in 35 weekly slots.
	data := ReferenceData{
		Weeks:       testWeeks(1),
		Teachers:    []Teacher{{ID: "t1", SubjectIDs: []string{"math"}}},
		Rooms:       []Room{{ID: "r1", Capacity: 30}, {ID: "r2", Capacity: 30}},
		Groups:      []Group{{ID: "g1", StudentCount: 20, MaxLessonsPerDay: 7}, {ID: "g2", StudentCount: 20, MaxLessonsPerDay: 7}},
		LessonTypes: []LessonType{lecture},
		Loads: []Load{
			{GroupID: "g1", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 18},
			{GroupID: "g2", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 18},
		},
	}

	res := generate(t, data, WithMaxLessonsPerDay(7), WithMaxIterations(5000))

	assert.False(t, res.Success())
	assert.Equal(t, StatusBudgetExhausted, res.Status)
	assert.Equal(t, 35, res.Placed)
	assert.Equal(t, 36, res.Total)
	assert.Empty(t, CheckConflicts(res.Lessons))
}

func TestEngineGenerateRootExhausted(t *testing.T) {
	data := scenarioA()
	data.Loads[0].HoursPerWeek = 1
	// Every period of the week is blocked for the only teacher.
	for d := 0; d < DaysPerWeek; d++ {
		for tm := 0; tm < SlotsPerDay; tm++ {
			data.Teachers[0].Unavailable = append(data.Teachers[0].Unavailable, DayTime{Day: d, Time: tm})
		}
	}

	res := generate(t, data)

	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Empty(t, res.Lessons)
	require.NotEmpty(t, res.Conflicts)
	assert.Equal(t, DiagnosticFrontier, res.Conflicts[0].Kind)
	assert.Equal(t, 1, res.Conflicts[0].Failures)
}

func TestEngineGenerateRunsOnce(t *testing.T) {
	engine, err := New(scenarioA(), WithSeed(1))
	require.NoError(t, err)

	_, err = engine.Generate(context.Background())
	require.NoError(t, err)
	_, err = engine.Generate(context.Background())
	assert.ErrorIs(t, err, ErrEngineUsed)
}

func TestEngineGenerateCanceled(t *testing.T) {
	engine, err := New(campusData(), WithSeed(1))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.Generate(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, StatusCanceled, res.Status)
	assert.Equal(t, 0, res.Iterations)
}

func TestEngineGenerateDeadline(t *testing.T) {
	engine, err := New(campusData(), WithSeed(1), WithDeadline(time.Nanosecond))
	require.NoError(t, err)

	res, err := engine.Generate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusDeadlineExceeded, res.Status)
}

func TestEngineGenerateSameSeedSameSchedule(t *testing.T) {
	first := generate(t, campusData(), WithSeed(7))
	second := generate(t, campusData(), WithSeed(7))

	assert.Equal(t, first.Lessons, second.Lessons)
}

func TestNewInputErrors(t *testing.T) {
	cases := map[string]struct {
		mutate func(*ReferenceData)
		want   error
	}{
		"no weeks":    {func(d *ReferenceData) { d.Weeks = nil }, ErrNoWeeks},
		"no teachers": {func(d *ReferenceData) { d.Teachers = nil }, ErrNoTeachers},
		"no rooms":    {func(d *ReferenceData) { d.Rooms = nil }, ErrNoRooms},
		"no groups":   {func(d *ReferenceData) { d.Groups = nil }, ErrNoGroups},
		"unknown lesson type": {func(d *ReferenceData) {
			d.Loads = append(d.Loads, Load{GroupID: "g1", SubjectID: "math", LessonTypeID: "workshop", HoursPerWeek: 1})
		}, ErrUnknownReference},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data := scenarioA()
			tc.mutate(&data)
			_, err := New(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var inputErr *InputError
			assert.True(t, errors.As(err, &inputErr))
		})
	}
}
