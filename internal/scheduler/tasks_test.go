package scheduler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTasksMultipliesAndOrders(t *testing.T) {
	data := campusData()
	o := buildOptions([]Option{WithSeed(3), WithPerturbation(PerturbNone)})
	p, err := newProblem(data, o.MaxLessonsPerDay)
	require.NoError(t, err)

	tasks, skipped, err := buildTasks(p, data.Loads, o)

	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, tasks, 63)
	// history is the only subject with a single qualified teacher.
	for _, task := range tasks[:9] {
		assert.Equal(t, "history", task.SubjectID)
	}
	for i := 10; i < len(tasks); i++ {
		prev, cur := tasks[i-1], tasks[i]
		assert.GreaterOrEqual(t, prev.HoursPerWeek, cur.HoursPerWeek, "index %d", i)
	}
	counts := make(map[LessonTask]int)
	for _, task := range tasks {
		counts[task]++
	}
	assert.Equal(t, 6, counts[LessonTask{GroupID: "g1", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 2}])
	assert.Equal(t, 3, counts[LessonTask{GroupID: "g3", SubjectID: "math", LessonTypeID: "lab", HoursPerWeek: 1}])
}

func TestBuildTasksPerturbationKeepsMultiset(t *testing.T) {
	data := campusData()
	base := buildOptions([]Option{WithPerturbation(PerturbNone)})
	p, err := newProblem(data, base.MaxLessonsPerDay)
	require.NoError(t, err)
	want, _, err := buildTasks(p, data.Loads, base)
	require.NoError(t, err)

	for _, mode := range []Perturbation{PerturbTies, PerturbGlobal} {
		got, _, err := buildTasks(p, data.Loads, buildOptions([]Option{WithSeed(11), WithPerturbation(mode)}))
		require.NoError(t, err)
		assert.ElementsMatch(t, want, got)
		if mode == PerturbTies {
			for i := 1; i < len(got); i++ {
				a := rankedTask{task: got[i-1], teachers: len(p.subjectTeachers[got[i-1].SubjectID])}
				b := rankedTask{task: got[i], teachers: len(p.subjectTeachers[got[i].SubjectID])}
				assert.False(t, lessRanked(b, a), "tie shuffle broke ordering at %d", i)
			}
		}
	}
}

func TestPerturbGlobalStaysInsideWindow(t *testing.T) {
	ranked := make([]rankedTask, 5*perturbWindow+3)
	origin := make(map[string]int, len(ranked))
	for i := range ranked {
		id := fmt.Sprintf("s%02d", i)
		ranked[i] = rankedTask{task: LessonTask{GroupID: "g1", SubjectID: id, LessonTypeID: "lecture", HoursPerWeek: 1}, teachers: 1}
		origin[id] = i
	}

	for seed := int64(0); seed < 50; seed++ {
		got := append([]rankedTask(nil), ranked...)
		perturb(got, PerturbGlobal, rand.New(rand.NewSource(seed)))

		for pos, r := range got {
			from := origin[r.task.SubjectID]
			assert.Less(t, absInt(pos-from), perturbWindow, "seed %d moved %s from %d to %d", seed, r.task.SubjectID, from, pos)
			assert.Equal(t, from/perturbWindow, pos/perturbWindow, "seed %d", seed)
		}
	}
}

func TestBuildTasksSkipsUnsatisfiableDeclarations(t *testing.T) {
	data := scenarioA()
	data.Loads = append(data.Loads,
		Load{GroupID: "g1", SubjectID: "latin", LessonTypeID: "lecture", HoursPerWeek: 2},
		Load{GroupID: "ghost", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 2},
		Load{GroupID: "g1", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 0},
	)
	o := buildOptions(nil)
	p, err := newProblem(data, o.MaxLessonsPerDay)
	require.NoError(t, err)

	tasks, skipped, err := buildTasks(p, data.Loads, o)

	require.NoError(t, err)
	assert.Len(t, tasks, 4)
	require.Len(t, skipped, 2)
	assert.Equal(t, DiagnosticNoTeacher, skipped[0].Kind)
	assert.Equal(t, DiagnosticInactiveGroup, skipped[1].Kind)
	assert.Equal(t, -1, skipped[0].TaskIndex)
}

func TestStructuralCheckDailyCapOfGroup(t *testing.T) {
	data := scenarioA()
	data.Groups[0].MaxLessonsPerDay = 1
	data.Loads[0].HoursPerWeek = 6
	o := buildOptions(nil)
	p, err := newProblem(data, o.MaxLessonsPerDay)
	require.NoError(t, err)
	tasks, _, err := buildTasks(p, data.Loads, o)
	require.NoError(t, err)

	diags := structuralCheck(p, tasks)

	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, DiagnosticNoSlots, d.Kind)
		assert.Equal(t, "g1", d.GroupID)
	}
}
