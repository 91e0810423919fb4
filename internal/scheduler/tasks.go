package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
)

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind string

const (
	// DiagnosticNoTeacher marks a declaration nobody is qualified to teach.
	DiagnosticNoTeacher DiagnosticKind = "no_qualified_teacher"
	// DiagnosticInactiveGroup marks a declaration of a group outside the run.
	DiagnosticInactiveGroup DiagnosticKind = "inactive_group"
	// DiagnosticNoRoom marks a declaration without any suitable room.
	DiagnosticNoRoom DiagnosticKind = "no_suitable_room"
	// DiagnosticNoSlots marks a group whose weekly demand cannot fit the
	// available days under its daily cap.
	DiagnosticNoSlots DiagnosticKind = "insufficient_slots"
	// DiagnosticFrontier is the task the best attempt could not place.
	DiagnosticFrontier DiagnosticKind = "frontier"
	// DiagnosticContention is the task whose domain was exhausted most often.
	DiagnosticContention DiagnosticKind = "most_backtracked"
)

// Structural reports whether the diagnostic can only be fixed by changing
// the input data.
func (k DiagnosticKind) Structural() bool {
	switch k {
	case DiagnosticNoTeacher, DiagnosticNoRoom, DiagnosticNoSlots, DiagnosticInactiveGroup:
		return true
	}
	return false
}

// Diagnostic explains why demand was skipped or could not be placed.
// TaskIndex is -1 for diagnostics about a declaration rather than a task.
type Diagnostic struct {
	Kind         DiagnosticKind `json:"kind"`
	GroupID      string         `json:"groupId,omitempty"`
	SubjectID    string         `json:"subjectId,omitempty"`
	LessonTypeID string         `json:"lessonTypeId,omitempty"`
	WeekID       string         `json:"weekId,omitempty"`
	TaskIndex    int            `json:"taskIndex"`
	Failures     int            `json:"failures,omitempty"`
	Message      string         `json:"message"`
}

type rankedTask struct {
	task     LessonTask
	teachers int
}

// buildTasks expands the loads into the ordered task list. Declarations that
// can never be satisfied are skipped and reported.
func buildTasks(p *problem, loads []Load, o Options) ([]LessonTask, []Diagnostic, error) {
	weeks := len(p.weeks)
	ranked := make([]rankedTask, 0)
	var skipped []Diagnostic

	for _, load := range loads {
		if load.HoursPerWeek <= 0 {
			continue
		}
		if _, ok := p.groups[load.GroupID]; !ok {
			skipped = append(skipped, Diagnostic{
				Kind:         DiagnosticInactiveGroup,
				GroupID:      load.GroupID,
				SubjectID:    load.SubjectID,
				LessonTypeID: load.LessonTypeID,
				TaskIndex:    -1,
				Message:      fmt.Sprintf("group %s is not active; its %s load was ignored", load.GroupID, load.SubjectID),
			})
			continue
		}
		if _, ok := p.lessonTypes[load.LessonTypeID]; !ok {
			return nil, nil, inputError(ErrUnknownReference, "lesson type %q of group %s", load.LessonTypeID, load.GroupID)
		}
		teachers := len(p.subjectTeachers[load.SubjectID])
		if teachers == 0 {
			skipped = append(skipped, Diagnostic{
				Kind:         DiagnosticNoTeacher,
				GroupID:      load.GroupID,
				SubjectID:    load.SubjectID,
				LessonTypeID: load.LessonTypeID,
				TaskIndex:    -1,
				Message:      fmt.Sprintf("subject %s has no qualified teacher; %d hours/week for group %s were not scheduled", load.SubjectID, load.HoursPerWeek, load.GroupID),
			})
			continue
		}
		task := LessonTask{
			GroupID:      load.GroupID,
			SubjectID:    load.SubjectID,
			LessonTypeID: load.LessonTypeID,
			HoursPerWeek: load.HoursPerWeek,
		}
		for i := 0; i < load.HoursPerWeek*weeks; i++ {
			ranked = append(ranked, rankedTask{task: task, teachers: teachers})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return lessRanked(ranked[i], ranked[j])
	})
	perturb(ranked, o.Perturbation, o.Rand)

	tasks := make([]LessonTask, len(ranked))
	for i, r := range ranked {
		tasks[i] = r.task
	}
	return tasks, skipped, nil
}

// lessRanked orders the most constrained demand first: fewer qualified
// teachers, then more weekly hours.
func lessRanked(a, b rankedTask) bool {
	if a.teachers != b.teachers {
		return a.teachers < b.teachers
	}
	return a.task.HoursPerWeek > b.task.HoursPerWeek
}

func sameRank(a, b rankedTask) bool {
	return a.teachers == b.teachers && a.task.HoursPerWeek == b.task.HoursPerWeek
}

func perturb(ranked []rankedTask, mode Perturbation, rnd *rand.Rand) {
	switch mode {
	case PerturbTies:
		for start := 0; start < len(ranked); {
			end := start + 1
			for end < len(ranked) && sameRank(ranked[start], ranked[end]) {
				end++
			}
			tie := ranked[start:end]
			rnd.Shuffle(len(tie), func(i, j int) { tie[i], tie[j] = tie[j], tie[i] })
			start = end
		}
	case PerturbGlobal:
		for start := 0; start < len(ranked); start += perturbWindow {
			end := start + perturbWindow
			if end > len(ranked) {
				end = len(ranked)
			}
			window := ranked[start:end]
			rnd.Shuffle(len(window), func(i, j int) { window[i], window[j] = window[j], window[i] })
		}
	}
}

// structuralCheck finds demand that fails with an empty schedule: no room
// fits, or a group's weekly hours exceed what its daily cap allows.
func structuralCheck(p *problem, tasks []LessonTask) []Diagnostic {
	var out []Diagnostic
	seen := make(map[LessonTask]struct{})
	weekly := make(map[string]int)
	var groupOrder []string

	for _, t := range tasks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := weekly[t.GroupID]; !ok {
			groupOrder = append(groupOrder, t.GroupID)
		}
		weekly[t.GroupID] += t.HoursPerWeek
		if len(p.roomsFor(t.GroupID, t.LessonTypeID)) == 0 {
			out = append(out, Diagnostic{
				Kind:         DiagnosticNoRoom,
				GroupID:      t.GroupID,
				SubjectID:    t.SubjectID,
				LessonTypeID: t.LessonTypeID,
				TaskIndex:    -1,
				Message:      fmt.Sprintf("no room holds %d students of group %s for lesson type %s", p.groups[t.GroupID].StudentCount, t.GroupID, t.LessonTypeID),
			})
		}
	}

	sort.Strings(groupOrder)
	for _, groupID := range groupOrder {
		limit := p.dailyCap(groupID)
		for i, w := range p.weeks {
			capacity := len(p.weekDays[i]) * limit
			if weekly[groupID] <= capacity {
				continue
			}
			out = append(out, Diagnostic{
				Kind:      DiagnosticNoSlots,
				GroupID:   groupID,
				WeekID:    w.ID,
				TaskIndex: -1,
				Message:   fmt.Sprintf("group %s needs %d lessons in week %d but only %d fit (%d days x %d per day)", groupID, weekly[groupID], w.Number, capacity, len(p.weekDays[i]), limit),
			})
		}
	}
	return out
}
