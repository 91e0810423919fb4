package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// MethodCSP names the backtracking engine in results.
const MethodCSP = "csp"

// Status is the outcome of a run.
type Status string

const (
	StatusSolved           Status = "solved"
	StatusBudgetExhausted  Status = "budget_exhausted"
	StatusDeadlineExceeded Status = "deadline_exceeded"
	StatusCanceled         Status = "canceled"
	StatusInfeasible       Status = "infeasible"
	StatusStructural       Status = "structural"
)

// Result is the report of one Generate call. On failure Lessons holds the
// deepest partial assignment reached.
type Result struct {
	Lessons       []Lesson      `json:"lessons"`
	Fitness       float64       `json:"fitness"`
	Status        Status        `json:"status"`
	Conflicts     []Diagnostic  `json:"conflicts"`
	Unschedulable []Diagnostic  `json:"unschedulable,omitempty"`
	Iterations    int           `json:"iterations"`
	Duration      time.Duration `json:"duration"`
	Placed        int           `json:"placed"`
	Total         int           `json:"total"`
	Method        string        `json:"method"`
}

// Success reports whether every task was placed.
func (r *Result) Success() bool {
	return r != nil && r.Status == StatusSolved
}

// Engine runs one backtracking search over fixed reference data. An engine
// is single use; build a new one for every run.
type Engine struct {
	p       *problem
	opts    Options
	tasks   []LessonTask
	skipped []Diagnostic
	used    atomic.Bool
}

// New indexes the reference data and builds the ordered task list. Input
// data errors are returned here, before any search.
func New(data ReferenceData, opts ...Option) (*Engine, error) {
	o := buildOptions(opts)
	p, err := newProblem(data, o.MaxLessonsPerDay)
	if err != nil {
		return nil, err
	}
	tasks, skipped, err := buildTasks(p, data.Loads, o)
	if err != nil {
		return nil, err
	}
	return &Engine{p: p, opts: o, tasks: tasks, skipped: skipped}, nil
}

// Tasks returns a copy of the ordered task list.
func (e *Engine) Tasks() []LessonTask {
	return append([]LessonTask(nil), e.tasks...)
}

// Skipped returns the declarations left out of the task list.
func (e *Engine) Skipped() []Diagnostic {
	return append([]Diagnostic(nil), e.skipped...)
}

// Generate searches for a complete placement of every task. Running out of
// iterations or time is reported through Result.Status, not as an error.
// When ctx is canceled the partial result is returned together with the
// context error.
func (e *Engine) Generate(ctx context.Context) (*Result, error) {
	if !e.used.CompareAndSwap(false, true) {
		return nil, ErrEngineUsed
	}
	started := time.Now()
	logger := e.opts.Logger.With(zap.String("method", MethodCSP), zap.Int("tasks", len(e.tasks)))

	res := &Result{
		Lessons:       []Lesson{},
		Conflicts:     []Diagnostic{},
		Unschedulable: e.Skipped(),
		Total:         len(e.tasks),
		Method:        MethodCSP,
	}

	if structural := structuralCheck(e.p, e.tasks); len(structural) > 0 {
		res.Status = StatusStructural
		res.Conflicts = structural
		res.Duration = time.Since(started)
		logger.Warn("schedule input is structurally infeasible", zap.Int("diagnostics", len(structural)))
		return res, nil
	}

	s := &search{
		p:        e.p,
		o:        e.opts,
		tasks:    e.tasks,
		st:       newState(len(e.tasks)),
		failures: make([]int, len(e.tasks)),
		started:  started,
		logger:   logger,
	}
	status, ctxErr := s.run(ctx)

	res.Status = status
	res.Iterations = s.iterations
	res.Duration = time.Since(started)
	if status == StatusSolved {
		res.Lessons = s.st.lessons()
		res.Placed = len(res.Lessons)
		res.Fitness = 1.0
		if conflicts := CheckConflicts(res.Lessons); len(conflicts) > 0 {
			return nil, fmt.Errorf("scheduler produced %d conflicting placements", len(conflicts))
		}
		logger.Info("schedule generated", zap.Int("iterations", s.iterations), zap.Duration("duration", res.Duration))
		return res, nil
	}

	res.Lessons = s.best
	res.Placed = len(s.best)
	res.Fitness = float64(len(s.best)) / float64(len(e.tasks))
	res.Conflicts = s.diagnostics()
	logger.Warn("schedule incomplete",
		zap.String("status", string(status)),
		zap.Int("placed", res.Placed),
		zap.Int("iterations", s.iterations),
		zap.Duration("duration", res.Duration),
	)
	return res, ctxErr
}

// pollMask sets how often, in iterations, the context and deadline are read.
const pollMask = 1023

// search is the mutable side of one run.
type search struct {
	p     *problem
	o     Options
	tasks []LessonTask
	st    *state

	iterations int
	best       []Lesson
	failures   []int
	started    time.Time
	logger     *zap.Logger
}

// run simulates recursive chronological backtracking with an explicit stack
// of candidate iterators. stack[i] enumerates task i; tasks [0, len-1) are
// committed in the state.
func (s *search) run(ctx context.Context) (Status, error) {
	n := len(s.tasks)
	stack := make([]*candidateIterator, 0, n)
	s.best = []Lesson{}

	for {
		i := s.st.depth()
		if i == n {
			return StatusSolved, nil
		}
		if s.iterations >= s.o.MaxIterations {
			return StatusBudgetExhausted, nil
		}
		if s.iterations&pollMask == 0 {
			if err := ctx.Err(); err != nil {
				return StatusCanceled, err
			}
			if s.o.Deadline > 0 && time.Since(s.started) > s.o.Deadline {
				return StatusDeadlineExceeded, nil
			}
		}
		s.iterations++
		if s.iterations%progressEvery == 0 {
			s.logger.Debug("search progress", zap.Int("iterations", s.iterations), zap.Int("depth", i), zap.Int("best", len(s.best)))
		}

		stack = append(stack, s.newCandidateIterator(s.tasks[i]))
		for {
			top := stack[len(stack)-1]
			if c, ok := top.Next(); ok {
				s.st.assign(Assignment{
					Task:      top.task,
					Slot:      c.Slot,
					TeacherID: c.TeacherID,
					RoomID:    c.RoomID,
					weekIndex: c.weekIndex,
					dayIndex:  flatDay(c.weekIndex, c.Slot.Day),
				})
				if s.st.depth() > len(s.best) {
					s.best = s.st.lessons()
				}
				break
			}
			s.failures[len(stack)-1]++
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return StatusInfeasible, nil
			}
			s.st.unassign()
		}
	}
}

// diagnostics explains a failed run: the first task the best attempt could
// not place and the task whose domain ran dry most often.
func (s *search) diagnostics() []Diagnostic {
	var out []Diagnostic
	if frontier := len(s.best); frontier < len(s.tasks) {
		t := s.tasks[frontier]
		out = append(out, Diagnostic{
			Kind:         DiagnosticFrontier,
			GroupID:      t.GroupID,
			SubjectID:    t.SubjectID,
			LessonTypeID: t.LessonTypeID,
			TaskIndex:    frontier,
			Failures:     s.failures[frontier],
			Message:      fmt.Sprintf("best attempt placed %d of %d lessons; group %s could not fit subject %s (%s)", len(s.best), len(s.tasks), t.GroupID, t.SubjectID, t.LessonTypeID),
		})
	}

	worst := -1
	for i, f := range s.failures {
		if f > 0 && (worst < 0 || f >= s.failures[worst]) {
			worst = i
		}
	}
	if worst >= 0 && worst != len(s.best) {
		t := s.tasks[worst]
		out = append(out, Diagnostic{
			Kind:         DiagnosticContention,
			GroupID:      t.GroupID,
			SubjectID:    t.SubjectID,
			LessonTypeID: t.LessonTypeID,
			TaskIndex:    worst,
			Failures:     s.failures[worst],
			Message:      fmt.Sprintf("group %s subject %s (%s) ran out of teacher, room or slot %d times", t.GroupID, t.SubjectID, t.LessonTypeID, s.failures[worst]),
		})
	}
	return out
}
