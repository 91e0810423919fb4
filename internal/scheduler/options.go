package scheduler

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Default run parameters.
const (
	DefaultMaxIterations    = 1000000
	DefaultMaxLessonsPerDay = 5
)

// DefaultTimePreference tries mid-morning periods before early and late ones.
var DefaultTimePreference = []int{1, 2, 0, 3, 4, 5, 6}

// WeekOrder controls the order in which the domain visits weeks.
type WeekOrder int

const (
	// WeekOrderRandom shuffles the weeks for every task.
	WeekOrderRandom WeekOrder = iota
	// WeekOrderLeastLoaded visits the weeks with the fewest lessons of the
	// task's group first.
	WeekOrderLeastLoaded
	// WeekOrderSequential visits weeks in semester order.
	WeekOrderSequential
)

// Perturbation controls the randomisation applied to the ordered task list.
type Perturbation int

const (
	// PerturbTies shuffles tasks that are equally constrained.
	PerturbTies Perturbation = iota
	// PerturbGlobal shuffles the tasks inside consecutive fixed windows of
	// the heuristic order, so no task moves more than perturbWindow-1 places.
	PerturbGlobal
	// PerturbNone keeps the heuristic order with a stable tie break.
	PerturbNone
)

// perturbWindow is the width of the blocks PerturbGlobal shuffles.
const perturbWindow = 8

// progressEvery is how often, in iterations, the engine logs progress.
const progressEvery = 100000

// Options configure one run.
type Options struct {
	MaxIterations         int
	MaxLessonsPerDay      int
	MinDaysBetweenLessons int
	Deadline              time.Duration
	TimePreference        []int
	WeekOrder             WeekOrder
	Perturbation          Perturbation
	Rand                  *rand.Rand
	Logger                *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options used when no Option is supplied.
func DefaultOptions() Options {
	return Options{
		MaxIterations:    DefaultMaxIterations,
		MaxLessonsPerDay: DefaultMaxLessonsPerDay,
		TimePreference:   append([]int(nil), DefaultTimePreference...),
		WeekOrder:        WeekOrderRandom,
		Perturbation:     PerturbTies,
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxLessonsPerDay <= 0 {
		o.MaxLessonsPerDay = DefaultMaxLessonsPerDay
	}
	if o.MaxLessonsPerDay > SlotsPerDay {
		o.MaxLessonsPerDay = SlotsPerDay
	}
	if o.MinDaysBetweenLessons < 0 {
		o.MinDaysBetweenLessons = 0
	}
	o.TimePreference = sanitizeTimes(o.TimePreference)
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// WithMaxIterations bounds the number of search nodes visited.
func WithMaxIterations(n int) Option {
	return func(o *Options) { o.MaxIterations = n }
}

// WithMaxLessonsPerDay bounds the lessons a group may have on one day.
func WithMaxLessonsPerDay(n int) Option {
	return func(o *Options) { o.MaxLessonsPerDay = n }
}

// WithMinDaysBetweenLessons requires a gap of at least n days between two
// occurrences of the same subject for a group. Zero disables the rule.
func WithMinDaysBetweenLessons(n int) Option {
	return func(o *Options) { o.MinDaysBetweenLessons = n }
}

// WithDeadline stops the search once d of wall clock time has elapsed.
func WithDeadline(d time.Duration) Option {
	return func(o *Options) { o.Deadline = d }
}

// WithTimePreference fixes the order in which periods of a day are tried.
// A nil slice shuffles the periods instead.
func WithTimePreference(times []int) Option {
	return func(o *Options) { o.TimePreference = append([]int(nil), times...) }
}

// WithWeekOrder selects how weeks are visited.
func WithWeekOrder(order WeekOrder) Option {
	return func(o *Options) { o.WeekOrder = order }
}

// WithPerturbation selects the task list randomisation.
func WithPerturbation(p Perturbation) Option {
	return func(o *Options) { o.Perturbation = p }
}

// WithRand injects the random source.
func WithRand(r *rand.Rand) Option {
	return func(o *Options) { o.Rand = r }
}

// WithSeed seeds a private random source.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Rand = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// sanitizeTimes drops out of range and repeated periods and appends the
// periods the preference did not mention.
func sanitizeTimes(times []int) []int {
	if times == nil {
		return nil
	}
	seen := make(map[int]bool, SlotsPerDay)
	out := make([]int, 0, SlotsPerDay)
	for _, t := range times {
		if t < 0 || t >= SlotsPerDay || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	for t := 0; t < SlotsPerDay; t++ {
		if !seen[t] {
			out = append(out, t)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
