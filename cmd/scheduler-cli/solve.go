package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/semester-scheduler/internal/scheduler"
)

type solveOptions struct {
	input            string
	output           string
	format           string
	seed             int64
	maxIterations    int
	maxLessonsPerDay int
	minDays          int
	timeout          time.Duration
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Generate a schedule for the fixture and print or write the lessons",
		Example: `  scheduler-cli solve --input semester.yaml --seed 42
  scheduler-cli solve --input semester.yaml --format csv --out lessons.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSolve(ctx, cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "YAML fixture with weeks, teachers, rooms, groups, lesson types and loads")
	flags.StringVarP(&opts.output, "out", "o", "", "write lessons to this file instead of stdout")
	flags.StringVarP(&opts.format, "format", "f", "json", "output format: json or csv")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed, fixed seeds reproduce a run")
	flags.IntVar(&opts.maxIterations, "max-iterations", 0, "search node budget (default from fixture or engine)")
	flags.IntVar(&opts.maxLessonsPerDay, "max-lessons-per-day", 0, "daily lesson cap per group")
	flags.IntVar(&opts.minDays, "min-days", 0, "minimum days between lessons of one subject")
	flags.DurationVar(&opts.timeout, "timeout", 0, "wall clock limit of the search, 0 for none")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runSolve(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *solveOptions) error {
	f, err := loadFixture(opts.input)
	if err != nil {
		return err
	}

	engine, err := scheduler.New(f.ReferenceData, solveEngineOptions(cmd, root, f.Settings, opts)...)
	if err != nil {
		return err
	}

	result, err := engine.Generate(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	out, renderErr := renderLessons(opts.format, result, f.Weeks)
	if renderErr != nil {
		return renderErr
	}

	if opts.output == "" {
		if _, err := cmd.OutOrStdout().Write(out); err != nil {
			return err
		}
		if opts.format == "json" {
			fmt.Fprintln(cmd.OutOrStdout())
		}
	} else {
		path, err := writeOutput(opts.output, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "lessons written to %s\n", path)
	}
	printSummary(cmd.ErrOrStderr(), result)

	if !result.Success() {
		return fmt.Errorf("schedule incomplete: %s", result.Status)
	}
	return nil
}

func solveEngineOptions(cmd *cobra.Command, root *rootOptions, settings fixtureSettings, opts *solveOptions) []scheduler.Option {
	flags := cmd.Flags()
	out := []scheduler.Option{scheduler.WithLogger(root.logger.Named("scheduler"))}

	maxIterations := settings.MaxIterations
	if flags.Changed("max-iterations") {
		maxIterations = opts.maxIterations
	}
	if maxIterations > 0 {
		out = append(out, scheduler.WithMaxIterations(maxIterations))
	}

	perDay := settings.MaxLessonsPerDay
	if flags.Changed("max-lessons-per-day") {
		perDay = opts.maxLessonsPerDay
	}
	if perDay > 0 {
		out = append(out, scheduler.WithMaxLessonsPerDay(perDay))
	}

	minDays := settings.MinDaysBetween
	if flags.Changed("min-days") {
		minDays = opts.minDays
	}
	out = append(out, scheduler.WithMinDaysBetweenLessons(minDays))

	switch {
	case flags.Changed("seed"):
		out = append(out, scheduler.WithSeed(opts.seed))
	case settings.Seed != nil:
		out = append(out, scheduler.WithSeed(*settings.Seed))
	}
	if len(settings.TimePreference) > 0 {
		out = append(out, scheduler.WithTimePreference(settings.TimePreference))
	}
	if opts.timeout > 0 {
		out = append(out, scheduler.WithDeadline(opts.timeout))
	}
	return out
}

func printSummary(w io.Writer, result *scheduler.Result) {
	fmt.Fprintf(w, "status: %s\nplaced: %d/%d\nfitness: %.3f\niterations: %d\nduration: %s\n",
		result.Status, result.Placed, result.Total, result.Fitness, result.Iterations, result.Duration.Round(time.Millisecond))
	for _, d := range result.Unschedulable {
		fmt.Fprintf(w, "skipped: %s\n", d.Message)
	}
	for _, d := range result.Conflicts {
		fmt.Fprintf(w, "diagnostic: [%s] %s\n", d.Kind, d.Message)
	}
}
