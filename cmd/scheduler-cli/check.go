package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/semester-scheduler/internal/scheduler"
)

type checkOptions struct {
	input            string
	lessons          string
	maxLessonsPerDay int
	minDays          int
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report collisions and rule violations in an existing lesson list",
		Long: `check reads the lessons written by "solve --format json" and reports
group, teacher and room collisions together with the rule violations found
against the fixture: room fit, teacher qualification, availability and weekly
load, daily caps, weekly hours and spacing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "YAML fixture the lessons were generated from")
	flags.StringVarP(&opts.lessons, "lessons", "l", "", "JSON file with a top level lessons array")
	flags.IntVar(&opts.maxLessonsPerDay, "max-lessons-per-day", 0, "daily lesson cap per group")
	flags.IntVar(&opts.minDays, "min-days", 0, "minimum days between lessons of one subject")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("lessons")
	return cmd
}

func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions) error {
	f, err := loadFixture(opts.input)
	if err != nil {
		return err
	}
	lessons, err := loadLessons(opts.lessons)
	if err != nil {
		return err
	}

	options := []scheduler.Option{scheduler.WithLogger(root.logger.Named("verify"))}
	perDay := f.Settings.MaxLessonsPerDay
	if cmd.Flags().Changed("max-lessons-per-day") {
		perDay = opts.maxLessonsPerDay
	}
	if perDay > 0 {
		options = append(options, scheduler.WithMaxLessonsPerDay(perDay))
	}
	minDays := f.Settings.MinDaysBetween
	if cmd.Flags().Changed("min-days") {
		minDays = opts.minDays
	}
	options = append(options, scheduler.WithMinDaysBetweenLessons(minDays))

	collisions := scheduler.CheckConflicts(lessons)
	violations, err := scheduler.Verify(f.ReferenceData, lessons, options...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	broken := countViolations(violations)
	fmt.Fprintf(out, "lessons: %d\ncollisions: %d\nviolations: %d\n", len(lessons), len(collisions), broken)
	for _, c := range collisions {
		fmt.Fprintf(out, "collision: [%s] %s\n", c.Dimension, c.Message)
	}
	for _, c := range violations {
		if isCollision(c.Dimension) {
			continue
		}
		fmt.Fprintf(out, "violation: [%s] %s\n", c.Dimension, c.Message)
	}

	if total := len(collisions) + broken; total > 0 {
		return fmt.Errorf("schedule has %d conflicts", total)
	}
	return nil
}

func isCollision(dimension string) bool {
	switch dimension {
	case scheduler.DimensionGroup, scheduler.DimensionTeacher, scheduler.DimensionRoom:
		return true
	}
	return false
}

func countViolations(conflicts []scheduler.Conflict) int {
	n := 0
	for _, c := range conflicts {
		if !isCollision(c.Dimension) {
			n++
		}
	}
	return n
}
