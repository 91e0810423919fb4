package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/semester-scheduler/internal/scheduler"
	"github.com/noah-isme/semester-scheduler/pkg/export"
	"github.com/noah-isme/semester-scheduler/pkg/storage"
)

// fixture is the YAML document accepted by solve and check. Run settings in
// the file are defaults that command line flags override.
type fixture struct {
	scheduler.ReferenceData `yaml:",inline"`
	Settings                fixtureSettings `yaml:"settings"`
}

type fixtureSettings struct {
	MaxIterations    int    `yaml:"max_iterations"`
	MaxLessonsPerDay int    `yaml:"max_lessons_per_day"`
	MinDaysBetween   int    `yaml:"min_days_between"`
	Seed             *int64 `yaml:"seed"`
	TimePreference   []int  `yaml:"time_preference"`
}

func loadFixture(path string) (*fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i := range f.Weeks {
		if f.Weeks[i].Number == 0 {
			f.Weeks[i].Number = i + 1
		}
	}
	return &f, nil
}

func loadLessons(path string) ([]scheduler.Lesson, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lessons: %w", err)
	}
	var doc struct {
		Lessons []scheduler.Lesson `json:"lessons"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse lessons %s: %w", path, err)
	}
	return doc.Lessons, nil
}

var lessonHeaders = []string{"week", "day", "time_slot", "group", "subject", "lesson_type", "teacher", "room"}

func renderLessons(format string, result *scheduler.Result, weeks []scheduler.Week) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(result, "", "  ")
	case "csv":
		numbers := make(map[string]int, len(weeks))
		for _, w := range weeks {
			numbers[w.ID] = w.Number
		}
		lessons := append([]scheduler.Lesson(nil), result.Lessons...)
		sort.SliceStable(lessons, func(i, j int) bool {
			a, b := lessons[i], lessons[j]
			if numbers[a.WeekID] != numbers[b.WeekID] {
				return numbers[a.WeekID] < numbers[b.WeekID]
			}
			if a.Day != b.Day {
				return a.Day < b.Day
			}
			if a.TimeSlot != b.TimeSlot {
				return a.TimeSlot < b.TimeSlot
			}
			return a.GroupID < b.GroupID
		})
		data := export.Dataset{Headers: lessonHeaders, Rows: make([]map[string]string, 0, len(lessons))}
		for _, l := range lessons {
			data.Rows = append(data.Rows, map[string]string{
				"week":        strconv.Itoa(numbers[l.WeekID]),
				"day":         strconv.Itoa(l.Day),
				"time_slot":   strconv.Itoa(l.TimeSlot),
				"group":       l.GroupID,
				"subject":     l.SubjectID,
				"lesson_type": l.LessonTypeID,
				"teacher":     l.TeacherID,
				"room":        l.RoomID,
			})
		}
		return export.NewCSVExporter().Render(data)
	default:
		return nil, fmt.Errorf("unsupported format %q, use json or csv", format)
	}
}

// writeOutput stores data at path, replacing an existing file atomically.
func writeOutput(path string, data []byte) (string, error) {
	store, err := storage.NewLocalStorage(filepath.Dir(path))
	if err != nil {
		return "", err
	}
	return store.Save(filepath.Base(path), data)
}
