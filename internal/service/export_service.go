package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
	"github.com/noah-isme/semester-scheduler/pkg/export"
)

// Export formats and views.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"

	ExportViewGroup   = "group"
	ExportViewTeacher = "teacher"
	ExportViewRoom    = "room"
)

var dayLabels = [scheduler.DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

type scheduleLessonSource interface {
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Lessons(ctx context.Context, id string, query dto.LessonQuery) ([]models.Lesson, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type subjectReader interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type pdfRenderer interface {
	Render(title string, tables []export.Timetable) ([]byte, error)
}

// ExportFile is a rendered export ready to be sent to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders stored schedules as CSV lists or PDF timetables.
type ExportService struct {
	schedules scheduleLessonSource
	weeks     weekReader
	teachers  teacherReader
	rooms     roomReader
	groups    groupReader
	subjects  subjectReader
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(
	schedules scheduleLessonSource,
	weeks weekReader,
	teachers teacherReader,
	rooms roomReader,
	groups groupReader,
	subjects subjectReader,
	validate *validator.Validate,
	logger *zap.Logger,
	csv csvRenderer,
	pdf pdfRenderer,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		schedules: schedules,
		weeks:     weeks,
		teachers:  teachers,
		rooms:     rooms,
		groups:    groups,
		subjects:  subjects,
		csv:       csv,
		pdf:       pdf,
		validator: validate,
		logger:    logger,
	}
}

// Export renders a schedule. The view picks whose timetable is drawn and ID narrows it to one resource.
func (s *ExportService) Export(ctx context.Context, scheduleID string, query dto.ExportQuery) (*ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export parameters")
	}
	if query.Format == "" {
		query.Format = ExportFormatCSV
	}
	if query.View == "" {
		query.View = ExportViewGroup
	}

	schedule, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	filter := dto.LessonQuery{}
	switch query.View {
	case ExportViewGroup:
		filter.GroupID = query.ID
	case ExportViewTeacher:
		filter.TeacherID = query.ID
	case ExportViewRoom:
		filter.RoomID = query.ID
	}
	lessons, err := s.schedules.Lessons(ctx, scheduleID, filter)
	if err != nil {
		return nil, err
	}
	weeks, err := s.weeks.ListWeeks(ctx, schedule.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weeks")
	}
	names, err := s.loadNames(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load names")
	}

	base := sanitizeFilename(fmt.Sprintf("%s-v%d-%s", schedule.Name, schedule.Version, query.View))
	var file *ExportFile
	switch query.Format {
	case ExportFormatPDF:
		tables := buildTimetables(query.View, weeks, lessons, names)
		if len(tables) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no lessons to export")
		}
		content, err := s.pdf.Render(fmt.Sprintf("%s (version %d)", schedule.Name, schedule.Version), tables)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		file = &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}
	default:
		content, err := s.csv.Render(buildLessonDataset(weeks, lessons, names))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		file = &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Content: content}
	}

	s.logger.Info("schedule exported",
		zap.String("schedule_id", scheduleID),
		zap.String("format", query.Format),
		zap.String("view", query.View),
		zap.Int("lessons", len(lessons)),
	)
	return file, nil
}

// nameBook resolves ids to display names, falling back to the id.
type nameBook struct {
	teachers map[string]string
	rooms    map[string]string
	groups   map[string]string
	subjects map[string]string
}

func (b nameBook) lookup(m map[string]string, id string) string {
	if name, ok := m[id]; ok && name != "" {
		return name
	}
	return id
}

func (s *ExportService) loadNames(ctx context.Context) (nameBook, error) {
	book := nameBook{teachers: map[string]string{}, rooms: map[string]string{}, groups: map[string]string{}, subjects: map[string]string{}}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return book, err
	}
	for _, t := range teachers {
		book.teachers[t.ID] = t.FullName
	}
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return book, err
	}
	for _, r := range rooms {
		book.rooms[r.ID] = r.Name
	}
	groups, err := s.groups.ListActive(ctx)
	if err != nil {
		return book, err
	}
	for _, g := range groups {
		book.groups[g.ID] = g.Name
	}
	if s.subjects == nil {
		return book, nil
	}
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return book, err
	}
	for _, sub := range subjects {
		book.subjects[sub.ID] = sub.Name
	}
	return book, nil
}

func buildLessonDataset(weeks []models.Week, lessons []models.Lesson, names nameBook) export.Dataset {
	weekByID := make(map[string]models.Week, len(weeks))
	for _, w := range weeks {
		weekByID[w.ID] = w
	}
	data := export.Dataset{
		Headers: []string{"week", "date", "day", "period", "group", "subject", "lesson_type", "teacher", "room"},
		Rows:    make([]map[string]string, 0, len(lessons)),
	}
	for _, l := range lessons {
		week := weekByID[l.WeekID]
		row := map[string]string{
			"week":        strconv.Itoa(week.WeekNumber),
			"date":        "",
			"day":         dayLabel(l.DayOfWeek),
			"period":      strconv.Itoa(l.TimeSlot + 1),
			"group":       names.lookup(names.groups, l.GroupID),
			"subject":     names.lookup(names.subjects, l.SubjectID),
			"lesson_type": l.LessonTypeID,
			"teacher":     names.lookup(names.teachers, l.TeacherID),
			"room":        names.lookup(names.rooms, l.RoomID),
		}
		if !week.StartDate.IsZero() {
			row["date"] = week.StartDate.AddDate(0, 0, l.DayOfWeek).Format("2006-01-02")
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// buildTimetables draws one page per resource and week that has lessons.
func buildTimetables(view string, weeks []models.Week, lessons []models.Lesson, names nameBook) []export.Timetable {
	type pageKey struct {
		resource string
		weekID   string
	}
	pages := make(map[pageKey][]models.Lesson)
	var resources []string
	seen := make(map[string]struct{})
	for _, l := range lessons {
		resource := viewResource(view, l)
		pages[pageKey{resource, l.WeekID}] = append(pages[pageKey{resource, l.WeekID}], l)
		if _, ok := seen[resource]; !ok {
			seen[resource] = struct{}{}
			resources = append(resources, resource)
		}
	}
	sort.Strings(resources)
	ordered := append([]models.Week(nil), weeks...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].WeekNumber < ordered[j].WeekNumber })

	rows := make([]string, scheduler.SlotsPerDay)
	for t := range rows {
		rows[t] = strconv.Itoa(t + 1)
	}

	var tables []export.Timetable
	for _, resource := range resources {
		for _, week := range ordered {
			items := pages[pageKey{resource, week.ID}]
			if len(items) == 0 {
				continue
			}
			columns := make([]string, scheduler.DaysPerWeek)
			for d := range columns {
				columns[d] = fmt.Sprintf("%s %s", dayLabels[d], week.StartDate.AddDate(0, 0, d).Format("02.01"))
			}
			cells := make([][]string, scheduler.SlotsPerDay)
			for t := range cells {
				cells[t] = make([]string, scheduler.DaysPerWeek)
			}
			for _, l := range items {
				if l.DayOfWeek < 0 || l.DayOfWeek >= scheduler.DaysPerWeek || l.TimeSlot < 0 || l.TimeSlot >= scheduler.SlotsPerDay {
					continue
				}
				entry := lessonCell(view, l, names)
				if cells[l.TimeSlot][l.DayOfWeek] != "" {
					entry = cells[l.TimeSlot][l.DayOfWeek] + "\n" + entry
				}
				cells[l.TimeSlot][l.DayOfWeek] = entry
			}
			tables = append(tables, export.Timetable{
				Title:   fmt.Sprintf("%s %s, week %d", view, resourceName(view, resource, names), week.WeekNumber),
				Columns: columns,
				Rows:    rows,
				Cells:   cells,
			})
		}
	}
	return tables
}

func viewResource(view string, l models.Lesson) string {
	switch view {
	case ExportViewTeacher:
		return l.TeacherID
	case ExportViewRoom:
		return l.RoomID
	default:
		return l.GroupID
	}
}

func resourceName(view, id string, names nameBook) string {
	switch view {
	case ExportViewTeacher:
		return names.lookup(names.teachers, id)
	case ExportViewRoom:
		return names.lookup(names.rooms, id)
	default:
		return names.lookup(names.groups, id)
	}
}

// lessonCell lists the parts of a lesson the page title does not already show.
func lessonCell(view string, l models.Lesson, names nameBook) string {
	parts := []string{fmt.Sprintf("%s (%s)", names.lookup(names.subjects, l.SubjectID), l.LessonTypeID)}
	if view != ExportViewGroup {
		parts = append(parts, names.lookup(names.groups, l.GroupID))
	}
	if view != ExportViewTeacher {
		parts = append(parts, names.lookup(names.teachers, l.TeacherID))
	}
	if view != ExportViewRoom {
		parts = append(parts, names.lookup(names.rooms, l.RoomID))
	}
	return strings.Join(parts, " / ")
}

func dayLabel(day int) string {
	if day >= 0 && day < len(dayLabels) {
		return dayLabels[day]
	}
	return strconv.Itoa(day)
}

func sanitizeFilename(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '-'
		}
		return -1
	}, raw)
	if cleaned == "" {
		return "schedule"
	}
	return strings.ToLower(cleaned)
}
