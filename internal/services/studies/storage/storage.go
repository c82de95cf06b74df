// Package storage defines the persisted records of the studies service and
// the store contract the rest of the service depends on.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/services/studies/live"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrInvalidReference indicates a write referencing a missing discipline.
	ErrInvalidReference = apperrors.New(apperrors.CodeInvalidReference, "referenced discipline does not exist")
)

// Tables notified on the change feed.
const (
	TableDisciplines   live.Table = "disciplines"
	TableSchedules     live.Table = "schedules"
	TableTasks         live.Table = "tasks"
	TableMaterialLinks live.Table = "material_links"
)

// Layouts used for persisted dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Weekday identifies a day of the week in schedules.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

// Weekdays lists every weekday, Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether w is one of the seven weekdays.
func (w Weekday) Valid() bool {
	return w.Index() > 0
}

// Index returns 1 for Monday through 7 for Sunday, or 0 for unknown values.
func (w Weekday) Index() int {
	for i, day := range Weekdays {
		if day == w {
			return i + 1
		}
	}
	return 0
}

// WeekdayOf converts a time.Weekday.
func WeekdayOf(day time.Weekday) Weekday {
	if day == time.Sunday {
		return Sunday
	}
	return Weekdays[int(day)-1]
}

// Discipline is a course the user attends.
type Discipline struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	Professor string `json:"professor,omitempty"`
	ImageRef  string `json:"image_ref,omitempty"`
}

// Schedule is one weekly class slot of a discipline. Times are HH:MM.
type Schedule struct {
	ID           int64   `json:"id"`
	DisciplineID int64   `json:"discipline_id"`
	DayOfWeek    Weekday `json:"day_of_week"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
}

// DisciplineWithSchedules joins a discipline with its schedules.
type DisciplineWithSchedules struct {
	Discipline Discipline `json:"discipline"`
	Schedules  []Schedule `json:"schedules"`
}

// Task is a to-do item, optionally tied to a discipline. A zero
// DisciplineID means the task is unassigned.
type Task struct {
	ID           int64  `json:"id"`
	DisciplineID int64  `json:"discipline_id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	DueTime      string `json:"due_time,omitempty"`
	IsCompleted  bool   `json:"is_completed"`
}

// Due returns the due instant in loc. ok is false for undated tasks; an
// untimed task is due at the end of its day.
func (t Task) Due(loc *time.Location) (due time.Time, ok bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation(DateLayout, t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	if t.DueTime == "" {
		return date.Add(24*time.Hour - time.Nanosecond), true
	}
	clock, err := time.Parse(TimeLayout, t.DueTime)
	if err != nil {
		return time.Time{}, false
	}
	return date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), true
}

// MaterialLink is a reference URL attached to a discipline.
type MaterialLink struct {
	ID           int64  `json:"id"`
	DisciplineID int64  `json:"discipline_id"`
	URL          string `json:"url"`
	Description  string `json:"description,omitempty"`
}

// DisciplineStore persists disciplines and their schedules.
type DisciplineStore interface {
	InsertDiscipline(ctx context.Context, discipline Discipline) (int64, error)
	InsertSchedules(ctx context.Context, schedules []Schedule) error
	InsertDisciplineWithSchedules(ctx context.Context, discipline Discipline, schedules []Schedule) (int64, error)
	UpdateDiscipline(ctx context.Context, discipline Discipline) error
	DeleteDiscipline(ctx context.Context, discipline Discipline) error
	ListDisciplines(ctx context.Context) ([]Discipline, error)
	GetDisciplineWithSchedules(ctx context.Context, id int64) (DisciplineWithSchedules, error)
	ListDisciplinesWithSchedules(ctx context.Context) ([]DisciplineWithSchedules, error)
}

// TaskStore persists tasks.
type TaskStore interface {
	InsertTask(ctx context.Context, task Task) (int64, error)
	UpdateTask(ctx context.Context, task Task) error
	DeleteTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	ListTasksByDiscipline(ctx context.Context, disciplineID int64) ([]Task, error)
	ListPendingTasks(ctx context.Context) ([]Task, error)
}

// MaterialLinkStore persists material links.
type MaterialLinkStore interface {
	InsertMaterialLink(ctx context.Context, link MaterialLink) (int64, error)
	UpdateMaterialLink(ctx context.Context, link MaterialLink) error
	DeleteMaterialLink(ctx context.Context, link MaterialLink) error
	GetMaterialLink(ctx context.Context, id int64) (MaterialLink, error)
	ListMaterialLinksByDiscipline(ctx context.Context, disciplineID int64) ([]MaterialLink, error)
}

// Store is the full entity store with change notification.
type Store interface {
	DisciplineStore
	TaskStore
	MaterialLinkStore

	// Changes returns the feed published after every committed write.
	Changes() *live.Feed
	Close() error
}
