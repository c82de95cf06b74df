// Package agenda computes the study plan for a calendar day: the classes
// scheduled on its weekday, the tasks due on it and the pending tasks that
// are already late.
package agenda

import (
	"sort"
	"time"

	"github.com/louisbranch/studies/internal/platform/i18n/catalog"
	"github.com/louisbranch/studies/internal/services/studies/domain"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// Class is one scheduled slot on the agenda day.
type Class struct {
	DisciplineID   int64  `json:"discipline_id"`
	DisciplineName string `json:"discipline_name"`
	Location       string `json:"location,omitempty"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// Day is the agenda of one date. Slices are never nil.
type Day struct {
	Date    string          `json:"date"`
	Weekday storage.Weekday `json:"weekday"`
	Classes []Class         `json:"classes"`
	Due     []storage.Task  `json:"due"`
	Overdue []storage.Task  `json:"overdue"`
}

// Build computes the agenda for the calendar day of date, in date's
// location. Tasks due on the day are listed whether or not they are
// completed; overdue tasks are pending tasks due before the day starts.
func Build(date time.Time, disciplines []storage.DisciplineWithSchedules, tasks []storage.Task) Day {
	loc := date.Location()
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	day := Day{
		Date:    domain.DueDateOf(start),
		Weekday: storage.WeekdayOf(start.Weekday()),
		Classes: []Class{},
		Due:     []storage.Task{},
		Overdue: []storage.Task{},
	}

	for _, entry := range disciplines {
		for _, schedule := range entry.Schedules {
			if schedule.DayOfWeek != day.Weekday {
				continue
			}
			day.Classes = append(day.Classes, Class{
				DisciplineID:   entry.Discipline.ID,
				DisciplineName: entry.Discipline.Name,
				Location:       entry.Discipline.Location,
				StartTime:      schedule.StartTime,
				EndTime:        schedule.EndTime,
			})
		}
	}
	sort.SliceStable(day.Classes, func(i, j int) bool {
		if day.Classes[i].StartTime != day.Classes[j].StartTime {
			return day.Classes[i].StartTime < day.Classes[j].StartTime
		}
		return day.Classes[i].DisciplineName < day.Classes[j].DisciplineName
	})

	for _, task := range tasks {
		if task.DueDate == day.Date {
			day.Due = append(day.Due, task)
			continue
		}
		if task.IsCompleted {
			continue
		}
		if due, ok := task.Due(loc); ok && due.Before(start) {
			day.Overdue = append(day.Overdue, task)
		}
	}
	return day
}

// Summary renders a one-line localized digest of the day.
func (d Day) Summary(locale string) string {
	return catalog.Message(locale, "agenda.summary", domain.FormatDueDate(d.Date), len(d.Classes), len(d.Due), len(d.Overdue))
}

// Lines renders the classes and due tasks as localized log lines.
func (d Day) Lines(locale string) []string {
	lines := make([]string, 0, len(d.Classes)+len(d.Due))
	for _, class := range d.Classes {
		line := catalog.Message(locale, "agenda.class", class.StartTime, class.EndTime, class.DisciplineName)
		if class.Location != "" {
			line += " (" + class.Location + ")"
		}
		lines = append(lines, line)
	}
	for _, task := range d.Due {
		when := domain.FormatDueDate(task.DueDate)
		if task.DueTime != "" {
			when += " " + task.DueTime
		}
		lines = append(lines, task.Name+", "+catalog.Message(locale, "agenda.task", when))
	}
	return lines
}
