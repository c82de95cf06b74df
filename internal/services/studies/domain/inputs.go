package domain

import (
	"strings"

	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// NewSchedule is one weekly slot submitted with a new discipline.
type NewSchedule struct {
	DayOfWeek string `json:"day_of_week" jsonschema:"MONDAY through SUNDAY" validate:"required,weekday"`
	StartTime string `json:"start_time" jsonschema:"class start, HH:MM" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" jsonschema:"class end, HH:MM, after start" validate:"required,datetime=15:04"`
}

// NewDiscipline is the input for creating a discipline with its schedules.
type NewDiscipline struct {
	Name      string        `json:"name" jsonschema:"discipline name" validate:"notblank,max=200"`
	Location  string        `json:"location,omitempty" validate:"max=200"`
	Professor string        `json:"professor,omitempty" validate:"max=200"`
	ImageRef  string        `json:"image_ref,omitempty" validate:"max=2048"`
	Schedules []NewSchedule `json:"schedules,omitempty" validate:"dive"`
}

// Normalize trims every field and canonicalizes weekdays and clock times.
func (d NewDiscipline) Normalize() NewDiscipline {
	out := NewDiscipline{
		Name:      cleanString(d.Name),
		Location:  cleanString(d.Location),
		Professor: cleanString(d.Professor),
		ImageRef:  cleanString(d.ImageRef),
	}
	for _, schedule := range d.Schedules {
		out.Schedules = append(out.Schedules, schedule.normalize())
	}
	return out
}

func (s NewSchedule) normalize() NewSchedule {
	return NewSchedule{
		DayOfWeek: strings.ToUpper(cleanString(s.DayOfWeek)),
		StartTime: canonicalClock(s.StartTime),
		EndTime:   canonicalClock(s.EndTime),
	}
}

func (s NewSchedule) record(disciplineID int64) storage.Schedule {
	return storage.Schedule{
		DisciplineID: disciplineID,
		DayOfWeek:    storage.Weekday(s.DayOfWeek),
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
	}
}

// Records converts a normalized input into store records. Schedule
// discipline ids are left zero for the store to stamp.
func (d NewDiscipline) Records() (storage.Discipline, []storage.Schedule) {
	discipline := storage.Discipline{
		Name:      d.Name,
		Location:  d.Location,
		Professor: d.Professor,
		ImageRef:  d.ImageRef,
	}
	schedules := make([]storage.Schedule, 0, len(d.Schedules))
	for _, schedule := range d.Schedules {
		schedules = append(schedules, schedule.record(0))
	}
	return discipline, schedules
}

// NewSchedules adds weekly slots to an existing discipline.
type NewSchedules struct {
	Schedules []NewSchedule `json:"schedules" validate:"min=1,dive"`
}

// Normalize canonicalizes every slot.
func (s NewSchedules) Normalize() NewSchedules {
	out := NewSchedules{Schedules: make([]NewSchedule, 0, len(s.Schedules))}
	for _, schedule := range s.Schedules {
		out.Schedules = append(out.Schedules, schedule.normalize())
	}
	return out
}

// Records stamps disciplineID on every slot.
func (s NewSchedules) Records(disciplineID int64) []storage.Schedule {
	schedules := make([]storage.Schedule, 0, len(s.Schedules))
	for _, schedule := range s.Schedules {
		schedules = append(schedules, schedule.record(disciplineID))
	}
	return schedules
}

// NewTask is the input for creating or editing a task. Dates are ISO
// YYYY-MM-DD; FormatDueDate and ParseDueDate convert the display form.
type NewTask struct {
	DisciplineID int64  `json:"discipline_id,omitempty" jsonschema:"owning discipline, 0 for none" validate:"gte=0"`
	Name         string `json:"name" validate:"notblank,max=200"`
	Description  string `json:"description,omitempty" validate:"max=4000"`
	DueDate      string `json:"due_date,omitempty" jsonschema:"YYYY-MM-DD" validate:"omitempty,datetime=2006-01-02"`
	DueTime      string `json:"due_time,omitempty" jsonschema:"HH:MM" validate:"omitempty,datetime=15:04"`
	IsCompleted  bool   `json:"is_completed,omitempty"`
}

// Normalize trims every field and canonicalizes the due time.
func (t NewTask) Normalize() NewTask {
	t.Name = cleanString(t.Name)
	t.Description = cleanString(t.Description)
	t.DueDate = cleanString(t.DueDate)
	t.DueTime = canonicalClock(t.DueTime)
	return t
}

// Record converts a normalized input into a store record.
func (t NewTask) Record() storage.Task {
	return storage.Task{
		DisciplineID: t.DisciplineID,
		Name:         t.Name,
		Description:  t.Description,
		DueDate:      t.DueDate,
		DueTime:      t.DueTime,
		IsCompleted:  t.IsCompleted,
	}
}

// NewMaterialLink is the input for attaching a link to a discipline.
type NewMaterialLink struct {
	URL         string `json:"url" validate:"notblank,max=2048"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// Normalize trims both fields; a blank description becomes empty.
func (l NewMaterialLink) Normalize() NewMaterialLink {
	return NewMaterialLink{URL: cleanString(l.URL), Description: cleanString(l.Description)}
}
