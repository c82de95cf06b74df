package mcpserver

import (
	"github.com/louisbranch/studies/internal/services/studies/agenda"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// EmptyInput is accepted by tools that take no arguments.
type EmptyInput struct{}

// IDInput selects a record by id.
type IDInput struct {
	ID int64 `json:"id" jsonschema:"record identifier"`
}

// DisciplineListResult lists disciplines with their weekly schedules.
type DisciplineListResult struct {
	Disciplines []storage.DisciplineWithSchedules `json:"disciplines"`
}

// CreatedResult returns the id of a new record.
type CreatedResult struct {
	ID int64 `json:"id" jsonschema:"new record identifier"`
}

// DeletedResult reports whether a delete ran.
type DeletedResult struct {
	Deleted bool `json:"deleted"`
}

// UpdatedResult reports whether an update ran.
type UpdatedResult struct {
	Updated bool `json:"updated"`
}

// AddedResult reports whether an add ran. Added is false when no
// discipline is selected.
type AddedResult struct {
	Added bool `json:"added"`
}

// DisciplineUpdateInput replaces the fields of a discipline.
type DisciplineUpdateInput struct {
	ID        int64  `json:"id" jsonschema:"discipline identifier"`
	Name      string `json:"name" jsonschema:"discipline name"`
	Location  string `json:"location,omitempty"`
	Professor string `json:"professor,omitempty"`
	ImageRef  string `json:"image_ref,omitempty"`
}

// MaterialLinkUpdateInput replaces the address and label of a link.
type MaterialLinkUpdateInput struct {
	ID          int64  `json:"id" jsonschema:"material link identifier"`
	URL         string `json:"url" jsonschema:"link address"`
	Description string `json:"description,omitempty" jsonschema:"optional label"`
}

// MaterialLinkAddInput attaches a link to the selected discipline.
type MaterialLinkAddInput struct {
	URL         string `json:"url" jsonschema:"link address"`
	Description string `json:"description,omitempty" jsonschema:"optional label"`
}

// MaterialLinkAddResult reports the new link. Added is false when no
// discipline is selected.
type MaterialLinkAddResult struct {
	ID    int64 `json:"id,omitempty"`
	Added bool  `json:"added"`
}

// TaskView is a task with its display fields resolved.
type TaskView struct {
	Task           storage.Task `json:"task"`
	DisciplineName string       `json:"discipline_name,omitempty"`
	DueDisplay     string       `json:"due_display,omitempty" jsonschema:"due date as dd/MM/yyyy"`
}

// TaskListResult lists tasks in due order.
type TaskListResult struct {
	Tasks []TaskView `json:"tasks"`
}

// TaskInput creates or edits a task.
type TaskInput struct {
	DisciplineID int64  `json:"discipline_id,omitempty" jsonschema:"owning discipline, 0 for none"`
	Name         string `json:"name" jsonschema:"task name"`
	Description  string `json:"description,omitempty"`
	DueDate      string `json:"due_date,omitempty" jsonschema:"dd/MM/yyyy or YYYY-MM-DD"`
	DueTime      string `json:"due_time,omitempty" jsonschema:"HH:MM"`
	IsCompleted  bool   `json:"is_completed,omitempty"`
}

// TaskUpdateInput replaces every field of an existing task.
type TaskUpdateInput struct {
	ID           int64  `json:"id" jsonschema:"task identifier"`
	DisciplineID int64  `json:"discipline_id,omitempty" jsonschema:"owning discipline, 0 for none"`
	Name         string `json:"name" jsonschema:"task name"`
	Description  string `json:"description,omitempty"`
	DueDate      string `json:"due_date,omitempty" jsonschema:"dd/MM/yyyy or YYYY-MM-DD"`
	DueTime      string `json:"due_time,omitempty" jsonschema:"HH:MM"`
	IsCompleted  bool   `json:"is_completed,omitempty"`
}

// TaskCompletionInput sets the completion flag of a task.
type TaskCompletionInput struct {
	ID        int64 `json:"id" jsonschema:"task identifier"`
	Completed bool  `json:"completed"`
}

// TaskResult returns one task.
type TaskResult struct {
	Task storage.Task `json:"task"`
}

// AgendaDayInput picks the agenda date.
type AgendaDayInput struct {
	Date string `json:"date,omitempty" jsonschema:"dd/MM/yyyy or YYYY-MM-DD, today when empty"`
}

// AgendaDayResult is the agenda with its localized rendering.
type AgendaDayResult struct {
	Day     agenda.Day `json:"day"`
	Summary string     `json:"summary"`
	Lines   []string   `json:"lines"`
}
