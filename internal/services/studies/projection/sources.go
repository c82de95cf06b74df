package projection

import (
	"context"

	"github.com/louisbranch/studies/internal/services/studies/live"
	"github.com/louisbranch/studies/internal/services/studies/motd"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// DisciplineSource is the repository surface used by Disciplines.
type DisciplineSource interface {
	AllDisciplines(ctx context.Context) <-chan live.Snapshot[[]storage.Discipline]
	AllDisciplinesWithSchedules(ctx context.Context) <-chan live.Snapshot[[]storage.DisciplineWithSchedules]
	DisciplineWithSchedules(ctx context.Context, id int64) <-chan live.Snapshot[storage.DisciplineWithSchedules]
	TasksByDiscipline(ctx context.Context, disciplineID int64) <-chan live.Snapshot[[]storage.Task]
	MaterialLinksByDiscipline(ctx context.Context, disciplineID int64) <-chan live.Snapshot[[]storage.MaterialLink]
	MessageOfTheDay(ctx context.Context) <-chan live.Snapshot[motd.Message]

	InsertDisciplineWithSchedules(ctx context.Context, discipline storage.Discipline, schedules []storage.Schedule) (int64, error)
	InsertSchedules(ctx context.Context, schedules []storage.Schedule) error
	UpdateDiscipline(ctx context.Context, discipline storage.Discipline) error
	DeleteDiscipline(ctx context.Context, discipline storage.Discipline) error
	InsertMaterialLink(ctx context.Context, link storage.MaterialLink) (int64, error)
	UpdateMaterialLink(ctx context.Context, link storage.MaterialLink) error
	DeleteMaterialLink(ctx context.Context, link storage.MaterialLink) error
}

// TaskSource is the repository surface used by Tasks.
type TaskSource interface {
	AllDisciplines(ctx context.Context) <-chan live.Snapshot[[]storage.Discipline]
	AllTasks(ctx context.Context) <-chan live.Snapshot[[]storage.Task]
	PendingTasks(ctx context.Context) <-chan live.Snapshot[[]storage.Task]
	Task(ctx context.Context, id int64) <-chan live.Snapshot[storage.Task]

	InsertTask(ctx context.Context, task storage.Task) (int64, error)
	UpdateTask(ctx context.Context, task storage.Task) error
	DeleteTask(ctx context.Context, task storage.Task) error
}

// AgendaSource is the repository surface used by Agenda.
type AgendaSource interface {
	AllDisciplinesWithSchedules(ctx context.Context) <-chan live.Snapshot[[]storage.DisciplineWithSchedules]
	AllTasks(ctx context.Context) <-chan live.Snapshot[[]storage.Task]
}
