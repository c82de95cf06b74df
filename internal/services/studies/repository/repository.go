// Package repository is the single entry point the projections use to read
// and mutate studies state. Reads are live queries over the store's change
// feed; writes delegate to the store inside a trace span.
package repository

import (
	"context"
	"fmt"

	"github.com/louisbranch/studies/internal/services/studies/live"
	"github.com/louisbranch/studies/internal/services/studies/motd"
	"github.com/louisbranch/studies/internal/services/studies/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/studies/internal/services/studies/repository"

// Repository wraps the entity store and the remote message fetcher.
type Repository struct {
	store  storage.Store
	motd   motd.Fetcher
	tracer trace.Tracer
}

// Option customizes a Repository.
type Option func(*Repository)

// WithTracerProvider traces mutations with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Repository) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// New builds a repository. fetcher may be nil when the message of the day
// is not wired; MessageOfTheDay then reports an error.
func New(store storage.Store, fetcher motd.Fetcher, opts ...Option) (*Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	r := &Repository{
		store:  store,
		motd:   fetcher,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// AllDisciplines streams the discipline list.
func (r *Repository) AllDisciplines(ctx context.Context) <-chan live.Snapshot[[]storage.Discipline] {
	return live.Watch(ctx, r.store.Changes(), r.store.ListDisciplines, storage.TableDisciplines)
}

// AllDisciplinesWithSchedules streams every discipline joined with its schedules.
func (r *Repository) AllDisciplinesWithSchedules(ctx context.Context) <-chan live.Snapshot[[]storage.DisciplineWithSchedules] {
	return live.Watch(ctx, r.store.Changes(), r.store.ListDisciplinesWithSchedules,
		storage.TableDisciplines, storage.TableSchedules)
}

// DisciplineWithSchedules streams one discipline with its schedules. A
// missing discipline emits storage.ErrNotFound.
func (r *Repository) DisciplineWithSchedules(ctx context.Context, id int64) <-chan live.Snapshot[storage.DisciplineWithSchedules] {
	return live.Watch(ctx, r.store.Changes(), func(ctx context.Context) (storage.DisciplineWithSchedules, error) {
		return r.store.GetDisciplineWithSchedules(ctx, id)
	}, storage.TableDisciplines, storage.TableSchedules)
}

// AllTasks streams every task in due order.
func (r *Repository) AllTasks(ctx context.Context) <-chan live.Snapshot[[]storage.Task] {
	return live.Watch(ctx, r.store.Changes(), r.store.ListTasks, storage.TableTasks)
}

// Task streams one task. A missing task emits storage.ErrNotFound.
func (r *Repository) Task(ctx context.Context, id int64) <-chan live.Snapshot[storage.Task] {
	return live.Watch(ctx, r.store.Changes(), func(ctx context.Context) (storage.Task, error) {
		return r.store.GetTask(ctx, id)
	}, storage.TableTasks)
}

// TasksByDiscipline streams the tasks of one discipline.
func (r *Repository) TasksByDiscipline(ctx context.Context, disciplineID int64) <-chan live.Snapshot[[]storage.Task] {
	return live.Watch(ctx, r.store.Changes(), func(ctx context.Context) ([]storage.Task, error) {
		return r.store.ListTasksByDiscipline(ctx, disciplineID)
	}, storage.TableTasks)
}

// PendingTasks streams incomplete tasks.
func (r *Repository) PendingTasks(ctx context.Context) <-chan live.Snapshot[[]storage.Task] {
	return live.Watch(ctx, r.store.Changes(), r.store.ListPendingTasks, storage.TableTasks)
}

// MaterialLinksByDiscipline streams the links of one discipline.
func (r *Repository) MaterialLinksByDiscipline(ctx context.Context, disciplineID int64) <-chan live.Snapshot[[]storage.MaterialLink] {
	return live.Watch(ctx, r.store.Changes(), func(ctx context.Context) ([]storage.MaterialLink, error) {
		return r.store.ListMaterialLinksByDiscipline(ctx, disciplineID)
	}, storage.TableMaterialLinks)
}

// MessageOfTheDay performs one remote fetch as a single-emission stream.
func (r *Repository) MessageOfTheDay(ctx context.Context) <-chan live.Snapshot[motd.Message] {
	return live.Once(ctx, func(ctx context.Context) (motd.Message, error) {
		if r.motd == nil {
			return motd.Message{}, fmt.Errorf("message of the day is not configured")
		}
		ctx, span := r.tracer.Start(ctx, "studies.repository.MessageOfTheDay")
		defer span.End()
		message, err := r.motd.MessageOfTheDay(ctx)
		recordErr(span, err)
		return message, err
	})
}

// GetMaterialLink loads one link.
func (r *Repository) GetMaterialLink(ctx context.Context, id int64) (storage.MaterialLink, error) {
	return r.store.GetMaterialLink(ctx, id)
}

// InsertSchedules bulk-inserts schedules for an existing discipline.
func (r *Repository) InsertSchedules(ctx context.Context, schedules []storage.Schedule) error {
	return r.traced(ctx, "InsertSchedules", []attribute.KeyValue{attribute.Int("schedules", len(schedules))},
		func(ctx context.Context) error {
			return r.store.InsertSchedules(ctx, schedules)
		})
}

// InsertDisciplineWithSchedules inserts a discipline and its schedules in
// one transaction and returns the discipline id.
func (r *Repository) InsertDisciplineWithSchedules(ctx context.Context, discipline storage.Discipline, schedules []storage.Schedule) (int64, error) {
	var id int64
	err := r.traced(ctx, "InsertDisciplineWithSchedules", []attribute.KeyValue{attribute.Int("schedules", len(schedules))},
		func(ctx context.Context) error {
			var err error
			id, err = r.store.InsertDisciplineWithSchedules(ctx, discipline, schedules)
			return err
		})
	return id, err
}

// UpdateDiscipline replaces a discipline row.
func (r *Repository) UpdateDiscipline(ctx context.Context, discipline storage.Discipline) error {
	return r.traced(ctx, "UpdateDiscipline", idAttr("discipline.id", discipline.ID), func(ctx context.Context) error {
		return r.store.UpdateDiscipline(ctx, discipline)
	})
}

// DeleteDiscipline deletes a discipline and its dependents.
func (r *Repository) DeleteDiscipline(ctx context.Context, discipline storage.Discipline) error {
	return r.traced(ctx, "DeleteDiscipline", idAttr("discipline.id", discipline.ID), func(ctx context.Context) error {
		return r.store.DeleteDiscipline(ctx, discipline)
	})
}

// InsertTask inserts a task.
func (r *Repository) InsertTask(ctx context.Context, task storage.Task) (int64, error) {
	var id int64
	err := r.traced(ctx, "InsertTask", nil, func(ctx context.Context) error {
		var err error
		id, err = r.store.InsertTask(ctx, task)
		return err
	})
	return id, err
}

// UpdateTask replaces a task row.
func (r *Repository) UpdateTask(ctx context.Context, task storage.Task) error {
	return r.traced(ctx, "UpdateTask", idAttr("task.id", task.ID), func(ctx context.Context) error {
		return r.store.UpdateTask(ctx, task)
	})
}

// DeleteTask deletes a task.
func (r *Repository) DeleteTask(ctx context.Context, task storage.Task) error {
	return r.traced(ctx, "DeleteTask", idAttr("task.id", task.ID), func(ctx context.Context) error {
		return r.store.DeleteTask(ctx, task)
	})
}

// InsertMaterialLink inserts a link.
func (r *Repository) InsertMaterialLink(ctx context.Context, link storage.MaterialLink) (int64, error) {
	var id int64
	err := r.traced(ctx, "InsertMaterialLink", idAttr("discipline.id", link.DisciplineID), func(ctx context.Context) error {
		var err error
		id, err = r.store.InsertMaterialLink(ctx, link)
		return err
	})
	return id, err
}

// UpdateMaterialLink replaces a link row.
func (r *Repository) UpdateMaterialLink(ctx context.Context, link storage.MaterialLink) error {
	return r.traced(ctx, "UpdateMaterialLink", idAttr("material_link.id", link.ID), func(ctx context.Context) error {
		return r.store.UpdateMaterialLink(ctx, link)
	})
}

// DeleteMaterialLink deletes a link.
func (r *Repository) DeleteMaterialLink(ctx context.Context, link storage.MaterialLink) error {
	return r.traced(ctx, "DeleteMaterialLink", idAttr("material_link.id", link.ID), func(ctx context.Context) error {
		return r.store.DeleteMaterialLink(ctx, link)
	})
}

func (r *Repository) traced(ctx context.Context, name string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "studies.repository."+name, trace.WithAttributes(attrs...))
	defer span.End()
	err := fn(ctx)
	recordErr(span, err)
	return err
}

func recordErr(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func idAttr(key string, id int64) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int64(key, id)}
}
