package projection

import (
	"context"
	"log"
	"time"

	"github.com/louisbranch/studies/internal/services/studies/agenda"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

type agendaInputs struct {
	disciplines []storage.DisciplineWithSchedules
	tasks       []storage.Task
	ready       bool
}

// Agenda keeps today's agenda current as disciplines, schedules and tasks
// change.
type Agenda struct {
	scope *scope
	now   func() time.Time

	inputs *Value[agendaInputs]
	Today  *Value[agenda.Day]
}

// NewAgenda starts the agenda watchers. now defaults to time.Now.
func NewAgenda(ctx context.Context, repo AgendaSource, now func() time.Time) *Agenda {
	if now == nil {
		now = time.Now
	}
	a := &Agenda{
		scope:  newScope(ctx),
		now:    now,
		inputs: NewValue(agendaInputs{}),
		Today:  NewValue(agenda.Build(now(), nil, nil)),
	}
	a.scope.spawn(func() {
		a.watch(repo)
	})
	return a
}

func (a *Agenda) watch(repo AgendaSource) {
	ctx := a.scope.ctx
	disciplineStream := repo.AllDisciplinesWithSchedules(ctx)
	taskStream := repo.AllTasks(ctx)

	var (
		inputs                    agendaInputs
		haveDisciplines, haveTask bool
	)
	for {
		select {
		case snap, ok := <-disciplineStream:
			if !ok {
				return
			}
			if snap.Err != nil {
				log.Printf("studies projection agenda disciplines: %v", snap.Err)
				continue
			}
			inputs.disciplines, haveDisciplines = snap.Value, true
		case snap, ok := <-taskStream:
			if !ok {
				return
			}
			if snap.Err != nil {
				log.Printf("studies projection agenda tasks: %v", snap.Err)
				continue
			}
			inputs.tasks, haveTask = snap.Value, true
		case <-ctx.Done():
			return
		}
		if !haveDisciplines || !haveTask {
			continue
		}
		inputs.ready = true
		a.inputs.Set(inputs)
		a.Today.Set(agenda.Build(a.now(), inputs.disciplines, inputs.tasks))
	}
}

// Day computes the agenda of date from the latest live data, waiting for
// the first load when needed.
func (a *Agenda) Day(ctx context.Context, date time.Time) (agenda.Day, error) {
	ctx, cancel := a.scope.join(ctx)
	defer cancel()
	inputs, err := a.inputs.Await(ctx, func(in agendaInputs) bool { return in.ready })
	if err != nil {
		return agenda.Day{}, err
	}
	return agenda.Build(date, inputs.disciplines, inputs.tasks), nil
}

// Current returns today's agenda. Today is reused while it describes the
// clock's date; otherwise the day is rebuilt from the latest live data.
func (a *Agenda) Current(ctx context.Context) (agenda.Day, error) {
	now := a.now()
	if today, version := a.Today.Get(); version > 0 && today.Date == now.Format(storage.DateLayout) {
		return today, nil
	}
	return a.Day(ctx, now)
}

// Now returns the current time of the agenda clock.
func (a *Agenda) Now() time.Time {
	return a.now()
}

// Close stops the watchers.
func (a *Agenda) Close() {
	a.scope.close()
}
