package projection

import (
	"context"
	"log"
	"sync"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/platform/i18n/catalog"
	"github.com/louisbranch/studies/internal/services/studies/domain"
	"github.com/louisbranch/studies/internal/services/studies/live"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// TaskList pairs every task with the disciplines needed to name them.
type TaskList struct {
	Tasks       []storage.Task       `json:"tasks"`
	Disciplines []storage.Discipline `json:"disciplines"`
}

// DisciplineName resolves a task's discipline name.
func (l TaskList) DisciplineName(id int64) (string, bool) {
	return disciplineName(l.Disciplines, id)
}

// TaskDetail is the state of the task detail screen. Loaded with a nil
// Task means the task no longer exists.
type TaskDetail struct {
	State          DetailState    `json:"state"`
	ID             int64          `json:"id,omitempty"`
	Task           *storage.Task  `json:"task,omitempty"`
	DisciplineName string         `json:"discipline_name,omitempty"`
	Code           apperrors.Code `json:"code,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// Tasks is the projection behind the task list, picker and detail screens.
type Tasks struct {
	repo   TaskSource
	locale string
	scope  *scope

	List    *Value[TaskList]
	Pickers *Value[[]storage.Discipline]
	Pending *Value[[]storage.Task]
	Detail  *Value[TaskDetail]

	mu         sync.Mutex
	generation uint64
	cancelLoad context.CancelFunc
}

// NewTasks starts the list watchers. The detail starts Loading until the
// first LoadTask resolves.
func NewTasks(ctx context.Context, repo TaskSource, opts ...Option) *Tasks {
	o := buildOptions(opts)
	t := &Tasks{
		repo:    repo,
		locale:  o.locale,
		scope:   newScope(ctx),
		List:    NewValue(TaskList{Tasks: []storage.Task{}, Disciplines: []storage.Discipline{}}),
		Pickers: NewValue([]storage.Discipline{}),
		Pending: NewValue([]storage.Task{}),
		Detail:  NewValue(TaskDetail{State: DetailLoading}),
	}
	t.scope.spawn(t.watchList)
	follow(t.scope, "pending tasks", repo.PendingTasks(t.scope.ctx), func(tasks []storage.Task) {
		t.Pending.Set(tasks)
	})
	return t
}

// watchList recombines tasks and disciplines once both have emitted. The
// disciplines stream also feeds the picker.
func (t *Tasks) watchList() {
	ctx := t.scope.ctx
	taskStream := t.repo.AllTasks(ctx)
	disciplineStream := t.repo.AllDisciplines(ctx)

	var (
		list                      TaskList
		haveTasks, haveDiscipline bool
	)
	for {
		select {
		case snap, ok := <-taskStream:
			if !ok {
				return
			}
			if snap.Err != nil {
				log.Printf("studies projection tasks: %v", snap.Err)
				continue
			}
			list.Tasks, haveTasks = snap.Value, true
		case snap, ok := <-disciplineStream:
			if !ok {
				return
			}
			if snap.Err != nil {
				log.Printf("studies projection task disciplines: %v", snap.Err)
				continue
			}
			list.Disciplines, haveDiscipline = snap.Value, true
			t.Pickers.Set(snap.Value)
		case <-ctx.Done():
			return
		}
		if haveTasks && haveDiscipline {
			t.List.Set(list)
		}
	}
}

// LoadTask resolves the task with id and its discipline name into Detail.
// The detail is a point-in-time read; later writes do not refresh it.
func (t *Tasks) LoadTask(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLoadLocked()
	t.generation++
	if id <= 0 {
		t.Detail.Set(TaskDetail{
			State:   DetailError,
			ID:      id,
			Code:    apperrors.CodeInvalidID,
			Message: catalog.Message(t.locale, "error.INVALID_ID"),
		})
		return
	}

	generation := t.generation
	ctx, cancel := context.WithCancel(t.scope.ctx)
	t.cancelLoad = cancel
	t.Detail.Set(TaskDetail{State: DetailLoading, ID: id})
	t.scope.spawn(func() {
		t.publishDetail(generation, t.resolveTask(ctx, id))
	})
}

func (t *Tasks) resolveTask(ctx context.Context, id int64) TaskDetail {
	task, err := live.First(ctx, t.repo.Task(ctx, id))
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return TaskDetail{
			State:   DetailError,
			ID:      id,
			Code:    apperrors.CodeNotFound,
			Message: catalog.Message(t.locale, "task.not_found"),
		}
	}
	if err != nil {
		return t.loadFailed(id, err)
	}

	detail := TaskDetail{State: DetailLoaded, ID: id, Task: &task}
	if task.DisciplineID == 0 {
		return detail
	}
	disciplines, err := live.First(ctx, t.repo.AllDisciplines(ctx))
	if err != nil {
		return t.loadFailed(id, err)
	}
	detail.DisciplineName, _ = disciplineName(disciplines, task.DisciplineID)
	return detail
}

func (t *Tasks) loadFailed(id int64, err error) TaskDetail {
	log.Printf("studies projection task %d: %v", id, err)
	return TaskDetail{
		State:   DetailError,
		ID:      id,
		Code:    apperrors.CodeLoadFailed,
		Message: catalog.Message(t.locale, "task.load_failed"),
	}
}

func (t *Tasks) publishDetail(generation uint64, detail TaskDetail) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if generation != t.generation {
		log.Printf("studies projection task %d: %s", detail.ID, apperrors.CodeStaleRequest)
		return
	}
	t.Detail.Set(detail)
}

func (t *Tasks) stopLoadLocked() {
	if t.cancelLoad != nil {
		t.cancelLoad()
		t.cancelLoad = nil
	}
}

// AddTask validates input and inserts it, returning the new id.
func (t *Tasks) AddTask(ctx context.Context, input domain.NewTask) (int64, error) {
	input = input.Normalize()
	if err := domain.Validate(input); err != nil {
		return 0, err
	}
	ctx, cancel := t.scope.join(ctx)
	defer cancel()
	return t.repo.InsertTask(ctx, input.Record())
}

// UpdateTask replaces every field of task after validating it.
func (t *Tasks) UpdateTask(ctx context.Context, task storage.Task) error {
	input := domain.NewTask{
		DisciplineID: task.DisciplineID,
		Name:         task.Name,
		Description:  task.Description,
		DueDate:      task.DueDate,
		DueTime:      task.DueTime,
		IsCompleted:  task.IsCompleted,
	}.Normalize()
	if err := domain.Validate(input); err != nil {
		return err
	}
	record := input.Record()
	record.ID = task.ID

	ctx, cancel := t.scope.join(ctx)
	defer cancel()
	if err := t.repo.UpdateTask(ctx, record); err != nil {
		return err
	}
	t.patchDetail(ctx, record)
	return nil
}

// UpdateCompletion flips the completion flag of task and patches the open
// detail when it shows the same task.
func (t *Tasks) UpdateCompletion(ctx context.Context, task storage.Task, completed bool) error {
	task.IsCompleted = completed
	ctx, cancel := t.scope.join(ctx)
	defer cancel()
	if err := t.repo.UpdateTask(ctx, task); err != nil {
		return err
	}
	t.patchDetail(ctx, task)
	return nil
}

// patchDetail swaps task into an open detail showing it. A changed
// discipline is resolved again before the patch is published.
func (t *Tasks) patchDetail(ctx context.Context, task storage.Task) {
	current := t.Detail.Load()
	if !showsTask(current, task.ID) {
		return
	}
	name := current.DisciplineName
	if current.Task.DisciplineID != task.DisciplineID {
		name = ""
		if task.DisciplineID != 0 {
			name = t.resolveDisciplineName(ctx, task.DisciplineID)
		}
	}
	t.Detail.Update(func(current TaskDetail) TaskDetail {
		if !showsTask(current, task.ID) {
			return current
		}
		patched := task
		current.Task = &patched
		current.DisciplineName = name
		return current
	})
}

// resolveDisciplineName prefers the live list and falls back to a read.
func (t *Tasks) resolveDisciplineName(ctx context.Context, id int64) string {
	if name, ok := t.List.Load().DisciplineName(id); ok {
		return name
	}
	disciplines, err := live.First(ctx, t.repo.AllDisciplines(ctx))
	if err != nil {
		log.Printf("studies projection task discipline %d: %v", id, err)
		return ""
	}
	name, _ := disciplineName(disciplines, id)
	return name
}

func showsTask(detail TaskDetail, id int64) bool {
	return detail.State == DetailLoaded && detail.Task != nil && detail.Task.ID == id
}

// DeleteTask deletes task. When the detail shows it, the detail becomes
// Loaded with no task.
func (t *Tasks) DeleteTask(ctx context.Context, task storage.Task) error {
	joined, cancel := t.scope.join(ctx)
	defer cancel()
	if err := t.repo.DeleteTask(joined, task); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if current := t.Detail.Load(); current.ID == task.ID && current.State != DetailError {
		t.stopLoadLocked()
		t.generation++
		t.Detail.Set(TaskDetail{State: DetailLoaded, ID: task.ID})
	}
	return nil
}

// Close cancels every watcher and in-flight load and waits for them.
func (t *Tasks) Close() {
	t.mu.Lock()
	t.stopLoadLocked()
	t.mu.Unlock()
	t.scope.close()
}

func disciplineName(disciplines []storage.Discipline, id int64) (string, bool) {
	for _, discipline := range disciplines {
		if discipline.ID == id {
			return discipline.Name, true
		}
	}
	return "", false
}
