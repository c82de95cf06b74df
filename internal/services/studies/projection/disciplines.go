package projection

import (
	"context"
	"log"
	"sync"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/platform/i18n/catalog"
	"github.com/louisbranch/studies/internal/services/studies/domain"
	"github.com/louisbranch/studies/internal/services/studies/live"
	"github.com/louisbranch/studies/internal/services/studies/motd"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// DisciplineData is everything the detail screen shows for one discipline.
type DisciplineData struct {
	Discipline storage.DisciplineWithSchedules `json:"discipline"`
	Tasks      []storage.Task                  `json:"tasks"`
	Links      []storage.MaterialLink          `json:"links"`
}

// DisciplineDetail is the state of the discipline detail screen. ID is set
// for every state but Idle; Data only when Loaded.
type DisciplineDetail struct {
	State   DetailState     `json:"state"`
	ID      int64           `json:"id,omitempty"`
	Data    *DisciplineData `json:"data,omitempty"`
	Code    apperrors.Code  `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// MessageOfTheDayState holds the last fetch outcome. Both slots are empty
// while a fetch is in flight. Retryable marks failures worth offering a
// retry for.
type MessageOfTheDayState struct {
	Message   *motd.Message  `json:"message,omitempty"`
	Code      apperrors.Code `json:"code,omitempty"`
	Err       string         `json:"error,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// Disciplines is the projection behind the discipline list and detail
// screens.
type Disciplines struct {
	repo   DisciplineSource
	locale string
	scope  *scope

	List            *Value[[]storage.Discipline]
	WithSchedules   *Value[[]storage.DisciplineWithSchedules]
	Detail          *Value[DisciplineDetail]
	MessageOfTheDay *Value[MessageOfTheDayState]

	// mu orders Select against detail publication.
	mu         sync.Mutex
	generation uint64
	cancelLoad context.CancelFunc
}

// NewDisciplines starts the list watchers. The projection lives until ctx
// ends or Close is called.
func NewDisciplines(ctx context.Context, repo DisciplineSource, opts ...Option) *Disciplines {
	o := buildOptions(opts)
	d := &Disciplines{
		repo:            repo,
		locale:          o.locale,
		scope:           newScope(ctx),
		List:            NewValue([]storage.Discipline{}),
		WithSchedules:   NewValue([]storage.DisciplineWithSchedules{}),
		Detail:          NewValue(DisciplineDetail{State: DetailIdle}),
		MessageOfTheDay: NewValue(MessageOfTheDayState{}),
	}
	follow(d.scope, "disciplines", repo.AllDisciplines(d.scope.ctx), func(list []storage.Discipline) {
		d.List.Set(list)
	})
	follow(d.scope, "disciplines with schedules", repo.AllDisciplinesWithSchedules(d.scope.ctx), func(list []storage.DisciplineWithSchedules) {
		d.WithSchedules.Set(list)
	})
	return d
}

// Select loads the discipline with id into Detail and keeps it live. A
// non-positive id is reported as invalid. Selecting the discipline that is
// already loaded does nothing.
func (d *Disciplines) Select(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id <= 0 {
		d.stopLoadLocked()
		d.generation++
		d.Detail.Set(DisciplineDetail{
			State:   DetailError,
			ID:      id,
			Code:    apperrors.CodeInvalidID,
			Message: catalog.Message(d.locale, "discipline.invalid_id"),
		})
		return
	}
	if current := d.Detail.Load(); current.State == DetailLoaded && current.ID == id {
		return
	}
	d.startLoadLocked(id)
}

func (d *Disciplines) startLoadLocked(id int64) {
	d.stopLoadLocked()
	d.generation++
	generation := d.generation
	ctx, cancel := context.WithCancel(d.scope.ctx)
	d.cancelLoad = cancel
	d.Detail.Set(DisciplineDetail{State: DetailLoading, ID: id})
	d.scope.spawn(func() {
		d.watchDetail(ctx, generation, id)
	})
}

func (d *Disciplines) stopLoadLocked() {
	if d.cancelLoad != nil {
		d.cancelLoad()
		d.cancelLoad = nil
	}
}

// watchDetail combines the discipline, its tasks and its links, publishing
// once every part has emitted and again on each later change.
func (d *Disciplines) watchDetail(ctx context.Context, generation uint64, id int64) {
	disciplineStream := d.repo.DisciplineWithSchedules(ctx, id)
	taskStream := d.repo.TasksByDiscipline(ctx, id)
	linkStream := d.repo.MaterialLinksByDiscipline(ctx, id)

	var (
		data                      DisciplineData
		disciplineErr, tasksErr   error
		linksErr                  error
		haveDiscipline, haveTasks bool
		haveLinks                 bool
	)
	for {
		select {
		case snap, ok := <-disciplineStream:
			if !ok {
				return
			}
			data.Discipline, disciplineErr, haveDiscipline = snap.Value, snap.Err, true
		case snap, ok := <-taskStream:
			if !ok {
				return
			}
			data.Tasks, tasksErr, haveTasks = snap.Value, snap.Err, true
		case snap, ok := <-linkStream:
			if !ok {
				return
			}
			data.Links, linksErr, haveLinks = snap.Value, snap.Err, true
		case <-ctx.Done():
			return
		}
		if !haveDiscipline || !haveTasks || !haveLinks {
			continue
		}
		d.publishDetail(generation, d.resolveDetail(id, data, disciplineErr, firstErr(tasksErr, linksErr)))
	}
}

func (d *Disciplines) resolveDetail(id int64, data DisciplineData, disciplineErr, partErr error) DisciplineDetail {
	switch {
	case apperrors.HasCode(disciplineErr, apperrors.CodeNotFound):
		return DisciplineDetail{
			State:   DetailError,
			ID:      id,
			Code:    apperrors.CodeNotFound,
			Message: catalog.Message(d.locale, "discipline.not_found"),
		}
	case disciplineErr != nil || partErr != nil:
		err := firstErr(disciplineErr, partErr)
		return DisciplineDetail{
			State:   DetailError,
			ID:      id,
			Code:    apperrors.CodeLoadFailed,
			Message: catalog.Message(d.locale, "discipline.load_failed", err.Error()),
		}
	}
	return DisciplineDetail{State: DetailLoaded, ID: id, Data: &data}
}

// publishDetail drops results of superseded loads.
func (d *Disciplines) publishDetail(generation uint64, detail DisciplineDetail) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if generation != d.generation {
		log.Printf("studies projection discipline %d: %s", detail.ID, apperrors.CodeStaleRequest)
		return
	}
	d.Detail.Set(detail)
}

// AddDiscipline validates input and inserts the discipline with its
// schedules in one transaction, returning the new id.
func (d *Disciplines) AddDiscipline(ctx context.Context, input domain.NewDiscipline) (int64, error) {
	input = input.Normalize()
	if err := domain.Validate(input); err != nil {
		return 0, err
	}
	ctx, cancel := d.scope.join(ctx)
	defer cancel()
	discipline, schedules := input.Records()
	return d.repo.InsertDisciplineWithSchedules(ctx, discipline, schedules)
}

// UpdateDiscipline replaces the fields of discipline after validating them.
// Its schedules are left alone. An open detail picks the change up from the
// live query.
func (d *Disciplines) UpdateDiscipline(ctx context.Context, discipline storage.Discipline) error {
	if discipline.ID <= 0 {
		return apperrors.New(apperrors.CodeInvalidID, "update discipline")
	}
	input := domain.NewDiscipline{
		Name:      discipline.Name,
		Location:  discipline.Location,
		Professor: discipline.Professor,
		ImageRef:  discipline.ImageRef,
	}.Normalize()
	if err := domain.Validate(input); err != nil {
		return err
	}
	record, _ := input.Records()
	record.ID = discipline.ID

	ctx, cancel := d.scope.join(ctx)
	defer cancel()
	return d.repo.UpdateDiscipline(ctx, record)
}

// AddSchedules adds weekly slots to the loaded discipline. It reports
// false without writing when no discipline is loaded.
func (d *Disciplines) AddSchedules(ctx context.Context, input domain.NewSchedules) (bool, error) {
	current := d.Detail.Load()
	if current.State != DetailLoaded {
		return false, nil
	}
	input = input.Normalize()
	if err := domain.Validate(input); err != nil {
		return false, err
	}
	ctx, cancel := d.scope.join(ctx)
	defer cancel()
	if err := d.repo.InsertSchedules(ctx, input.Records(current.ID)); err != nil {
		return false, err
	}
	return true, nil
}

// AddMaterialLink attaches a link to the loaded discipline. It does nothing
// and returns a zero id when no discipline is loaded.
func (d *Disciplines) AddMaterialLink(ctx context.Context, url, description string) (int64, error) {
	current := d.Detail.Load()
	if current.State != DetailLoaded {
		return 0, nil
	}
	input := domain.NewMaterialLink{URL: url, Description: description}.Normalize()
	if err := domain.Validate(input); err != nil {
		return 0, err
	}
	ctx, cancel := d.scope.join(ctx)
	defer cancel()
	return d.repo.InsertMaterialLink(ctx, storage.MaterialLink{
		DisciplineID: current.ID,
		URL:          input.URL,
		Description:  input.Description,
	})
}

// UpdateMaterialLink replaces the address and label of link. The link stays
// on its discipline.
func (d *Disciplines) UpdateMaterialLink(ctx context.Context, link storage.MaterialLink) error {
	input := domain.NewMaterialLink{URL: link.URL, Description: link.Description}.Normalize()
	if err := domain.Validate(input); err != nil {
		return err
	}
	link.URL, link.Description = input.URL, input.Description
	ctx, cancel := d.scope.join(ctx)
	defer cancel()
	return d.repo.UpdateMaterialLink(ctx, link)
}

// DeleteMaterialLink removes link.
func (d *Disciplines) DeleteMaterialLink(ctx context.Context, link storage.MaterialLink) error {
	ctx, cancel := d.scope.join(ctx)
	defer cancel()
	return d.repo.DeleteMaterialLink(ctx, link)
}

// DeleteSelected deletes the loaded discipline with its dependents, resets
// Detail to Idle and then calls onDeleted. Nothing happens when no
// discipline is loaded.
func (d *Disciplines) DeleteSelected(ctx context.Context, onDeleted func()) error {
	d.mu.Lock()
	current := d.Detail.Load()
	if current.State != DetailLoaded || current.Data == nil {
		d.mu.Unlock()
		return nil
	}
	// Detach the live load so the delete is not reported as not found.
	d.stopLoadLocked()
	d.generation++
	generation := d.generation
	d.mu.Unlock()

	joined, cancel := d.scope.join(ctx)
	defer cancel()
	err := d.repo.DeleteDiscipline(joined, current.Data.Discipline.Discipline)

	d.mu.Lock()
	if generation != d.generation {
		d.mu.Unlock()
		return err
	}
	if err != nil {
		d.startLoadLocked(current.ID)
		d.mu.Unlock()
		return err
	}
	d.Detail.Set(DisciplineDetail{State: DetailIdle})
	d.mu.Unlock()

	if onDeleted != nil {
		onDeleted()
	}
	return nil
}

// FetchMessageOfTheDay clears the message slots, performs one remote fetch
// and fills either the message or the error slot. The fetched message is
// also returned to the caller.
func (d *Disciplines) FetchMessageOfTheDay(ctx context.Context) (motd.Message, error) {
	d.MessageOfTheDay.Set(MessageOfTheDayState{})

	ctx, cancel := d.scope.join(ctx)
	defer cancel()
	message, err := live.First(ctx, d.repo.MessageOfTheDay(ctx))
	if err != nil {
		code := apperrors.CodeOf(err)
		d.MessageOfTheDay.Set(MessageOfTheDayState{
			Code:      code,
			Err:       catalog.Message(d.locale, "motd.fetch_failed", err.Error()),
			Retryable: code.Retryable(),
		})
		return motd.Message{}, err
	}
	d.MessageOfTheDay.Set(MessageOfTheDayState{Message: &message})
	return message, nil
}

// Close cancels every watcher and in-flight load and waits for them.
func (d *Disciplines) Close() {
	d.mu.Lock()
	d.stopLoadLocked()
	d.mu.Unlock()
	d.scope.close()
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
