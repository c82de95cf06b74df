package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/services/studies/live"
	"github.com/louisbranch/studies/internal/services/studies/motd"
	"github.com/louisbranch/studies/internal/services/studies/storage"
	"github.com/louisbranch/studies/internal/services/studies/storage/sqlite"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeFetcher struct {
	message motd.Message
	err     error
	calls   chan struct{}
}

func (f *fakeFetcher) MessageOfTheDay(context.Context) (motd.Message, error) {
	if f.calls != nil {
		f.calls <- struct{}{}
	}
	return f.message, f.err
}

func TestNewRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected missing store error")
	}
}

func TestLiveDisciplinesReflectInserts(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := repo.AllDisciplinesWithSchedules(ctx)
	if first := next(t, stream); len(first.Value) != 0 {
		t.Fatalf("expected empty initial list, got %+v", first.Value)
	}

	id, err := repo.InsertDisciplineWithSchedules(ctx, storage.Discipline{Name: "Geografia"}, []storage.Schedule{
		{DayOfWeek: storage.Thursday, StartTime: "19:00", EndTime: "20:40"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	snap := next(t, stream)
	if snap.Err != nil {
		t.Fatalf("snapshot error: %v", snap.Err)
	}
	if len(snap.Value) != 1 || snap.Value[0].Discipline.ID != id || len(snap.Value[0].Schedules) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap.Value)
	}
}

func TestDisciplineStreamReportsNotFound(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := live.First(ctx, repo.DisciplineWithSchedules(ctx, 77))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTaskStreamsFollowMutations(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pending := repo.PendingTasks(ctx)
	next(t, pending)

	id, err := repo.InsertTask(ctx, storage.Task{Name: "Ler capítulo 2"})
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	if snap := next(t, pending); len(snap.Value) != 1 {
		t.Fatalf("expected one pending task, got %+v", snap.Value)
	}

	task, err := live.First(ctx, repo.Task(ctx, id))
	if err != nil {
		t.Fatalf("first task: %v", err)
	}
	task.IsCompleted = true
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}
	if snap := next(t, pending); len(snap.Value) != 0 {
		t.Fatalf("expected no pending tasks, got %+v", snap.Value)
	}
}

func TestMessageOfTheDayEmitsOnce(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{message: motd.Message{ID: 1, Title: "delectus aut autem"}, calls: make(chan struct{}, 2)}
	repo, _ := newTestRepository(t, fetcher)

	stream := repo.MessageOfTheDay(context.Background())
	snap := next(t, stream)
	if snap.Err != nil || snap.Value.Title != "delectus aut autem" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if _, ok := <-stream; ok {
		t.Fatal("expected stream to close after one emission")
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected one remote call, got %d", len(fetcher.calls))
	}
}

func TestMessageOfTheDayDeliversFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: apperrors.New(apperrors.CodeTransportFailure, "offline")}
	repo, _ := newTestRepository(t, fetcher)

	snap := next(t, repo.MessageOfTheDay(context.Background()))
	if !apperrors.HasCode(snap.Err, apperrors.CodeTransportFailure) {
		t.Fatalf("expected transport failure, got %v", snap.Err)
	}
}

func TestMutationsAreTraced(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	store := openStore(t)
	repo, err := New(store, nil, WithTracerProvider(provider))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	if _, err := repo.InsertDisciplineWithSchedules(context.Background(), storage.Discipline{Name: "Música"}, nil); err != nil {
		t.Fatalf("insert discipline: %v", err)
	}
	if err := repo.UpdateTask(context.Background(), storage.Task{ID: 404, Name: "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "studies.repository.InsertDisciplineWithSchedules" || spans[0].Status().Code == codes.Error {
		t.Fatalf("unexpected first span %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Name() != "studies.repository.UpdateTask" || spans[1].Status().Code != codes.Error {
		t.Fatalf("unexpected second span %s %v", spans[1].Name(), spans[1].Status())
	}
}

func newTestRepository(t *testing.T, fetcher motd.Fetcher) (*Repository, *sqlite.Store) {
	t.Helper()
	store := openStore(t)
	repo, err := New(store, fetcher)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo, store
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "studies.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func next[T any](t *testing.T, stream <-chan live.Snapshot[T]) live.Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-stream:
		if !ok {
			t.Fatal("stream closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return live.Snapshot[T]{}
}
