package projection

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/studies/internal/services/studies/live"
	"github.com/louisbranch/studies/internal/services/studies/motd"
	"github.com/louisbranch/studies/internal/services/studies/repository"
	"github.com/louisbranch/studies/internal/services/studies/storage"
	"github.com/louisbranch/studies/internal/services/studies/storage/sqlite"
)

const waitTimeout = 5 * time.Second

type stubFetcher struct {
	message motd.Message
	err     error
}

func (f stubFetcher) MessageOfTheDay(context.Context) (motd.Message, error) {
	return f.message, f.err
}

func newTestRepository(t *testing.T, fetcher motd.Fetcher) *repository.Repository {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "studies.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	repo, err := repository.New(store, fetcher)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo
}

func await[T any](t *testing.T, value *Value[T], ready func(T) bool) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	got, err := value.Await(ctx, ready)
	if err != nil {
		t.Fatalf("await value: %v (last %+v)", err, value.Load())
	}
	return got
}

// gatedSource holds back the discipline stream of gated ids until their
// gate is closed.
type gatedSource struct {
	*repository.Repository
	gates map[int64]chan struct{}
}

func (g *gatedSource) DisciplineWithSchedules(ctx context.Context, id int64) <-chan live.Snapshot[storage.DisciplineWithSchedules] {
	gate, ok := g.gates[id]
	if !ok {
		return g.Repository.DisciplineWithSchedules(ctx, id)
	}
	out := make(chan live.Snapshot[storage.DisciplineWithSchedules], 1)
	go func() {
		defer close(out)
		select {
		case <-gate:
		case <-ctx.Done():
			return
		}
		for snap := range g.Repository.DisciplineWithSchedules(ctx, id) {
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
