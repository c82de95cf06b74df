package projection

import (
	"context"
	"testing"
	"time"
)

func TestValueSubscribeDeliversCurrentThenLatest(t *testing.T) {
	t.Parallel()

	value := NewValue(1)
	signal, cancel := value.Subscribe()
	defer cancel()

	select {
	case <-signal:
	default:
		t.Fatal("expected an immediate signal for the current value")
	}

	value.Set(2)
	value.Set(3)
	select {
	case <-signal:
	default:
		t.Fatal("expected a signal after set")
	}
	if got := value.Load(); got != 3 {
		t.Fatalf("expected latest value 3, got %d", got)
	}
	select {
	case <-signal:
		t.Fatal("expected coalesced signals")
	default:
	}
}

func TestValueVersionAndUpdate(t *testing.T) {
	t.Parallel()

	value := NewValue("a")
	_, before := value.Get()
	after := value.Update(func(s string) string { return s + "b" })
	if after != before+1 {
		t.Fatalf("expected version bump, got %d -> %d", before, after)
	}
	if got, _ := value.Get(); got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}

func TestValueUnsubscribe(t *testing.T) {
	t.Parallel()

	value := NewValue(0)
	signal, cancel := value.Subscribe()
	<-signal
	cancel()
	cancel()
	value.Set(1)
	select {
	case <-signal:
		t.Fatal("expected no signal after unsubscribe")
	default:
	}
}

func TestValueAwait(t *testing.T) {
	t.Parallel()

	value := NewValue(0)
	go func() {
		for i := 1; i <= 3; i++ {
			value.Set(i)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := value.Await(ctx, func(v int) bool { return v == 3 })
	if err != nil || got != 3 {
		t.Fatalf("await = %d, %v", got, err)
	}

	short, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	if _, err := value.Await(short, func(v int) bool { return v > 10 }); err == nil {
		t.Fatal("expected await to time out")
	}
}

func TestValuePublished(t *testing.T) {
	t.Parallel()

	value := NewValue([]int{})
	short, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	if _, err := value.Published(short); err == nil {
		t.Fatal("expected initial value to be unpublished")
	}

	value.Set([]int{1})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := value.Published(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("published = %v, %v", got, err)
	}
}
