// Package live turns table-level change notifications into re-evaluating
// query streams.
//
// A Feed is published to by the store after each committed write with the
// set of tables the write could have touched. Watch subscribes a loader to
// a set of tables and re-runs it whenever any of them changes, emitting one
// immutable Snapshot per evaluation.
package live

import (
	"sync"
)

// Table names one persisted entity table.
type Table string

// Feed fans table invalidations out to subscribers.
type Feed struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
}

type subscription struct {
	tables map[Table]struct{}
	signal chan struct{}
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]*subscription)}
}

// Subscribe registers interest in tables. The returned channel receives a
// signal after any publish naming one of them; signals coalesce, so a burst
// of writes leaves at most one pending signal. The cancel function is
// idempotent.
func (f *Feed) Subscribe(tables ...Table) (<-chan struct{}, func()) {
	sub := &subscription{
		tables: make(map[Table]struct{}, len(tables)),
		signal: make(chan struct{}, 1),
	}
	for _, table := range tables {
		sub.tables[table] = struct{}{}
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = sub
	f.mu.Unlock()

	var once sync.Once
	return sub.signal, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Publish signals every subscriber interested in any of tables.
func (f *Feed) Publish(tables ...Table) {
	if len(tables) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if !sub.interested(tables) {
			continue
		}
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

func (s *subscription) interested(tables []Table) bool {
	for _, table := range tables {
		if _, ok := s.tables[table]; ok {
			return true
		}
	}
	return false
}
