// Package projection holds the screen-scoped state of the studies service:
// each projection turns repository live queries into observable values and
// exposes the user actions that mutate them.
package projection

import (
	"context"
	"log"
	"sync"

	"github.com/louisbranch/studies/internal/platform/i18n/catalog"
	"github.com/louisbranch/studies/internal/services/studies/live"
)

// Option customizes a projection.
type Option func(*options)

type options struct {
	locale string
}

// WithLocale localizes error and message states for locale.
func WithLocale(locale string) Option {
	return func(o *options) {
		o.locale = catalog.Match(locale)
	}
}

func buildOptions(opts []Option) options {
	o := options{locale: catalog.BaseLocale}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// scope ties a projection's goroutines to its lifetime.
type scope struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newScope(parent context.Context) *scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &scope{ctx: ctx, cancel: cancel}
}

// join derives a context cancelled by either ctx or the scope.
func (s *scope) join(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	joined, cancel := context.WithCancel(ctx)
	if s.ctx.Err() != nil {
		cancel()
		return joined, cancel
	}
	stop := context.AfterFunc(s.ctx, cancel)
	return joined, func() {
		stop()
		cancel()
	}
}

func (s *scope) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *scope) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

// follow copies every successful emission of stream into apply. Failed
// evaluations keep the previous state.
func follow[T any](s *scope, name string, stream <-chan live.Snapshot[T], apply func(T)) {
	s.spawn(func() {
		for snap := range stream {
			if snap.Err != nil {
				log.Printf("studies projection %s: %v", name, snap.Err)
				continue
			}
			apply(snap.Value)
		}
	})
}
