package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Loader is a read model that can be re-fetched.
type Loader interface {
	Refresh(ctx context.Context) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) error

// Refresh calls f.
func (f LoaderFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// List is a named read model holding the last successfully fetched value.
// INVARIANT: a failed fetch never replaces Data
type List[T any] struct {
	Name  string
	fetch func(ctx context.Context) (T, error)

	mu        sync.RWMutex
	data      T
	loaded    bool
	err       error
	fetchedAt time.Time
}

// NewList creates a List named name that fetches with fetch.
func NewList[T any](name string, fetch func(ctx context.Context) (T, error)) *List[T] {
	return &List[T]{Name: name, fetch: fetch}
}

// Refresh fetches the list and applies the result with Set.
func (l *List[T]) Refresh(ctx context.Context) error {
	if l.fetch == nil {
		return nil
	}
	v, err := l.fetch(ctx)
	return l.Set(v, err)
}

// Set applies a fetch outcome. On success the data is replaced and the error cleared;
// on failure the previous data is kept and the error recorded.
// POST: returns err unchanged
func (l *List[T]) Set(v T, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.err = err
		return err
	}
	l.data = v
	l.loaded = true
	l.err = nil
	l.fetchedAt = time.Now()
	return nil
}

// Data returns the last successfully fetched value.
func (l *List[T]) Data() T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data
}

// Err returns the error of the most recent fetch, or nil.
func (l *List[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Loaded reports whether any fetch has succeeded.
func (l *List[T]) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Stale reports whether the shown data predates a failed fetch.
func (l *List[T]) Stale() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded && l.err != nil
}

// FetchedAt returns when the data was last replaced.
func (l *List[T]) FetchedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fetchedAt
}

// LoadAll refreshes every loader concurrently and waits for all of them.
// A failing loader does not stop the others.
// POST: returns the errors of failed loaders, indexed like loaders (nil entries for successes)
func LoadAll(ctx context.Context, loaders ...Loader) []error {
	errs := make([]error, len(loaders))
	var wg sync.WaitGroup
	for i, l := range loaders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = l.Refresh(ctx)
		}()
	}
	wg.Wait()
	return errs
}

// Mutate runs action and, once its response has arrived, re-fetches each
// invalidated loader in order. The re-fetch happens whatever the outcome, so a
// request that failed after reaching the server still shows server truth.
// Results of the action are never merged locally.
// POST: returns the action error; re-fetch errors are recorded on the loaders
func Mutate(ctx context.Context, action func(ctx context.Context) error, invalidate ...Loader) error {
	err := action(ctx)
	for _, l := range invalidate {
		l.Refresh(ctx)
	}
	return err
}
