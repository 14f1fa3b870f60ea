// Package inmemory provides a map-backed checkpoint store for in-process
// interrupt/resume cycles and for tests.
package inmemory

import (
	"context"
	"sync"

	"github.com/blueskygzhz/eino-cpp-sub002/providers/checkpoint"
	"github.com/blueskygzhz/eino-cpp-sub002/providers/observability"
)

// Store is a concurrency-safe in-memory checkpoint store. It uses RWMutex to
// guard access and copies snapshot bytes on both paths, so callers can never
// mutate stored state through a retained slice.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// New returns a new, empty [Store] ready for immediate use.
func New() *Store {
	return &Store{
		snapshots: make(map[string][]byte),
	}
}

// Ensure Store implements checkpoint.Store at compile time.
var _ checkpoint.Store = (*Store)(nil)

// Get returns the snapshot stored under checkpointID. The boolean is false
// when no snapshot exists; the error is always nil for the in-memory
// implementation. When an observability span is present in ctx, a load event
// is recorded with the id and snapshot size.
func (store *Store) Get(ctx context.Context, checkpointID string) ([]byte, bool, error) {
	store.mu.RLock()
	data, found := store.snapshots[checkpointID]
	store.mu.RUnlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("checkpoint.load",
			observability.String(observability.AttrCheckpointID, checkpointID),
			observability.Int(observability.AttrCheckpointBytes, len(data)),
			observability.Bool("found", found),
		)
	}
	if !found {
		return nil, false, nil
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

// Set stores a copy of data under checkpointID, replacing any previous
// snapshot. The error is always nil for the in-memory implementation.
func (store *Store) Set(ctx context.Context, checkpointID string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	store.mu.Lock()
	store.snapshots[checkpointID] = stored
	count := len(store.snapshots)
	store.mu.Unlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("checkpoint.save",
			observability.String(observability.AttrCheckpointID, checkpointID),
			observability.Int(observability.AttrCheckpointBytes, len(data)),
			observability.Int("checkpoint.stored_total", count),
		)
	}
	return nil
}

// Delete removes the snapshot stored under checkpointID, if any. Callers
// typically delete a checkpoint after a resumed run completes.
func (store *Store) Delete(_ context.Context, checkpointID string) {
	store.mu.Lock()
	delete(store.snapshots, checkpointID)
	store.mu.Unlock()
}

// Len reports how many snapshots the store currently holds.
func (store *Store) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.snapshots)
}
