package aggregate

import (
	"context"
	"fmt"
)

// namedStateBackend is the slice of the Postgres store that keeps named
// watermarks in aggregator_state.
type namedStateBackend interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, ts uint64) error
}

// DBStateStore keeps progress in the database next to the metrics it guards.
// Each window size gets its own row, so 5m and 1h runs resume independently.
type DBStateStore struct {
	backend namedStateBackend
	name    string
}

func NewDBStateStore(backend namedStateBackend, windowSeconds uint64) *DBStateStore {
	return &DBStateStore{backend: backend, name: fmt.Sprintf("aggregator:%d", windowSeconds)}
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	return s.backend.LoadState(ctx, s.name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	return s.backend.SaveState(ctx, s.name, ts)
}
