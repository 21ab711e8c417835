package ledger

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by a KV when a key is absent.
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned by a KV after Close.
var ErrClosed = errors.New("kv is closed")

// Write is one mutation of a committed batch.
type Write struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// KV is the storage backend of a Store. Commit must apply the whole batch or
// nothing.
type KV interface {
	Get(key []byte) ([]byte, error)
	Commit(writes []Write) error
	Close() error
}

// MemKV is an in-memory KV.
type MemKV struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string][]byte)}
}

func (m *MemKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	val, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MemKV) Commit(writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, w := range writes {
		if w.Delete {
			delete(m.data, string(w.Key))
			continue
		}
		val := make([]byte, len(w.Value))
		copy(val, w.Value)
		m.data[string(w.Key)] = val
	}
	return nil
}

func (m *MemKV) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
