// Package ledger is the reserve ledger the pool program runs against: asset
// balances, mint authorities and supplies, and opaque account records, all
// mutated inside serialized all-or-nothing transactions.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultCacheSize = 4096

var sequenceKey = []byte("m/sequence")

// Store runs transactions over a KV. Writers are serialized; readers see
// committed state only.
type Store struct {
	kv     KV
	cache  *lru.Cache[string, []byte]
	logger *zap.Logger
	now    func() time.Time

	mu sync.RWMutex
}

// NewStore builds a Store with a committed-read cache of cacheSize entries.
func NewStore(kv KV, cacheSize int, logger *zap.Logger) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{
		kv:     kv,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	return s.kv.Close()
}

// View runs fn against committed state.
func (s *Store) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, err := s.lastSequence()
	if err != nil {
		return err
	}
	tx := newTx(s, seq, uint64(s.now().Unix()))
	return fn(tx)
}

// Update runs fn in a transaction. If fn returns an error nothing it wrote is
// kept; otherwise all writes commit as one batch under the next sequence
// number.
func (s *Store) Update(ctx context.Context, fn func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.lastSequence()
	if err != nil {
		return err
	}
	tx := newTx(s, last+1, uint64(s.now().Unix()))
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.writes) == 0 {
		return nil
	}

	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, tx.sequence)
	tx.put(sequenceKey, seq)

	writes := tx.batch()
	if err := s.kv.Commit(writes); err != nil {
		// The backend may have applied part of the batch before failing.
		s.cache.Purge()
		return fmt.Errorf("commit sequence %d: %w", tx.sequence, err)
	}
	for _, w := range writes {
		if w.Delete {
			s.cache.Remove(string(w.Key))
			continue
		}
		s.cache.Add(string(w.Key), w.Value)
	}

	s.logger.Debug("ledger commit", zap.Uint64("sequence", tx.sequence), zap.Int("writes", len(writes)))
	return nil
}

// get reads a committed key, consulting the cache first.
func (s *Store) get(key []byte) ([]byte, bool, error) {
	if val, ok := s.cache.Get(string(key)); ok {
		return val, true, nil
	}
	val, err := s.kv.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	s.cache.Add(string(key), val)
	return val, true, nil
}

func (s *Store) lastSequence() (uint64, error) {
	val, ok, err := s.get(sequenceKey)
	if err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	if !ok {
		return 0, nil
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt sequence value")
	}
	return binary.BigEndian.Uint64(val), nil
}

func sortedWrites(writes map[string]*[]byte) []Write {
	keys := make([]string, 0, len(writes))
	for k := range writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Write, 0, len(keys))
	for _, k := range keys {
		val := writes[k]
		if val == nil {
			out = append(out, Write{Key: []byte(k), Delete: true})
			continue
		}
		out = append(out, Write{Key: []byte(k), Value: *val})
	}
	return out
}
