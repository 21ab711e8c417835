package storage

import (
	"sync"

	"ammLedger/internal/model"
)

// MemoryStorage buffers log records in memory until drained.
type MemoryStorage struct {
	mu   sync.Mutex
	logs []model.LogRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// PutLogBatch appends a batch of log records.
func (s *MemoryStorage) PutLogBatch(logs []model.LogRecord) error {
	s.mu.Lock()
	s.logs = append(s.logs, logs...)
	s.mu.Unlock()
	return nil
}

// Drain returns the buffered records and empties the buffer.
func (s *MemoryStorage) Drain() []model.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.logs
	s.logs = nil
	return out
}

// Len returns the number of buffered records.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}
