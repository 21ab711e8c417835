// Package storage holds the sinks committed pool events are published to.
package storage

import "ammLedger/internal/model"

// Storage receives the log records of committed transitions, in commit order.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}
