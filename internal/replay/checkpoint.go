package replay

import (
	"time"

	"ammLedger/internal/storage"
)

// Checkpoint tracks the last replayed journal line and the ledger sequence
// that replaying it produced.
type Checkpoint struct {
	LastProcessedLine uint64 `json:"last_processed_line"`
	LedgerSequence    uint64 `json:"ledger_sequence"`
	UpdatedAt         string `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk. A disabled store loads
// nothing and saves nothing.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	var cp Checkpoint
	if !c.enabled {
		return cp, false, nil
	}
	found, err := storage.ReadJSON(c.path, &cp)
	return cp, found, err
}

func (c *CheckpointStore) Save(lastLine, sequence uint64) error {
	if !c.enabled {
		return nil
	}
	return storage.WriteJSONAtomic(c.path, Checkpoint{
		LastProcessedLine: lastLine,
		LedgerSequence:    sequence,
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339Nano),
	})
}
