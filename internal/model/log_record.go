package model

// LogRecord is one emitted pool event in its wire form: the event signature
// hash and indexed caller in Topics, the ABI-packed body in Data.
type LogRecord struct {
	Sequence  uint64   `json:"sequence"`
	LogIndex  uint64   `json:"log_index"`
	Program   string   `json:"program"`
	Address   string   `json:"address"`
	Topics    []string `json:"topics"`
	Data      string   `json:"data"`
	Timestamp uint64   `json:"timestamp"`
}

// Topic0 returns the event signature topic, or "" when the record has none.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

// Before reports whether lr was emitted ahead of other in ledger order.
func (lr LogRecord) Before(other LogRecord) bool {
	if lr.Sequence != other.Sequence {
		return lr.Sequence < other.Sequence
	}
	return lr.LogIndex < other.LogIndex
}
