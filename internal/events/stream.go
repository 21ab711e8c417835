package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"ammLedger/internal/model"
)

// Writer receives one JSON-encodable value per call.
type Writer interface {
	Write(value interface{}) error
}

// StreamStats counts what DecodeStream did with each non-blank input line.
type StreamStats struct {
	Total   int
	Decoded int
	Skipped int
	Failed  int
}

// DecodeStream decodes a JSONL stream of log records. Typed events go to out;
// malformed lines and records the decoder rejects go to errs as DecodeError
// rows. Records with an unknown topic0 are skipped. Only write failures on out
// and read failures abort the stream.
func DecodeStream(r io.Reader, decoder Decoder, dctx DecodeContext, out, errs Writer) (StreamStats, error) {
	var stats StreamStats
	logger := dctx.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	reject := func(rec model.DecodeError) {
		stats.Failed++
		if errs == nil {
			return
		}
		if err := errs.Write(rec); err != nil {
			logger.Warn("write decode error", zap.Error(err))
		}
	}

	for scanner.Scan() {
		if dctx.Context != nil {
			if err := dctx.Context.Err(); err != nil {
				return stats, err
			}
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			reject(model.DecodeError{Error: err.Error()})
			continue
		}
		topic0 := record.Topic0()
		if topic0 == "" {
			reject(DecodeErrorFor(record, fmt.Errorf("missing topic0")))
			continue
		}
		if !decoder.CanDecode(topic0) {
			stats.Skipped++
			continue
		}

		event, err := decoder.Decode(record, dctx)
		if err != nil {
			reject(DecodeErrorFor(record, err))
			continue
		}
		if err := out.Write(event); err != nil {
			return stats, fmt.Errorf("write event %d/%d: %w", record.Sequence, record.LogIndex, err)
		}
		stats.Decoded++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	return stats, nil
}

// DecodeErrorFor describes why record could not be decoded.
func DecodeErrorFor(record model.LogRecord, err error) model.DecodeError {
	return model.DecodeError{
		Sequence: record.Sequence,
		LogIndex: record.LogIndex,
		Address:  record.Address,
		Topic0:   record.Topic0(),
		Error:    err.Error(),
	}
}
