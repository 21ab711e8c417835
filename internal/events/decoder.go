package events

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammLedger/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// MetaSource resolves pool metadata for a pool address that has not been seen
// in the decoded stream.
type MetaSource interface {
	PoolMeta(ctx context.Context, pool common.Address) (model.PoolMeta, error)
}

// DecodeContext provides shared dependencies for decoders.
type DecodeContext struct {
	Context       context.Context
	Source        MetaSource
	PoolMetaCache *PoolMetaCache
	Logger        *zap.Logger
}
