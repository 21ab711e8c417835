package events

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"ammLedger/internal/model"
)

const defaultMetaCacheSize = 1024

// PoolMetaCache keeps the most recently decoded pools' metadata so a long
// stream does not hit the MetaSource once per event.
type PoolMetaCache struct {
	entries *lru.Cache[common.Address, model.PoolMeta]
}

// NewPoolMetaCache returns a cache holding up to size pools. A non-positive
// size selects the default.
func NewPoolMetaCache(size int) *PoolMetaCache {
	if size <= 0 {
		size = defaultMetaCacheSize
	}
	entries, err := lru.New[common.Address, model.PoolMeta](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &PoolMetaCache{entries: entries}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	return c.entries.Get(address)
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.entries.Add(address, meta)
}

func (c *PoolMetaCache) Len() int {
	return c.entries.Len()
}
