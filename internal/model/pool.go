package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeBps is the exclusive upper bound of a pool fee in basis points.
const MaxFeeBps = 10_000

// LPDecimals is the number of decimals of every LP asset.
const LPDecimals = 6

// Pool is the durable record of one pool, keyed by Seed.
type Pool struct {
	Seed      uint64          `json:"seed"`
	Authority *common.Address `json:"authority,omitempty"`
	AssetX    common.Address  `json:"asset_x"`
	AssetY    common.Address  `json:"asset_y"`
	FeeBps    uint16          `json:"fee_bps"`
	Locked    bool            `json:"locked"`
	// Derivation nonces of the pool's deterministic addresses.
	ConfigBump uint8 `json:"config_bump"`
	LPBump     uint8 `json:"lp_bump"`
}

// PoolState is a pool record together with its live reserves and LP supply.
type PoolState struct {
	Pool
	Address  common.Address `json:"address"`
	LPAsset  common.Address `json:"lp_asset"`
	ReserveX uint64         `json:"reserve_x"`
	ReserveY uint64         `json:"reserve_y"`
	Supply   uint64         `json:"supply"`
}

// Reserves returns (R_in, R_out) for a trade in the given direction.
func (s PoolState) Reserves(xToY bool) (uint64, uint64) {
	if xToY {
		return s.ReserveX, s.ReserveY
	}
	return s.ReserveY, s.ReserveX
}
