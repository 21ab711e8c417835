package amm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammLedger/internal/ledger"
	"ammLedger/internal/model"
)

var (
	configSeedPrefix = []byte("config")
	lpSeedPrefix     = []byte("lp")
)

func configSeeds(seed uint64) [][]byte {
	le := make([]byte, 8)
	binary.LittleEndian.PutUint64(le, seed)
	return [][]byte{configSeedPrefix, le}
}

func lpSeeds(pool common.Address) [][]byte {
	return [][]byte{lpSeedPrefix, pool.Bytes()}
}

// PoolAddress returns the address of the pool record for seed. The pool
// authority signs as this address and owns both vaults.
func PoolAddress(programID common.Address, seed uint64) (common.Address, uint8, error) {
	return ledger.FindProgramAddress(configSeeds(seed), programID)
}

// LPAssetAddress returns the LP asset of the pool at pool.
func LPAssetAddress(programID, pool common.Address) (common.Address, uint8, error) {
	return ledger.FindProgramAddress(lpSeeds(pool), programID)
}

// poolAuthority signs for the pool's vaults and LP mint.
func (e *Engine) poolAuthority(pool model.Pool) (ledger.Authority, error) {
	return e.program.Sign(configSeeds(pool.Seed), pool.ConfigBump)
}

// loadPool reads the pool record for seed together with its live reserves and
// LP supply.
func (e *Engine) loadPool(r ledger.Reader, seed uint64) (model.PoolState, error) {
	addr, _, err := PoolAddress(e.program.ID(), seed)
	if err != nil {
		return model.PoolState{}, err
	}
	return e.loadPoolAt(r, addr)
}

func (e *Engine) loadPoolAt(r ledger.Reader, addr common.Address) (model.PoolState, error) {
	data, ok, err := r.Record(addr)
	if err != nil {
		return model.PoolState{}, err
	}
	if !ok {
		return model.PoolState{}, model.ErrPoolNotFound.Wrap(addr.Hex())
	}
	var pool model.Pool
	if err := json.Unmarshal(data, &pool); err != nil {
		return model.PoolState{}, fmt.Errorf("decode pool %s: %w", addr.Hex(), err)
	}
	lpAsset, err := ledger.CreateProgramAddress(lpSeeds(addr), pool.LPBump, e.program.ID())
	if err != nil {
		return model.PoolState{}, fmt.Errorf("lp asset of %s: %w", addr.Hex(), err)
	}

	state := model.PoolState{Pool: pool, Address: addr, LPAsset: lpAsset}
	if state.ReserveX, err = r.Balance(addr, pool.AssetX); err != nil {
		return model.PoolState{}, err
	}
	if state.ReserveY, err = r.Balance(addr, pool.AssetY); err != nil {
		return model.PoolState{}, err
	}
	info, err := r.Asset(lpAsset)
	if err != nil {
		return model.PoolState{}, err
	}
	state.Supply = info.Supply
	return state, nil
}

// refresh re-reads reserves and supply after the transition's writes.
func (e *Engine) refresh(r ledger.Reader, state model.PoolState) (model.PoolState, error) {
	return e.loadPoolAt(r, state.Address)
}
