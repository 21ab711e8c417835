package amm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammLedger/internal/events"
	"ammLedger/internal/ledger"
	"ammLedger/internal/model"
)

// InitializeParams describes a new pool.
type InitializeParams struct {
	Seed      uint64
	FeeBps    uint16
	Authority *common.Address
	AssetX    common.Address
	AssetY    common.Address
}

// Initialize creates the pool record for params.Seed, its two empty vaults and
// its LP asset, minted only by the pool authority.
func (e *Engine) Initialize(ctx context.Context, caller common.Address, params InitializeParams) (model.PoolState, error) {
	var out model.PoolState
	err := e.execute(ctx, model.InstructionInitialize, params.Seed, func(tx *ledger.Tx, emit func(events.Emitted)) (model.PoolState, error) {
		state, err := e.initialize(tx, params)
		if err != nil {
			return model.PoolState{}, err
		}
		if state, err = e.refresh(tx, state); err != nil {
			return model.PoolState{}, err
		}
		emit(events.Emitted{
			Pool:   state.Address,
			Caller: caller,
			Data: model.PoolInitializedEventData{
				Initializer: caller.Hex(),
				Seed:        state.Seed,
				AssetX:      state.AssetX.Hex(),
				AssetY:      state.AssetY.Hex(),
				LPAsset:     state.LPAsset.Hex(),
				FeeBps:      state.FeeBps,
			},
		})
		out = state
		return state, nil
	})
	if !IsCommitted(err) {
		return model.PoolState{}, err
	}
	if e.metrics != nil {
		e.metrics.PoolsCreated.Inc()
	}
	return out, err
}

func (e *Engine) initialize(tx *ledger.Tx, params InitializeParams) (model.PoolState, error) {
	if params.FeeBps >= model.MaxFeeBps {
		return model.PoolState{}, model.ErrInvalidFee.Wrapf("fee %d bps", params.FeeBps)
	}
	if params.AssetX == params.AssetY {
		return model.PoolState{}, model.ErrInvalidAsset.Wrapf("asset x and y are both %s", params.AssetX.Hex())
	}
	for _, asset := range []common.Address{params.AssetX, params.AssetY} {
		if _, err := tx.Asset(asset); err != nil {
			return model.PoolState{}, err
		}
	}

	addr, configBump, err := PoolAddress(e.program.ID(), params.Seed)
	if err != nil {
		return model.PoolState{}, err
	}
	if _, exists, err := tx.Record(addr); err != nil {
		return model.PoolState{}, err
	} else if exists {
		return model.PoolState{}, model.ErrPoolExists.Wrapf("seed %d at %s", params.Seed, addr.Hex())
	}
	lpAsset, lpBump, err := LPAssetAddress(e.program.ID(), addr)
	if err != nil {
		return model.PoolState{}, err
	}

	pool := model.Pool{
		Seed:       params.Seed,
		Authority:  params.Authority,
		AssetX:     params.AssetX,
		AssetY:     params.AssetY,
		FeeBps:     params.FeeBps,
		Locked:     false,
		ConfigBump: configBump,
		LPBump:     lpBump,
	}
	auth, err := e.poolAuthority(pool)
	if err != nil {
		return model.PoolState{}, err
	}

	data, err := json.Marshal(pool)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("encode pool: %w", err)
	}
	if err := tx.CreateRecord(addr, data); err != nil {
		return model.PoolState{}, err
	}
	if err := tx.CreateAsset(lpAsset, addr, model.LPDecimals); err != nil {
		return model.PoolState{}, err
	}
	if err := tx.CreateAccount(auth, pool.AssetX); err != nil {
		return model.PoolState{}, err
	}
	if err := tx.CreateAccount(auth, pool.AssetY); err != nil {
		return model.PoolState{}, err
	}

	return model.PoolState{Pool: pool, Address: addr, LPAsset: lpAsset}, nil
}
