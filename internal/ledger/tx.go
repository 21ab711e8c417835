package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammLedger/internal/curve"
	"ammLedger/internal/model"
)

const (
	prefixAsset   = "a/"
	prefixBalance = "b/"
	prefixRecord  = "r/"
	prefixOwner   = "o/"
)

// AssetInfo describes a mintable asset.
type AssetInfo struct {
	MintAuthority common.Address `json:"mint_authority"`
	Decimals      uint8          `json:"decimals"`
	Supply        uint64         `json:"supply"`
}

// Reader is the read-only view of the ledger.
type Reader interface {
	Sequence() uint64
	Timestamp() uint64
	Asset(asset common.Address) (AssetInfo, error)
	Balance(owner, asset common.Address) (uint64, error)
	AccountExists(owner, asset common.Address) (bool, error)
	Record(addr common.Address) ([]byte, bool, error)
}

// Tx is one ledger transaction. Reads observe the transaction's own writes.
type Tx struct {
	store     *Store
	sequence  uint64
	timestamp uint64
	writes    map[string]*[]byte
}

func newTx(store *Store, sequence, timestamp uint64) *Tx {
	return &Tx{
		store:     store,
		sequence:  sequence,
		timestamp: timestamp,
		writes:    make(map[string]*[]byte),
	}
}

// Sequence is the sequence number this transaction commits under, or the last
// committed one for a read-only view.
func (tx *Tx) Sequence() uint64 { return tx.sequence }

// Timestamp is the unix time the transaction started.
func (tx *Tx) Timestamp() uint64 { return tx.timestamp }

// Asset returns the registration of asset, or ErrAssetNotFound.
func (tx *Tx) Asset(asset common.Address) (AssetInfo, error) {
	val, ok, err := tx.get(assetKey(asset))
	if err != nil {
		return AssetInfo{}, err
	}
	if !ok {
		return AssetInfo{}, model.ErrAssetNotFound.Wrap(asset.Hex())
	}
	var info AssetInfo
	if err := json.Unmarshal(val, &info); err != nil {
		return AssetInfo{}, fmt.Errorf("decode asset %s: %w", asset.Hex(), err)
	}
	return info, nil
}

// Balance returns the balance of owner in asset. A missing account reads as 0.
func (tx *Tx) Balance(owner, asset common.Address) (uint64, error) {
	val, ok, err := tx.get(balanceKey(owner, asset))
	if err != nil || !ok {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt balance %s/%s", owner.Hex(), asset.Hex())
	}
	return binary.BigEndian.Uint64(val), nil
}

// AccountExists reports whether owner holds an account of asset, funded or not.
func (tx *Tx) AccountExists(owner, asset common.Address) (bool, error) {
	_, ok, err := tx.get(balanceKey(owner, asset))
	return ok, err
}

// Record returns the raw record stored at addr and whether it exists.
func (tx *Tx) Record(addr common.Address) ([]byte, bool, error) {
	return tx.get(recordKey(addr))
}

// CreateAsset registers a new asset whose supply is minted by mintAuthority.
func (tx *Tx) CreateAsset(asset, mintAuthority common.Address, decimals uint8) error {
	_, ok, err := tx.get(assetKey(asset))
	if err != nil {
		return err
	}
	if ok {
		return model.ErrAccountExists.Wrapf("asset %s", asset.Hex())
	}
	return tx.putAsset(asset, AssetInfo{MintAuthority: mintAuthority, Decimals: decimals})
}

// CreateAccount opens a zero balance account of asset owned by owner. An
// account opened by a program-derived authority is marked program-owned and
// can only be debited by that program afterwards. Opening an address that
// already holds an account of asset fails, including one that was credited
// before it was opened.
func (tx *Tx) CreateAccount(owner Authority, asset common.Address) error {
	if _, err := tx.Asset(asset); err != nil {
		return err
	}
	addr := owner.Address()
	exists, err := tx.AccountExists(addr, asset)
	if err != nil {
		return err
	}
	if exists {
		return model.ErrAccountExists.Wrapf("account %s/%s", addr.Hex(), asset.Hex())
	}
	if program, derived := owner.programID(); derived {
		if err := tx.checkOwner(owner); err != nil {
			return err
		}
		tx.put(ownerKey(addr), program.Bytes())
	}
	tx.putBalance(addr, asset, 0)
	return nil
}

// CreateRecord stores data at addr, failing if the address is occupied.
func (tx *Tx) CreateRecord(addr common.Address, data []byte) error {
	_, ok, err := tx.get(recordKey(addr))
	if err != nil {
		return err
	}
	if ok {
		return model.ErrAccountExists.Wrapf("record %s", addr.Hex())
	}
	tx.put(recordKey(addr), data)
	return nil
}

// PutRecord overwrites an existing record.
func (tx *Tx) PutRecord(addr common.Address, data []byte) error {
	_, ok, err := tx.get(recordKey(addr))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record %s does not exist", addr.Hex())
	}
	tx.put(recordKey(addr), data)
	return nil
}

// Transfer moves amount of asset from the account of auth to the account of to.
func (tx *Tx) Transfer(auth Authority, asset, to common.Address, amount uint64) error {
	if _, err := tx.Asset(asset); err != nil {
		return err
	}
	from := auth.Address()
	if err := tx.checkOwner(auth); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	if err := tx.debit(from, asset, amount); err != nil {
		return err
	}
	return tx.credit(to, asset, amount)
}

// Mint creates amount of asset in the account of to. auth must be the asset's
// mint authority.
func (tx *Tx) Mint(auth Authority, asset, to common.Address, amount uint64) error {
	info, err := tx.Asset(asset)
	if err != nil {
		return err
	}
	if info.MintAuthority != auth.Address() {
		return model.ErrUnauthorized.Wrapf("%s is not the mint authority of %s", auth.Address().Hex(), asset.Hex())
	}
	if err := tx.checkOwner(auth); err != nil {
		return err
	}
	supply, err := curve.CheckedAdd(info.Supply, amount)
	if err != nil {
		return err
	}
	if err := tx.credit(to, asset, amount); err != nil {
		return err
	}
	info.Supply = supply
	return tx.putAsset(asset, info)
}

// Burn destroys amount of asset held by auth.
func (tx *Tx) Burn(auth Authority, asset common.Address, amount uint64) error {
	info, err := tx.Asset(asset)
	if err != nil {
		return err
	}
	if err := tx.checkOwner(auth); err != nil {
		return err
	}
	if err := tx.debit(auth.Address(), asset, amount); err != nil {
		return err
	}
	if info.Supply < amount {
		return model.ErrInvariantViolated.Wrapf("burn %d exceeds supply %d of %s", amount, info.Supply, asset.Hex())
	}
	info.Supply -= amount
	return tx.putAsset(asset, info)
}

// checkOwner rejects a plain signer acting for a program-owned address, and a
// derived authority acting for another program's address.
func (tx *Tx) checkOwner(auth Authority) error {
	val, owned, err := tx.get(ownerKey(auth.Address()))
	if err != nil {
		return err
	}
	program, isDerived := auth.programID()
	if !owned {
		return nil
	}
	if !isDerived || common.BytesToAddress(val) != program {
		return model.ErrUnauthorized.Wrapf("%s is program-owned", auth.Address().Hex())
	}
	return nil
}

func (tx *Tx) debit(owner, asset common.Address, amount uint64) error {
	bal, err := tx.Balance(owner, asset)
	if err != nil {
		return err
	}
	if bal < amount {
		return model.ErrInsufficientFunds.Wrapf("%s holds %d of %s, needs %d", owner.Hex(), bal, asset.Hex(), amount)
	}
	tx.putBalance(owner, asset, bal-amount)
	return nil
}

func (tx *Tx) credit(owner, asset common.Address, amount uint64) error {
	bal, err := tx.Balance(owner, asset)
	if err != nil {
		return err
	}
	next, err := curve.CheckedAdd(bal, amount)
	if err != nil {
		return err
	}
	tx.putBalance(owner, asset, next)
	return nil
}

func (tx *Tx) putAsset(asset common.Address, info AssetInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode asset: %w", err)
	}
	tx.put(assetKey(asset), data)
	return nil
}

func (tx *Tx) putBalance(owner, asset common.Address, amount uint64) {
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, amount)
	tx.put(balanceKey(owner, asset), val)
}

func (tx *Tx) get(key []byte) ([]byte, bool, error) {
	if val, ok := tx.writes[string(key)]; ok {
		if val == nil {
			return nil, false, nil
		}
		return *val, true, nil
	}
	return tx.store.get(key)
}

func (tx *Tx) put(key, value []byte) {
	v := value
	tx.writes[string(key)] = &v
}

func (tx *Tx) batch() []Write {
	return sortedWrites(tx.writes)
}

func assetKey(asset common.Address) []byte {
	return append([]byte(prefixAsset), asset.Bytes()...)
}

func balanceKey(owner, asset common.Address) []byte {
	key := append([]byte(prefixBalance), owner.Bytes()...)
	return append(key, asset.Bytes()...)
}

func recordKey(addr common.Address) []byte {
	return append([]byte(prefixRecord), addr.Bytes()...)
}

func ownerKey(addr common.Address) []byte {
	return append([]byte(prefixOwner), addr.Bytes()...)
}
