package ledger

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ammLedger/internal/model"
)

var (
	issuer = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob    = common.HexToAddress("0x3000000000000000000000000000000000000003")
	usd    = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(NewMemKV(), 16, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedAsset(t *testing.T, store *Store, holder common.Address, amount uint64) {
	t.Helper()
	err := store.Update(context.Background(), func(tx *Tx) error {
		if err := tx.CreateAsset(usd, issuer, 6); err != nil {
			return err
		}
		return tx.Mint(Signer(issuer), usd, holder, amount)
	})
	require.NoError(t, err)
}

func balanceOf(t *testing.T, store *Store, owner, asset common.Address) uint64 {
	t.Helper()
	var bal uint64
	err := store.View(context.Background(), func(r Reader) error {
		var err error
		bal, err = r.Balance(owner, asset)
		return err
	})
	require.NoError(t, err)
	return bal
}

func TestMintTransferBurn(t *testing.T) {
	store := newMemStore(t)
	seedAsset(t, store, alice, 1_000)

	err := store.Update(context.Background(), func(tx *Tx) error {
		if err := tx.Transfer(Signer(alice), usd, bob, 300); err != nil {
			return err
		}
		return tx.Burn(Signer(bob), usd, 100)
	})
	require.NoError(t, err)

	require.Equal(t, uint64(700), balanceOf(t, store, alice, usd))
	require.Equal(t, uint64(200), balanceOf(t, store, bob, usd))

	err = store.View(context.Background(), func(r Reader) error {
		info, err := r.Asset(usd)
		require.NoError(t, err)
		require.Equal(t, uint64(900), info.Supply)
		require.Equal(t, uint64(2), r.Sequence())
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store := newMemStore(t)
	seedAsset(t, store, alice, 1_000)

	err := store.Update(context.Background(), func(tx *Tx) error {
		if err := tx.Transfer(Signer(alice), usd, bob, 600); err != nil {
			return err
		}
		// Reads inside the transaction see the first transfer.
		bal, err := tx.Balance(bob, usd)
		require.NoError(t, err)
		require.Equal(t, uint64(600), bal)
		return tx.Transfer(Signer(alice), usd, bob, 600)
	})
	require.ErrorIs(t, err, model.ErrInsufficientFunds)

	require.Equal(t, uint64(1_000), balanceOf(t, store, alice, usd))
	require.Equal(t, uint64(0), balanceOf(t, store, bob, usd))
}

func TestMintRequiresAuthority(t *testing.T) {
	store := newMemStore(t)
	seedAsset(t, store, alice, 1)

	err := store.Update(context.Background(), func(tx *Tx) error {
		return tx.Mint(Signer(alice), usd, alice, 10)
	})
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestMintOverflowAborts(t *testing.T) {
	store := newMemStore(t)
	seedAsset(t, store, alice, math.MaxUint64)

	err := store.Update(context.Background(), func(tx *Tx) error {
		return tx.Mint(Signer(issuer), usd, bob, 1)
	})
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
}

func TestProgramOwnedAccount(t *testing.T) {
	store := newMemStore(t)
	seedAsset(t, store, alice, 1_000)

	program := NewProgram(common.HexToAddress("0x9999999999999999999999999999999999999999"))
	seeds := [][]byte{[]byte("vault")}
	addr, bump, err := FindProgramAddress(seeds, program.ID())
	require.NoError(t, err)
	auth, err := program.Sign(seeds, bump)
	require.NoError(t, err)
	require.Equal(t, addr, auth.Address())

	err = store.Update(context.Background(), func(tx *Tx) error {
		if err := tx.CreateAccount(auth, usd); err != nil {
			return err
		}
		return tx.Transfer(Signer(alice), usd, addr, 500)
	})
	require.NoError(t, err)

	// A plain signer cannot debit a program-owned account.
	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.Transfer(Signer(addr), usd, bob, 100)
	})
	require.ErrorIs(t, err, model.ErrUnauthorized)

	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.Transfer(auth, usd, bob, 100)
	})
	require.NoError(t, err)
	require.Equal(t, uint64(400), balanceOf(t, store, addr, usd))

	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.CreateAccount(Signer(bob), usd)
	})
	require.ErrorIs(t, err, model.ErrAccountExists)
}

func TestDerivedAccountRejectsPrefundedAddress(t *testing.T) {
	store := newMemStore(t)
	seedAsset(t, store, alice, 1_000)

	program := NewProgram(common.HexToAddress("0x9999999999999999999999999999999999999999"))
	seeds := [][]byte{[]byte("vault")}
	addr, bump, err := FindProgramAddress(seeds, program.ID())
	require.NoError(t, err)

	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.Transfer(Signer(alice), usd, addr, 10)
	})
	require.NoError(t, err)

	auth, err := program.Sign(seeds, bump)
	require.NoError(t, err)
	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.CreateAccount(auth, usd)
	})
	require.ErrorIs(t, err, model.ErrAccountExists)

	// The failed open must not have claimed the address for the program.
	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.Transfer(Signer(addr), usd, alice, 10)
	})
	require.NoError(t, err)
	require.Equal(t, uint64(0), balanceOf(t, store, addr, usd))
}

func TestProgramAddressDeterministic(t *testing.T) {
	programID := common.HexToAddress("0x9999999999999999999999999999999999999999")
	seeds := [][]byte{[]byte("config"), {1, 0, 0, 0, 0, 0, 0, 0}}

	a1, b1, err := FindProgramAddress(seeds, programID)
	require.NoError(t, err)
	a2, b2, err := FindProgramAddress(seeds, programID)
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.Equal(t, b1, b2)

	other, _, err := FindProgramAddress([][]byte{[]byte("config"), {2, 0, 0, 0, 0, 0, 0, 0}}, programID)
	require.NoError(t, err)
	require.NotEqual(t, a1, other)

	_, err = CreateProgramAddress([][]byte{make([]byte, 33)}, 255, programID)
	require.Error(t, err)
}

func TestRecords(t *testing.T) {
	store := newMemStore(t)
	addr := common.HexToAddress("0x4000000000000000000000000000000000000004")

	err := store.Update(context.Background(), func(tx *Tx) error {
		return tx.CreateRecord(addr, []byte(`{"v":1}`))
	})
	require.NoError(t, err)

	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.CreateRecord(addr, []byte(`{"v":2}`))
	})
	require.ErrorIs(t, err, model.ErrAccountExists)

	err = store.Update(context.Background(), func(tx *Tx) error {
		return tx.PutRecord(addr, []byte(`{"v":3}`))
	})
	require.NoError(t, err)

	err = store.View(context.Background(), func(r Reader) error {
		data, ok, err := r.Record(addr)
		require.NoError(t, err)
		require.True(t, ok)
		require.JSONEq(t, `{"v":3}`, string(data))
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateCanceledContext(t *testing.T) {
	store := newMemStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Update(ctx, func(tx *Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("transaction ran on a canceled context")
	}
}

func TestPebblePersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")

	kv, err := OpenPebble(dir)
	require.NoError(t, err)
	store, err := NewStore(kv, 16, nil)
	require.NoError(t, err)
	seedAsset(t, store, alice, 1_234)
	require.NoError(t, store.Close())

	kv, err = OpenPebble(dir)
	require.NoError(t, err)
	store, err = NewStore(kv, 16, nil)
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, uint64(1_234), balanceOf(t, store, alice, usd))
}
