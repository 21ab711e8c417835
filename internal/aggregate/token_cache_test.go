package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type countingDecimals struct {
	calls map[common.Address]int
	value uint8
	err   error
}

func (c *countingDecimals) AssetDecimals(_ context.Context, asset common.Address) (uint8, error) {
	c.calls[asset]++
	return c.value, c.err
}

func TestChainedDecimalsFallsThrough(t *testing.T) {
	asset := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	ledger := &countingDecimals{calls: map[common.Address]int{}, value: 9}
	chain := ChainedDecimals{StaticDecimals{}, nil, ledger}

	got, err := chain.AssetDecimals(context.Background(), asset)
	require.NoError(t, err)
	require.Equal(t, uint8(9), got)

	override := ChainedDecimals{StaticDecimals{"0x00000000000000000000000000000000000000aa": 2}, ledger}
	got, err = override.AssetDecimals(context.Background(), asset)
	require.NoError(t, err)
	require.Equal(t, uint8(2), got)
	require.Equal(t, 1, ledger.calls[asset])
}

func TestMemoDecimalsRemembersFailures(t *testing.T) {
	asset := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	source := &countingDecimals{calls: map[common.Address]int{}, err: errors.New("unknown asset")}
	memo := newMemoDecimals(source)

	_, first, err := memo.lookup(context.Background(), asset.Hex())
	require.Error(t, err)
	require.True(t, first)

	_, first, err = memo.lookup(context.Background(), asset.Hex())
	require.Error(t, err)
	require.False(t, first)
	require.Equal(t, 1, source.calls[asset])

	_, _, err = memo.lookup(context.Background(), "not-an-address")
	require.ErrorContains(t, err, "invalid asset address")
}
