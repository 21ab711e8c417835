package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DecimalsSource resolves the decimals of a ledger asset.
type DecimalsSource interface {
	AssetDecimals(ctx context.Context, asset common.Address) (uint8, error)
}

// memoDecimals remembers every answer, including failures, so a pool whose
// asset is unknown logs once per run rather than once per window.
type memoDecimals struct {
	source DecimalsSource
	known  map[common.Address]uint8
	failed map[common.Address]error
}

func newMemoDecimals(source DecimalsSource) *memoDecimals {
	return &memoDecimals{
		source: source,
		known:  make(map[common.Address]uint8),
		failed: make(map[common.Address]error),
	}
}

// lookup returns the decimals of asset and whether this is the first failure
// seen for it.
func (m *memoDecimals) lookup(ctx context.Context, asset string) (uint8, bool, error) {
	if !common.IsHexAddress(asset) {
		return 0, false, fmt.Errorf("invalid asset address: %s", asset)
	}
	addr := common.HexToAddress(asset)
	if decimals, ok := m.known[addr]; ok {
		return decimals, false, nil
	}
	if err, ok := m.failed[addr]; ok {
		return 0, false, err
	}
	if m.source == nil {
		m.failed[addr] = fmt.Errorf("no decimals source for %s", addr.Hex())
		return 0, true, m.failed[addr]
	}
	decimals, err := m.source.AssetDecimals(ctx, addr)
	if err != nil {
		m.failed[addr] = err
		return 0, true, err
	}
	m.known[addr] = decimals
	return decimals, false, nil
}

// StaticDecimals maps lowercase hex asset addresses to decimals.
type StaticDecimals map[string]uint8

func (s StaticDecimals) AssetDecimals(_ context.Context, asset common.Address) (uint8, error) {
	decimals, ok := s[strings.ToLower(asset.Hex())]
	if !ok {
		return 0, fmt.Errorf("no decimals configured for %s", asset.Hex())
	}
	return decimals, nil
}

// ChainedDecimals tries each source in order.
type ChainedDecimals []DecimalsSource

func (c ChainedDecimals) AssetDecimals(ctx context.Context, asset common.Address) (uint8, error) {
	var lastErr error
	for _, source := range c {
		if source == nil {
			continue
		}
		decimals, err := source.AssetDecimals(ctx, asset)
		if err == nil {
			return decimals, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no decimals source for %s", asset.Hex())
	}
	return 0, lastErr
}
