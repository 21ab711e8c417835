package events

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "initializer", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "seed", "type": "uint64"},
      {"indexed": false, "internalType": "address", "name": "assetX", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "assetY", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "lpAsset", "type": "address"},
      {"indexed": false, "internalType": "uint16", "name": "feeBps", "type": "uint16"}
    ],
    "name": "PoolInitialized",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "caller", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "lpAmount", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "supply", "type": "uint64"}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "caller", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "amountIn", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountOut", "type": "uint64"},
      {"indexed": false, "internalType": "bool", "name": "xToY", "type": "bool"},
      {"indexed": false, "internalType": "uint64", "name": "reserveX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveY", "type": "uint64"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "caller", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "lpAmount", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "supply", "type": "uint64"}
    ],
    "name": "Withdraw",
    "type": "event"
  }
]`

var (
	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error
)

// PoolABI returns the parsed pool event ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}
