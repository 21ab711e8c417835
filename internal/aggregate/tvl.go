package aggregate

import "math/big"

const (
	tvlMethodEvent   = "post_event_reserves"
	tvlMethodCarried = "carried_reserves"
	tvlMethodNone    = "unavailable"
)

// reserveSnapshot is the last pool balance seen in the event stream. Every
// pool event reports the vault balances after it committed, so TVL needs no
// ledger access.
type reserveSnapshot struct {
	reserveX    uint64
	reserveY    uint64
	supply      uint64
	known       bool
	supplyKnown bool
	fromWindow  bool
}

func (s *reserveSnapshot) set(reserveX, reserveY, supply uint64, supplyKnown bool) {
	s.reserveX = reserveX
	s.reserveY = reserveY
	s.supply = supply
	s.known = true
	s.supplyKnown = supplyKnown
	s.fromWindow = true
}

// tvl returns the reserves backing the pool at the end of the window, or nil
// when no event has reported them yet.
func (s reserveSnapshot) tvl() (*big.Int, *big.Int, *big.Int, string) {
	if !s.known {
		return nil, nil, nil, tvlMethodNone
	}
	method := tvlMethodEvent
	if !s.fromWindow {
		method = tvlMethodCarried
	}
	var supply *big.Int
	if s.supplyKnown {
		supply = new(big.Int).SetUint64(s.supply)
	}
	return new(big.Int).SetUint64(s.reserveX), new(big.Int).SetUint64(s.reserveY), supply, method
}
