package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

// Authority is a signing capability over ledger accounts. Only this package
// can mint one: Signer for externally verified keys, Program.Sign for
// program-derived addresses.
type Authority interface {
	Address() common.Address
	programID() (common.Address, bool)
}

type signer struct {
	addr common.Address
}

// Signer returns the capability of an account whose signature was verified
// by the caller of the ledger. A signer can never act for a program-owned
// address.
func Signer(addr common.Address) Authority {
	return signer{addr: addr}
}

func (s signer) Address() common.Address { return s.addr }

func (s signer) programID() (common.Address, bool) { return common.Address{}, false }

type derived struct {
	addr    common.Address
	program common.Address
}

func (d derived) Address() common.Address { return d.addr }

func (d derived) programID() (common.Address, bool) { return d.program, true }

// Program is the handle through which a program signs for its derived
// addresses. Whoever holds it can sign, so it must not leave the program.
type Program struct {
	id common.Address
}

func NewProgram(id common.Address) *Program {
	return &Program{id: id}
}

// ID returns the program identity used in address derivation.
func (p *Program) ID() common.Address {
	return p.id
}

// Sign returns the authority of the address derived from seeds and bump.
func (p *Program) Sign(seeds [][]byte, bump uint8) (Authority, error) {
	addr, err := CreateProgramAddress(seeds, bump, p.id)
	if err != nil {
		return nil, err
	}
	return derived{addr: addr, program: p.id}, nil
}

// CreateProgramAddress derives keccak256(seeds || bump || programID || marker)
// and takes its last 20 bytes.
func CreateProgramAddress(seeds [][]byte, bump uint8, programID common.Address) (common.Address, error) {
	if len(seeds) > maxSeeds {
		return common.Address{}, fmt.Errorf("too many seeds: %d", len(seeds))
	}

	parts := make([][]byte, 0, len(seeds)+3)
	for i, seed := range seeds {
		if len(seed) > maxSeedLength {
			return common.Address{}, fmt.Errorf("seed %d too long: %d bytes", i, len(seed))
		}
		parts = append(parts, seed)
	}
	parts = append(parts, []byte{bump}, programID.Bytes(), []byte(pdaMarker))

	addr := common.BytesToAddress(crypto.Keccak256(parts...)[12:])
	if isReservedAddress(addr) {
		return common.Address{}, fmt.Errorf("derived address %s is reserved", addr.Hex())
	}
	return addr, nil
}

// FindProgramAddress returns the first valid derived address searching the
// bump downward from 255.
func FindProgramAddress(seeds [][]byte, programID common.Address) (common.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(seeds, uint8(bump), programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return common.Address{}, 0, fmt.Errorf("no valid bump for seeds")
}

// isReservedAddress rejects the zero address and the precompile range.
func isReservedAddress(addr common.Address) bool {
	for _, b := range addr[:common.AddressLength-1] {
		if b != 0 {
			return false
		}
	}
	return true
}
