package model

// Instruction kinds accepted by the pool program.
const (
	InstructionInitialize = "initialize"
	InstructionDeposit    = "deposit"
	InstructionSwap       = "swap"
	InstructionWithdraw   = "withdraw"
)

// Instruction is one request of a replay journal. Unused fields are ignored
// for a given kind.
type Instruction struct {
	Kind      string `json:"kind"`
	Caller    string `json:"caller"`
	Seed      uint64 `json:"seed"`
	FeeBps    uint16 `json:"fee_bps,omitempty"`
	Authority string `json:"authority,omitempty"`
	AssetX    string `json:"asset_x,omitempty"`
	AssetY    string `json:"asset_y,omitempty"`
	LPAmount  uint64 `json:"lp_amount,omitempty"`
	MaxX      uint64 `json:"max_x,omitempty"`
	MaxY      uint64 `json:"max_y,omitempty"`
	MinX      uint64 `json:"min_x,omitempty"`
	MinY      uint64 `json:"min_y,omitempty"`
	AmountIn  uint64 `json:"amount_in,omitempty"`
	MinOut    uint64 `json:"min_amount_out,omitempty"`
	XToY      bool   `json:"x_to_y,omitempty"`
}
