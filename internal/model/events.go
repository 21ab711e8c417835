package model

// Event names emitted by the pool program.
const (
	EventPoolInitialized = "PoolInitialized"
	EventDeposit         = "Deposit"
	EventSwap            = "Swap"
	EventWithdraw        = "Withdraw"
)

// PoolInitializedEventData is the decoded PoolInitialized payload.
type PoolInitializedEventData struct {
	Initializer string `json:"initializer"`
	Seed        uint64 `json:"seed"`
	AssetX      string `json:"asset_x"`
	AssetY      string `json:"asset_y"`
	LPAsset     string `json:"lp_asset"`
	FeeBps      uint16 `json:"fee_bps"`
}

// SwapEventData is the decoded Swap payload.
type SwapEventData struct {
	Caller    string `json:"caller"`
	AmountIn  uint64 `json:"amount_in"`
	AmountOut uint64 `json:"amount_out"`
	XToY      bool   `json:"x_to_y"`
	ReserveX  uint64 `json:"reserve_x_after"`
	ReserveY  uint64 `json:"reserve_y_after"`
}

// DepositEventData is the decoded Deposit payload.
type DepositEventData struct {
	Caller   string `json:"caller"`
	LPAmount uint64 `json:"lp_amount"`
	AmountX  uint64 `json:"amount_x"`
	AmountY  uint64 `json:"amount_y"`
	ReserveX uint64 `json:"reserve_x_after"`
	ReserveY uint64 `json:"reserve_y_after"`
	Supply   uint64 `json:"supply_after"`
}

// WithdrawEventData is the decoded Withdraw payload.
type WithdrawEventData struct {
	Caller   string `json:"caller"`
	LPAmount uint64 `json:"lp_amount"`
	AmountX  uint64 `json:"amount_x"`
	AmountY  uint64 `json:"amount_y"`
	ReserveX uint64 `json:"reserve_x_after"`
	ReserveY uint64 `json:"reserve_y_after"`
	Supply   uint64 `json:"supply_after"`
}
