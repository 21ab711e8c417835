package model

// TypedEvent is a decoded pool event enriched with pool metadata.
type TypedEvent struct {
	Sequence  uint64      `json:"sequence"`
	LogIndex  uint64      `json:"log_index"`
	Address   string      `json:"address"`
	EventName string      `json:"event_name"`
	Timestamp uint64      `json:"timestamp"`
	Decoded   interface{} `json:"decoded"`
	PoolMeta  PoolMeta    `json:"pool_meta"`
	Raw       *RawLogRef  `json:"raw,omitempty"`
}

// PoolMeta captures the immutable pool fields analytics needs.
type PoolMeta struct {
	Seed    uint64 `json:"seed"`
	AssetX  string `json:"asset_x"`
	AssetY  string `json:"asset_y"`
	LPAsset string `json:"lp_asset"`
	FeeBps  uint16 `json:"fee_bps"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}
