package model

import "time"

// PoolWindowMetrics stores aggregated metrics for a pool window.
type PoolWindowMetrics struct {
	PoolAddress    string
	Seed           uint64
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	SwapCount      uint64
	DepositCount   uint64
	WithdrawCount  uint64
	VolumeX        string
	VolumeY        string
	FeeX           string
	FeeY           string
	FeeRateX       *string
	FeeRateY       *string
	TVLX           *string
	TVLY           *string
	LPSupply       *string
	APR            *string
	FeeMethod      string
	TVLMethod      string
}

// PoolRow is the analytics view of a pool first seen in the event stream.
type PoolRow struct {
	Address           string
	Seed              uint64
	AssetX            string
	AssetY            string
	LPAsset           string
	FeeBps            uint16
	FirstSeenSequence uint64
}
