package amm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ammLedger/internal/model"
)

// Metrics holds the Prometheus collectors of the pool program.
type Metrics struct {
	InstructionsTotal  *prometheus.CounterVec
	InstructionLatency *prometheus.HistogramVec

	SwapVolume *prometheus.CounterVec
	SwapFees   *prometheus.CounterVec

	PoolReserves *prometheus.GaugeVec
	LPSupply     *prometheus.GaugeVec
	PoolsCreated prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg leaves them
// unregistered, which keeps tests independent of the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InstructionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "instructions_total",
				Help:      "Instructions processed by kind and outcome",
			},
			[]string{"instruction", "status"},
		),
		InstructionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "instruction_latency_seconds",
				Help:      "Instruction execution latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"instruction"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "swap_volume_total",
				Help:      "Swap input volume in base units",
			},
			[]string{"pool", "asset"},
		),
		SwapFees: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "swap_fees_total",
				Help:      "Swap fees retained in the input vault, in base units",
			},
			[]string{"pool", "asset"},
		),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "reserves",
				Help:      "Vault reserves after the last committed instruction",
			},
			[]string{"pool", "asset"},
		),
		LPSupply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "lp_supply",
				Help:      "Outstanding LP units",
			},
			[]string{"pool"},
		),
		PoolsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "pools_created_total",
				Help:      "Pools initialized",
			},
		),
	}
}

func (m *Metrics) observeState(state model.PoolState) {
	if m == nil {
		return
	}
	pool := state.Address.Hex()
	m.PoolReserves.WithLabelValues(pool, state.AssetX.Hex()).Set(float64(state.ReserveX))
	m.PoolReserves.WithLabelValues(pool, state.AssetY.Hex()).Set(float64(state.ReserveY))
	m.LPSupply.WithLabelValues(pool).Set(float64(state.Supply))
}
