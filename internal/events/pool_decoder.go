package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ammLedger/internal/model"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	Topic0Map map[string]string
}

// PoolDecoder decodes the events of the pool program.
type PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewPoolDecoder builds a pool event decoder. Topic0Map entries add aliases
// for the known events.
func NewPoolDecoder(cfg DecoderConfig) (*PoolDecoder, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	for topic0, name := range cfg.Topic0Map {
		raw := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", raw)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *PoolDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent. A PoolInitialized event
// primes the metadata cache for the pool's later events.
func (d *PoolDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	event := d.poolABI.Events[name]
	caller, err := parseCaller(event, log.Topics)
	if err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}

	if name == model.EventPoolInitialized {
		decoded, err := decodePoolInitialized(caller, values)
		if err != nil {
			return nil, err
		}
		meta := model.PoolMeta{
			Seed:    decoded.Seed,
			AssetX:  decoded.AssetX,
			AssetY:  decoded.AssetY,
			LPAsset: decoded.LPAsset,
			FeeBps:  decoded.FeeBps,
		}
		if ctx.PoolMetaCache != nil {
			ctx.PoolMetaCache.Set(pool, meta)
		}
		return buildTypedEvent(log, name, decoded, meta), nil
	}

	meta, err := getPoolMeta(ctx, pool)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	switch name {
	case model.EventDeposit:
		decoded, err = decodeDeposit(caller, values)
	case model.EventSwap:
		decoded, err = decodeSwap(caller, values)
	case model.EventWithdraw:
		decoded, err = decodeWithdraw(caller, values)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return buildTypedEvent(log, name, decoded, meta), nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "poolinitialized", "initialize":
		return model.EventPoolInitialized
	case "deposit":
		return model.EventDeposit
	case "swap":
		return model.EventSwap
	case "withdraw":
		return model.EventWithdraw
	default:
		return ""
	}
}

func getPoolMeta(ctx DecodeContext, pool common.Address) (model.PoolMeta, error) {
	if ctx.PoolMetaCache != nil {
		if meta, ok := ctx.PoolMetaCache.Get(pool); ok {
			return meta, nil
		}
	}
	if ctx.Source == nil {
		return model.PoolMeta{}, fmt.Errorf("no metadata for pool %s", pool.Hex())
	}

	callCtx := ctx.Context
	if callCtx == nil {
		callCtx = context.Background()
	}
	meta, err := ctx.Source.PoolMeta(callCtx, pool)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("pool meta %s: %w", pool.Hex(), err)
	}
	if ctx.PoolMetaCache != nil {
		ctx.PoolMetaCache.Set(pool, meta)
	}
	return meta, nil
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}, meta model.PoolMeta) *model.TypedEvent {
	raw := &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	return &model.TypedEvent{
		Sequence:  log.Sequence,
		LogIndex:  log.LogIndex,
		Address:   log.Address,
		EventName: name,
		Timestamp: log.Timestamp,
		Decoded:   decoded,
		PoolMeta:  meta,
		Raw:       raw,
	}
}

func decodePoolInitialized(caller common.Address, values []interface{}) (model.PoolInitializedEventData, error) {
	if len(values) != 5 {
		return model.PoolInitializedEventData{}, fmt.Errorf("unexpected pool initialized values: %d", len(values))
	}
	seed, err := asUint64(values[0])
	if err != nil {
		return model.PoolInitializedEventData{}, err
	}
	assets := make([]common.Address, 3)
	for i := range assets {
		if assets[i], err = asAddress(values[i+1]); err != nil {
			return model.PoolInitializedEventData{}, err
		}
	}
	fee, ok := values[4].(uint16)
	if !ok {
		return model.PoolInitializedEventData{}, fmt.Errorf("unexpected fee type %T", values[4])
	}
	return model.PoolInitializedEventData{
		Initializer: caller.Hex(),
		Seed:        seed,
		AssetX:      assets[0].Hex(),
		AssetY:      assets[1].Hex(),
		LPAsset:     assets[2].Hex(),
		FeeBps:      fee,
	}, nil
}

func decodeDeposit(caller common.Address, values []interface{}) (model.DepositEventData, error) {
	nums, err := asUint64s(values, 6)
	if err != nil {
		return model.DepositEventData{}, fmt.Errorf("deposit: %w", err)
	}
	return model.DepositEventData{
		Caller:   caller.Hex(),
		LPAmount: nums[0],
		AmountX:  nums[1],
		AmountY:  nums[2],
		ReserveX: nums[3],
		ReserveY: nums[4],
		Supply:   nums[5],
	}, nil
}

func decodeWithdraw(caller common.Address, values []interface{}) (model.WithdrawEventData, error) {
	nums, err := asUint64s(values, 6)
	if err != nil {
		return model.WithdrawEventData{}, fmt.Errorf("withdraw: %w", err)
	}
	return model.WithdrawEventData{
		Caller:   caller.Hex(),
		LPAmount: nums[0],
		AmountX:  nums[1],
		AmountY:  nums[2],
		ReserveX: nums[3],
		ReserveY: nums[4],
		Supply:   nums[5],
	}, nil
}

func decodeSwap(caller common.Address, values []interface{}) (model.SwapEventData, error) {
	if len(values) != 5 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	xToY, ok := values[2].(bool)
	if !ok {
		return model.SwapEventData{}, fmt.Errorf("unexpected direction type %T", values[2])
	}
	nums, err := asUint64s([]interface{}{values[0], values[1], values[3], values[4]}, 4)
	if err != nil {
		return model.SwapEventData{}, fmt.Errorf("swap: %w", err)
	}
	return model.SwapEventData{
		Caller:    caller.Hex(),
		AmountIn:  nums[0],
		AmountOut: nums[1],
		XToY:      xToY,
		ReserveX:  nums[2],
		ReserveY:  nums[3],
	}, nil
}

func parseCaller(event abi.Event, topics []string) (common.Address, error) {
	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return common.Address{}, err
	}
	var indexed struct {
		Initializer common.Address
		Caller      common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return common.Address{}, fmt.Errorf("parse topics: %w", err)
	}
	if event.Name == model.EventPoolInitialized {
		return indexed.Initializer, nil
	}
	return indexed.Caller, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asUint64s(values []interface{}, want int) ([]uint64, error) {
	if len(values) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(values))
	}
	out := make([]uint64, len(values))
	for i, v := range values {
		n, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func asUint64(v interface{}) (uint64, error) {
	n, ok := v.(uint64)
	if !ok {
		return 0, fmt.Errorf("unexpected integer type %T", v)
	}
	return n, nil
}

func asAddress(v interface{}) (common.Address, error) {
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected address type %T", v)
	}
	return addr, nil
}
