package evm

import (
	"bytes"
	"embed"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/pkg/config"
)

//go:embed abi/*.json
var abiFS embed.FS

// contractOrder fixes the order events are matched in
var contractOrder = []chain.Contract{
	chain.BattleManager,
	chain.MemeRegistry,
	chain.VotingEngine,
	chain.RewardDistributor,
	chain.USDC,
}

// Codec encodes calls and decodes results and logs for the MemeChain contracts
type Codec struct {
	abis      map[chain.Contract]abi.ABI
	addresses map[chain.Contract]common.Address
}

// NewCodec loads the embedded ABIs and binds them to the configured addresses
func NewCodec(contracts config.ContractAddresses) (*Codec, error) {
	addresses := map[chain.Contract]string{
		chain.BattleManager:     contracts.BattleManager,
		chain.MemeRegistry:      contracts.MemeRegistry,
		chain.VotingEngine:      contracts.VotingEngine,
		chain.RewardDistributor: contracts.RewardDistributor,
		chain.USDC:              contracts.USDC,
	}

	c := &Codec{
		abis:      make(map[chain.Contract]abi.ABI, len(contractOrder)),
		addresses: make(map[chain.Contract]common.Address, len(contractOrder)),
	}
	for _, name := range contractOrder {
		raw, err := abiFS.ReadFile("abi/" + string(name) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s abi: %w", name, err)
		}
		parsed, err := abi.JSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s abi: %w", name, err)
		}
		if !common.IsHexAddress(addresses[name]) {
			return nil, fmt.Errorf("invalid %s address %q", name, addresses[name])
		}
		c.abis[name] = parsed
		c.addresses[name] = common.HexToAddress(addresses[name])
	}

	return c, nil
}

// Address returns the deployed address of contract
func (c *Codec) Address(contract chain.Contract) (common.Address, error) {
	addr, ok := c.addresses[contract]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", chain.ErrUnknownContract, contract)
	}
	return addr, nil
}

func (c *Codec) contract(name chain.Contract) (common.Address, abi.ABI, error) {
	parsed, ok := c.abis[name]
	if !ok {
		return common.Address{}, abi.ABI{}, fmt.Errorf("%w: %s", chain.ErrUnknownContract, name)
	}
	return c.addresses[name], parsed, nil
}

// Encode returns the target address and calldata of call
func (c *Codec) Encode(call chain.Call) (common.Address, []byte, error) {
	to, parsed, err := c.contract(call.Contract)
	if err != nil {
		return common.Address{}, nil, err
	}
	if _, ok := parsed.Methods[call.Method]; !ok {
		return common.Address{}, nil, fmt.Errorf("%w: %s.%s", chain.ErrUnknownMethod, call.Contract, call.Method)
	}

	data, err := parsed.Pack(call.Method, call.Args...)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to encode %s.%s: %w", call.Contract, call.Method, err)
	}
	return to, data, nil
}

// Decode unpacks the return data of call. A single output is returned as its value, a tuple
// as a map keyed by component name, and several outputs as a positional []any.
func (c *Codec) Decode(call chain.Call, data []byte) (any, error) {
	_, parsed, err := c.contract(call.Contract)
	if err != nil {
		return nil, err
	}
	method, ok := parsed.Methods[call.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", chain.ErrUnknownMethod, call.Contract, call.Method)
	}

	values, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s.%s: %w", call.Contract, call.Method, err)
	}

	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return normalize(values[0]), nil
	default:
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = normalize(v)
		}
		return out, nil
	}
}

// DecodeEvent implements chain.EventDecoder. A log is only decoded against the ABI of the
// contract deployed at its emitting address. Indexed and non-indexed arguments are merged
// into one map keyed by argument name.
func (c *Codec) DecodeEvent(log chain.Log) (string, map[string]any, error) {
	if len(log.Topics) == 0 {
		return "", nil, chain.ErrUnknownEvent
	}

	for _, name := range contractOrder {
		if c.addresses[name] != log.Address {
			continue
		}
		parsed := c.abis[name]
		event, err := parsed.EventByID(log.Topics[0])
		if err != nil {
			continue
		}

		fields := make(map[string]any)
		if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, log.Data); err != nil {
			return "", nil, fmt.Errorf("failed to decode %s data: %w", event.Name, err)
		}

		var indexed abi.Arguments
		for _, in := range event.Inputs {
			if in.Indexed {
				indexed = append(indexed, in)
			}
		}
		if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
			return "", nil, fmt.Errorf("failed to decode %s topics: %w", event.Name, err)
		}

		return event.Name, fields, nil
	}

	return "", nil, chain.ErrUnknownEvent
}

// normalize turns the anonymous structs abi uses for tuples into maps keyed by the original
// component names, recursively through slices
func normalize(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "" {
				name = field.Name
			}
			out[name] = normalize(rv.Field(i).Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() != reflect.Struct {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}
