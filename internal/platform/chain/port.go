package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Contract names one of the MemeChain contracts
type Contract string

const (
	BattleManager     Contract = "BattleManager"
	MemeRegistry      Contract = "MemeRegistry"
	VotingEngine      Contract = "VotingEngine"
	RewardDistributor Contract = "RewardDistributor"
	USDC              Contract = "USDC"
)

// Call is one method invocation against a named contract. Args must carry the Go types the
// ABI expects (uint64 for uint64, *big.Int for uint256, common.Address for address).
type Call struct {
	Contract Contract
	Method   string
	Args     []any
}

// Result is the outcome of one call inside a multicall.
// Value is a scalar for single outputs, a positional []any for multiple outputs and a
// map[string]any for tuple outputs.
type Result struct {
	Value any
	Err   error
}

// Log is an event emitted by a confirmed transaction
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Receipt is the confirmation of a submitted write
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Succeeded   bool
	Logs        []Log
}

// Reader performs side-effect free calls
type Reader interface {
	// Read executes a single call against the latest block
	Read(ctx context.Context, call Call) (any, error)

	// Multicall executes every call in one batched round trip. A failing call is reported in
	// its Result and does not fail the batch.
	Multicall(ctx context.Context, calls []Call) ([]Result, error)

	// BlockTime returns the timestamp of the latest block in unix seconds
	BlockTime(ctx context.Context) (uint64, error)
}

// Writer signs and broadcasts state-changing calls
type Writer interface {
	// Submit returns once the transaction is accepted by the node, not when it is mined
	Submit(ctx context.Context, call Call) (common.Hash, error)

	// WaitReceipt blocks until the transaction is mined or ctx ends
	WaitReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// EventDecoder decodes a log into its event name and named arguments
type EventDecoder interface {
	DecodeEvent(log Log) (string, map[string]any, error)
}
