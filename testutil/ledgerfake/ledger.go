package ledgerfake

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/kislikjeka/memechain/internal/platform/chain"
)

// Event is a notification emitted by a fake write
type Event struct {
	Name   string
	Fields map[string]any
}

// Outcome scripts what a write does
type Outcome struct {
	SubmitErr  error // returned by Submit, as when the wallet declines to sign
	ReceiptErr error // returned by WaitReceipt
	Reverted   bool
	Events     []Event
}

// ReadFunc answers a read for the given arguments
type ReadFunc func(args []any) (any, error)

// WriteFunc scripts the outcome of a write for the given arguments
type WriteFunc func(args []any) Outcome

// Ledger is an in-memory chain.Reader, chain.Writer and chain.EventDecoder driven by
// per-method handlers. Every receipt carries one unrelated log ahead of the scripted events.
type Ledger struct {
	mu         sync.Mutex
	reads      map[string]ReadFunc
	writes     map[string]WriteFunc
	pending    map[common.Hash]Outcome
	events     map[common.Hash]Event
	readLog    []chain.Call
	writeLog   []chain.Call
	multicalls int
	blockTime  func() uint64
	nonce      uint64
}

// New creates an empty fake ledger
func New() *Ledger {
	return &Ledger{
		reads:     make(map[string]ReadFunc),
		writes:    make(map[string]WriteFunc),
		pending:   make(map[common.Hash]Outcome),
		events:    make(map[common.Hash]Event),
		blockTime: func() uint64 { return 0 },
	}
}

func key(c chain.Contract, method string) string {
	return fmt.Sprintf("%s.%s", c, method)
}

// OnRead installs a read handler
func (l *Ledger) OnRead(c chain.Contract, method string, fn ReadFunc) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads[key(c, method)] = fn
	return l
}

// Returns installs a read handler that always answers value
func (l *Ledger) Returns(c chain.Contract, method string, value any) *Ledger {
	return l.OnRead(c, method, func([]any) (any, error) { return value, nil })
}

// OnWrite installs a write handler
func (l *Ledger) OnWrite(c chain.Contract, method string, fn WriteFunc) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes[key(c, method)] = fn
	return l
}

// SetBlockTime installs the latest-block clock
func (l *Ledger) SetBlockTime(fn func() uint64) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blockTime = fn
	return l
}

// Read implements chain.Reader
func (l *Ledger) Read(ctx context.Context, call chain.Call) (any, error) {
	l.mu.Lock()
	l.readLog = append(l.readLog, call)
	fn, ok := l.reads[key(call.Contract, call.Method)]
	l.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnknownMethod, key(call.Contract, call.Method))
	}
	return fn(call.Args)
}

// Multicall implements chain.Reader
func (l *Ledger) Multicall(ctx context.Context, calls []chain.Call) ([]chain.Result, error) {
	l.mu.Lock()
	l.multicalls++
	l.mu.Unlock()

	results := make([]chain.Result, len(calls))
	for i, call := range calls {
		v, err := l.Read(ctx, call)
		results[i] = chain.Result{Value: v, Err: err}
	}
	return results, nil
}

// BlockTime implements chain.Reader
func (l *Ledger) BlockTime(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	fn := l.blockTime
	l.mu.Unlock()
	return fn(), nil
}

// Submit implements chain.Writer
func (l *Ledger) Submit(ctx context.Context, call chain.Call) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, ok := l.writes[key(call.Contract, call.Method)]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s", chain.ErrUnknownMethod, key(call.Contract, call.Method))
	}

	outcome := fn(call.Args)
	if outcome.SubmitErr != nil {
		return common.Hash{}, outcome.SubmitErr
	}

	l.writeLog = append(l.writeLog, call)
	hash := l.nextHash()
	l.pending[hash] = outcome
	return hash, nil
}

// WaitReceipt implements chain.Writer
func (l *Ledger) WaitReceipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	outcome, ok := l.pending[hash]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	if outcome.ReceiptErr != nil {
		return nil, outcome.ReceiptErr
	}

	logs := []chain.Log{{Topics: []common.Hash{l.nextHash()}, Data: []byte{0xde, 0xad}}}
	for _, ev := range outcome.Events {
		topic := l.nextHash()
		l.events[topic] = ev
		logs = append(logs, chain.Log{Topics: []common.Hash{topic}})
	}

	return &chain.Receipt{
		TxHash:      hash,
		BlockNumber: l.nonce,
		Succeeded:   !outcome.Reverted,
		Logs:        logs,
	}, nil
}

// DecodeEvent implements chain.EventDecoder
func (l *Ledger) DecodeEvent(log chain.Log) (string, map[string]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(log.Topics) == 0 {
		return "", nil, chain.ErrUnknownEvent
	}
	ev, ok := l.events[log.Topics[0]]
	if !ok {
		return "", nil, chain.ErrUnknownEvent
	}
	return ev.Name, ev.Fields, nil
}

// Writes returns the writes accepted so far
func (l *Ledger) Writes() []chain.Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]chain.Call(nil), l.writeLog...)
}

// WriteMethods returns the method names of accepted writes, in order
func (l *Ledger) WriteMethods() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	methods := make([]string, len(l.writeLog))
	for i, c := range l.writeLog {
		methods[i] = c.Method
	}
	return methods
}

// Reads returns every read issued so far, including those inside multicalls
func (l *Ledger) Reads() []chain.Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]chain.Call(nil), l.readLog...)
}

// Multicalls returns how many batched reads were issued
func (l *Ledger) Multicalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.multicalls
}

func (l *Ledger) nextHash() common.Hash {
	l.nonce++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], l.nonce)
	return crypto.Keccak256Hash(buf[:])
}

var (
	_ chain.Reader       = (*Ledger)(nil)
	_ chain.Writer       = (*Ledger)(nil)
	_ chain.EventDecoder = (*Ledger)(nil)
)
