package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
)

// ErrChainMismatch is returned when the RPC endpoint serves a different chain than requested
var ErrChainMismatch = errors.New("rpc endpoint serves a different chain")

// Client talks to an EVM node over JSON-RPC. It implements chain.Reader, chain.Writer,
// chain.EventDecoder and wallet.NetworkSwitcher. Without a signing key it is read-only.
type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	codec   *Codec
	chainID *big.Int
	signer  *bind.TransactOpts
	address common.Address
	logger  *slog.Logger
}

// Dial connects to rpcURL. privateKeyHex may be empty for a read-only client.
func Dial(ctx context.Context, rpcURL string, codec *Codec, privateKeyHex string, logger *slog.Logger) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	c, err := NewClient(ctx, rc, codec, privateKeyHex, logger)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an established RPC connection
func NewClient(ctx context.Context, rc *rpc.Client, codec *Codec, privateKeyHex string, logger *slog.Logger) (*Client, error) {
	eth := ethclient.NewClient(rc)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	c := &Client{
		rpc:     rc,
		eth:     eth,
		codec:   codec,
		chainID: chainID,
		logger:  logger.With("component", "evm"),
	}

	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid signer private key: %w", err)
		}
		if err := c.setSigner(key); err != nil {
			return nil, err
		}
	}

	c.logger.Info("connected to chain", "chain_id", chainID, "signer", c.signerAddress())
	return c, nil
}

func (c *Client) setSigner(key *ecdsa.PrivateKey) error {
	opts, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return fmt.Errorf("failed to create transactor: %w", err)
	}
	c.signer = opts
	c.address = crypto.PubkeyToAddress(key.PublicKey)
	return nil
}

func (c *Client) signerAddress() string {
	if c.signer == nil {
		return ""
	}
	return c.address.Hex()
}

// Close releases the RPC connection
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID returns the chain served by the endpoint
func (c *Client) ChainID() int64 {
	return c.chainID.Int64()
}

// Session returns the signing identity as a wallet session
func (c *Client) Session() wallet.Session {
	if c.signer == nil {
		return wallet.Session{ChainID: c.ChainID()}
	}
	return wallet.NewSession(c.address.Hex(), c.ChainID())
}

// SwitchNetwork implements wallet.NetworkSwitcher. A server-side signer is bound to its
// endpoint, so switching only succeeds when the endpoint already serves chainID.
func (c *Client) SwitchNetwork(ctx context.Context, chainID int64) error {
	if c.ChainID() != chainID {
		return fmt.Errorf("%w: endpoint serves %d, requested %d", ErrChainMismatch, c.ChainID(), chainID)
	}
	return nil
}

// Read implements chain.Reader
func (c *Client) Read(ctx context.Context, call chain.Call) (any, error) {
	to, data, err := c.codec.Encode(call)
	if err != nil {
		return nil, err
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", call.Contract, call.Method, err)
	}
	return c.codec.Decode(call, out)
}

// Multicall implements chain.Reader with one JSON-RPC batch of eth_call requests
func (c *Client) Multicall(ctx context.Context, calls []chain.Call) ([]chain.Result, error) {
	results := make([]chain.Result, len(calls))
	if len(calls) == 0 {
		return results, nil
	}

	batch := make([]rpc.BatchElem, 0, len(calls))
	index := make([]int, 0, len(calls))
	outputs := make([]hexutil.Bytes, len(calls))

	for i, call := range calls {
		to, data, err := c.codec.Encode(call)
		if err != nil {
			results[i].Err = err
			continue
		}
		batch = append(batch, rpc.BatchElem{
			Method: "eth_call",
			Args: []any{
				map[string]any{"to": to, "input": hexutil.Bytes(data)},
				"latest",
			},
			Result: &outputs[i],
		})
		index = append(index, i)
	}

	if len(batch) > 0 {
		if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
			return nil, fmt.Errorf("multicall of %d calls failed: %w", len(batch), err)
		}
	}

	for j, elem := range batch {
		i := index[j]
		if elem.Error != nil {
			results[i].Err = fmt.Errorf("%s.%s: %w", calls[i].Contract, calls[i].Method, elem.Error)
			continue
		}
		results[i].Value, results[i].Err = c.codec.Decode(calls[i], outputs[i])
	}

	c.logger.Debug("multicall", "calls", len(calls), "batched", len(batch))
	return results, nil
}

// BlockTime implements chain.Reader
func (c *Client) BlockTime(ctx context.Context) (uint64, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read latest block: %w", err)
	}
	return header.Time, nil
}

// Submit implements chain.Writer
func (c *Client) Submit(ctx context.Context, call chain.Call) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, chain.ErrNoSigner
	}

	to, parsed, err := c.codec.contract(call.Contract)
	if err != nil {
		return common.Hash{}, err
	}

	opts := *c.signer
	opts.Context = ctx

	contract := bind.NewBoundContract(to, parsed, c.eth, c.eth, c.eth)
	tx, err := contract.Transact(&opts, call.Method, call.Args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s.%s: %w", call.Contract, call.Method, err)
	}

	c.logger.Info("transaction sent", "method", call.Method, "tx_hash", tx.Hash().Hex(), "nonce", tx.Nonce())
	return tx.Hash(), nil
}

// WaitReceipt implements chain.Writer
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error) {
	tx, _, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction %s: %w", hash.Hex(), err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", hash.Hex(), err)
	}

	return toReceipt(receipt), nil
}

// DecodeEvent implements chain.EventDecoder
func (c *Client) DecodeEvent(log chain.Log) (string, map[string]any, error) {
	return c.codec.DecodeEvent(log)
}

func toReceipt(r *types.Receipt) *chain.Receipt {
	logs := make([]chain.Log, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = chain.Log{Address: l.Address, Topics: l.Topics, Data: l.Data}
	}

	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}

	return &chain.Receipt{
		TxHash:      r.TxHash,
		BlockNumber: block,
		Succeeded:   r.Status == types.ReceiptStatusSuccessful,
		Logs:        logs,
	}
}

var (
	_ chain.Reader           = (*Client)(nil)
	_ chain.Writer           = (*Client)(nil)
	_ chain.EventDecoder     = (*Client)(nil)
	_ wallet.NetworkSwitcher = (*Client)(nil)
)
