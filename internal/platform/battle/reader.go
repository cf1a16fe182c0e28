package battle

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/money"
)

// Reader aggregates ledger reads into typed views. It holds no state; every call reflects the
// ledger as of its own batched read.
type Reader struct {
	chain   chain.Reader
	gateway string
	logger  *slog.Logger
}

// NewReader creates a read aggregator. gateway is the IPFS gateway used for meme image URLs.
func NewReader(r chain.Reader, gateway string, logger *slog.Logger) *Reader {
	return &Reader{
		chain:   r,
		gateway: gateway,
		logger:  logger.With("component", "battle_reader"),
	}
}

// BattleCounter returns the highest battle id assigned so far
func (r *Reader) BattleCounter(ctx context.Context) (int64, error) {
	v, err := r.chain.Read(ctx, chain.Call{Contract: chain.BattleManager, Method: "battleCounter"})
	if err != nil {
		return 0, fmt.Errorf("failed to read battle counter: %w", err)
	}
	return money.ToInt64(v, 0), nil
}

// ListBattles returns every battle in [1, battleCounter] with its prize pool and meme count,
// using one multicall. Battles whose record is missing or undecodable are skipped.
func (r *Reader) ListBattles(ctx context.Context) ([]Summary, error) {
	counter, err := r.BattleCounter(ctx)
	if err != nil {
		return nil, err
	}
	if counter <= 0 {
		return []Summary{}, nil
	}

	calls := make([]chain.Call, 0, counter*3)
	for id := int64(1); id <= counter; id++ {
		calls = append(calls,
			battleCall("battles", id),
			chain.Call{Contract: chain.RewardDistributor, Method: "prizePool", Args: []any{big.NewInt(id)}},
			chain.Call{Contract: chain.MemeRegistry, Method: "getBattleMemes", Args: []any{big.NewInt(id)}},
		)
	}

	results, err := r.chain.Multicall(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("failed to read battles: %w", err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("failed to read battles: got %d results for %d calls", len(results), len(calls))
	}

	summaries := make([]Summary, 0, counter)
	for i := 0; i < len(results); i += 3 {
		id := int64(i/3) + 1
		b, ok := r.decodeBattleResult(id, results[i])

		// prize and meme reads are consumed even when the record is skipped
		prize := resultBig(results[i+1])
		memeCount := len(DecodeIDs(results[i+2].Value))
		if !ok {
			continue
		}

		summaries = append(summaries, Summary{
			Battle:    *b,
			PrizePool: prize,
			MemeCount: memeCount,
		})
	}

	return summaries, nil
}

// GetBattle returns one battle with its prize pool, or nil when the ledger has no record
func (r *Reader) GetBattle(ctx context.Context, id int64) (*Detail, error) {
	results, err := r.chain.Multicall(ctx, []chain.Call{
		battleCall("battles", id),
		{Contract: chain.RewardDistributor, Method: "prizePool", Args: []any{big.NewInt(id)}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read battle %d: %w", id, err)
	}
	if len(results) != 2 {
		return nil, fmt.Errorf("failed to read battle %d: got %d results", id, len(results))
	}

	b, ok := r.decodeBattleResult(id, results[0])
	if !ok {
		return nil, nil
	}

	return &Detail{Battle: *b, PrizePool: resultBig(results[1])}, nil
}

// ListMemes resolves the meme ids of a battle and reads them in one multicall.
// Memes whose record cannot be read or decoded are left out.
func (r *Reader) ListMemes(ctx context.Context, battleID int64) ([]Meme, error) {
	v, err := r.chain.Read(ctx, chain.Call{Contract: chain.MemeRegistry, Method: "getBattleMemes", Args: []any{big.NewInt(battleID)}})
	if err != nil {
		return nil, fmt.Errorf("failed to read memes of battle %d: %w", battleID, err)
	}

	ids := DecodeIDs(v)
	if len(ids) == 0 {
		return []Meme{}, nil
	}

	calls := make([]chain.Call, len(ids))
	for i, id := range ids {
		calls[i] = chain.Call{Contract: chain.MemeRegistry, Method: "getMeme", Args: []any{big.NewInt(id)}}
	}

	results, err := r.chain.Multicall(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("failed to read memes of battle %d: %w", battleID, err)
	}

	memes := make([]Meme, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			r.logger.Debug("skipping unreadable meme", "meme_id", ids[i], "error", res.Err)
			continue
		}
		m, err := DecodeMeme(res.Value)
		if err != nil {
			r.logger.Debug("skipping undecodable meme", "meme_id", ids[i], "error", err)
			continue
		}
		m.ImageURL = media.ImageURL(r.gateway, m.IPFSHash)
		memes = append(memes, *m)
	}

	return memes, nil
}

// GetUserVote returns the voter's live vote in a battle, or nil when there is none
func (r *Reader) GetUserVote(ctx context.Context, battleID int64, voter string) (*UserVote, error) {
	addr, err := toAddress(voter)
	if err != nil {
		return nil, err
	}

	v, err := r.chain.Read(ctx, chain.Call{Contract: chain.VotingEngine, Method: "votes", Args: []any{big.NewInt(battleID), addr}})
	if err != nil {
		return nil, fmt.Errorf("failed to read vote: %w", err)
	}
	return DecodeVote(v), nil
}

// Owner returns the battle manager owner address
func (r *Reader) Owner(ctx context.Context) (string, error) {
	v, err := r.chain.Read(ctx, chain.Call{Contract: chain.BattleManager, Method: "owner"})
	if err != nil {
		return "", fmt.Errorf("failed to read owner: %w", err)
	}
	switch o := v.(type) {
	case string:
		return o, nil
	case common.Address:
		return o.Hex(), nil
	default:
		return "", fmt.Errorf("%w: owner of type %T", ErrDecode, v)
	}
}

// BattleState reads the current phase of a battle, bypassing any cache
func (r *Reader) BattleState(ctx context.Context, battleID int64) (Phase, error) {
	v, err := r.chain.Read(ctx, battleCall("getBattleState", battleID))
	if err != nil {
		return PhaseUpcoming, fmt.Errorf("failed to read state of battle %d: %w", battleID, err)
	}
	return PhaseFrom(v), nil
}

// MinStake reads the minimum vote stake of a battle in base units
func (r *Reader) MinStake(ctx context.Context, battleID int64) (*big.Int, error) {
	v, err := r.chain.Read(ctx, battleCall("minStakeForVoting", battleID))
	if err != nil {
		return nil, fmt.Errorf("failed to read min stake of battle %d: %w", battleID, err)
	}
	return money.ToBigInt(v, 0), nil
}

// MaxSubmissions reads the per-user submission limit of a battle (0 = unlimited)
func (r *Reader) MaxSubmissions(ctx context.Context, battleID int64) (int64, error) {
	v, err := r.chain.Read(ctx, battleCall("maxSubmissionsPerUser", battleID))
	if err != nil {
		return 0, fmt.Errorf("failed to read submission limit of battle %d: %w", battleID, err)
	}
	return money.ToInt64(v, 0), nil
}

// SubmissionCount reads how many memes user already submitted to a battle
func (r *Reader) SubmissionCount(ctx context.Context, battleID int64, user string) (int64, error) {
	addr, err := toAddress(user)
	if err != nil {
		return 0, err
	}

	v, err := r.chain.Read(ctx, chain.Call{Contract: chain.MemeRegistry, Method: "submissionsPerUser", Args: []any{big.NewInt(battleID), addr}})
	if err != nil {
		return 0, fmt.Errorf("failed to read submission count: %w", err)
	}
	return money.ToInt64(v, 0), nil
}

// Balance reads the USDC balance of owner in base units
func (r *Reader) Balance(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := toAddress(owner)
	if err != nil {
		return nil, err
	}

	v, err := r.chain.Read(ctx, chain.Call{Contract: chain.USDC, Method: "balanceOf", Args: []any{addr}})
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	return money.ToBigInt(v, 0), nil
}

// Allowance reads how much spender may move from owner's USDC
func (r *Reader) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	ownerAddr, err := toAddress(owner)
	if err != nil {
		return nil, err
	}
	spenderAddr, err := toAddress(spender)
	if err != nil {
		return nil, err
	}

	v, err := r.chain.Read(ctx, chain.Call{Contract: chain.USDC, Method: "allowance", Args: []any{ownerAddr, spenderAddr}})
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}
	return money.ToBigInt(v, 0), nil
}

func (r *Reader) decodeBattleResult(id int64, res chain.Result) (*Battle, bool) {
	if res.Err != nil {
		r.logger.Debug("skipping unreadable battle", "battle_id", id, "error", res.Err)
		return nil, false
	}
	b, err := DecodeBattle(res.Value)
	if err != nil {
		r.logger.Debug("skipping undecodable battle", "battle_id", id, "error", err)
		return nil, false
	}
	// an unset mapping slot decodes as the zero record
	if b.ID <= 0 {
		return nil, false
	}
	return b, true
}

func battleCall(method string, id int64) chain.Call {
	return chain.Call{Contract: chain.BattleManager, Method: method, Args: []any{big.NewInt(id)}}
}

func resultBig(res chain.Result) *big.Int {
	if res.Err != nil {
		return big.NewInt(0)
	}
	return money.ToBigInt(res.Value, 0)
}

func toAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
