package vote

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/money"
)

// StakeReader reads the live values a vote depends on
type StakeReader interface {
	MinStake(ctx context.Context, battleID int64) (*big.Int, error)
	Balance(ctx context.Context, owner string) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)
	GetUserVote(ctx context.Context, battleID int64, voter string) (*battle.UserVote, error)
}

// continuation is the vote waiting on an approval receipt
type continuation struct {
	runID  string
	params Params
}

// Service casts and updates votes, approving the voting engine first when the allowance does
// not cover the increment
type Service struct {
	machine *flow.Machine
	guard   *wallet.Guard
	stakes  StakeReader
	writer  chain.Writer
	events  chain.EventDecoder
	views   flow.Invalidator
	config  Config

	mu      sync.Mutex
	pending *continuation
}

// NewService creates the vote flow. journal and views may be nil.
func NewService(
	config Config,
	guard *wallet.Guard,
	stakes StakeReader,
	writer chain.Writer,
	events chain.EventDecoder,
	views flow.Invalidator,
	journal flow.Journal,
	logger *slog.Logger,
) *Service {
	return &Service{
		machine: flow.NewMachine(Name, journal, logger),
		guard:   guard,
		stakes:  stakes,
		writer:  writer,
		events:  events,
		views:   views,
		config:  config,
	}
}

// Snapshot returns the current flow state
func (s *Service) Snapshot() flow.Snapshot {
	return s.machine.Snapshot()
}

// Reset returns the flow to idle and drops any vote waiting on an approval
func (s *Service) Reset() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.machine.Reset()
}

// Run votes p.Amount for p.MemeID as session
func (s *Service) Run(ctx context.Context, session wallet.Session, p Params) (*Result, error) {
	run, err := s.machine.Begin(ctx, p.BattleID, StatusChecking)
	if err != nil {
		return nil, err
	}

	var hints txerror.Hints
	result, err := s.run(ctx, run, session, p, &hints)
	if err != nil {
		s.clearContinuation(run.ID().String())
		return nil, run.Fail(ctx, err, hints)
	}

	run.Succeed(ctx, result, "")
	return result, nil
}

func (s *Service) run(ctx context.Context, run *flow.Run, session wallet.Session, p Params, hints *txerror.Hints) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(s.config.Spender) {
		return nil, ErrMissingSpender
	}

	session, err := s.guard.Require(ctx, session)
	if err != nil {
		return nil, err
	}

	minStake, err := s.stakes.MinStake(ctx, p.BattleID)
	if err != nil {
		return nil, err
	}
	hints.MinStake = money.Format(minStake) + " USDC"
	if p.Amount.Cmp(minStake) < 0 {
		return nil, fmt.Errorf("%w (%s < %s)", ErrBelowMinStake, money.Format(p.Amount), money.Format(minStake))
	}

	balance, err := s.stakes.Balance(ctx, session.Address)
	if err != nil {
		return nil, err
	}
	hints.Balance = money.Format(balance) + " USDC"
	if p.Amount.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w (%s > %s)", ErrInsufficientBalance, money.Format(p.Amount), money.Format(balance))
	}

	existing, err := s.stakes.GetUserVote(ctx, p.BattleID, session.Address)
	if err != nil {
		return nil, err
	}
	var current *big.Int
	if existing != nil {
		current = existing.Amount
	}
	needed := money.Increment(current, p.Amount)

	approved := false
	if needed.Sign() > 0 {
		allowance, err := s.stakes.Allowance(ctx, session.Address, s.config.Spender)
		if err != nil {
			return nil, err
		}
		if allowance.Cmp(needed) < 0 {
			next, err := s.approve(ctx, run, p, needed)
			if err != nil {
				return nil, err
			}
			p = next
			approved = true
		}
	}

	if err := run.Step(StatusVoting); err != nil {
		return nil, err
	}
	receipt, err := run.Transact(ctx, s.writer, chain.Call{
		Contract: chain.VotingEngine,
		Method:   "vote",
		Args:     []any{big.NewInt(p.BattleID), big.NewInt(p.MemeID), new(big.Int).Set(p.Amount)},
	}, StatusPending)
	if err != nil {
		return nil, err
	}

	if fields, ok := flow.ExtractNotification(receipt, s.events, "VoteCast"); ok {
		run.Logger().Debug("vote cast", "meme_id", fields["memeId"], "amount", fields["amount"])
	}

	if s.views != nil {
		if err := s.views.Invalidate(ctx, p.BattleID); err != nil {
			run.Logger().Warn("failed to invalidate views", "error", err)
		}
	}

	result := &Result{
		BattleID: p.BattleID,
		MemeID:   p.MemeID,
		Amount:   new(big.Int).Set(p.Amount),
		Approved: approved,
	}
	s.refresh(ctx, run, session.Address, result)
	return result, nil
}

// approve stores p as the continuation, grants the allowance and, once the approval is
// confirmed, hands back the stored vote
func (s *Service) approve(ctx context.Context, run *flow.Run, p Params, needed *big.Int) (Params, error) {
	amount := s.config.ApprovalAmount
	if amount == nil || amount.Cmp(needed) < 0 {
		amount = needed
	}

	s.mu.Lock()
	s.pending = &continuation{runID: run.ID().String(), params: p}
	s.mu.Unlock()

	if err := run.Step(StatusApproving); err != nil {
		return Params{}, err
	}
	if _, err := run.Transact(ctx, s.writer, chain.Call{
		Contract: chain.USDC,
		Method:   "approve",
		Args:     []any{common.HexToAddress(s.config.Spender), new(big.Int).Set(amount)},
	}, StatusApproving); err != nil {
		return Params{}, err
	}

	next, ok := s.takeContinuation(run.ID().String())
	if !ok {
		return Params{}, flow.ErrReset
	}
	run.Logger().Info("allowance approved, continuing with vote", "amount", amount.String())
	return next, nil
}

// refresh re-reads the voter's vote and balance after a confirmed vote. Failures leave the
// fields empty; the vote itself already succeeded.
func (s *Service) refresh(ctx context.Context, run *flow.Run, voter string, result *Result) {
	if v, err := s.stakes.GetUserVote(ctx, result.BattleID, voter); err != nil {
		run.Logger().Warn("failed to refresh vote", "error", err)
	} else {
		result.Vote = v
	}

	if b, err := s.stakes.Balance(ctx, voter); err != nil {
		run.Logger().Warn("failed to refresh balance", "error", err)
	} else {
		result.Balance = b
	}
}

// PendingVote returns the vote waiting on an approval receipt, if any
func (s *Service) PendingVote() *Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := s.pending.params
	return &p
}

// takeContinuation claims the stored vote only when runID stored it. A run abandoned by
// Reset must not consume the continuation of the run that replaced it.
func (s *Service) takeContinuation(runID string) (Params, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.runID != runID {
		return Params{}, false
	}
	p := s.pending.params
	s.pending = nil
	return p, true
}

func (s *Service) clearContinuation(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.runID == runID {
		s.pending = nil
	}
}
