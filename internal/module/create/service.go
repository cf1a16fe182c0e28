package create

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/money"
)

// OwnerReader reads the battle manager owner
type OwnerReader interface {
	Owner(ctx context.Context) (string, error)
}

// Clock reads the latest block timestamp
type Clock interface {
	BlockTime(ctx context.Context) (uint64, error)
}

// Service creates battles and optionally opens their submission phase
type Service struct {
	machine *flow.Machine
	guard   *wallet.Guard
	owners  OwnerReader
	clock   Clock
	writer  chain.Writer
	events  chain.EventDecoder
	views   flow.Invalidator
	config  Config
	logger  *slog.Logger
}

// NewService creates the create-battle flow. journal and views may be nil.
func NewService(
	config Config,
	guard *wallet.Guard,
	owners OwnerReader,
	clock Clock,
	writer chain.Writer,
	events chain.EventDecoder,
	views flow.Invalidator,
	journal flow.Journal,
	logger *slog.Logger,
) *Service {
	config.normalize()
	return &Service{
		machine: flow.NewMachine(Name, journal, logger),
		guard:   guard,
		owners:  owners,
		clock:   clock,
		writer:  writer,
		events:  events,
		views:   views,
		config:  config,
		logger:  logger.With("service", Name),
	}
}

// Snapshot returns the current flow state
func (s *Service) Snapshot() flow.Snapshot {
	return s.machine.Snapshot()
}

// Reset returns the flow to idle
func (s *Service) Reset() {
	s.machine.Reset()
}

// Run creates the battle described by p as session. It blocks until the flow settles.
func (s *Service) Run(ctx context.Context, session wallet.Session, p Params) (*Result, error) {
	run, err := s.machine.Begin(ctx, 0, StatusCreating)
	if err != nil {
		return nil, err
	}

	result, err := s.run(ctx, run, session, p)
	if err != nil {
		return nil, run.Fail(ctx, err, txerror.Hints{})
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, run *flow.Run, session wallet.Session, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	session, err := s.guard.Require(ctx, session)
	if err != nil {
		return nil, err
	}

	owner, err := s.owners.Owner(ctx)
	if err != nil {
		return nil, err
	}
	if err := wallet.RequireOwner(session, owner); err != nil {
		return nil, err
	}

	receipt, err := run.Transact(ctx, s.writer, chain.Call{
		Contract: chain.BattleManager,
		Method:   "createBattle",
		Args: []any{
			p.Theme,
			uint64(p.SubmissionStart),
			uint64(p.SubmissionEnd),
			uint64(p.VotingEnd),
			new(big.Int).Set(p.MinStake),
			big.NewInt(p.MaxSubmissionsPerUser),
		},
	}, StatusPendingCreate)
	if err != nil {
		return nil, err
	}

	fields, ok := flow.ExtractNotification(receipt, s.events, "BattleCreated")
	if !ok {
		return nil, ErrMissingBattleID
	}
	battleID := money.ToInt64(fields["battleId"], 0)
	if battleID <= 0 {
		return nil, ErrMissingBattleID
	}

	result := &Result{BattleID: battleID}
	run.SetBattle(battleID)
	run.SetResult(result)
	s.invalidate(ctx, battleID)
	run.Logger().Info("battle created", "battle_id", battleID, "theme", p.Theme)

	if !p.AutoStart {
		run.Succeed(ctx, result, "")
		return result, nil
	}

	reached, err := s.awaitStart(ctx, run, p.SubmissionStart)
	if err != nil {
		return nil, err
	}
	if !reached {
		run.Succeed(ctx, result, ActivationAdvisory)
		return result, nil
	}

	if err := run.Step(StatusStartingSubmission); err != nil {
		return nil, err
	}
	if _, err := run.Transact(ctx, s.writer, chain.Call{
		Contract: chain.BattleManager,
		Method:   "startSubmissionPhase",
		Args:     []any{big.NewInt(battleID)},
	}, StatusPendingStart); err != nil {
		return nil, err
	}

	result.Activated = true
	s.invalidate(ctx, battleID)
	run.Succeed(ctx, result, "")
	return result, nil
}

// awaitStart polls the ledger clock until it reaches start or the activation wait runs out.
// Clock read errors are retried until the deadline.
func (s *Service) awaitStart(ctx context.Context, run *flow.Run, start int64) (bool, error) {
	deadline := time.NewTimer(s.config.ActivationWait)
	defer deadline.Stop()
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		now, err := s.clock.BlockTime(ctx)
		switch {
		case err != nil:
			run.Logger().Debug("block time unavailable", "error", err)
		case int64(now) >= start:
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			run.Logger().Info("activation wait elapsed", "submission_start", start, "wait", s.config.ActivationWait)
			return false, nil
		case <-ticker.C:
			if run.Stale() {
				return false, flow.ErrReset
			}
		}
	}
}

func (s *Service) invalidate(ctx context.Context, battleID int64) {
	if s.views == nil {
		return
	}
	if err := s.views.Invalidate(ctx, battleID); err != nil {
		s.logger.Warn("failed to invalidate views", "battle_id", battleID, "error", err)
	}
}
