package phase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
)

// OwnerReader reads the battle manager owner
type OwnerReader interface {
	Owner(ctx context.Context) (string, error)
}

// Service advances a battle through one phase transition. Timestamps are not checked
// locally; the ledger decides whether the transition is allowed.
type Service struct {
	action  Action
	machine *flow.Machine
	guard   *wallet.Guard
	owners  OwnerReader
	writer  chain.Writer
	views   flow.Invalidator
}

// NewService creates the flow for one action. journal and views may be nil.
func NewService(
	action Action,
	guard *wallet.Guard,
	owners OwnerReader,
	writer chain.Writer,
	views flow.Invalidator,
	journal flow.Journal,
	logger *slog.Logger,
) *Service {
	return &Service{
		action:  action,
		machine: flow.NewMachine(action.FlowName(), journal, logger),
		guard:   guard,
		owners:  owners,
		writer:  writer,
		views:   views,
	}
}

// Action returns the transition this flow performs
func (s *Service) Action() Action {
	return s.action
}

// Snapshot returns the current flow state
func (s *Service) Snapshot() flow.Snapshot {
	return s.machine.Snapshot()
}

// Reset returns the flow to idle
func (s *Service) Reset() {
	s.machine.Reset()
}

// Run performs the transition on battleID as session
func (s *Service) Run(ctx context.Context, session wallet.Session, battleID int64) (*Result, error) {
	run, err := s.machine.Begin(ctx, battleID, StatusSigning)
	if err != nil {
		return nil, err
	}

	if err := s.run(ctx, run, session, battleID); err != nil {
		return nil, run.Fail(ctx, err, txerror.Hints{})
	}

	result := &Result{BattleID: battleID, Action: s.action}
	run.Succeed(ctx, result, "")
	return result, nil
}

func (s *Service) run(ctx context.Context, run *flow.Run, session wallet.Session, battleID int64) error {
	if battleID <= 0 {
		return ErrInvalidBattleID
	}

	session, err := s.guard.Require(ctx, session)
	if err != nil {
		return err
	}

	owner, err := s.owners.Owner(ctx)
	if err != nil {
		return err
	}
	if err := wallet.RequireOwner(session, owner); err != nil {
		return err
	}

	if _, err := run.Transact(ctx, s.writer, chain.Call{
		Contract: chain.BattleManager,
		Method:   s.action.Method(),
		Args:     []any{big.NewInt(battleID)},
	}, StatusPending); err != nil {
		return err
	}

	if s.views != nil {
		if err := s.views.Invalidate(ctx, battleID); err != nil {
			run.Logger().Warn("failed to invalidate views", "error", err)
		}
	}
	return nil
}

// Set holds one flow per action so each transition is tracked independently
type Set struct {
	flows map[Action]*Service
}

// NewSet creates the three phase flows
func NewSet(
	guard *wallet.Guard,
	owners OwnerReader,
	writer chain.Writer,
	views flow.Invalidator,
	journal flow.Journal,
	logger *slog.Logger,
) *Set {
	set := &Set{flows: make(map[Action]*Service, len(Actions))}
	for _, a := range Actions {
		set.flows[a] = NewService(a, guard, owners, writer, views, journal, logger)
	}
	return set
}

// Get returns the flow for action
func (s *Set) Get(action Action) (*Service, error) {
	svc, ok := s.flows[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return svc, nil
}

// Snapshots returns the state of every phase flow in lifecycle order
func (s *Set) Snapshots() []flow.Snapshot {
	snaps := make([]flow.Snapshot, 0, len(Actions))
	for _, a := range Actions {
		snaps = append(snaps, s.flows[a].Snapshot())
	}
	return snaps
}
