package submit

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/money"
)

// BattleReader reads the live battle state a submission depends on
type BattleReader interface {
	BattleState(ctx context.Context, battleID int64) (battle.Phase, error)
	MaxSubmissions(ctx context.Context, battleID int64) (int64, error)
	SubmissionCount(ctx context.Context, battleID int64, user string) (int64, error)
}

// MediaStore pins validated media
type MediaStore interface {
	Store(ctx context.Context, f media.File) (*media.Stored, error)
}

// Service submits memes to battles
type Service struct {
	machine *flow.Machine
	guard   *wallet.Guard
	battles BattleReader
	media   MediaStore
	writer  chain.Writer
	events  chain.EventDecoder
	views   flow.Invalidator
}

// NewService creates the submit flow. journal and views may be nil.
func NewService(
	guard *wallet.Guard,
	battles BattleReader,
	store MediaStore,
	writer chain.Writer,
	events chain.EventDecoder,
	views flow.Invalidator,
	journal flow.Journal,
	logger *slog.Logger,
) *Service {
	return &Service{
		machine: flow.NewMachine(Name, journal, logger),
		guard:   guard,
		battles: battles,
		media:   store,
		writer:  writer,
		events:  events,
		views:   views,
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

// Run uploads f and submits it to battleID as session. Every local check runs before the
// upload, and the upload runs before anything is signed.
func (s *Service) Run(ctx context.Context, session wallet.Session, battleID int64, f media.File) (*Result, error) {
	run, err := s.machine.Begin(ctx, battleID, StatusUploading)
	if err != nil {
		return nil, err
	}

	var hints txerror.Hints
	result, err := s.run(ctx, run, session, battleID, f, &hints)
	if err != nil {
		return nil, run.Fail(ctx, err, hints)
	}

	run.Succeed(ctx, result, "")
	return result, nil
}

func (s *Service) run(ctx context.Context, run *flow.Run, session wallet.Session, battleID int64, f media.File, hints *txerror.Hints) (*Result, error) {
	if battleID <= 0 {
		return nil, ErrInvalidBattleID
	}

	if err := media.Validate(f); err != nil {
		return nil, err
	}

	session, err := s.guard.Require(ctx, session)
	if err != nil {
		return nil, err
	}

	limit, err := s.battles.MaxSubmissions(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		hints.MaxSubmissions = &limit
		count, err := s.battles.SubmissionCount(ctx, battleID, session.Address)
		if err != nil {
			return nil, err
		}
		if count >= limit {
			return nil, fmt.Errorf("%w (%d of %d)", ErrLimitReached, count, limit)
		}
	}

	phase, err := s.battles.BattleState(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if phase != battle.PhaseSubmissionOpen {
		return nil, fmt.Errorf("%w: battle is %s", ErrSubmissionsClosed, phase)
	}

	stored, err := s.media.Store(ctx, f)
	if err != nil {
		return nil, err
	}
	result := &Result{BattleID: battleID, CID: stored.CID, Locator: stored.Locator, URL: stored.URL}
	run.SetResult(result)

	if err := run.Step(StatusSigning); err != nil {
		return nil, err
	}
	receipt, err := run.Transact(ctx, s.writer, chain.Call{
		Contract: chain.MemeRegistry,
		Method:   "submitMeme",
		Args:     []any{big.NewInt(battleID), stored.Locator},
	}, StatusPending)
	if err != nil {
		return nil, err
	}

	if fields, ok := flow.ExtractNotification(receipt, s.events, "MemeSubmitted"); ok {
		result.MemeID = money.ToInt64(fields["memeId"], 0)
	}

	if s.views != nil {
		if err := s.views.Invalidate(ctx, battleID); err != nil {
			run.Logger().Warn("failed to invalidate views", "error", err)
		}
	}

	run.Logger().Info("meme submitted", "meme_id", result.MemeID, "cid", result.CID)
	return result, nil
}
