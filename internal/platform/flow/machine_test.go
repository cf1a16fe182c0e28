package flow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
	"github.com/kislikjeka/memechain/testutil/ledgerfake"
)

const (
	statusWorking flow.Status = "working"
	statusPending flow.Status = "pending"
)

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Record(ctx context.Context, e flow.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMachine_StartsIdle(t *testing.T) {
	m := flow.NewMachine("vote", nil, testLogger())

	snap := m.Snapshot()
	assert.Equal(t, "vote", snap.Flow)
	assert.Equal(t, flow.StatusIdle, snap.Status)
	assert.Empty(t, snap.RunID)
}

func TestMachine_RejectsConcurrentRun(t *testing.T) {
	m := flow.NewMachine("vote", nil, testLogger())
	ctx := context.Background()

	run, err := m.Begin(ctx, 1, statusWorking)
	require.NoError(t, err)

	_, err = m.Begin(ctx, 1, statusWorking)
	assert.ErrorIs(t, err, flow.ErrInProgress)

	run.Succeed(ctx, nil, "")
	_, err = m.Begin(ctx, 2, statusWorking)
	assert.NoError(t, err)
}

func TestMachine_ErrorRequiresReset(t *testing.T) {
	m := flow.NewMachine("submit", nil, testLogger())
	ctx := context.Background()

	run, err := m.Begin(ctx, 1, statusWorking)
	require.NoError(t, err)

	failed := run.Fail(ctx, errors.New("Submissions closed for this battle"), txerror.Hints{})
	fe, ok := flow.AsError(failed)
	require.True(t, ok)
	assert.Equal(t, statusWorking, fe.Step)
	assert.Equal(t, txerror.SubmissionWindowClosed, fe.Category)

	snap := m.Snapshot()
	assert.Equal(t, flow.StatusError, snap.Status)
	require.NotNil(t, snap.Error)
	assert.NotNil(t, snap.FinishedAt)

	_, err = m.Begin(ctx, 1, statusWorking)
	assert.ErrorIs(t, err, flow.ErrNeedsReset)

	m.Reset()
	assert.Equal(t, flow.StatusIdle, m.Snapshot().Status)
	assert.Nil(t, m.Snapshot().Error)

	_, err = m.Begin(ctx, 1, statusWorking)
	assert.NoError(t, err)
}

func TestMachine_ResetAbandonsRun(t *testing.T) {
	m := flow.NewMachine("create", nil, testLogger())
	ctx := context.Background()

	run, err := m.Begin(ctx, 0, statusWorking)
	require.NoError(t, err)

	m.Reset()
	assert.True(t, run.Stale())
	assert.ErrorIs(t, run.Step(statusPending), flow.ErrReset)

	run.Tx("0xabc")
	run.Succeed(ctx, "late", "")

	snap := m.Snapshot()
	assert.Equal(t, flow.StatusIdle, snap.Status)
	assert.Empty(t, snap.TxHashes)
	assert.Nil(t, snap.Result)

	assert.ErrorIs(t, run.Fail(ctx, errors.New("boom"), txerror.Hints{}), flow.ErrReset)
	assert.Equal(t, flow.StatusIdle, m.Snapshot().Status)
}

func TestMachine_SucceedWithAdvisory(t *testing.T) {
	m := flow.NewMachine("create", nil, testLogger())
	ctx := context.Background()

	run, err := m.Begin(ctx, 3, statusWorking)
	require.NoError(t, err)
	run.Tx("0x01")

	snap := run.Succeed(ctx, map[string]int{"battle_id": 3}, "start it manually")
	assert.Equal(t, flow.StatusSuccess, snap.Status)
	assert.Equal(t, "start it manually", snap.Advisory)
	assert.Equal(t, []string{"0x01"}, snap.TxHashes)
	assert.Equal(t, int64(3), snap.BattleID)
}

func TestMachine_SnapshotIsCopy(t *testing.T) {
	m := flow.NewMachine("vote", nil, testLogger())
	run, err := m.Begin(context.Background(), 1, statusWorking)
	require.NoError(t, err)
	run.Tx("0x01")

	snap := m.Snapshot()
	snap.TxHashes[0] = "mutated"

	assert.Equal(t, []string{"0x01"}, m.Snapshot().TxHashes)
}

func TestMachine_ConcurrentBeginAdmitsOne(t *testing.T) {
	m := flow.NewMachine("vote", nil, testLogger())

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Begin(context.Background(), 1, statusWorking); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
}

func TestMachine_JournalsStartAndFinish(t *testing.T) {
	journal := new(MockJournal)
	journal.On("Record", mock.Anything, mock.MatchedBy(func(e flow.Entry) bool {
		return e.Status == statusWorking && e.FinishedAt == nil
	})).Return(nil).Once()
	journal.On("Record", mock.Anything, mock.MatchedBy(func(e flow.Entry) bool {
		return e.Status == flow.StatusError && e.ErrorCategory == string(txerror.TransactionReverted) && e.FinishedAt != nil
	})).Return(errors.New("db down")).Once()

	m := flow.NewMachine("phase", journal, testLogger())
	ctx := context.Background()

	run, err := m.Begin(ctx, 4, statusWorking)
	require.NoError(t, err)
	_ = run.Fail(ctx, flow.ErrReverted, txerror.Hints{})

	journal.AssertExpectations(t)
	assert.Equal(t, flow.StatusError, m.Snapshot().Status)
}

func TestRun_Transact(t *testing.T) {
	ctx := context.Background()
	call := chain.Call{Contract: chain.BattleManager, Method: "finalizeBattle"}

	t.Run("confirmed", func(t *testing.T) {
		l := ledgerfake.New().OnWrite(chain.BattleManager, "finalizeBattle", func([]any) ledgerfake.Outcome {
			return ledgerfake.Outcome{}
		})
		m := flow.NewMachine("phase", nil, testLogger())
		run, err := m.Begin(ctx, 1, statusWorking)
		require.NoError(t, err)

		receipt, err := run.Transact(ctx, l, call, statusPending)
		require.NoError(t, err)
		assert.True(t, receipt.Succeeded)

		snap := m.Snapshot()
		assert.Equal(t, statusPending, snap.Status)
		assert.Equal(t, []string{receipt.TxHash.Hex()}, snap.TxHashes)
	})

	t.Run("reverted", func(t *testing.T) {
		l := ledgerfake.New().OnWrite(chain.BattleManager, "finalizeBattle", func([]any) ledgerfake.Outcome {
			return ledgerfake.Outcome{Reverted: true}
		})
		m := flow.NewMachine("phase", nil, testLogger())
		run, err := m.Begin(ctx, 1, statusWorking)
		require.NoError(t, err)

		_, err = run.Transact(ctx, l, call, statusPending)
		assert.ErrorIs(t, err, flow.ErrReverted)
		assert.Equal(t, txerror.TransactionReverted, txerror.ClassifyError(err, txerror.Hints{}).Category)
	})

	t.Run("declined", func(t *testing.T) {
		l := ledgerfake.New().OnWrite(chain.BattleManager, "finalizeBattle", func([]any) ledgerfake.Outcome {
			return ledgerfake.Outcome{SubmitErr: errors.New("user rejected the request")}
		})
		m := flow.NewMachine("phase", nil, testLogger())
		run, err := m.Begin(ctx, 1, statusWorking)
		require.NoError(t, err)

		_, err = run.Transact(ctx, l, call, statusPending)
		assert.ErrorContains(t, err, "user rejected")
		assert.Equal(t, statusWorking, m.Snapshot().Status)
		assert.Empty(t, l.Writes())
	})

	t.Run("stale run does not submit", func(t *testing.T) {
		l := ledgerfake.New().OnWrite(chain.BattleManager, "finalizeBattle", func([]any) ledgerfake.Outcome {
			return ledgerfake.Outcome{}
		})
		m := flow.NewMachine("phase", nil, testLogger())
		run, err := m.Begin(ctx, 1, statusWorking)
		require.NoError(t, err)
		m.Reset()

		_, err = run.Transact(ctx, l, call, statusPending)
		assert.ErrorIs(t, err, flow.ErrReset)
		assert.Empty(t, l.Writes())
	})
}
