package phase_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/memechain/internal/module/phase"
	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/testutil/ledgerfake"
)

const (
	chainID   = int64(84532)
	ownerAddr = "0x52908400098527886E0F7030069857D2E4169EE7"
	otherAddr = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSet(l *ledgerfake.Ledger) *phase.Set {
	reader := battle.NewReader(l, "https://gateway.example", testLogger())
	return phase.NewSet(wallet.NewGuard(chainID, nil), reader, l, nil, nil, testLogger())
}

func newLedger() *ledgerfake.Ledger {
	l := ledgerfake.New().Returns(chain.BattleManager, "owner", common.HexToAddress(ownerAddr))
	for _, a := range phase.Actions {
		l.OnWrite(chain.BattleManager, a.Method(), func([]any) ledgerfake.Outcome { return ledgerfake.Outcome{} })
	}
	return l
}

func TestParseAction(t *testing.T) {
	a, err := phase.ParseAction("start-voting")
	require.NoError(t, err)
	assert.Equal(t, phase.ActionStartVoting, a)
	assert.Equal(t, "startVotingPhase", a.Method())

	_, err = phase.ParseAction("archive")
	assert.ErrorIs(t, err, phase.ErrUnknownAction)
}

func TestPhase_EachActionCallsItsMethod(t *testing.T) {
	for _, a := range phase.Actions {
		t.Run(string(a), func(t *testing.T) {
			l := newLedger()
			svc, err := newSet(l).Get(a)
			require.NoError(t, err)

			result, err := svc.Run(context.Background(), wallet.NewSession(ownerAddr, chainID), 9)
			require.NoError(t, err)
			assert.Equal(t, a, result.Action)

			writes := l.Writes()
			require.Len(t, writes, 1)
			assert.Equal(t, a.Method(), writes[0].Method)
			assert.Equal(t, "9", writes[0].Args[0].(*big.Int).String())
			assert.Equal(t, flow.StatusSuccess, svc.Snapshot().Status)
		})
	}
}

func TestPhase_NonOwnerNeverSigns(t *testing.T) {
	l := newLedger()
	svc, err := newSet(l).Get(phase.ActionFinalize)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), wallet.NewSession(otherAddr, chainID), 9)
	assert.ErrorIs(t, err, wallet.ErrNotOwner)
	assert.Empty(t, l.Writes())

	snap := svc.Snapshot()
	assert.Equal(t, flow.StatusError, snap.Status)
	assert.Equal(t, phase.StatusSigning, snap.Error.Step)
}

func TestPhase_RevertedTransition(t *testing.T) {
	l := newLedger()
	l.OnWrite(chain.BattleManager, "startVotingPhase", func([]any) ledgerfake.Outcome {
		return ledgerfake.Outcome{Reverted: true}
	})
	svc, err := newSet(l).Get(phase.ActionStartVoting)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), wallet.NewSession(ownerAddr, chainID), 2)
	fe, ok := flow.AsError(err)
	require.True(t, ok)
	assert.Equal(t, phase.StatusPending, fe.Step)
	assert.Equal(t, txerror.TransactionReverted, fe.Category)
}

func TestPhase_FlowsAreIndependent(t *testing.T) {
	l := newLedger()
	set := newSet(l)

	finalize, err := set.Get(phase.ActionFinalize)
	require.NoError(t, err)
	_, err = finalize.Run(context.Background(), wallet.NewSession(otherAddr, chainID), 1)
	require.Error(t, err)

	voting, err := set.Get(phase.ActionStartVoting)
	require.NoError(t, err)
	_, err = voting.Run(context.Background(), wallet.NewSession(ownerAddr, chainID), 1)
	require.NoError(t, err)

	snaps := set.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, flow.StatusIdle, snaps[0].Status)
	assert.Equal(t, flow.StatusSuccess, snaps[1].Status)
	assert.Equal(t, flow.StatusError, snaps[2].Status)

	_, err = set.Get(phase.Action("archive"))
	assert.ErrorIs(t, err, phase.ErrUnknownAction)
}
