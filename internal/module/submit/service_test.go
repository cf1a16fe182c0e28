package submit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/memechain/internal/module/submit"
	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/testutil/ledgerfake"
)

const (
	chainID  = int64(84532)
	userAddr = "0x52908400098527886E0F7030069857D2E4169EE7"
	testCID  = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakePinner struct {
	mu    sync.Mutex
	pins  int
	err   error
	names []string
}

func (p *fakePinner) Pin(ctx context.Context, name, contentType string, data []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.pins++
	p.names = append(p.names, name)
	return testCID, nil
}

type recordingInvalidator struct {
	ids []int64
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, battleID int64) error {
	r.ids = append(r.ids, battleID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	ledger *ledgerfake.Ledger
	pinner *fakePinner
	views  *recordingInvalidator
	svc    *submit.Service
}

func newFixture(state uint8, limit, count int64) *fixture {
	l := ledgerfake.New().
		Returns(chain.BattleManager, "getBattleState", state).
		Returns(chain.BattleManager, "maxSubmissionsPerUser", big.NewInt(limit)).
		Returns(chain.MemeRegistry, "submissionsPerUser", big.NewInt(count))
	l.OnWrite(chain.MemeRegistry, "submitMeme", func([]any) ledgerfake.Outcome {
		return ledgerfake.Outcome{Events: []ledgerfake.Event{
			{Name: "MemeSubmitted", Fields: map[string]any{"memeId": big.NewInt(12), "battleId": big.NewInt(7)}},
		}}
	})

	pinner := &fakePinner{}
	views := &recordingInvalidator{}
	reader := battle.NewReader(l, "https://gateway.example", testLogger())
	store := media.NewStore(pinner, "https://gateway.example", testLogger())
	svc := submit.NewService(wallet.NewGuard(chainID, nil), reader, store, l, l, views, nil, testLogger())

	return &fixture{ledger: l, pinner: pinner, views: views, svc: svc}
}

func pngFile() media.File {
	return media.File{Name: "cat.png", ContentType: "image/png", Data: pngBytes}
}

func session() wallet.Session {
	return wallet.NewSession(userAddr, chainID)
}

func readMethods(l *ledgerfake.Ledger) []string {
	var methods []string
	for _, c := range l.Reads() {
		methods = append(methods, c.Method)
	}
	return methods
}

// =============================================================================
// Happy path
// =============================================================================

func TestSubmit_Success(t *testing.T) {
	f := newFixture(1, 3, 1)

	result, err := f.svc.Run(context.Background(), session(), 7, pngFile())
	require.NoError(t, err)

	assert.Equal(t, int64(12), result.MemeID)
	assert.Equal(t, testCID, result.CID)
	assert.Equal(t, "ipfs://"+testCID, result.Locator)
	assert.Equal(t, "https://gateway.example/ipfs/"+testCID, result.URL)

	writes := f.ledger.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "submitMeme", writes[0].Method)
	assert.Equal(t, "7", writes[0].Args[0].(*big.Int).String())
	assert.Equal(t, "ipfs://"+testCID, writes[0].Args[1])

	assert.Equal(t, 1, f.pinner.pins)
	assert.Equal(t, []int64{7}, f.views.ids)
	assert.Equal(t, flow.StatusSuccess, f.svc.Snapshot().Status)
}

func TestSubmit_UnlimitedSkipsCount(t *testing.T) {
	f := newFixture(1, 0, 99)

	_, err := f.svc.Run(context.Background(), session(), 7, pngFile())
	require.NoError(t, err)

	assert.NotContains(t, readMethods(f.ledger), "submissionsPerUser")
}

func TestSubmit_WithoutNotification(t *testing.T) {
	f := newFixture(1, 0, 0)
	f.ledger.OnWrite(chain.MemeRegistry, "submitMeme", func([]any) ledgerfake.Outcome {
		return ledgerfake.Outcome{}
	})

	result, err := f.svc.Run(context.Background(), session(), 7, pngFile())
	require.NoError(t, err)
	assert.Zero(t, result.MemeID)
}

// =============================================================================
// Rejections before signing
// =============================================================================

func TestSubmit_RejectedOutsideSubmissionWindow(t *testing.T) {
	for _, state := range []uint8{0, 2, 3, 4, 5} {
		t.Run(battle.PhaseFrom(state).String(), func(t *testing.T) {
			f := newFixture(state, 0, 0)

			_, err := f.svc.Run(context.Background(), session(), 7, pngFile())
			assert.ErrorIs(t, err, submit.ErrSubmissionsClosed)

			fe, ok := flow.AsError(err)
			require.True(t, ok)
			assert.Equal(t, txerror.SubmissionWindowClosed, fe.Category)
			assert.Equal(t, submit.StatusUploading, fe.Step)

			assert.Empty(t, f.ledger.Writes())
			assert.Zero(t, f.pinner.pins)
		})
	}
}

func TestSubmit_LimitReached(t *testing.T) {
	f := newFixture(1, 3, 3)

	_, err := f.svc.Run(context.Background(), session(), 7, pngFile())
	assert.ErrorIs(t, err, submit.ErrLimitReached)

	fe, ok := flow.AsError(err)
	require.True(t, ok)
	assert.Equal(t, txerror.SubmissionLimitReached, fe.Category)
	assert.Contains(t, fe.Message, "3 submissions")
	assert.Empty(t, f.ledger.Writes())
	assert.Zero(t, f.pinner.pins)
}

func TestSubmit_InvalidFile(t *testing.T) {
	tests := []struct {
		name   string
		file   media.File
		reason media.Reason
	}{
		{"unsupported type", media.File{Name: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")}, media.ReasonUnsupportedType},
		{"too large", media.File{Name: "big.png", ContentType: "image/png", Data: append(append([]byte{}, pngBytes...), make([]byte, media.MaxFileSize)...)}, media.ReasonTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(1, 0, 0)

			_, err := f.svc.Run(context.Background(), session(), 7, tt.file)
			ve, ok := media.AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, ve.Reason)

			assert.Empty(t, f.ledger.Reads())
			assert.Empty(t, f.ledger.Writes())
			assert.Zero(t, f.pinner.pins)
		})
	}
}

type countingSwitcher struct {
	calls int
}

func (s *countingSwitcher) SwitchNetwork(ctx context.Context, chainID int64) error {
	s.calls++
	return nil
}

func TestSubmit_InvalidFileRejectedBeforeNetworkSwitch(t *testing.T) {
	f := newFixture(1, 0, 0)
	switcher := &countingSwitcher{}
	store := media.NewStore(f.pinner, "https://gateway.example", testLogger())
	reader := battle.NewReader(f.ledger, "https://gateway.example", testLogger())
	svc := submit.NewService(wallet.NewGuard(chainID, switcher), reader, store, f.ledger, f.ledger, f.views, nil, testLogger())

	wrongNetwork := wallet.NewSession(userAddr, 1)
	pdf := media.File{Name: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")}

	_, err := svc.Run(context.Background(), wrongNetwork, 7, pdf)
	_, ok := media.AsValidationError(err)
	require.True(t, ok)
	assert.Zero(t, switcher.calls)

	svc.Reset()
	_, err = svc.Run(context.Background(), wrongNetwork, 7, pngFile())
	require.NoError(t, err)
	assert.Equal(t, 1, switcher.calls)
}

func TestSubmit_NotConnected(t *testing.T) {
	f := newFixture(1, 0, 0)

	_, err := f.svc.Run(context.Background(), wallet.Session{}, 7, pngFile())
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
	assert.Empty(t, f.ledger.Reads())
}

func TestSubmit_PinFailure(t *testing.T) {
	f := newFixture(1, 0, 0)
	f.pinner.err = errors.New("pinning service unavailable")

	_, err := f.svc.Run(context.Background(), session(), 7, pngFile())
	assert.ErrorContains(t, err, "pinning service unavailable")
	assert.Empty(t, f.ledger.Writes())

	fe, ok := flow.AsError(err)
	require.True(t, ok)
	assert.Equal(t, txerror.Unknown, fe.Category)
	assert.Equal(t, submit.StatusUploading, fe.Step)
}
