package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/transport/httpapi/handler"
	"github.com/kislikjeka/memechain/pkg/logger"
)

const voter = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

// =============================================================================
// Mocks
// =============================================================================

type MockBattleReader struct {
	mock.Mock
}

func (m *MockBattleReader) ListBattles(ctx context.Context) ([]battle.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]battle.Summary), args.Error(1)
}

func (m *MockBattleReader) GetBattle(ctx context.Context, id int64) (*battle.Detail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*battle.Detail), args.Error(1)
}

func (m *MockBattleReader) ListMemes(ctx context.Context, battleID int64) ([]battle.Meme, error) {
	args := m.Called(ctx, battleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]battle.Meme), args.Error(1)
}

func (m *MockBattleReader) GetUserVote(ctx context.Context, battleID int64, voter string) (*battle.UserVote, error) {
	args := m.Called(ctx, battleID, voter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*battle.UserVote), args.Error(1)
}

func (m *MockBattleReader) Balance(ctx context.Context, owner string) (*big.Int, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func testLogger() *logger.Logger {
	return logger.New("test", io.Discard)
}

func battleRouter(reader handler.BattleReaderInterface) http.Handler {
	h := handler.NewBattleHandler(reader, testLogger())
	r := chi.NewRouter()
	r.Get("/battles", h.ListBattles)
	r.Get("/battles/{id}", h.GetBattle)
	r.Get("/battles/{id}/memes", h.ListMemes)
	r.Get("/battles/{id}/votes/{voter}", h.GetUserVote)
	r.Get("/accounts/{address}/balance", h.GetBalance)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func summary(id int64, phase battle.Phase) battle.Summary {
	return battle.Summary{
		Battle: battle.Battle{
			ID:       id,
			Theme:    "theme",
			MinStake: big.NewInt(10_000_000),
			Phase:    phase,
		},
		PrizePool: big.NewInt(1_234_500_000),
		MemeCount: 2,
	}
}

// =============================================================================
// Battles
// =============================================================================

func TestListBattles(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("ListBattles", mock.Anything).Return([]battle.Summary{
		summary(1, battle.PhaseVotingOpen),
		summary(2, battle.PhaseSubmissionOpen),
	}, nil)

	rec := get(t, battleRouter(reader), "/battles")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Battles []map[string]any `json:"battles"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Battles, 2)
	assert.Equal(t, "VOTING_OPEN", body.Battles[0]["phase"])
	assert.Equal(t, "10", body.Battles[0]["min_stake_formatted"])
	assert.Equal(t, "1234500000", body.Battles[0]["prize_pool"])
	assert.Equal(t, "1,234.5", body.Battles[0]["prize_pool_formatted"])
	assert.EqualValues(t, 2, body.Battles[0]["meme_count"])
}

func TestListBattles_OpenFilter(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("ListBattles", mock.Anything).Return([]battle.Summary{
		summary(1, battle.PhaseVotingOpen),
		summary(2, battle.PhaseSubmissionOpen),
	}, nil)

	rec := get(t, battleRouter(reader), "/battles?open=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.BattlesListResponse
	decode(t, rec, &body)
	require.Len(t, body.Battles, 1)
	assert.Equal(t, int64(2), body.Battles[0].ID)
}

func TestListBattles_LedgerFailure(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("ListBattles", mock.Anything).Return(nil, errors.New("rpc down"))

	rec := get(t, battleRouter(reader), "/battles")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetBattle(t *testing.T) {
	reader := new(MockBattleReader)
	s := summary(4, battle.PhaseTallying)
	reader.On("GetBattle", mock.Anything, int64(4)).Return(&battle.Detail{Battle: s.Battle, PrizePool: s.PrizePool}, nil)
	reader.On("GetBattle", mock.Anything, int64(5)).Return(nil, nil)

	r := battleRouter(reader)

	rec := get(t, r, "/battles/4")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "TALLYING", body["phase"])

	assert.Equal(t, http.StatusNotFound, get(t, r, "/battles/5").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/battles/0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/battles/abc").Code)
	reader.AssertNumberOfCalls(t, "GetBattle", 2)
}

// =============================================================================
// Memes and votes
// =============================================================================

func TestListMemes(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("ListMemes", mock.Anything, int64(3)).Return([]battle.Meme{
		{ID: 7, BattleID: 3, IPFSHash: "ipfs://cid", TotalVoteWeight: big.NewInt(2_500_000)},
	}, nil)

	rec := get(t, battleRouter(reader), "/battles/3/memes")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.MemesListResponse
	decode(t, rec, &body)
	require.Len(t, body.Memes, 1)
	assert.Equal(t, int64(7), body.Memes[0].ID)
	assert.Equal(t, "2.5", body.Memes[0].TotalVoteWeightFormatted)
}

func TestListMemes_EmptyIsArray(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("ListMemes", mock.Anything, int64(3)).Return([]battle.Meme{}, nil)

	rec := get(t, battleRouter(reader), "/battles/3/memes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"memes":[]}`, rec.Body.String())
}

func TestGetUserVote(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("GetUserVote", mock.Anything, int64(3), voter).Return(&battle.UserVote{MemeID: 7, Amount: big.NewInt(5_000_000)}, nil)

	rec := get(t, battleRouter(reader), "/battles/3/votes/"+voter)
	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.UserVoteResponse
	decode(t, rec, &body)
	assert.Equal(t, int64(7), body.MemeID)
	assert.Equal(t, "5000000", body.Amount)
	assert.Equal(t, "5", body.AmountFormatted)
}

func TestGetUserVote_NoVote(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("GetUserVote", mock.Anything, int64(3), voter).Return(nil, nil)

	rec := get(t, battleRouter(reader), "/battles/3/votes/"+voter)
	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.UserVoteResponse
	decode(t, rec, &body)
	assert.Equal(t, int64(0), body.MemeID)
	assert.Equal(t, "0", body.Amount)
}

func TestGetUserVote_InvalidVoter(t *testing.T) {
	reader := new(MockBattleReader)

	rec := get(t, battleRouter(reader), "/battles/3/votes/not-an-address")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	reader.AssertNotCalled(t, "GetUserVote", mock.Anything, mock.Anything, mock.Anything)
}

// =============================================================================
// Balance
// =============================================================================

func TestGetBalance(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("Balance", mock.Anything, voter).Return(big.NewInt(2_500_000_000), nil)

	rec := get(t, battleRouter(reader), "/accounts/"+voter+"/balance")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.BalanceResponse
	decode(t, rec, &body)
	assert.Equal(t, "2500000000", body.Balance)
	assert.Equal(t, "2,500", body.Formatted)
	assert.Equal(t, "2.50K", body.Compact)
}

func TestGetBalance_LowercaseAddressIsChecksummed(t *testing.T) {
	reader := new(MockBattleReader)
	reader.On("Balance", mock.Anything, voter).Return(big.NewInt(0), nil)

	rec := get(t, battleRouter(reader), "/accounts/0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266/balance")
	require.Equal(t, http.StatusOK, rec.Code)
	reader.AssertExpectations(t)
}
