package handler

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/logger"
	"github.com/kislikjeka/memechain/pkg/money"
)

// BattleReaderInterface defines the read views served over HTTP
type BattleReaderInterface interface {
	ListBattles(ctx context.Context) ([]battle.Summary, error)
	GetBattle(ctx context.Context, id int64) (*battle.Detail, error)
	ListMemes(ctx context.Context, battleID int64) ([]battle.Meme, error)
	GetUserVote(ctx context.Context, battleID int64, voter string) (*battle.UserVote, error)
	Balance(ctx context.Context, owner string) (*big.Int, error)
}

// BattleHandler serves battle, meme and vote views
type BattleHandler struct {
	reader BattleReaderInterface
	logger *logger.Logger
}

// NewBattleHandler creates a new battle handler
func NewBattleHandler(reader BattleReaderInterface, log *logger.Logger) *BattleHandler {
	return &BattleHandler{
		reader: reader,
		logger: log.WithField("handler", "battle"),
	}
}

// BattleResponse is a battle with display amounts
type BattleResponse struct {
	battle.Battle
	MinStakeFormatted  string `json:"min_stake_formatted"`
	PrizePool          string `json:"prize_pool"`
	PrizePoolFormatted string `json:"prize_pool_formatted"`
	MemeCount          *int   `json:"meme_count,omitempty"`
}

// BattlesListResponse represents the response for listing battles
type BattlesListResponse struct {
	Battles []BattleResponse `json:"battles"`
}

// MemeResponse is a meme with display amounts
type MemeResponse struct {
	battle.Meme
	TotalVoteWeightFormatted string `json:"total_vote_weight_formatted"`
}

// MemesListResponse represents the response for listing memes
type MemesListResponse struct {
	Memes []MemeResponse `json:"memes"`
}

// UserVoteResponse is a voter's stake in a battle
type UserVoteResponse struct {
	BattleID        int64  `json:"battle_id"`
	Voter           string `json:"voter"`
	MemeID          int64  `json:"meme_id"`
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amount_formatted"`
}

// BalanceResponse is an account's USDC balance
type BalanceResponse struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Formatted string `json:"formatted"`
	Compact   string `json:"compact"`
}

// ListBattles handles GET /battles. ?open=true keeps only battles accepting submissions.
func (h *BattleHandler) ListBattles(w http.ResponseWriter, r *http.Request) {
	battles, err := h.reader.ListBattles(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list battles", "error", err)
		respondError(w, "failed to fetch battles", http.StatusBadGateway)
		return
	}

	if open, _ := strconv.ParseBool(r.URL.Query().Get("open")); open {
		battles = battle.OpenForSubmission(battles)
	}

	responses := make([]BattleResponse, 0, len(battles))
	for _, b := range battles {
		count := b.MemeCount
		resp := toBattleResponse(b.Battle, b.PrizePool)
		resp.MemeCount = &count
		responses = append(responses, resp)
	}

	respondJSON(w, BattlesListResponse{Battles: responses}, http.StatusOK)
}

// GetBattle handles GET /battles/{id}
func (h *BattleHandler) GetBattle(w http.ResponseWriter, r *http.Request) {
	id, ok := battleIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.reader.GetBattle(r.Context(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to get battle", "battle_id", id, "error", err)
		respondError(w, "failed to fetch battle", http.StatusBadGateway)
		return
	}
	if detail == nil {
		respondError(w, "battle not found", http.StatusNotFound)
		return
	}

	respondJSON(w, toBattleResponse(detail.Battle, detail.PrizePool), http.StatusOK)
}

// ListMemes handles GET /battles/{id}/memes
func (h *BattleHandler) ListMemes(w http.ResponseWriter, r *http.Request) {
	id, ok := battleIDParam(w, r)
	if !ok {
		return
	}

	memes, err := h.reader.ListMemes(r.Context(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list memes", "battle_id", id, "error", err)
		respondError(w, "failed to fetch memes", http.StatusBadGateway)
		return
	}

	responses := make([]MemeResponse, 0, len(memes))
	for _, m := range memes {
		responses = append(responses, MemeResponse{
			Meme:                     m,
			TotalVoteWeightFormatted: money.Format(m.TotalVoteWeight),
		})
	}

	respondJSON(w, MemesListResponse{Memes: responses}, http.StatusOK)
}

// GetUserVote handles GET /battles/{id}/votes/{voter}
func (h *BattleHandler) GetUserVote(w http.ResponseWriter, r *http.Request) {
	id, ok := battleIDParam(w, r)
	if !ok {
		return
	}

	voter, err := wallet.ValidateAddress(chi.URLParam(r, "voter"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	vote, err := h.reader.GetUserVote(r.Context(), id, voter)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to get vote", "battle_id", id, "voter", voter, "error", err)
		respondError(w, "failed to fetch vote", http.StatusBadGateway)
		return
	}

	resp := UserVoteResponse{BattleID: id, Voter: voter, Amount: "0", AmountFormatted: money.Format(nil)}
	if vote != nil {
		resp.MemeID = vote.MemeID
		resp.Amount = money.ToBigInt(vote.Amount, 0).String()
		resp.AmountFormatted = money.Format(vote.Amount)
	}

	respondJSON(w, resp, http.StatusOK)
}

// GetBalance handles GET /accounts/{address}/balance
func (h *BattleHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address, err := wallet.ValidateAddress(chi.URLParam(r, "address"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	balance, err := h.reader.Balance(r.Context(), address)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to read balance", "address", address, "error", err)
		respondError(w, "failed to fetch balance", http.StatusBadGateway)
		return
	}

	respondJSON(w, BalanceResponse{
		Address:   address,
		Balance:   money.ToBigInt(balance, 0).String(),
		Formatted: money.Format(balance),
		Compact:   money.FormatCompact(balance),
	}, http.StatusOK)
}

func toBattleResponse(b battle.Battle, prizePool *big.Int) BattleResponse {
	return BattleResponse{
		Battle:             b,
		MinStakeFormatted:  money.Format(b.MinStake),
		PrizePool:          money.ToBigInt(prizePool, 0).String(),
		PrizePoolFormatted: money.Format(prizePool),
	}
}

var errInvalidBattleID = errors.New("invalid battle ID")

// battleIDParam parses {id}; on failure it has already written the response
func battleIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseBattleID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseBattleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidBattleID
	}
	return id, nil
}
