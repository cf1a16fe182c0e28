package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kislikjeka/memechain/internal/module/create"
	"github.com/kislikjeka/memechain/internal/module/phase"
	"github.com/kislikjeka/memechain/internal/module/submit"
	"github.com/kislikjeka/memechain/internal/module/vote"
	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/pkg/logger"
	"github.com/kislikjeka/memechain/pkg/money"
)

// CreateBattleFlow runs the create-battle flow
type CreateBattleFlow interface {
	Run(ctx context.Context, session wallet.Session, p create.Params) (*create.Result, error)
}

// PhaseFlow runs one phase transition
type PhaseFlow interface {
	Run(ctx context.Context, session wallet.Session, battleID int64) (*phase.Result, error)
}

// SubmitMemeFlow runs the submit-meme flow
type SubmitMemeFlow interface {
	Run(ctx context.Context, session wallet.Session, battleID int64, f media.File) (*submit.Result, error)
}

// VoteFlow runs the vote flow
type VoteFlow interface {
	Run(ctx context.Context, session wallet.Session, p vote.Params) (*vote.Result, error)
}

// WriteHandler starts write flows as the server signer. Each request blocks until its
// flow settles; progress is observable through the flow handler meanwhile.
type WriteHandler struct {
	sessions SessionProvider
	create   CreateBattleFlow
	phases   map[phase.Action]PhaseFlow
	submit   SubmitMemeFlow
	vote     VoteFlow
	logger   *logger.Logger
}

// WriteFlows groups the flows served by WriteHandler
type WriteFlows struct {
	Create CreateBattleFlow
	Phases map[phase.Action]PhaseFlow
	Submit SubmitMemeFlow
	Vote   VoteFlow
}

// NewWriteHandler creates a new write handler
func NewWriteHandler(sessions SessionProvider, flows WriteFlows, log *logger.Logger) *WriteHandler {
	return &WriteHandler{
		sessions: sessions,
		create:   flows.Create,
		phases:   flows.Phases,
		submit:   flows.Submit,
		vote:     flows.Vote,
		logger:   log.WithField("handler", "write"),
	}
}

// CreateBattleRequest represents the battle creation request. Times are unix seconds and
// min_stake is a USDC amount such as "10.5".
type CreateBattleRequest struct {
	Theme                 string `json:"theme"`
	SubmissionStart       int64  `json:"submission_start"`
	SubmissionEnd         int64  `json:"submission_end"`
	VotingEnd             int64  `json:"voting_end"`
	MinStake              string `json:"min_stake"`
	MaxSubmissionsPerUser int64  `json:"max_submissions_per_user"`
	AutoStart             bool   `json:"auto_start"`
}

// CreateBattleResponse is the settled create-battle flow
type CreateBattleResponse struct {
	create.Result
	Advisory string `json:"advisory,omitempty"`
}

// CastVoteRequest represents a vote; amount is the total USDC stake such as "25"
type CastVoteRequest struct {
	MemeID int64  `json:"meme_id"`
	Amount string `json:"amount"`
}

// CastVoteResponse is the settled vote flow with display amounts
type CastVoteResponse struct {
	*vote.Result
	AmountFormatted  string `json:"amount_formatted"`
	BalanceFormatted string `json:"balance_formatted"`
}

// CreateBattle handles POST /battles
func (h *WriteHandler) CreateBattle(w http.ResponseWriter, r *http.Request) {
	var req CreateBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	minStake, err := parseUSDC(req.MinStake)
	if err != nil {
		respondError(w, "invalid min stake", http.StatusBadRequest)
		return
	}

	result, err := h.create.Run(r.Context(), h.sessions.Session(), create.Params{
		Theme:                 req.Theme,
		SubmissionStart:       req.SubmissionStart,
		SubmissionEnd:         req.SubmissionEnd,
		VotingEnd:             req.VotingEnd,
		MinStake:              minStake,
		MaxSubmissionsPerUser: req.MaxSubmissionsPerUser,
		AutoStart:             req.AutoStart,
	})
	if err != nil {
		h.logger.WithContext(r.Context()).WithFlow(create.Name, 0).WithError(err).Warn("create battle failed")
		respondFlowError(w, err)
		return
	}

	resp := CreateBattleResponse{Result: *result}
	if req.AutoStart && !result.Activated {
		resp.Advisory = create.ActivationAdvisory
	}
	respondJSON(w, resp, http.StatusCreated)
}

// AdvancePhase handles POST /battles/{id}/phase/{action}
func (h *WriteHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	id, ok := battleIDParam(w, r)
	if !ok {
		return
	}

	action, err := phase.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, ok := h.phases[action]
	if !ok {
		respondError(w, "phase action not available", http.StatusNotFound)
		return
	}

	result, err := f.Run(r.Context(), h.sessions.Session(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).WithFlow(action.FlowName(), id).WithError(err).Warn("phase transition failed")
		respondFlowError(w, err)
		return
	}

	respondJSON(w, result, http.StatusOK)
}

// SubmitMeme handles POST /battles/{id}/memes with a multipart "file" field
func (h *WriteHandler) SubmitMeme(w http.ResponseWriter, r *http.Request) {
	id, ok := battleIDParam(w, r)
	if !ok {
		return
	}

	file, status, err := readUpload(w, r)
	if err != nil {
		respondError(w, err.Error(), status)
		return
	}

	result, err := h.submit.Run(r.Context(), h.sessions.Session(), id, file)
	if err != nil {
		h.logger.WithContext(r.Context()).WithFlow(submit.Name, id).WithError(err).Warn("meme submission failed")
		respondFlowError(w, err)
		return
	}

	respondJSON(w, result, http.StatusCreated)
}

// CastVote handles POST /battles/{id}/votes
func (h *WriteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := battleIDParam(w, r)
	if !ok {
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := parseUSDC(req.Amount)
	if err != nil {
		respondError(w, "invalid amount", http.StatusBadRequest)
		return
	}

	result, err := h.vote.Run(r.Context(), h.sessions.Session(), vote.Params{
		BattleID: id,
		MemeID:   req.MemeID,
		Amount:   amount,
	})
	if err != nil {
		h.logger.WithContext(r.Context()).WithFlow(vote.Name, id).WithError(err).Warn("vote failed", "meme_id", req.MemeID)
		respondFlowError(w, err)
		return
	}

	respondJSON(w, CastVoteResponse{
		Result:           result,
		AmountFormatted:  money.Format(result.Amount),
		BalanceFormatted: money.Format(result.Balance),
	}, http.StatusOK)
}

func parseUSDC(display string) (*big.Int, error) {
	return money.ToBaseUnits(display, money.USDCDecimals)
}

var errFileRequired = errors.New("File is required.")

// multipartOverhead is the allowance for form boundaries and headers on top of the file
const multipartOverhead = 1 << 20

// readUpload reads the multipart "file" field. The returned status applies to err.
func readUpload(w http.ResponseWriter, r *http.Request) (media.File, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(media.MaxFileSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return media.File{}, http.StatusRequestEntityTooLarge, errTooLarge
		}
		return media.File{}, http.StatusBadRequest, errFileRequired
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		return media.File{}, http.StatusBadRequest, errFileRequired
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, media.MaxFileSize+1))
	if err != nil {
		return media.File{}, http.StatusBadRequest, errFileRequired
	}

	// Generic clients label every part as octet-stream; let the bytes decide
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	return media.File{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, http.StatusOK, nil
}
