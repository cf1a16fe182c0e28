package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kislikjeka/memechain/internal/module/create"
	"github.com/kislikjeka/memechain/internal/module/phase"
	"github.com/kislikjeka/memechain/internal/module/submit"
	"github.com/kislikjeka/memechain/internal/module/vote"
	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// FlowErrorResponse is returned when a flow settles in its error state
type FlowErrorResponse struct {
	Error    string      `json:"error"`
	Title    string      `json:"title"`
	Category string      `json:"category"`
	Step     flow.Status `json:"step"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondFlowError maps a flow run failure to a status code. Busy, failed and reset flows
// are conflicts; a settled failure carries its classified message.
func respondFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrInProgress):
		respondError(w, "flow already in progress", http.StatusConflict)
		return
	case errors.Is(err, flow.ErrNeedsReset):
		respondError(w, "flow failed; reset it before running again", http.StatusConflict)
		return
	case errors.Is(err, flow.ErrReset):
		respondError(w, "flow was reset while running", http.StatusConflict)
		return
	}

	fe, ok := flow.AsError(err)
	if !ok {
		respondError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, FlowErrorResponse{
		Error:    fe.Message,
		Title:    fe.Title,
		Category: string(fe.Category),
		Step:     fe.Step,
	}, flowErrorStatus(fe.Err))
}

func flowErrorStatus(cause error) int {
	if ve, ok := media.AsValidationError(cause); ok {
		return validationStatus(ve)
	}

	switch {
	case errors.Is(cause, wallet.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(cause, wallet.ErrNotConnected), errors.Is(cause, chain.ErrNoSigner):
		return http.StatusServiceUnavailable
	case errors.Is(cause, wallet.ErrWrongNetwork):
		return http.StatusBadGateway
	case errors.Is(cause, battle.ErrBattleNotFound):
		return http.StatusNotFound
	case errors.Is(cause, flow.ErrReset):
		return http.StatusConflict
	case isBadRequest(cause):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func validationStatus(ve *media.ValidationError) int {
	if ve.Reason == media.ReasonTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusUnsupportedMediaType
}

// badRequest lists the local validation errors of every flow
var badRequest = []error{
	create.ErrThemeRequired,
	create.ErrInvalidSchedule,
	create.ErrInvalidMinStake,
	create.ErrInvalidMaxPerUser,
	phase.ErrInvalidBattleID,
	phase.ErrUnknownAction,
	submit.ErrInvalidBattleID,
	vote.ErrInvalidBattleID,
	vote.ErrInvalidMemeID,
	vote.ErrInvalidAmount,
	media.ErrEmptyFile,
}

func isBadRequest(err error) bool {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
