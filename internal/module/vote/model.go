package vote

import (
	"errors"
	"math/big"

	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/flow"
)

// Name identifies the flow in snapshots, logs and the journal
const Name = "vote"

const (
	StatusChecking  flow.Status = "checking"
	StatusApproving flow.Status = "approving"
	StatusVoting    flow.Status = "voting"
	StatusPending   flow.Status = "pending"
)

var (
	ErrInvalidBattleID     = errors.New("invalid battle ID")
	ErrInvalidMemeID       = errors.New("invalid meme ID")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrBelowMinStake       = errors.New("vote amount is below min stake")
	ErrInsufficientBalance = errors.New("insufficient balance for this vote")
	ErrMissingSpender      = errors.New("voting engine address is required")
)

// Params describes a vote. Amount is the total stake in base units; a repeat vote replaces
// the previous amount and only the increment needs to be authorized.
type Params struct {
	BattleID int64    `json:"battle_id"`
	MemeID   int64    `json:"meme_id"`
	Amount   *big.Int `json:"amount"`
}

// Validate checks the params locally
func (p *Params) Validate() error {
	if p.BattleID <= 0 {
		return ErrInvalidBattleID
	}
	if p.MemeID <= 0 {
		return ErrInvalidMemeID
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Result is published on success with the refreshed vote and balance
type Result struct {
	BattleID int64            `json:"battle_id"`
	MemeID   int64            `json:"meme_id"`
	Amount   *big.Int         `json:"amount"`
	Approved bool             `json:"approved"`
	Vote     *battle.UserVote `json:"vote,omitempty"`
	Balance  *big.Int         `json:"balance,omitempty"`
}

// Config holds the allowance settings
type Config struct {
	// Spender is the voting engine address that receives the USDC allowance
	Spender string

	// ApprovalAmount is the allowance granted when the current one does not cover a vote.
	// A vote whose increment exceeds it is approved for exactly the increment.
	ApprovalAmount *big.Int
}
