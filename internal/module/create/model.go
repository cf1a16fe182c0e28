package create

import (
	"math/big"
	"strings"
	"time"

	"github.com/kislikjeka/memechain/internal/platform/flow"
)

// Name identifies the flow in snapshots, logs and the journal
const Name = "create-battle"

const (
	StatusCreating           flow.Status = "creating"
	StatusPendingCreate      flow.Status = "pending-create"
	StatusStartingSubmission flow.Status = "starting-submission"
	StatusPendingStart       flow.Status = "pending-start"
)

// ActivationAdvisory is attached to a successful run whose submission phase could not be
// started within the activation wait
const ActivationAdvisory = "Battle created. Submission phase will open at the scheduled start time. Start it manually from this page if it does not update automatically."

// Params describes a new battle
type Params struct {
	Theme                 string   `json:"theme"`
	SubmissionStart       int64    `json:"submission_start"`
	SubmissionEnd         int64    `json:"submission_end"`
	VotingEnd             int64    `json:"voting_end"`
	MinStake              *big.Int `json:"min_stake"`
	MaxSubmissionsPerUser int64    `json:"max_submissions_per_user"`
	AutoStart             bool     `json:"auto_start"`
}

// Validate checks the params locally
func (p *Params) Validate() error {
	if strings.TrimSpace(p.Theme) == "" {
		return ErrThemeRequired
	}
	if p.SubmissionStart < 0 || p.SubmissionStart > p.SubmissionEnd || p.SubmissionEnd > p.VotingEnd {
		return ErrInvalidSchedule
	}
	if p.MinStake == nil || p.MinStake.Sign() < 0 {
		return ErrInvalidMinStake
	}
	if p.MaxSubmissionsPerUser < 0 {
		return ErrInvalidMaxPerUser
	}
	return nil
}

// Result is published on success
type Result struct {
	BattleID  int64 `json:"battle_id"`
	Activated bool  `json:"activated"`
}

// Config bounds the auto-activation poll
type Config struct {
	// ActivationWait is how long to wait for the ledger clock to reach the submission start
	ActivationWait time.Duration

	// PollInterval is how often the ledger clock is read while waiting
	PollInterval time.Duration
}

// DefaultConfig returns the default activation bounds
func DefaultConfig() Config {
	return Config{
		ActivationWait: 30 * time.Second,
		PollInterval:   time.Second,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.ActivationWait <= 0 {
		c.ActivationWait = d.ActivationWait
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
}
