package phase

import (
	"errors"

	"github.com/kislikjeka/memechain/internal/platform/flow"
)

// Action is an owner-triggered phase transition
type Action string

const (
	ActionStartSubmission Action = "start-submission"
	ActionStartVoting     Action = "start-voting"
	ActionFinalize        Action = "finalize"
)

// Actions lists every action in lifecycle order
var Actions = []Action{ActionStartSubmission, ActionStartVoting, ActionFinalize}

var methods = map[Action]string{
	ActionStartSubmission: "startSubmissionPhase",
	ActionStartVoting:     "startVotingPhase",
	ActionFinalize:        "finalizeBattle",
}

const (
	StatusSigning flow.Status = "signing"
	StatusPending flow.Status = "pending"
)

var (
	ErrUnknownAction   = errors.New("unknown phase action")
	ErrInvalidBattleID = errors.New("invalid battle ID")
)

// ParseAction validates a raw action name
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := methods[a]; !ok {
		return "", ErrUnknownAction
	}
	return a, nil
}

// Method returns the battle manager method the action calls
func (a Action) Method() string {
	return methods[a]
}

// FlowName identifies the action's flow in snapshots, logs and the journal
func (a Action) FlowName() string {
	return "phase-" + string(a)
}

// Result is published on success
type Result struct {
	BattleID int64  `json:"battle_id"`
	Action   Action `json:"action"`
}
