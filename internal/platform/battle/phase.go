package battle

import (
	"github.com/kislikjeka/memechain/pkg/money"
)

// Phase is the lifecycle stage of a battle
type Phase int

const (
	PhaseUpcoming Phase = iota
	PhaseSubmissionOpen
	PhaseVotingOpen
	PhaseTallying
	PhaseFinalized
	PhaseArchived
)

var phaseNames = [...]string{
	PhaseUpcoming:       "UPCOMING",
	PhaseSubmissionOpen: "SUBMISSION_OPEN",
	PhaseVotingOpen:     "VOTING_OPEN",
	PhaseTallying:       "TALLYING",
	PhaseFinalized:      "FINALIZED",
	PhaseArchived:       "ARCHIVED",
}

// PhaseFrom maps a raw ledger state to a Phase. Anything unrecognized, including nil or
// non-numeric input, maps to PhaseUpcoming so one bad value never breaks a view.
func PhaseFrom(raw any) Phase {
	v := money.ToInt64(raw, -1)
	if v < int64(PhaseUpcoming) || v > int64(PhaseArchived) {
		return PhaseUpcoming
	}
	return Phase(v)
}

// String returns the canonical phase name
func (p Phase) String() string {
	if p < PhaseUpcoming || p > PhaseArchived {
		return phaseNames[PhaseUpcoming]
	}
	return phaseNames[p]
}

// MarshalText renders the phase by name in JSON and cache payloads
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts a canonical name; unknown names map to PhaseUpcoming
func (p *Phase) UnmarshalText(text []byte) error {
	*p = PhaseUpcoming
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			break
		}
	}
	return nil
}
