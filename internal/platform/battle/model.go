package battle

import (
	"math/big"
)

// Battle is a time-boxed contest as recorded by the battle manager
type Battle struct {
	ID                    int64    `json:"id"`
	Theme                 string   `json:"theme"`
	SubmissionStart       int64    `json:"submission_start"`
	SubmissionEnd         int64    `json:"submission_end"`
	VotingEnd             int64    `json:"voting_end"`
	MinStake              *big.Int `json:"min_stake"`
	MaxSubmissionsPerUser int64    `json:"max_submissions_per_user"` // 0 = unlimited
	Phase                 Phase    `json:"phase"`
}

// Summary is a battle in a listing
type Summary struct {
	Battle
	PrizePool *big.Int `json:"prize_pool"`
	MemeCount int      `json:"meme_count"`
}

// Detail is a single battle view
type Detail struct {
	Battle
	PrizePool *big.Int `json:"prize_pool"`
}

// Meme is an entry submitted to a battle
type Meme struct {
	ID              int64    `json:"id"`
	BattleID        int64    `json:"battle_id"`
	IPFSHash        string   `json:"ipfs_hash"`
	ImageURL        string   `json:"image_url"`
	Creator         string   `json:"creator"`
	SubmittedAt     int64    `json:"submitted_at"`
	TotalVoteWeight *big.Int `json:"total_vote_weight"`
}

// UserVote is a voter's live vote in a battle
type UserVote struct {
	MemeID int64    `json:"meme_id"`
	Amount *big.Int `json:"amount"`
}

// OpenForSubmission returns the battles currently accepting memes, in input order
func OpenForSubmission(battles []Summary) []Summary {
	open := make([]Summary, 0, len(battles))
	for _, b := range battles {
		if b.Phase == PhaseSubmissionOpen {
			open = append(open, b)
		}
	}
	return open
}
