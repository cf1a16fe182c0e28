package battle

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/kislikjeka/memechain/pkg/money"
)

// Field locates a value in a ledger result by name, or by position when the result is a
// positional tuple (or a map without that name).
type Field struct {
	Name  string
	Index int
}

var battleFields = struct {
	ID, Theme, SubmissionStart, SubmissionEnd, VotingEnd, MinStake, MaxSubmissions, State Field
}{
	ID:              Field{"id", 0},
	Theme:           Field{"theme", 1},
	SubmissionStart: Field{"submissionStart", 2},
	SubmissionEnd:   Field{"submissionEnd", 3},
	VotingEnd:       Field{"votingEnd", 4},
	MinStake:        Field{"minStake", 5},
	MaxSubmissions:  Field{"maxSubmissionsPerUser", 6},
	State:           Field{"state", 7},
}

var memeFields = struct {
	ID, BattleID, IPFSHash, Creator, SubmittedAt, TotalVoteWeight Field
}{
	ID:              Field{"id", 0},
	BattleID:        Field{"battleId", 1},
	IPFSHash:        Field{"ipfsHash", 2},
	Creator:         Field{"creator", 3},
	SubmittedAt:     Field{"submittedAt", 4},
	TotalVoteWeight: Field{"totalVoteWeight", 5},
}

var voteFields = struct {
	MemeID, Amount, Exists Field
}{
	MemeID: Field{"memeId", 0},
	Amount: Field{"amount", 1},
	Exists: Field{"exists", 2},
}

// Lookup returns the value for f in raw, which may be a []any or a map[string]any.
// Nil values count as absent.
func Lookup(raw any, f Field) (any, bool) {
	switch r := raw.(type) {
	case map[string]any:
		if v, ok := r[f.Name]; ok && v != nil {
			return v, true
		}
		if v, ok := r[strconv.Itoa(f.Index)]; ok && v != nil {
			return v, true
		}
	case []any:
		if f.Index >= 0 && f.Index < len(r) && r[f.Index] != nil {
			return r[f.Index], true
		}
	}
	return nil, false
}

// DecodeBattle decodes a battles(id) result. id and theme are required.
func DecodeBattle(raw any) (*Battle, error) {
	id, ok := Lookup(raw, battleFields.ID)
	if !ok {
		return nil, fmt.Errorf("%w: battle without id", ErrDecode)
	}
	theme, ok := lookupText(raw, battleFields.Theme)
	if !ok {
		return nil, fmt.Errorf("%w: battle without theme", ErrDecode)
	}

	return &Battle{
		ID:                    money.ToInt64(id, 0),
		Theme:                 theme,
		SubmissionStart:       int64Field(raw, battleFields.SubmissionStart),
		SubmissionEnd:         int64Field(raw, battleFields.SubmissionEnd),
		VotingEnd:             int64Field(raw, battleFields.VotingEnd),
		MinStake:              bigField(raw, battleFields.MinStake),
		MaxSubmissionsPerUser: int64Field(raw, battleFields.MaxSubmissions),
		Phase:                 phaseField(raw, battleFields.State),
	}, nil
}

// DecodeMeme decodes a getMeme(id) result. id and ipfsHash are required.
// ImageURL is left for the caller, which knows the gateway.
func DecodeMeme(raw any) (*Meme, error) {
	id, ok := Lookup(raw, memeFields.ID)
	if !ok {
		return nil, fmt.Errorf("%w: meme without id", ErrDecode)
	}
	hash, ok := lookupText(raw, memeFields.IPFSHash)
	if !ok {
		return nil, fmt.Errorf("%w: meme without ipfsHash", ErrDecode)
	}
	creator, _ := lookupText(raw, memeFields.Creator)

	return &Meme{
		ID:              money.ToInt64(id, 0),
		BattleID:        int64Field(raw, memeFields.BattleID),
		IPFSHash:        hash,
		Creator:         creator,
		SubmittedAt:     int64Field(raw, memeFields.SubmittedAt),
		TotalVoteWeight: bigField(raw, memeFields.TotalVoteWeight),
	}, nil
}

// DecodeVote decodes a votes(battleId, voter) result. A missing or false exists flag means
// no live vote and yields nil.
func DecodeVote(raw any) *UserVote {
	exists, ok := Lookup(raw, voteFields.Exists)
	if !ok {
		return nil
	}
	if flag, isBool := exists.(bool); !isBool || !flag {
		return nil
	}

	return &UserVote{
		MemeID: int64Field(raw, voteFields.MemeID),
		Amount: bigField(raw, voteFields.Amount),
	}
}

// DecodeIDs decodes a list of ledger ids; entries that cannot be coerced are dropped
func DecodeIDs(raw any) []int64 {
	var items []any
	switch r := raw.(type) {
	case []any:
		items = r
	case []*big.Int:
		for _, v := range r {
			items = append(items, v)
		}
	case []int64:
		for _, v := range r {
			items = append(items, v)
		}
	default:
		return nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if id := money.ToInt64(item, -1); id >= 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func lookupText(raw any, f Field) (string, bool) {
	v, ok := Lookup(raw, f)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}

func int64Field(raw any, f Field) int64 {
	v, _ := Lookup(raw, f)
	return money.ToInt64(v, 0)
}

func bigField(raw any, f Field) *big.Int {
	v, _ := Lookup(raw, f)
	return money.ToBigInt(v, 0)
}

func phaseField(raw any, f Field) Phase {
	v, _ := Lookup(raw, f)
	return PhaseFrom(v)
}
