package submit

import (
	"errors"

	"github.com/kislikjeka/memechain/internal/platform/flow"
)

// Name identifies the flow in snapshots, logs and the journal
const Name = "submit-meme"

const (
	StatusUploading flow.Status = "uploading"
	StatusSigning   flow.Status = "signing"
	StatusPending   flow.Status = "pending"
)

var (
	ErrInvalidBattleID   = errors.New("invalid battle ID")
	ErrSubmissionsClosed = errors.New("submissions closed for this battle")
	ErrLimitReached      = errors.New("user submissions limit reached for this battle")
)

// Result is published on success. MemeID is zero when the receipt carried no
// MemeSubmitted notification.
type Result struct {
	BattleID int64  `json:"battle_id"`
	MemeID   int64  `json:"meme_id,omitempty"`
	CID      string `json:"cid"`
	Locator  string `json:"ipfs_uri"`
	URL      string `json:"gateway_url"`
}
