package flow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is the journal record of one run
type Entry struct {
	ID            uuid.UUID  `json:"id"`
	Flow          string     `json:"flow"`
	BattleID      int64      `json:"battle_id"`
	Status        Status     `json:"status"`
	TxHashes      []string   `json:"tx_hashes"`
	ErrorCategory string     `json:"error_category,omitempty"`
	Advisory      string     `json:"advisory,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Journal persists run records. Record is called when a run starts and again when it
// settles, with the same ID.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Invalidator drops cached read views after a confirmed write
type Invalidator interface {
	Invalidate(ctx context.Context, battleID int64) error
}
