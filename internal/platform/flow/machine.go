package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/internal/platform/txerror"
)

// Snapshot is an observation of a flow at one instant
type Snapshot struct {
	Flow       string     `json:"flow"`
	Status     Status     `json:"status"`
	RunID      string     `json:"run_id,omitempty"`
	BattleID   int64      `json:"battle_id,omitempty"`
	TxHashes   []string   `json:"tx_hashes,omitempty"`
	Result     any        `json:"result,omitempty"`
	Advisory   string     `json:"advisory,omitempty"`
	Error      *Error     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Machine holds the status of one flow instance. At most one run is active at a time and
// Reset abandons the active run: its later transitions are ignored.
type Machine struct {
	name    string
	journal Journal
	logger  *slog.Logger

	mu   sync.Mutex
	gen  uint64
	snap Snapshot
}

// NewMachine creates an idle flow. journal may be nil.
func NewMachine(name string, journal Journal, logger *slog.Logger) *Machine {
	return &Machine{
		name:    name,
		journal: journal,
		logger:  logger.With("flow", name),
		snap:    Snapshot{Flow: name, Status: StatusIdle},
	}
}

// Name returns the flow name
func (m *Machine) Name() string {
	return m.name
}

// Snapshot returns a copy of the current state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snap
	s.TxHashes = append([]string(nil), m.snap.TxHashes...)
	return s
}

// Reset returns the flow to idle from any state
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.snap = Snapshot{Flow: m.name, Status: StatusIdle}
	m.logger.Debug("flow reset")
}

// Begin starts a run in status first. It fails with ErrInProgress while another run is
// active and with ErrNeedsReset while the flow rests in error.
func (m *Machine) Begin(ctx context.Context, battleID int64, first Status) (*Run, error) {
	m.mu.Lock()
	switch {
	case !m.snap.Status.Terminal():
		m.mu.Unlock()
		return nil, ErrInProgress
	case m.snap.Status == StatusError:
		m.mu.Unlock()
		return nil, ErrNeedsReset
	}

	m.gen++
	now := time.Now().UTC()
	run := &Run{
		machine: m,
		gen:     m.gen,
		id:      uuid.New(),
		logger:  m.logger.With("battle_id", battleID),
	}
	m.snap = Snapshot{
		Flow:      m.name,
		Status:    first,
		RunID:     run.id.String(),
		BattleID:  battleID,
		StartedAt: &now,
	}
	entry := m.entry(run.id)
	m.mu.Unlock()

	run.logger.Debug("flow started", "run_id", run.id, "status", first)
	m.record(ctx, entry)
	return run, nil
}

// entry must be called with mu held
func (m *Machine) entry(id uuid.UUID) Entry {
	e := Entry{
		ID:         id,
		Flow:       m.name,
		BattleID:   m.snap.BattleID,
		Status:     m.snap.Status,
		TxHashes:   append([]string(nil), m.snap.TxHashes...),
		Advisory:   m.snap.Advisory,
		FinishedAt: m.snap.FinishedAt,
	}
	if m.snap.StartedAt != nil {
		e.StartedAt = *m.snap.StartedAt
	}
	if m.snap.Error != nil {
		e.ErrorCategory = string(m.snap.Error.Category)
	}
	return e
}

func (m *Machine) record(ctx context.Context, e Entry) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(ctx, e); err != nil {
		m.logger.Warn("failed to journal flow run", "run_id", e.ID, "status", e.Status, "error", err)
	}
}

// Run is one execution of a flow. Its methods are no-ops once the machine was reset.
type Run struct {
	machine *Machine
	gen     uint64
	id      uuid.UUID
	logger  *slog.Logger
}

// ID returns the run id
func (r *Run) ID() uuid.UUID {
	return r.id
}

// Logger returns the run's logger
func (r *Run) Logger() *slog.Logger {
	return r.logger
}

// Stale reports whether the machine was reset after this run began
func (r *Run) Stale() bool {
	r.machine.mu.Lock()
	defer r.machine.mu.Unlock()
	return r.gen != r.machine.gen
}

// Step moves the run to status s. It returns ErrReset when the run was abandoned.
func (r *Run) Step(s Status) error {
	m := r.machine
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.gen != m.gen {
		return ErrReset
	}
	m.snap.Status = s
	r.logger.Debug("flow transition", "status", s)
	return nil
}

// SetResult publishes an intermediate or final result without changing status
func (r *Run) SetResult(result any) {
	m := r.machine
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.gen == m.gen {
		m.snap.Result = result
	}
}

// SetBattle records the battle a run acts on once it is known
func (r *Run) SetBattle(id int64) {
	m := r.machine
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.gen == m.gen {
		m.snap.BattleID = id
	}
}

// Tx records a submitted transaction hash
func (r *Run) Tx(hash string) {
	m := r.machine
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.gen == m.gen {
		m.snap.TxHashes = append(m.snap.TxHashes, hash)
	}
}

// Succeed settles the run in success with an optional result and advisory
func (r *Run) Succeed(ctx context.Context, result any, advisory string) Snapshot {
	m := r.machine
	m.mu.Lock()
	if r.gen != m.gen {
		m.mu.Unlock()
		return m.Snapshot()
	}

	now := time.Now().UTC()
	m.snap.Status = StatusSuccess
	if result != nil {
		m.snap.Result = result
	}
	m.snap.Advisory = advisory
	m.snap.FinishedAt = &now
	snap := m.snap
	snap.TxHashes = append([]string(nil), m.snap.TxHashes...)
	entry := m.entry(r.id)
	m.mu.Unlock()

	if advisory != "" {
		r.logger.Warn("flow succeeded with advisory", "tx_hashes", snap.TxHashes, "advisory", advisory)
	} else {
		r.logger.Info("flow succeeded", "tx_hashes", snap.TxHashes)
	}
	m.record(ctx, entry)
	return snap
}

// Fail settles the run in error. err is classified with hints for presentation; the returned
// error is a *Error, or ErrReset when the run was abandoned.
func (r *Run) Fail(ctx context.Context, err error, hints txerror.Hints) error {
	m := r.machine
	m.mu.Lock()
	if r.gen != m.gen {
		m.mu.Unlock()
		return ErrReset
	}

	fe, ok := AsError(err)
	if !ok {
		fe = &Error{Step: m.snap.Status, Classified: txerror.ClassifyError(err, hints), Err: err}
	}

	now := time.Now().UTC()
	m.snap.Status = StatusError
	m.snap.Error = fe
	m.snap.FinishedAt = &now
	entry := m.entry(r.id)
	m.mu.Unlock()

	r.logger.Warn("flow failed", "step", fe.Step, "category", fe.Category, "error", err)
	m.record(ctx, entry)
	return fe
}

// Transact submits call, moves to pending once the node accepted it and waits for the
// receipt. A receipt with a failed status yields ErrReverted.
func (r *Run) Transact(ctx context.Context, w chain.Writer, call chain.Call, pending Status) (*chain.Receipt, error) {
	if r.Stale() {
		return nil, ErrReset
	}

	hash, err := w.Submit(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", call.Method, err)
	}
	r.Tx(hash.Hex())
	r.logger.Info("transaction submitted", "method", call.Method, "tx_hash", hash.Hex())

	if err := r.Step(pending); err != nil {
		return nil, err
	}

	receipt, err := w.WaitReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm %s: %w", call.Method, err)
	}
	if !receipt.Succeeded {
		return receipt, fmt.Errorf("%s: %w", call.Method, ErrReverted)
	}

	r.logger.Debug("transaction confirmed", "method", call.Method, "tx_hash", hash.Hex(), "block", receipt.BlockNumber)
	return receipt, nil
}
