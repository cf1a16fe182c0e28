package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/memechain/internal/platform/flow"
)

// ErrRunNotFound is returned when a journal entry does not exist
var ErrRunNotFound = errors.New("flow run not found")

// JournalRepository records flow runs in PostgreSQL
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new PostgreSQL flow journal
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Record inserts the run or overwrites its mutable columns. flow and started_at are
// fixed by the first write.
func (r *JournalRepository) Record(ctx context.Context, e flow.Entry) error {
	query := `
		INSERT INTO flow_runs (id, flow, battle_id, status, tx_hashes, error_category, advisory, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			battle_id = EXCLUDED.battle_id,
			status = EXCLUDED.status,
			tx_hashes = EXCLUDED.tx_hashes,
			error_category = EXCLUDED.error_category,
			advisory = EXCLUDED.advisory,
			finished_at = EXCLUDED.finished_at
	`

	if e.ID == uuid.Nil {
		return fmt.Errorf("flow run id is required")
	}

	hashes := e.TxHashes
	if hashes == nil {
		hashes = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Flow,
		e.BattleID,
		string(e.Status),
		hashes,
		e.ErrorCategory,
		e.Advisory,
		e.StartedAt,
		e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record flow run: %w", err)
	}

	return nil
}

// GetByID retrieves one run
func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*flow.Entry, error) {
	query := `
		SELECT id, flow, battle_id, status, tx_hashes, error_category, advisory, started_at, finished_at
		FROM flow_runs
		WHERE id = $1
	`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow run: %w", err)
	}
	return e, nil
}

// ListRecent returns the newest runs first. An empty flowName matches every flow.
func (r *JournalRepository) ListRecent(ctx context.Context, flowName string, limit int) ([]flow.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, flow, battle_id, status, tx_hashes, error_category, advisory, started_at, finished_at
		FROM flow_runs
		WHERE $1 = '' OR flow = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, flowName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow runs: %w", err)
	}
	defer rows.Close()

	var entries []flow.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow run: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow runs: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*flow.Entry, error) {
	var (
		e      flow.Entry
		status string
	)
	if err := row.Scan(
		&e.ID,
		&e.Flow,
		&e.BattleID,
		&status,
		&e.TxHashes,
		&e.ErrorCategory,
		&e.Advisory,
		&e.StartedAt,
		&e.FinishedAt,
	); err != nil {
		return nil, err
	}
	e.Status = flow.Status(status)
	return &e, nil
}
