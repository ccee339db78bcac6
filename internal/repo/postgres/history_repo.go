package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"modaccess/internal/domain/access"
)

// HistoryRepo is append-only: rows are written once and never updated or
// deleted. Writes tied to a request transition go through RequestRepo's
// transactions; Append covers standalone recording.
type HistoryRepo struct {
	Pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{Pool: pool}
}

func (r *HistoryRepo) Append(ctx context.Context, entry access.HistoryEntry) (access.HistoryEntry, error) {
	if r == nil || r.Pool == nil {
		return access.HistoryEntry{}, fmt.Errorf("db not configured")
	}
	if entry.Action == "" {
		return access.HistoryEntry{}, &access.ValidationError{Field: "action", Message: "is required"}
	}
	query := `
INSERT INTO access_history (id, request_id, action, description, occurred_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.Pool.Exec(ctx, query,
		entry.ID, entry.RequestID, string(entry.Action), entry.Description, entry.OccurredAt)
	if err != nil {
		return access.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}

func (r *HistoryRepo) ListByRequest(ctx context.Context, requestID string) ([]access.HistoryEntry, error) {
	if r == nil || r.Pool == nil {
		return nil, fmt.Errorf("db not configured")
	}
	query := `
SELECT id::text, request_id::text, action, description, occurred_at
FROM access_history
WHERE request_id::text = $1
ORDER BY occurred_at ASC, id ASC`
	rows, err := r.Pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []access.HistoryEntry
	for rows.Next() {
		var entry access.HistoryEntry
		var action string
		if err := rows.Scan(&entry.ID, &entry.RequestID, &action, &entry.Description, &entry.OccurredAt); err != nil {
			return nil, err
		}
		entry.Action = access.Action(action)
		out = append(out, entry)
	}
	return out, rows.Err()
}
