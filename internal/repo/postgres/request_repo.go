package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"modaccess/internal/domain/access"
	"modaccess/internal/usecase"
)

type RequestRepo struct {
	Pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{Pool: pool}
}

const requestColumns = `
id::text, protocol, requester_id, department, modules, justification, urgent,
status, COALESCE(denial_reason, ''), COALESCE(cancel_reason, ''),
COALESCE(renewed_from::text, ''), requested_at, approved_at, expires_at, cancelled_at`

// Decide takes a per-requester advisory lock for the length of the
// transaction, so the footprint read, the rule evaluation in fn and the
// eventual insert are serialized against every other Decide and Cancel for
// the same requester — across service instances, not just goroutines.
func (r *RequestRepo) Decide(ctx context.Context, requesterID string, fn usecase.DecideFunc) (access.Request, error) {
	if r == nil || r.Pool == nil {
		return access.Request{}, fmt.Errorf("db not configured")
	}
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return access.Request{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, requesterID); err != nil {
		return access.Request{}, fmt.Errorf("lock requester: %w", err)
	}
	active, err := listActiveTx(ctx, tx, requesterID)
	if err != nil {
		return access.Request{}, err
	}
	req, entries, err := fn(ctx, active)
	if err != nil {
		return access.Request{}, err
	}
	if err := insertRequest(ctx, tx, req); err != nil {
		return access.Request{}, err
	}
	for _, entry := range entries {
		if err := insertHistory(ctx, tx, entry); err != nil {
			return access.Request{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return access.Request{}, err
	}
	return req, nil
}

func (r *RequestRepo) Get(ctx context.Context, id, requesterID string) (access.Request, error) {
	if r == nil || r.Pool == nil {
		return access.Request{}, fmt.Errorf("db not configured")
	}
	// id arrives as an opaque path parameter; the text comparison keeps a
	// malformed value from tripping the uuid cast instead of returning
	// not-found.
	query := `SELECT ` + requestColumns + `
FROM access_requests
WHERE id::text = $1 AND requester_id = $2`
	req, err := scanRequest(r.Pool.QueryRow(ctx, query, id, requesterID))
	if err == pgx.ErrNoRows {
		return access.Request{}, access.ErrNotFound
	}
	return req, err
}

func (r *RequestRepo) List(ctx context.Context, filter usecase.ListFilter) ([]access.Request, error) {
	if r == nil || r.Pool == nil {
		return nil, fmt.Errorf("db not configured")
	}
	query := `SELECT ` + requestColumns + `
FROM access_requests
WHERE requester_id = $1`
	args := []any{filter.RequesterID}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY requested_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filter.Limit)
	}
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []access.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Cancel transitions the row with a guarded UPDATE: the status predicate
// makes concurrent cancel/renew races resolve to exactly one winner.
func (r *RequestRepo) Cancel(ctx context.Context, id, requesterID, reason string, at time.Time, entry access.HistoryEntry) (access.Request, error) {
	if r == nil || r.Pool == nil {
		return access.Request{}, fmt.Errorf("db not configured")
	}
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return access.Request{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, requesterID); err != nil {
		return access.Request{}, fmt.Errorf("lock requester: %w", err)
	}
	query := `UPDATE access_requests
SET status = $3, cancel_reason = $4, cancelled_at = $5
WHERE id::text = $1 AND requester_id = $2 AND status = $6
RETURNING ` + requestColumns
	req, err := scanRequest(tx.QueryRow(ctx, query,
		id, requesterID, string(access.StatusCancelled), reason, at, string(access.StatusActive)))
	if err == pgx.ErrNoRows {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM access_requests WHERE id::text = $1 AND requester_id = $2)`,
			id, requesterID).Scan(&exists); err != nil {
			return access.Request{}, err
		}
		if !exists {
			return access.Request{}, access.ErrNotFound
		}
		return access.Request{}, access.ErrInvalidState
	}
	if err != nil {
		return access.Request{}, err
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return access.Request{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return access.Request{}, err
	}
	return req, nil
}

func listActiveTx(ctx context.Context, tx pgx.Tx, requesterID string) ([]access.Request, error) {
	query := `SELECT ` + requestColumns + `
FROM access_requests
WHERE requester_id = $1 AND status = $2
ORDER BY requested_at ASC`
	rows, err := tx.Query(ctx, query, requesterID, string(access.StatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []access.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func insertRequest(ctx context.Context, tx pgx.Tx, req access.Request) error {
	query := `
INSERT INTO access_requests (
  id, protocol, requester_id, department, modules, justification, urgent,
  status, denial_reason, cancel_reason, renewed_from, requested_at,
  approved_at, expires_at, cancelled_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := tx.Exec(ctx, query,
		req.ID,
		req.Protocol,
		req.RequesterID,
		string(req.Department),
		req.Modules,
		req.Justification,
		req.Urgent,
		string(req.Status),
		nullable(req.DenialReason),
		nullable(req.CancelReason),
		nullable(req.RenewedFrom),
		req.RequestedAt,
		req.ApprovedAt,
		req.ExpiresAt,
		req.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry access.HistoryEntry) error {
	query := `
INSERT INTO access_history (id, request_id, action, description, occurred_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(ctx, query,
		entry.ID, entry.RequestID, string(entry.Action), entry.Description, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row) (access.Request, error) {
	var req access.Request
	var department, status string
	if err := row.Scan(
		&req.ID,
		&req.Protocol,
		&req.RequesterID,
		&department,
		&req.Modules,
		&req.Justification,
		&req.Urgent,
		&status,
		&req.DenialReason,
		&req.CancelReason,
		&req.RenewedFrom,
		&req.RequestedAt,
		&req.ApprovedAt,
		&req.ExpiresAt,
		&req.CancelledAt,
	); err != nil {
		return access.Request{}, err
	}
	req.Department = access.Department(department)
	req.Status = access.Status(status)
	return req, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
