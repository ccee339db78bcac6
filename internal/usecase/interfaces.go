package usecase

import (
	"context"
	"time"

	"modaccess/internal/domain/access"
)

// DecideFunc computes a decided request from the requester's current ACTIVE
// rows. It runs inside the repository's per-requester critical section, so
// the footprint it sees cannot change before the returned request and
// history are written. Returning an error aborts the write.
type DecideFunc func(ctx context.Context, active []access.Request) (access.Request, []access.HistoryEntry, error)

type RequestRepository interface {
	// Decide serializes footprint read and decided-request write for one
	// requester. Request and history rows commit together or not at all.
	Decide(ctx context.Context, requesterID string, fn DecideFunc) (access.Request, error)
	Get(ctx context.Context, id, requesterID string) (access.Request, error)
	List(ctx context.Context, filter ListFilter) ([]access.Request, error)
	// Cancel transitions id to CANCELLED iff it is ACTIVE and owned by
	// requesterID, appending the history entry in the same transaction.
	// The loser of a concurrent transition race gets access.ErrInvalidState.
	Cancel(ctx context.Context, id, requesterID, reason string, at time.Time, entry access.HistoryEntry) (access.Request, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, entry access.HistoryEntry) (access.HistoryEntry, error)
	ListByRequest(ctx context.Context, requestID string) ([]access.HistoryEntry, error)
}

type Catalog interface {
	Snapshot(ctx context.Context) (access.CatalogSnapshot, error)
}

// Sequencer mints protocol strings of the form PREFIX-YYYYMMDD-NNNN. The
// daily counter is shared; implementations must never hand the same (day,
// sequence) pair to two callers.
type Sequencer interface {
	Next(ctx context.Context) (string, error)
}

type ListFilter struct {
	RequesterID string
	Status      access.Status
	Limit       int
}
