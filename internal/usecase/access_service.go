package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"modaccess/internal/domain/access"
)

// AccessService owns the request lifecycle: it resolves the catalog, runs
// the rule engine, mints protocols and records history. All state it touches
// lives behind the repository interfaces.
type AccessService struct {
	Requests  RequestRepository
	History   HistoryRepository
	Catalog   Catalog
	Sequencer Sequencer
	Clock     func() time.Time
}

type CreateInput struct {
	RequesterID   string
	Department    access.Department
	ModuleIDs     []string
	Justification string
	Urgent        bool
}

func NewAccessService(requests RequestRepository, history HistoryRepository, catalog Catalog, sequencer Sequencer) *AccessService {
	return &AccessService{
		Requests:  requests,
		History:   history,
		Catalog:   catalog,
		Sequencer: sequencer,
		Clock:     time.Now,
	}
}

func (s *AccessService) Create(ctx context.Context, input CreateInput) (access.Request, error) {
	if err := validateCreateInput(input); err != nil {
		return access.Request{}, err
	}
	snapshot, err := s.Catalog.Snapshot(ctx)
	if err != nil {
		return access.Request{}, err
	}
	modules, err := snapshot.ResolveModules(input.ModuleIDs)
	if err != nil {
		return access.Request{}, err
	}
	return s.Requests.Decide(ctx, input.RequesterID, func(ctx context.Context, active []access.Request) (access.Request, []access.HistoryEntry, error) {
		pending, held := footprint(active, nil)
		decision, err := access.Evaluate(access.EvaluationInput{
			Department:    input.Department,
			Modules:       modules,
			Justification: input.Justification,
			Pending:       pending,
			Held:          held,
			Quota:         snapshot.QuotaFor(input.Department),
			Catalog:       snapshot,
		})
		if err != nil {
			return access.Request{}, nil, err
		}
		return s.buildDecided(ctx, input, decision, "")
	})
}

// Renew re-runs the creation pipeline for the module set of an ACTIVE
// request inside its renewal window. The original request is left untouched
// apart from a RENEWED history entry; the new request points back at it via
// RenewedFrom.
func (s *AccessService) Renew(ctx context.Context, requestID, requesterID string) (access.Request, error) {
	original, err := s.Requests.Get(ctx, requestID, requesterID)
	if err != nil {
		return access.Request{}, err
	}
	if original.Status != access.StatusActive || original.ExpiresAt == nil {
		return access.Request{}, fmt.Errorf("request %s is %s: %w", original.Protocol, original.Status, access.ErrInvalidState)
	}
	if original.ExpiresAt.Sub(s.Clock()) > access.RenewalWindow {
		return access.Request{}, fmt.Errorf("request %s is not within %d days of expiry: %w",
			original.Protocol, int(access.RenewalWindow.Hours()/24), access.ErrNotEligible)
	}
	snapshot, err := s.Catalog.Snapshot(ctx)
	if err != nil {
		return access.Request{}, err
	}
	modules, err := snapshot.ResolveModules(original.Modules)
	if err != nil {
		return access.Request{}, err
	}
	input := CreateInput{
		RequesterID:   original.RequesterID,
		Department:    original.Department,
		ModuleIDs:     original.Modules,
		Justification: original.Justification,
		Urgent:        original.Urgent,
	}
	return s.Requests.Decide(ctx, requesterID, func(ctx context.Context, active []access.Request) (access.Request, []access.HistoryEntry, error) {
		if !containsRequest(active, original.ID) {
			return access.Request{}, nil, fmt.Errorf("request %s is no longer active: %w", original.Protocol, access.ErrInvalidState)
		}
		// The renewed request's own modules are exempt from every check:
		// the new request supersedes the old footprint, so holding them
		// is not a duplicate and does not double-count against quota.
		waived := make(map[string]bool, len(original.Modules))
		for _, id := range original.Modules {
			waived[id] = true
		}
		pending, held := footprint(active, waived)
		decision, err := access.Evaluate(access.EvaluationInput{
			Department:    input.Department,
			Modules:       modules,
			Justification: input.Justification,
			Pending:       pending,
			Held:          held,
			Quota:         snapshot.QuotaFor(input.Department),
			Catalog:       snapshot,
		})
		if err != nil {
			return access.Request{}, nil, err
		}
		req, entries, err := s.buildDecided(ctx, input, decision, original.ID)
		if err != nil {
			return access.Request{}, nil, err
		}
		entries = append(entries, access.HistoryEntry{
			ID:          uuid.NewString(),
			RequestID:   original.ID,
			Action:      access.ActionRenewed,
			Description: fmt.Sprintf("renewed as %s", req.Protocol),
			OccurredAt:  req.RequestedAt,
		})
		return req, entries, nil
	})
}

func (s *AccessService) Cancel(ctx context.Context, requestID, requesterID, reason string) (access.Request, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < access.MinCancelReasonLen || len(reason) > access.MaxCancelReasonLen {
		return access.Request{}, &access.ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("must be between %d and %d characters", access.MinCancelReasonLen, access.MaxCancelReasonLen),
		}
	}
	now := s.Clock()
	entry := access.HistoryEntry{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		Action:      access.ActionCancelled,
		Description: reason,
		OccurredAt:  now,
	}
	return s.Requests.Cancel(ctx, requestID, requesterID, reason, now, entry)
}

func (s *AccessService) Get(ctx context.Context, requestID, requesterID string) (access.Request, error) {
	return s.Requests.Get(ctx, requestID, requesterID)
}

func (s *AccessService) List(ctx context.Context, filter ListFilter) ([]access.Request, error) {
	return s.Requests.List(ctx, filter)
}

func (s *AccessService) HistoryFor(ctx context.Context, requestID, requesterID string) ([]access.HistoryEntry, error) {
	if _, err := s.Requests.Get(ctx, requestID, requesterID); err != nil {
		return nil, err
	}
	return s.History.ListByRequest(ctx, requestID)
}

// buildDecided turns a rule-engine decision into the request row and history
// entries to persist. Denied requests still get a protocol: a denial is an
// auditable outcome, not an error.
func (s *AccessService) buildDecided(ctx context.Context, input CreateInput, decision access.Decision, renewedFrom string) (access.Request, []access.HistoryEntry, error) {
	protocol, err := s.Sequencer.Next(ctx)
	if err != nil {
		return access.Request{}, nil, err
	}
	now := s.Clock()
	req := access.Request{
		ID:            uuid.NewString(),
		Protocol:      protocol,
		RequesterID:   input.RequesterID,
		Department:    input.Department,
		Modules:       input.ModuleIDs,
		Justification: input.Justification,
		Urgent:        input.Urgent,
		RenewedFrom:   renewedFrom,
		RequestedAt:   now,
	}
	entries := []access.HistoryEntry{{
		ID:          uuid.NewString(),
		RequestID:   req.ID,
		Action:      access.ActionCreated,
		Description: fmt.Sprintf("request %s submitted for modules: %s", protocol, strings.Join(input.ModuleIDs, ", ")),
		OccurredAt:  now,
	}}
	if decision.Approved {
		expires := now.Add(access.AccessTerm)
		req.Status = access.StatusActive
		req.ApprovedAt = &now
		req.ExpiresAt = &expires
		entries = append(entries, access.HistoryEntry{
			ID:          uuid.NewString(),
			RequestID:   req.ID,
			Action:      access.ActionApproved,
			Description: fmt.Sprintf("approved; access expires %s", expires.UTC().Format("2006-01-02")),
			OccurredAt:  now,
		})
	} else {
		req.Status = access.StatusDenied
		req.DenialReason = decision.Reason
		entries = append(entries, access.HistoryEntry{
			ID:          uuid.NewString(),
			RequestID:   req.ID,
			Action:      access.ActionDenied,
			Description: decision.Reason,
			OccurredAt:  now,
		})
	}
	return req, entries, nil
}

func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.RequesterID) == "" {
		return &access.ValidationError{Field: "requester_id", Message: "is required"}
	}
	if len(input.ModuleIDs) < access.MinModules || len(input.ModuleIDs) > access.MaxModules {
		return &access.ValidationError{
			Field:   "modules",
			Message: fmt.Sprintf("must contain between %d and %d modules", access.MinModules, access.MaxModules),
		}
	}
	seen := make(map[string]bool, len(input.ModuleIDs))
	for _, id := range input.ModuleIDs {
		if seen[id] {
			return &access.ValidationError{Field: "modules", Message: fmt.Sprintf("module %q listed twice", id)}
		}
		seen[id] = true
	}
	justification := strings.TrimSpace(input.Justification)
	if len(justification) < access.MinJustificationLen || len(justification) > access.MaxJustificationLen {
		return &access.ValidationError{
			Field:   "justification",
			Message: fmt.Sprintf("must be between %d and %d characters", access.MinJustificationLen, access.MaxJustificationLen),
		}
	}
	return nil
}

// footprint flattens ACTIVE rows into the rule-engine's pending and held
// views. Expired-but-uncancelled requests still count: there is no automatic
// expiry transition, so coverage holds until cancellation or renewal.
func footprint(active []access.Request, waived map[string]bool) (map[string]bool, []string) {
	pending := make(map[string]bool)
	held := make([]string, 0)
	for _, req := range active {
		for _, id := range req.Modules {
			if waived[id] {
				continue
			}
			if !pending[id] {
				held = append(held, id)
			}
			pending[id] = true
		}
	}
	return pending, held
}

func containsRequest(reqs []access.Request, id string) bool {
	for _, r := range reqs {
		if r.ID == id {
			return true
		}
	}
	return false
}
