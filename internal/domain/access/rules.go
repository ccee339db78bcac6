package access

import (
	"fmt"
	"strings"
)

// Decision is the recorded outcome of a valid request: approved, or denied
// with a reason the requester is entitled to see.
type Decision struct {
	Approved bool
	Reason   string
}

// EvaluationInput is a snapshot of everything the rule engine needs. It is
// assembled by the lifecycle service under the requester's lock; evaluation
// itself is pure and never touches storage.
type EvaluationInput struct {
	Department    Department
	Modules       []Module
	Justification string
	// Pending holds module IDs covered by the requester's open requests.
	// Held holds module IDs the requester has ACTIVE access to. Today both
	// views derive from the same ACTIVE rows; they are distinct inputs so
	// the two checks stay independently testable.
	Pending map[string]bool
	Held    []string
	Quota   int
	Catalog CatalogSnapshot
}

// justificationBlacklist lists low-effort phrases. A hit only rejects when
// the normalized text is shorter than justificationMinConvincingLen.
var justificationBlacklist = []string{
	"test",
	"testing",
	"asap",
	"i want",
	"i need it",
	"just because",
	"please",
}

const justificationMinConvincingLen = 30

// Evaluate runs the ordered rule chain. A non-nil error is always a
// *BusinessError (hard reject, nothing persisted); otherwise the returned
// Decision must be persisted as ACTIVE or DENIED.
func Evaluate(in EvaluationInput) (Decision, error) {
	heldSet := make(map[string]bool, len(in.Held))
	for _, id := range in.Held {
		heldSet[id] = true
	}

	// 1. Duplicate open request covering a requested module.
	for _, m := range in.Modules {
		if in.Pending[m.ID] {
			return Decision{}, &BusinessError{Reason: fmt.Sprintf("a request covering module %q is already open", m.ID)}
		}
	}

	// 2. Requester already holds active access.
	for _, m := range in.Modules {
		if heldSet[m.ID] {
			return Decision{}, &BusinessError{Reason: fmt.Sprintf("access to module %q is already active", m.ID)}
		}
	}

	// 3. Justification quality.
	normalized := strings.ToLower(strings.TrimSpace(in.Justification))
	if len(normalized) < justificationMinConvincingLen {
		for _, phrase := range justificationBlacklist {
			if strings.Contains(normalized, phrase) {
				return Decision{}, &BusinessError{Reason: "justification is insufficient"}
			}
		}
	}

	// 4. Module activity.
	for _, m := range in.Modules {
		if !m.Active {
			return Decision{}, &BusinessError{Reason: fmt.Sprintf("module %q is not active", m.ID)}
		}
	}

	// 5. Department compatibility. IT may request anything.
	if in.Department != DepartmentIT {
		for _, m := range in.Modules {
			if !m.AllowedFor(in.Department) {
				return Decision{
					Approved: false,
					Reason:   fmt.Sprintf("module %q is not available to the %s department", m.ID, in.Department),
				}, nil
			}
		}
	}

	// 6. Mutual exclusion against the active footprint.
	for _, m := range in.Modules {
		for _, held := range in.Held {
			if in.Catalog.Incompatible(m.ID, held) {
				return Decision{
					Approved: false,
					Reason:   fmt.Sprintf("module %q conflicts with active module %q", m.ID, held),
				}, nil
			}
		}
	}

	// 7. Department quota.
	if len(in.Held)+len(in.Modules) > in.Quota {
		return Decision{
			Approved: false,
			Reason:   fmt.Sprintf("department quota of %d modules exceeded", in.Quota),
		}, nil
	}

	return Decision{Approved: true}, nil
}
