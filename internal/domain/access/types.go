package access

import (
	"fmt"
	"strings"
	"time"
)

type Department string

const (
	DepartmentIT         Department = "IT"
	DepartmentFinance    Department = "FINANCE"
	DepartmentHR         Department = "HR"
	DepartmentOperations Department = "OPERATIONS"
	DepartmentOther      Department = "OTHER"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusDenied    Status = "DENIED"
	StatusCancelled Status = "CANCELLED"
)

type Action string

const (
	ActionCreated   Action = "CREATED"
	ActionApproved  Action = "APPROVED"
	ActionDenied    Action = "DENIED"
	ActionCancelled Action = "CANCELLED"
	ActionRenewed   Action = "RENEWED"
)

const (
	// AccessTerm is how long approved access remains valid.
	AccessTerm = 180 * 24 * time.Hour
	// RenewalWindow is how close to expiry a request must be before it
	// can be renewed.
	RenewalWindow = 30 * 24 * time.Hour

	MinModules          = 1
	MaxModules          = 3
	MinJustificationLen = 20
	MaxJustificationLen = 500
	MinCancelReasonLen  = 10
	MaxCancelReasonLen  = 200
)

type Principal struct {
	RequesterID string
	Department  Department
}

type Module struct {
	ID          string
	Active      bool
	Departments []Department
}

// AllowedFor reports whether the module's allowed-department set contains d.
// IT is handled by the rule engine, not here.
func (m Module) AllowedFor(d Department) bool {
	for _, allowed := range m.Departments {
		if allowed == d {
			return true
		}
	}
	return false
}

type Request struct {
	ID            string
	Protocol      string
	RequesterID   string
	Department    Department
	Modules       []string
	Justification string
	Urgent        bool
	Status        Status
	DenialReason  string
	CancelReason  string
	RenewedFrom   string
	RequestedAt   time.Time
	ApprovedAt    *time.Time
	ExpiresAt     *time.Time
	CancelledAt   *time.Time
}

type HistoryEntry struct {
	ID          string
	RequestID   string
	Action      Action
	Description string
	OccurredAt  time.Time
}

func ParseDepartment(value string) (Department, error) {
	switch Department(strings.ToUpper(strings.TrimSpace(value))) {
	case DepartmentIT:
		return DepartmentIT, nil
	case DepartmentFinance:
		return DepartmentFinance, nil
	case DepartmentHR:
		return DepartmentHR, nil
	case DepartmentOperations:
		return DepartmentOperations, nil
	case DepartmentOther:
		return DepartmentOther, nil
	default:
		return "", &ValidationError{Field: "department", Message: fmt.Sprintf("unknown department %q", value)}
	}
}

// CatalogSnapshot is an immutable view of the module catalog taken once per
// decision. The incompatibility relation is stored in both directions so a
// single lookup answers either order.
type CatalogSnapshot struct {
	modules      map[string]Module
	quotas       map[Department]int
	incompatible map[string]map[string]bool
}

func NewCatalogSnapshot(modules []Module, quotas map[Department]int, incompatiblePairs [][2]string) CatalogSnapshot {
	snap := CatalogSnapshot{
		modules:      make(map[string]Module, len(modules)),
		quotas:       make(map[Department]int, len(quotas)),
		incompatible: make(map[string]map[string]bool),
	}
	for _, m := range modules {
		snap.modules[m.ID] = m
	}
	for dept, quota := range quotas {
		snap.quotas[dept] = quota
	}
	for _, pair := range incompatiblePairs {
		snap.addIncompatible(pair[0], pair[1])
		snap.addIncompatible(pair[1], pair[0])
	}
	return snap
}

func (s CatalogSnapshot) addIncompatible(a, b string) {
	if s.incompatible[a] == nil {
		s.incompatible[a] = make(map[string]bool)
	}
	s.incompatible[a][b] = true
}

func (s CatalogSnapshot) ResolveModules(ids []string) ([]Module, error) {
	out := make([]Module, 0, len(ids))
	for _, id := range ids {
		m, ok := s.modules[id]
		if !ok {
			return nil, fmt.Errorf("module %q: %w", id, ErrNotFound)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s CatalogSnapshot) Module(id string) (Module, bool) {
	m, ok := s.modules[id]
	return m, ok
}

func (s CatalogSnapshot) Modules() []Module {
	out := make([]Module, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, m)
	}
	return out
}

func (s CatalogSnapshot) QuotaFor(d Department) int {
	return s.quotas[d]
}

func (s CatalogSnapshot) Incompatible(a, b string) bool {
	return s.incompatible[a][b]
}
