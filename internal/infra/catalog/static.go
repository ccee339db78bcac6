package catalog

import (
	"context"

	"modaccess/internal/domain/access"
	"modaccess/internal/usecase"
)

// Static serves a fixed catalog snapshot. Used for local development and
// tests; production loads the same shape from Postgres.
type Static struct {
	snapshot access.CatalogSnapshot
}

func NewStatic(snapshot access.CatalogSnapshot) *Static {
	return &Static{snapshot: snapshot}
}

func (s *Static) Snapshot(_ context.Context) (access.CatalogSnapshot, error) {
	return s.snapshot, nil
}

var _ usecase.Catalog = (*Static)(nil)

// Seed is the reference catalog: department quotas, module availability and
// the pairwise incompatibilities, matching the seed migration.
func Seed() access.CatalogSnapshot {
	all := []access.Department{
		access.DepartmentIT,
		access.DepartmentFinance,
		access.DepartmentHR,
		access.DepartmentOperations,
		access.DepartmentOther,
	}
	modules := []access.Module{
		{ID: "Financial Management", Active: true, Departments: []access.Department{access.DepartmentFinance}},
		{ID: "Financial Approver", Active: true, Departments: []access.Department{access.DepartmentFinance}},
		{ID: "Financial Requester", Active: true, Departments: []access.Department{access.DepartmentFinance}},
		{ID: "Inventory Control", Active: true, Departments: []access.Department{access.DepartmentOperations}},
		{ID: "Payroll", Active: true, Departments: []access.Department{access.DepartmentHR, access.DepartmentFinance}},
		{ID: "HR Portal", Active: true, Departments: []access.Department{access.DepartmentHR}},
		{ID: "Asset Tracking", Active: true, Departments: []access.Department{access.DepartmentOperations, access.DepartmentIT}},
		{ID: "Report Builder", Active: true, Departments: all},
		{ID: "Legacy Billing", Active: false, Departments: []access.Department{access.DepartmentFinance}},
	}
	quotas := map[access.Department]int{
		access.DepartmentIT:         10,
		access.DepartmentFinance:    5,
		access.DepartmentHR:         5,
		access.DepartmentOperations: 5,
		access.DepartmentOther:      5,
	}
	pairs := [][2]string{
		{"Financial Approver", "Financial Requester"},
	}
	return access.NewCatalogSnapshot(modules, quotas, pairs)
}
