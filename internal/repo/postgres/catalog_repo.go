package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"modaccess/internal/domain/access"
)

// CatalogRepo loads the module catalog into an immutable snapshot. One
// snapshot backs one decision call; mid-evaluation catalog edits are never
// observed.
type CatalogRepo struct {
	Pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{Pool: pool}
}

func (r *CatalogRepo) Snapshot(ctx context.Context) (access.CatalogSnapshot, error) {
	if r == nil || r.Pool == nil {
		return access.CatalogSnapshot{}, fmt.Errorf("db not configured")
	}
	quotas, err := r.loadQuotas(ctx)
	if err != nil {
		return access.CatalogSnapshot{}, err
	}
	modules, err := r.loadModules(ctx)
	if err != nil {
		return access.CatalogSnapshot{}, err
	}
	pairs, err := r.loadIncompatibilities(ctx)
	if err != nil {
		return access.CatalogSnapshot{}, err
	}
	return access.NewCatalogSnapshot(modules, quotas, pairs), nil
}

func (r *CatalogRepo) loadQuotas(ctx context.Context) (map[access.Department]int, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, quota FROM departments`)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	defer rows.Close()
	quotas := make(map[access.Department]int)
	for rows.Next() {
		var id string
		var quota int
		if err := rows.Scan(&id, &quota); err != nil {
			return nil, err
		}
		quotas[access.Department(id)] = quota
	}
	return quotas, rows.Err()
}

func (r *CatalogRepo) loadModules(ctx context.Context) ([]access.Module, error) {
	query := `
SELECT m.id, m.active, COALESCE(array_agg(md.department) FILTER (WHERE md.department IS NOT NULL), '{}')
FROM modules m
LEFT JOIN module_departments md ON md.module_id = m.id
GROUP BY m.id, m.active
ORDER BY m.id`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	defer rows.Close()
	var modules []access.Module
	for rows.Next() {
		var m access.Module
		var departments []string
		if err := rows.Scan(&m.ID, &m.Active, &departments); err != nil {
			return nil, err
		}
		for _, d := range departments {
			m.Departments = append(m.Departments, access.Department(d))
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (r *CatalogRepo) loadIncompatibilities(ctx context.Context) ([][2]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT module_a, module_b FROM module_incompatibilities`)
	if err != nil {
		return nil, fmt.Errorf("load incompatibilities: %w", err)
	}
	defer rows.Close()
	var pairs [][2]string
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]string{a, b})
	}
	return pairs, rows.Err()
}
