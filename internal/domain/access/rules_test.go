package access

import (
	"errors"
	"strings"
	"testing"
)

func testCatalog() CatalogSnapshot {
	modules := []Module{
		{ID: "Financial Management", Active: true, Departments: []Department{DepartmentFinance}},
		{ID: "Financial Approver", Active: true, Departments: []Department{DepartmentFinance}},
		{ID: "Financial Requester", Active: true, Departments: []Department{DepartmentFinance}},
		{ID: "Inventory Control", Active: true, Departments: []Department{DepartmentOperations}},
		{ID: "Report Builder", Active: true, Departments: []Department{DepartmentIT, DepartmentFinance, DepartmentHR, DepartmentOperations, DepartmentOther}},
		{ID: "Legacy Billing", Active: false, Departments: []Department{DepartmentFinance}},
	}
	quotas := map[Department]int{
		DepartmentIT:         10,
		DepartmentFinance:    5,
		DepartmentHR:         5,
		DepartmentOperations: 5,
		DepartmentOther:      5,
	}
	pairs := [][2]string{{"Financial Approver", "Financial Requester"}}
	return NewCatalogSnapshot(modules, quotas, pairs)
}

func mustResolve(t *testing.T, snap CatalogSnapshot, ids ...string) []Module {
	t.Helper()
	modules, err := snap.ResolveModules(ids)
	if err != nil {
		t.Fatalf("resolve %v: %v", ids, err)
	}
	return modules
}

const goodJustification = "Need this to process month-end vendor payments"

func baseInput(t *testing.T, ids ...string) EvaluationInput {
	t.Helper()
	snap := testCatalog()
	return EvaluationInput{
		Department:    DepartmentFinance,
		Modules:       mustResolve(t, snap, ids...),
		Justification: goodJustification,
		Pending:       map[string]bool{},
		Quota:         snap.QuotaFor(DepartmentFinance),
		Catalog:       snap,
	}
}

func TestEvaluate_Approve(t *testing.T) {
	in := baseInput(t, "Financial Management")
	decision, err := Evaluate(in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Approved {
		t.Fatalf("expected approval, got denial: %s", decision.Reason)
	}
}

func TestEvaluate_DuplicateOpenRequest(t *testing.T) {
	in := baseInput(t, "Financial Management")
	in.Pending = map[string]bool{"Financial Management": true}
	_, err := Evaluate(in)
	var business *BusinessError
	if !errors.As(err, &business) {
		t.Fatalf("expected BusinessError, got %v", err)
	}
	if !strings.Contains(business.Reason, "Financial Management") {
		t.Fatalf("reason should name the module: %q", business.Reason)
	}
}

func TestEvaluate_ExistingActiveAccess(t *testing.T) {
	in := baseInput(t, "Financial Management")
	in.Held = []string{"Financial Management"}
	_, err := Evaluate(in)
	var business *BusinessError
	if !errors.As(err, &business) {
		t.Fatalf("expected BusinessError, got %v", err)
	}
	if !strings.Contains(business.Reason, "already active") {
		t.Fatalf("unexpected reason: %q", business.Reason)
	}
}

func TestEvaluate_JustificationQuality(t *testing.T) {
	cases := []struct {
		name          string
		justification string
		wantReject    bool
	}{
		{"blacklisted and short", "testing access", true},
		{"blacklisted with surrounding space", "   asap   ", true},
		{"blacklisted but long enough", "testing the quarterly budget export flow", false},
		{"exactly at threshold", "i want access for audits 30chr", false},
		{"one under threshold", "i want access for audit 29chs", true},
		{"clean and short is fine elsewhere", goodJustification, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.name == "exactly at threshold" && len(tc.justification) != 30 {
				t.Fatalf("fixture drift: len=%d", len(tc.justification))
			}
			in := baseInput(t, "Financial Management")
			in.Justification = tc.justification
			_, err := Evaluate(in)
			var business *BusinessError
			gotReject := errors.As(err, &business)
			if gotReject != tc.wantReject {
				t.Fatalf("justification %q: reject=%v, want %v (err=%v)", tc.justification, gotReject, tc.wantReject, err)
			}
		})
	}
}

func TestEvaluate_InactiveModule(t *testing.T) {
	in := baseInput(t, "Legacy Billing")
	_, err := Evaluate(in)
	var business *BusinessError
	if !errors.As(err, &business) {
		t.Fatalf("expected BusinessError, got %v", err)
	}
	if !strings.Contains(business.Reason, "Legacy Billing") {
		t.Fatalf("reason should name the module: %q", business.Reason)
	}
}

func TestEvaluate_DepartmentCompatibility(t *testing.T) {
	in := baseInput(t, "Inventory Control")
	decision, err := Evaluate(in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Approved {
		t.Fatal("FINANCE should be denied Inventory Control")
	}
	if !strings.Contains(decision.Reason, "Inventory Control") {
		t.Fatalf("denial should name the offending module: %q", decision.Reason)
	}
}

func TestEvaluate_ITCompatibleWithEverything(t *testing.T) {
	snap := testCatalog()
	in := EvaluationInput{
		Department:    DepartmentIT,
		Modules:       mustResolve(t, snap, "Inventory Control", "Financial Management"),
		Justification: goodJustification,
		Pending:       map[string]bool{},
		Quota:         snap.QuotaFor(DepartmentIT),
		Catalog:       snap,
	}
	decision, err := Evaluate(in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Approved {
		t.Fatalf("IT should pass compatibility for any active module, got: %s", decision.Reason)
	}
}

func TestEvaluate_MutualExclusionSymmetric(t *testing.T) {
	orders := []struct{ requested, held string }{
		{"Financial Requester", "Financial Approver"},
		{"Financial Approver", "Financial Requester"},
	}
	for _, o := range orders {
		in := baseInput(t, o.requested)
		in.Held = []string{o.held}
		decision, err := Evaluate(in)
		if err != nil {
			t.Fatalf("evaluate %s vs %s: %v", o.requested, o.held, err)
		}
		if decision.Approved {
			t.Fatalf("%s should conflict with active %s", o.requested, o.held)
		}
		if !strings.Contains(decision.Reason, o.held) {
			t.Fatalf("denial should cite the active module %q: %q", o.held, decision.Reason)
		}
	}
}

func TestEvaluate_Quota(t *testing.T) {
	cases := []struct {
		name    string
		held    int
		request int
		quota   int
		approve bool
	}{
		{"under quota", 2, 2, 5, true},
		{"exactly at quota", 3, 2, 5, true},
		{"one over quota", 4, 2, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := testCatalog()
			ids := []string{"Financial Management", "Report Builder"}[:tc.request]
			held := make([]string, 0, tc.held)
			for i := 0; i < tc.held; i++ {
				held = append(held, "held-"+string(rune('a'+i)))
			}
			in := EvaluationInput{
				Department:    DepartmentFinance,
				Modules:       mustResolve(t, snap, ids...),
				Justification: goodJustification,
				Pending:       map[string]bool{},
				Held:          held,
				Quota:         tc.quota,
				Catalog:       snap,
			}
			decision, err := Evaluate(in)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if decision.Approved != tc.approve {
				t.Fatalf("held=%d request=%d quota=%d: approved=%v, want %v (%s)",
					tc.held, tc.request, tc.quota, decision.Approved, tc.approve, decision.Reason)
			}
		})
	}
}

func TestEvaluate_HardRejectBeatsDeny(t *testing.T) {
	// An inactive module rejects before department compatibility denies.
	in := baseInput(t, "Legacy Billing")
	in.Department = DepartmentHR
	_, err := Evaluate(in)
	var business *BusinessError
	if !errors.As(err, &business) {
		t.Fatalf("expected hard reject, got %v", err)
	}
}
