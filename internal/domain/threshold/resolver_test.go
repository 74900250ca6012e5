package threshold

import (
	"testing"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

func cents(v int64) *int64 {
	return &v
}

func TestResolve_AmountRange(t *testing.T) {
	thresholds := []entity.ApprovalThreshold{
		{ID: "t1", Name: "small", MinAmountCents: 0, MaxAmountCents: cents(500_00), Active: true},
		{ID: "t2", Name: "medium", MinAmountCents: 1_000_00, MaxAmountCents: cents(5_000_000), Active: true},
		{ID: "t3", Name: "large", MinAmountCents: 5_000_001, Active: true},
	}

	tests := []struct {
		name     string
		amount   int64
		wantID   string
		wantHit  bool
	}{
		{"negative amount", -1, "", false},
		{"zero lands in small", 0, "t1", true},
		{"upper bound inclusive", 500_00, "t1", true},
		{"gap between ranges", 750_00, "", false},
		{"mid range", 2_500_000, "t2", true},
		{"unbounded range", 99_999_999, "t3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.amount, nil, thresholds)
			if ok != tt.wantHit {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantHit)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("Resolve() id = %s, want %s", got.ID, tt.wantID)
			}
		})
	}
}

func TestResolve_IgnoresInactive(t *testing.T) {
	thresholds := []entity.ApprovalThreshold{
		{ID: "t1", MinAmountCents: 0, MaxAmountCents: cents(100_00), Active: false},
	}

	if _, ok := Resolve(50_00, nil, thresholds); ok {
		t.Error("Resolve() matched an inactive threshold")
	}
}

func TestResolve_Conditions(t *testing.T) {
	thresholds := []entity.ApprovalThreshold{
		{
			ID: "it-only", MinAmountCents: 0, MaxAmountCents: cents(1_000_000), Active: true,
			Conditions: []entity.Condition{
				{Field: "department", Operator: entity.OperatorEquals, Value: "IT"},
			},
		},
	}

	if _, ok := Resolve(100_00, map[string]string{"department": "Sales"}, thresholds); ok {
		t.Error("Resolve() matched with failing condition")
	}
	if _, ok := Resolve(100_00, map[string]string{"department": "IT"}, thresholds); !ok {
		t.Error("Resolve() should match when all conditions hold")
	}
	if _, ok := Resolve(100_00, nil, thresholds); ok {
		t.Error("Resolve() matched with missing attribute")
	}
}

func TestResolve_ConditionOperators(t *testing.T) {
	tests := []struct {
		name  string
		cond  entity.Condition
		attrs map[string]string
		want  bool
	}{
		{
			"contains match",
			entity.Condition{Field: "supplier_category", Operator: entity.OperatorContains, Value: "hardware"},
			map[string]string{"supplier_category": "it-hardware-vendor"},
			true,
		},
		{
			"in match",
			entity.Condition{Field: "currency", Operator: entity.OperatorIn, Values: []string{"USD", "EUR"}},
			map[string]string{"currency": "EUR"},
			true,
		},
		{
			"in miss",
			entity.Condition{Field: "currency", Operator: entity.OperatorIn, Values: []string{"USD", "EUR"}},
			map[string]string{"currency": "GBP"},
			false,
		},
		{
			"not_in holds",
			entity.Condition{Field: "payment_terms", Operator: entity.OperatorNotIn, Values: []string{"prepaid"}},
			map[string]string{"payment_terms": "net30"},
			true,
		},
		{
			"not_in vacuous on missing attribute",
			entity.Condition{Field: "payment_terms", Operator: entity.OperatorNotIn, Values: []string{"prepaid"}},
			map[string]string{},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Evaluate(tt.attrs); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Overlapping ranges must resolve deterministically: narrowest span wins and
// unbounded ranges are considered last.
func TestResolve_NarrowestRangeWins(t *testing.T) {
	thresholds := []entity.ApprovalThreshold{
		{ID: "wide", MinAmountCents: 0, MaxAmountCents: cents(10_000_00), Active: true},
		{ID: "narrow", MinAmountCents: 4_000_00, MaxAmountCents: cents(6_000_00), Active: true},
		{ID: "open", MinAmountCents: 0, Active: true},
	}

	got, ok := Resolve(5_000_00, nil, thresholds)
	if !ok {
		t.Fatal("Resolve() found no match")
	}
	if got.ID != "narrow" {
		t.Errorf("Resolve() picked %s, want narrow", got.ID)
	}
}

func TestResolve_UnboundedSortsLast(t *testing.T) {
	thresholds := []entity.ApprovalThreshold{
		{ID: "open", MinAmountCents: 0, Active: true},
		{ID: "bounded", MinAmountCents: 0, MaxAmountCents: cents(100_000_00), Active: true},
	}

	got, ok := Resolve(50_00, nil, thresholds)
	if !ok {
		t.Fatal("Resolve() found no match")
	}
	if got.ID != "bounded" {
		t.Errorf("Resolve() picked %s, want bounded", got.ID)
	}
}

func TestResolve_EqualSpanTieBreak(t *testing.T) {
	thresholds := []entity.ApprovalThreshold{
		{ID: "b", MinAmountCents: 100, MaxAmountCents: cents(300), Active: true},
		{ID: "a", MinAmountCents: 100, MaxAmountCents: cents(300), Active: true},
	}

	got, ok := Resolve(200, nil, thresholds)
	if !ok {
		t.Fatal("Resolve() found no match")
	}
	if got.ID != "a" {
		t.Errorf("Resolve() picked %s, want a (id tie-break)", got.ID)
	}
}

func TestOverlaps(t *testing.T) {
	thresholds := []entity.ApprovalThreshold{
		{ID: "t1", MinAmountCents: 0, MaxAmountCents: cents(100), Active: true},
		{ID: "t2", MinAmountCents: 50, MaxAmountCents: cents(150), Active: true},
		{ID: "t3", MinAmountCents: 200, Active: true},
		{ID: "t4", MinAmountCents: 0, MaxAmountCents: cents(500), Active: false},
	}

	pairs := Overlaps(thresholds)
	if len(pairs) != 1 {
		t.Fatalf("Overlaps() found %d pairs, want 1", len(pairs))
	}
	if pairs[0][0].ID != "t1" || pairs[0][1].ID != "t2" {
		t.Errorf("Overlaps() = %s/%s, want t1/t2", pairs[0][0].ID, pairs[0][1].ID)
	}
}
