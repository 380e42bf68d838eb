package billing

import "testing"

func TestQuotaForAmount(t *testing.T) {
	table := DefaultTable()
	cases := []struct {
		amount float64
		want   int
	}{
		{1, 1},     // sandbox single
		{1.5, 1},   // boundary is inclusive
		{10, 5},    // sandbox triple
		{399, 1},   // production single
		{1000, 5},  // production triple
		{99999, 5}, // anything larger falls back to the top grant
	}
	for _, tc := range cases {
		if got := table.QuotaForAmount(tc.amount); got != tc.want {
			t.Fatalf("QuotaForAmount(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestQuotaForPlan(t *testing.T) {
	table := DefaultTable()
	if quota, ok := table.QuotaForPlan("single"); !ok || quota != 1 {
		t.Fatalf("expected single=1, got %d ok=%v", quota, ok)
	}
	if quota, ok := table.QuotaForPlan(" TRIPLE "); !ok || quota != 5 {
		t.Fatalf("expected plan lookup to normalize, got %d ok=%v", quota, ok)
	}
	if _, ok := table.QuotaForPlan("deluxe"); ok {
		t.Fatal("expected unknown plan to be rejected")
	}
}

func TestTiersSortedByBoundary(t *testing.T) {
	table := NewTable([]Tier{
		{MaxAmount: 500, Quota: 1},
		{MaxAmount: 1.5, Quota: 1},
		{MaxAmount: 15, Quota: 5},
	}, 5, nil)
	if got := table.QuotaForAmount(10); got != 5 {
		t.Fatalf("expected unsorted input to still match the 15 boundary, got %d", got)
	}
}
