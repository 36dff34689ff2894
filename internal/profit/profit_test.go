package profit

import (
	"testing"

	"brandstore/backend/internal/domain"
)

func TestServiceProfitPercentagePlusFixed(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		rate   domain.ProfitRate
		want   int64
	}{
		{"fixed only", 20000, domain.ProfitRate{Percentage: 0, FixedCents: 1000}, 1000},
		{"percentage only", 20000, domain.ProfitRate{Percentage: 5, FixedCents: 0}, 1000},
		{"both", 10000, domain.ProfitRate{Percentage: 5, FixedCents: 500}, 1000},
		{"zero schedule", 99999, domain.ProfitRate{}, 0},
		{"rounds half up", 333, domain.ProfitRate{Percentage: 5, FixedCents: 0}, 17},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ServiceProfit(tc.amount, tc.rate); got != tc.want {
				t.Fatalf("ServiceProfit(%d, %+v) = %d, want %d", tc.amount, tc.rate, got, tc.want)
			}
		})
	}
}

func TestServiceProfitDeterministic(t *testing.T) {
	rate := domain.ProfitRate{Percentage: 2.5, FixedCents: 150}
	first := ServiceProfit(123456, rate)
	for i := 0; i < 50; i++ {
		if got := ServiceProfit(123456, rate); got != first {
			t.Fatalf("profit varied between calls: %d vs %d", got, first)
		}
	}
}

func TestTax(t *testing.T) {
	if got := Tax(10000, 14); got != 1400 {
		t.Fatalf("Tax(10000, 14) = %d, want 1400", got)
	}
	if got := Tax(10000, 0); got != 0 {
		t.Fatalf("Tax(10000, 0) = %d, want 0", got)
	}
	if got := Tax(333, 14); got != 47 {
		t.Fatalf("Tax(333, 14) = %d, want 47", got)
	}
}

func TestProductProfitUsesCurrentCostWithSnapshotFallback(t *testing.T) {
	items := []domain.SaleItem{
		{ProductID: "PRD-1", Quantity: 3, UnitPriceCents: 2500, UnitCostCents: 1500},
		{ProductID: "PRD-GONE", Quantity: 1, UnitPriceCents: 12000, UnitCostCents: 8000},
	}
	costs := map[string]int64{"PRD-1": 1400}
	got := ProductProfit(items, func(id string) (int64, bool) {
		c, ok := costs[id]
		return c, ok
	})
	// (2500-1400)*3 + (12000-8000)*1
	if want := int64(3300 + 4000); got != want {
		t.Fatalf("ProductProfit = %d, want %d", got, want)
	}
}

func TestProductProfitNilLookupUsesSnapshots(t *testing.T) {
	items := []domain.SaleItem{{ProductID: "PRD-1", Quantity: 2, UnitPriceCents: 2500, UnitCostCents: 1500}}
	if got := ProductProfit(items, nil); got != 2000 {
		t.Fatalf("ProductProfit = %d, want 2000", got)
	}
}
