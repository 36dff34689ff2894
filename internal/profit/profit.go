// Package profit holds the money math for the ledger. Every function is
// pure: the schedule entry and tax rate are passed in explicitly, so the
// same inputs always produce the same cents.
package profit

import (
	"math"

	"brandstore/backend/internal/domain"
)

// ServiceProfit computes the commission for a service request:
// amount * percentage / 100, rounded to the nearest cent, plus the fixed fee.
func ServiceProfit(amountCents int64, rate domain.ProfitRate) int64 {
	percent := int64(math.Round(float64(amountCents) * rate.Percentage / 100))
	return percent + rate.FixedCents
}

// Tax computes the tax on a subtotal at the given percentage rate.
func Tax(subtotalCents int64, ratePercent float64) int64 {
	if ratePercent <= 0 {
		return 0
	}
	return int64(math.Round(float64(subtotalCents) * ratePercent / 100))
}

// ProductProfit sums (unit price - current cost) * qty over the items.
// costOf resolves the product's current cost; when it misses (product
// removed entirely) the cost snapshot taken at sale time is used.
func ProductProfit(items []domain.SaleItem, costOf func(productID string) (int64, bool)) int64 {
	var total int64
	for _, item := range items {
		cost := item.UnitCostCents
		if costOf != nil {
			if current, ok := costOf(item.ProductID); ok {
				cost = current
			}
		}
		total += (item.UnitPriceCents - cost) * int64(item.Quantity)
	}
	return total
}
