package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/profit"
)

const reportCachePrefix = "report:profit:"

// ProfitReport aggregates the ledger over [from, to]. Service profit is
// whatever was recorded on each sale at creation; product profit is priced
// against the catalog's current costs, falling back to the cost snapshot
// when a product vanished. Rejected sales count for nothing.
func (s *Service) ProfitReport(ctx context.Context, from time.Time, to time.Time) (domain.ProfitReport, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.ProfitReport{}, fmt.Errorf("admin role required")
	}

	key := fmt.Sprintf("%s%d:%d", reportCachePrefix, from.Unix(), to.Unix())
	if cached, hit, err := s.reportCache.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: report cache get failed: %v", err)
	} else if hit {
		report := *cached
		report.FromCache = true
		return report, nil
	}

	sales, err := s.repo.ListSales(ctx, actor.ID, true, domain.SaleFilter{})
	if err != nil {
		return domain.ProfitReport{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, from, to)
	if err != nil {
		return domain.ProfitReport{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.ProfitReport{}, err
	}

	costOf := func(productID string) (int64, bool) {
		product, err := s.repo.GetProductByID(ctx, productID)
		if err != nil {
			return 0, false
		}
		return product.CostCents, true
	}

	report := domain.ProfitReport{
		From:                from,
		To:                  to,
		GeneratedAt:         time.Now().UTC(),
		CurrencyDisplayCode: settings.Currency,
	}
	for _, sale := range sales {
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && sale.CreatedAt.After(to) {
			continue
		}
		if sale.Status == domain.SaleStatusRejected {
			continue
		}
		report.SaleCount++
		report.RevenueCents += sale.TotalCents
		switch sale.Kind {
		case domain.SaleKindService:
			report.ServiceProfitCents += sale.ProfitCents
		default:
			report.ProductProfitCents += profit.ProductProfit(sale.Items, costOf)
		}
	}
	for _, expense := range expenses {
		report.ExpenseCents += expense.AmountCents
	}
	report.NetProfitCents = report.ServiceProfitCents + report.ProductProfitCents - report.ExpenseCents

	if err := s.reportCache.Set(ctx, key, &report, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache set failed: %v", err)
	}
	return report, nil
}
