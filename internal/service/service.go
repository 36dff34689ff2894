package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"brandstore/backend/internal/cache"
	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/profit"
	"brandstore/backend/internal/store"
	"brandstore/backend/internal/xid"

	"github.com/google/uuid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	reportCache cache.ReportCache
	reportTTL   time.Duration
}

func New(repo store.Repository, reportCache cache.ReportCache) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}

	return &Service{
		repo:        repo,
		reportCache: reportCache,
		reportTTL:   2 * time.Minute,
	}
}

// CreatePOSSale records a counter sale. Stock is decremented at creation,
// tax applies at the configured rate and the sale completes immediately.
// Product profit is derived at report time, so ProfitCents stays zero here.
func (s *Service) CreatePOSSale(ctx context.Context, req domain.POSSaleRequest) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("authenticated actor required")
	}

	items, subtotal, err := s.buildItems(ctx, req.Lines)
	if err != nil {
		return domain.Sale{}, err
	}
	if !domain.ValidPaymentMethod(req.PaymentMethod) {
		return domain.Sale{}, store.ErrInvalidInput
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("load settings: %w", err)
	}
	tax := profit.Tax(subtotal, settings.TaxRatePercent)

	sale := domain.Sale{
		ID:            xid.New("INV"),
		Kind:          domain.SaleKindPOS,
		UserID:        actor.ID,
		Username:      actor.Username,
		CustomerID:    req.CustomerID,
		Items:         items,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		Status:        domain.SaleStatusSuccess,
		PaymentMethod: req.PaymentMethod,
		Note:          strings.TrimSpace(req.Note),
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("kind=pos,total=%d,items=%d", created.TotalCents, len(created.Items)))
	s.invalidateReports(ctx)
	return *created, nil
}

// CreateOrder records a shop order. No tax, starts pending, stock is still
// reserved at creation so a later rejection can restore it.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("authenticated actor required")
	}

	items, subtotal, err := s.buildItems(ctx, req.Lines)
	if err != nil {
		return domain.Sale{}, err
	}
	if !domain.ValidPaymentMethod(req.PaymentMethod) {
		return domain.Sale{}, store.ErrInvalidInput
	}

	sale := domain.Sale{
		ID:            xid.New("ORD"),
		Kind:          domain.SaleKindOrder,
		UserID:        actor.ID,
		Username:      actor.Username,
		CustomerID:    req.CustomerID,
		Items:         items,
		SubtotalCents: subtotal,
		TaxCents:      0,
		TotalCents:    subtotal,
		Status:        domain.SaleStatusPending,
		PaymentMethod: req.PaymentMethod,
		Note:          strings.TrimSpace(req.Note),
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("kind=order,total=%d,items=%d", created.TotalCents, len(created.Items)))
	s.invalidateReports(ctx)
	return *created, nil
}

// CreateServiceRequest records a micro-finance service payment. The profit
// is computed from the schedule in force right now and written onto the
// sale; later schedule edits never touch it.
func (s *Service) CreateServiceRequest(ctx context.Context, req domain.ServiceRequestInput) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("authenticated actor required")
	}

	if req.AmountCents < 1 {
		return domain.Sale{}, store.ErrInvalidInput
	}
	if !domain.ValidServicePayment(req.PaymentMethod) {
		return domain.Sale{}, store.ErrInvalidInput
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("load settings: %w", err)
	}
	kind := strings.ToLower(strings.TrimSpace(req.Service.Kind))
	rate, ok := settings.ServiceProfits[kind]
	if !ok {
		return domain.Sale{}, store.ErrInvalidInput
	}

	detail := req.Service
	detail.Kind = kind

	sale := domain.Sale{
		ID:            xid.New("PAY"),
		Kind:          domain.SaleKindService,
		UserID:        actor.ID,
		Username:      actor.Username,
		CustomerID:    req.CustomerID,
		SubtotalCents: req.AmountCents,
		TotalCents:    req.AmountCents,
		ProfitCents:   profit.ServiceProfit(req.AmountCents, rate),
		Status:        domain.SaleStatusPending,
		PaymentMethod: req.PaymentMethod,
		Service:       &detail,
		Note:          detail.DisplayNote(),
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("kind=service,service=%s,amount=%d,profit=%d", kind, created.TotalCents, created.ProfitCents))
	s.invalidateReports(ctx)
	return *created, nil
}

// SetSaleStatus transitions a sale. Admin only; the store layer owns the
// restore-once semantics of the rejected transition.
func (s *Service) SetSaleStatus(ctx context.Context, saleID string, status string) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Sale{}, fmt.Errorf("admin role required")
	}
	if !domain.ValidSaleStatus(status) {
		return domain.Sale{}, store.ErrInvalidInput
	}

	updated, err := s.repo.SetSaleStatus(ctx, saleID, status, time.Now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_status", "sale", updated.ID, fmt.Sprintf("status=%s", status))
	s.invalidateReports(ctx)
	return *updated, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("authenticated actor required")
	}

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	// Hide other users' sales entirely rather than answering 403, so a
	// non-admin cannot probe which ids exist.
	if actor.Role != domain.RoleAdmin && sale.UserID != actor.ID {
		return domain.Sale{}, store.ErrNotFound
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authenticated actor required")
	}
	if filter.Kind != "" && filter.Kind != domain.SaleKindPOS && filter.Kind != domain.SaleKindOrder && filter.Kind != domain.SaleKindService {
		return nil, store.ErrInvalidInput
	}
	if filter.Status != "" && !domain.ValidSaleStatus(filter.Status) {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListSales(ctx, actor.ID, actor.Role == domain.RoleAdmin, filter)
}

// buildItems snapshots prices and costs from the catalog, ignoring whatever
// the client claimed.
func (s *Service) buildItems(ctx context.Context, lines []domain.CartLine) ([]domain.SaleItem, int64, error) {
	if len(lines) == 0 {
		return nil, 0, store.ErrInvalidInput
	}

	items := make([]domain.SaleItem, 0, len(lines))
	var subtotal int64
	// The same product may appear on several lines; stock is checked against
	// the running total so duplicates cannot slip past a per-line check.
	wanted := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, 0, store.ErrInvalidInput
		}
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, 0, err
		}
		if !product.Active {
			return nil, 0, store.ErrNotFound
		}
		wanted[line.ProductID] += line.Quantity
		if product.Stock < wanted[line.ProductID] {
			return nil, 0, store.ErrInsufficientStock
		}
		items = append(items, domain.SaleItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
			UnitCostCents:  product.CostCents,
		})
		subtotal += product.PriceCents * int64(line.Quantity)
	}
	return items, subtotal, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            uuid.NewString(),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reportCache.Invalidate(ctx, reportCachePrefix); err != nil {
		log.Printf("[service] WARN: failed to invalidate report cache: %v", err)
	}
}
