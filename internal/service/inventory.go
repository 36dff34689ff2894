package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
	"brandstore/backend/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	if includeInactive {
		actor, ok := ActorFromContext(ctx)
		if !ok || actor.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("admin role required")
		}
	}
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.Name == "" || req.PriceCents < 1 || req.CostCents < 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		ID:         xid.ProductID(),
		Name:       req.Name,
		Category:   req.Category,
		Barcode:    req.Barcode,
		PriceCents: req.PriceCents,
		CostCents:  req.CostCents,
		Stock:      req.Stock,
		Active:     true,
	}
	if product.Barcode == "" {
		barcode, err := s.generateBarcode(ctx)
		if err != nil {
			return domain.Product{}, err
		}
		product.Barcode = barcode
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, created.Stock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.CostCents = *req.CostCents
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("price=%d,cost=%d", saved.PriceCents, saved.CostCents))
	// Profit reports price margins at the current cost, so a cost edit
	// changes cached report output.
	s.invalidateReports(ctx)
	return *saved, nil
}

// DeleteProduct tombstones; the record and its sale references survive.
func (s *Service) DeleteProduct(ctx context.Context, id string) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	removed, err := s.repo.DeactivateProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_delete", "product", removed.ID, "tombstoned")
	return *removed, nil
}

func (s *Service) AdjustStock(ctx context.Context, id string, adj domain.StockAdjustment) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Product{}, fmt.Errorf("admin role required")
	}
	if adj.Delta == 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product, err := s.repo.AdjustStock(ctx, id, adj.Delta)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "stock_adjust", "product", product.ID, fmt.Sprintf("delta=%d,stock=%d", adj.Delta, product.Stock))
	return *product, nil
}

// GenerateBarcode hands out an unused six-digit barcode for the product form.
func (s *Service) GenerateBarcode(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return "", fmt.Errorf("admin role required")
	}
	return s.generateBarcode(ctx)
}

func (s *Service) generateBarcode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		candidate := xid.Barcode()
		_, err := s.repo.GetProductByBarcode(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	// Ten collisions in a six-digit space means the catalog is huge;
	// fall back to something time-based rather than loop forever.
	return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000), nil
}
