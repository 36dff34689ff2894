package service

import (
	"context"
	"fmt"
	"strings"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
)

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return nil, fmt.Errorf("authenticated actor required")
	}
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.CustomerDetail, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.CustomerDetail{}, fmt.Errorf("authenticated actor required")
	}

	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	total, err := s.repo.CustomerTotalSpent(ctx, id)
	if err != nil {
		return domain.CustomerDetail{}, err
	}
	return domain.CustomerDetail{Customer: *customer, TotalSpentCents: total}, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.Customer{}, fmt.Errorf("authenticated actor required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerCreateRequest) (domain.Customer, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Customer{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateCustomer(ctx, domain.Customer{
		ID:      id,
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_update", "customer", updated.ID, "name="+updated.Name)
	return *updated, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}

	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "customer_delete", "customer", id, "")
	return nil
}
