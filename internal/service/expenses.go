package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
)

func (s *Service) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}
	return s.repo.ListExpenses(ctx, from, to)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Expense{}, fmt.Errorf("admin role required")
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" || req.AmountCents < 1 {
		return domain.Expense{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		AmountCents: req.AmountCents,
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, "expense_create", "expense", created.ID, fmt.Sprintf("amount=%d", created.AmountCents))
	s.invalidateReports(ctx)
	return *created, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}

	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "expense_delete", "expense", id, "")
	s.invalidateReports(ctx)
	return nil
}
