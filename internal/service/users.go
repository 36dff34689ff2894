package service

import (
	"context"
	"fmt"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
)

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}

	accounts, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.UserView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, userView(account))
	}
	return views, nil
}

// UpdateUserStatus moves an account through the verification pipeline
// (pending_info, pending_review, verified, rejected).
func (s *Service) UpdateUserStatus(ctx context.Context, username string, status string) (domain.UserView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.UserView{}, fmt.Errorf("admin role required")
	}

	switch status {
	case domain.UserStatusPendingInfo, domain.UserStatusPendingReview, domain.UserStatusVerified, domain.UserStatusRejected:
	default:
		return domain.UserView{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateUserStatus(ctx, username, status)
	if err != nil {
		return domain.UserView{}, err
	}

	s.logAudit(ctx, "user_status", "user", updated.Username, "status="+status)
	return userView(*updated), nil
}

func userView(account domain.UserAccount) domain.UserView {
	return domain.UserView{
		ID:        account.ID,
		Username:  account.Username,
		Role:      account.Role,
		Status:    account.Status,
		Phone:     account.Phone,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}
}
