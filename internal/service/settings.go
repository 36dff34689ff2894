package service

import (
	"context"
	"fmt"
	"strings"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
)

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return *settings, nil
}

// UpdateSettings applies partial edits. Schedule changes take effect for
// future service requests only; recorded sale profits are never recomputed.
func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Settings{}, fmt.Errorf("admin role required")
	}

	current, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	updated := *current
	if req.StoreName != nil {
		name := strings.TrimSpace(*req.StoreName)
		if name == "" {
			return domain.Settings{}, store.ErrInvalidInput
		}
		updated.StoreName = name
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return domain.Settings{}, store.ErrInvalidInput
		}
		updated.Currency = currency
	}
	if req.TaxRatePercent != nil {
		if *req.TaxRatePercent < 0 || *req.TaxRatePercent > 100 {
			return domain.Settings{}, store.ErrInvalidInput
		}
		updated.TaxRatePercent = *req.TaxRatePercent
	}
	for kind, rate := range req.ServiceProfits {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind == "" || rate.Percentage < 0 || rate.Percentage > 100 || rate.FixedCents < 0 {
			return domain.Settings{}, store.ErrInvalidInput
		}
		updated.ServiceProfits[kind] = rate
	}

	saved, err := s.repo.UpdateSettings(ctx, updated)
	if err != nil {
		return domain.Settings{}, err
	}

	s.logAudit(ctx, "settings_update", "settings", "global", fmt.Sprintf("tax=%.2f,currency=%s", saved.TaxRatePercent, saved.Currency))
	s.invalidateReports(ctx)
	return *saved, nil
}
