package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/cache"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/repository"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// SettingsService reads and writes per-store signup form settings.
type SettingsService struct {
	repo   repository.SettingsRepository
	cache  *cache.Cache
	logger *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(repo repository.SettingsRepository, c *cache.Cache, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, cache: c, logger: logger}
}

// Get returns the store's settings through the cache.
func (s *SettingsService) Get(ctx context.Context, session domain.Session) (domain.StoreSettings, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.SettingsKey(session.StoreHash), func(ctx context.Context) (domain.StoreSettings, error) {
		settings, err := s.repo.Get(ctx, session.StoreHash)
		if err != nil {
			return domain.StoreSettings{}, err
		}
		return *settings, nil
	})
}

// CooldownDays returns how long a rejected applicant must wait.
func (s *SettingsService) CooldownDays(ctx context.Context, session domain.Session) (int, error) {
	settings, err := s.Get(ctx, session)
	if err != nil {
		return 0, err
	}
	if settings.CooldownDays < domain.MinCooldownDays {
		return domain.DefaultCooldownDays, nil
	}
	return settings.CooldownDays, nil
}

// SetCooldownDays stores a cooldown between 1 and 365 days.
func (s *SettingsService) SetCooldownDays(ctx context.Context, session domain.Session, days int) error {
	if days < domain.MinCooldownDays || days > domain.MaxCooldownDays {
		return apperrors.NewValidationError(
			fmt.Sprintf("days must be between %d and %d", domain.MinCooldownDays, domain.MaxCooldownDays),
			map[string]any{"days": days},
		)
	}
	if err := s.repo.SaveCooldownDays(ctx, session.StoreHash, days); err != nil {
		return err
	}
	s.invalidate(ctx, session.StoreHash)
	s.logger.Info("cooldown updated", zap.String("store_hash", session.StoreHash), zap.Int("days", days))
	return nil
}

// SignupForm returns the saved form definition and whether it is live.
func (s *SettingsService) SignupForm(ctx context.Context, session domain.Session) (json.RawMessage, bool, error) {
	settings, err := s.Get(ctx, session)
	if err != nil {
		return nil, false, err
	}
	return settings.SignupForm, settings.SignupFormActive, nil
}

// SaveSignupForm stores the form definition built in the dashboard.
func (s *SettingsService) SaveSignupForm(ctx context.Context, session domain.Session, form json.RawMessage, active bool) error {
	trimmed := bytes.TrimSpace(form)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return apperrors.NewBadRequest("form is required")
	}
	if !json.Valid(trimmed) {
		return apperrors.NewBadRequest("form must be valid JSON")
	}
	if err := s.repo.SaveSignupForm(ctx, session.StoreHash, json.RawMessage(trimmed), active); err != nil {
		return err
	}
	s.invalidate(ctx, session.StoreHash)
	s.logger.Info("signup form updated", zap.String("store_hash", session.StoreHash), zap.Bool("active", active))
	return nil
}

func (s *SettingsService) invalidate(ctx context.Context, storeHash string) {
	if err := s.cache.Invalidate(ctx, cache.SettingsKey(storeHash)); err != nil {
		s.logger.Warn("failed to invalidate settings cache", zap.String("store_hash", storeHash), zap.Error(err))
	}
}
