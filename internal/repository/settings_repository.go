package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// SettingsRepository persists per-store signup form settings.
type SettingsRepository interface {
	Get(ctx context.Context, storeHash string) (*domain.StoreSettings, error)
	SaveCooldownDays(ctx context.Context, storeHash string, days int) error
	SaveSignupForm(ctx context.Context, storeHash string, form json.RawMessage, active bool) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed implementation.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

// Get returns default settings when the store has none saved.
func (r *settingsRepository) Get(ctx context.Context, storeHash string) (*domain.StoreSettings, error) {
	const query = `
        SELECT signup_form, signup_form_active, cooldown_days
        FROM store_settings WHERE store_hash=$1`

	var (
		settings domain.StoreSettings
		form     []byte
	)
	err := r.pool.QueryRow(ctx, query, storeHash).Scan(&form, &settings.SignupFormActive, &settings.CooldownDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.StoreSettings{CooldownDays: domain.DefaultCooldownDays}, nil
		}
		return nil, err
	}
	if len(form) > 0 {
		settings.SignupForm = form
	}
	return &settings, nil
}

func (r *settingsRepository) SaveCooldownDays(ctx context.Context, storeHash string, days int) error {
	const query = `
        INSERT INTO store_settings (store_hash, cooldown_days)
        VALUES ($1, $2)
        ON CONFLICT (store_hash) DO UPDATE
            SET cooldown_days=EXCLUDED.cooldown_days, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, storeHash, days)
	return err
}

func (r *settingsRepository) SaveSignupForm(ctx context.Context, storeHash string, form json.RawMessage, active bool) error {
	const query = `
        INSERT INTO store_settings (store_hash, signup_form, signup_form_active)
        VALUES ($1, $2, $3)
        ON CONFLICT (store_hash) DO UPDATE
            SET signup_form=EXCLUDED.signup_form,
                signup_form_active=EXCLUDED.signup_form_active,
                updated_at=NOW()`
	var payload []byte
	if len(form) > 0 {
		payload = form
	}
	_, err := r.pool.Exec(ctx, query, storeHash, payload, active)
	return err
}
