package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// EmailTemplateRepository stores the template set and shared branding of a store.
type EmailTemplateRepository interface {
	GetTemplates(ctx context.Context, storeHash string) (domain.EmailTemplates, error)
	GetTemplatesDocument(ctx context.Context, storeHash string) (json.RawMessage, error)
	SaveTemplates(ctx context.Context, storeHash string, templates domain.EmailTemplates) error
	GetSharedBranding(ctx context.Context, storeHash string) (*domain.SharedBranding, error)
	SaveSharedBranding(ctx context.Context, storeHash string, branding domain.SharedBranding) error
}

type emailTemplateRepository struct {
	pool *pgxpool.Pool
}

// NewEmailTemplateRepository returns a Postgres-backed implementation.
func NewEmailTemplateRepository(pool *pgxpool.Pool) EmailTemplateRepository {
	return &emailTemplateRepository{pool: pool}
}

// GetTemplates returns the stored templates, or an empty set when none were saved.
func (r *emailTemplateRepository) GetTemplates(ctx context.Context, storeHash string) (domain.EmailTemplates, error) {
	raw, err := r.GetTemplatesDocument(ctx, storeHash)
	if err != nil {
		return nil, err
	}
	templates := domain.EmailTemplates{}
	if len(raw) == 0 {
		return templates, nil
	}
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// GetTemplatesDocument returns the stored JSON as written, including fields
// the current schema no longer knows about.
func (r *emailTemplateRepository) GetTemplatesDocument(ctx context.Context, storeHash string) (json.RawMessage, error) {
	const query = `SELECT templates FROM email_templates WHERE store_hash=$1`
	var raw []byte
	if err := r.pool.QueryRow(ctx, query, storeHash).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

func (r *emailTemplateRepository) SaveTemplates(ctx context.Context, storeHash string, templates domain.EmailTemplates) error {
	payload, err := json.Marshal(templates)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO email_templates (store_hash, templates)
        VALUES ($1, $2)
        ON CONFLICT (store_hash) DO UPDATE
            SET templates=EXCLUDED.templates, updated_at=NOW()`
	_, err = r.pool.Exec(ctx, query, storeHash, payload)
	return err
}

// GetSharedBranding returns nil when the store has not saved branding yet.
func (r *emailTemplateRepository) GetSharedBranding(ctx context.Context, storeHash string) (*domain.SharedBranding, error) {
	const query = `SELECT branding FROM shared_branding WHERE store_hash=$1`
	var raw []byte
	if err := r.pool.QueryRow(ctx, query, storeHash).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var branding domain.SharedBranding
	if err := json.Unmarshal(raw, &branding); err != nil {
		return nil, err
	}
	return &branding, nil
}

func (r *emailTemplateRepository) SaveSharedBranding(ctx context.Context, storeHash string, branding domain.SharedBranding) error {
	payload, err := json.Marshal(branding)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO shared_branding (store_hash, branding)
        VALUES ($1, $2)
        ON CONFLICT (store_hash) DO UPDATE
            SET branding=EXCLUDED.branding, updated_at=NOW()`
	_, err = r.pool.Exec(ctx, query, storeHash, payload)
	return err
}
