package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// StoreRepository persists installed stores and the users that can open them.
type StoreRepository interface {
	UpsertStore(ctx context.Context, store *domain.Store) error
	GetStore(ctx context.Context, storeHash string) (*domain.Store, error)
	GetStoreByPublicID(ctx context.Context, publicID string) (*domain.Store, error)
	DeleteStore(ctx context.Context, storeHash string) error
	UpsertUser(ctx context.Context, user domain.BCUser, storeHash string) error
	DetachUser(ctx context.Context, userID int64, storeHash string) error
}

type storeRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a Postgres-backed implementation.
func NewStoreRepository(pool *pgxpool.Pool) StoreRepository {
	return &storeRepository{pool: pool}
}

// UpsertStore keeps the existing public id on reinstall so storefront scripts keep working.
func (r *storeRepository) UpsertStore(ctx context.Context, store *domain.Store) error {
	if store.PublicID == "" {
		store.PublicID = uuid.NewString()
	}
	const query = `
        INSERT INTO stores (store_hash, access_token, scope, admin_id, public_id)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (store_hash) DO UPDATE
            SET access_token=EXCLUDED.access_token,
                scope=EXCLUDED.scope,
                admin_id=EXCLUDED.admin_id,
                updated_at=NOW()
        RETURNING public_id::text, signup_script_uuid, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		store.StoreHash,
		store.AccessToken,
		store.Scope,
		store.AdminID,
		store.PublicID,
	).Scan(&store.PublicID, &store.SignupScriptUUID, &store.CreatedAt, &store.UpdatedAt)
}

func (r *storeRepository) GetStore(ctx context.Context, storeHash string) (*domain.Store, error) {
	const query = `
        SELECT store_hash, access_token, scope, admin_id, public_id::text, signup_script_uuid, created_at, updated_at
        FROM stores WHERE store_hash=$1`
	return r.scanStore(r.pool.QueryRow(ctx, query, storeHash))
}

func (r *storeRepository) GetStoreByPublicID(ctx context.Context, publicID string) (*domain.Store, error) {
	if _, err := uuid.Parse(publicID); err != nil {
		return nil, pgx.ErrNoRows
	}
	const query = `
        SELECT store_hash, access_token, scope, admin_id, public_id::text, signup_script_uuid, created_at, updated_at
        FROM stores WHERE public_id=$1`
	return r.scanStore(r.pool.QueryRow(ctx, query, publicID))
}

func (r *storeRepository) scanStore(row pgx.Row) (*domain.Store, error) {
	var store domain.Store
	if err := row.Scan(
		&store.StoreHash,
		&store.AccessToken,
		&store.Scope,
		&store.AdminID,
		&store.PublicID,
		&store.SignupScriptUUID,
		&store.CreatedAt,
		&store.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) DeleteStore(ctx context.Context, storeHash string) error {
	const query = `DELETE FROM stores WHERE store_hash=$1`
	cmd, err := r.pool.Exec(ctx, query, storeHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *storeRepository) UpsertUser(ctx context.Context, user domain.BCUser, storeHash string) error {
	if user.ID == 0 {
		return errors.New("user id is required")
	}
	const query = `
        INSERT INTO store_users (id, email, username, stores)
        VALUES ($1, $2, $3, ARRAY[$4::text])
        ON CONFLICT (id) DO UPDATE
            SET email=EXCLUDED.email,
                username=EXCLUDED.username,
                stores=CASE
                    WHEN $4 = ANY(store_users.stores) THEN store_users.stores
                    ELSE array_append(store_users.stores, $4)
                END,
                updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.Username, storeHash)
	return err
}

// DetachUser removes storeHash from the user's stores and deletes the user
// once no stores remain.
func (r *storeRepository) DetachUser(ctx context.Context, userID int64, storeHash string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const detach = `
            UPDATE store_users SET stores=array_remove(stores, $2), updated_at=NOW()
            WHERE id=$1`
		cmd, err := tx.Exec(ctx, detach, userID, storeHash)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		const cleanup = `DELETE FROM store_users WHERE id=$1 AND cardinality(stores)=0`
		_, err = tx.Exec(ctx, cleanup, userID)
		return err
	})
}
