package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/auth"
	"github.com/spec-kit/signup-forms/internal/bigcommerce"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/repository"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// BigCommerceAPI is the subset of the BigCommerce client the services use.
type BigCommerceAPI interface {
	Authorize(ctx context.Context, cb bigcommerce.AuthCallback) (domain.StoreIdentity, error)
	VerifySignedPayload(token string) (domain.StoreIdentity, error)
	CustomerGroups(ctx context.Context, session domain.Session) ([]json.RawMessage, error)
}

// StoreService coordinates the app install, load and uninstall callbacks.
type StoreService struct {
	stores  repository.StoreRepository
	bc      BigCommerceAPI
	codec   *auth.ContextCodec
	baseURL string
	logger  *zap.Logger
}

// StoreDependencies bundles collaborators for the store service.
type StoreDependencies struct {
	StoreRepo   repository.StoreRepository
	BigCommerce BigCommerceAPI
	Codec       *auth.ContextCodec
	BaseURL     string
	Logger      *zap.Logger
}

// NewStoreService builds the service.
func NewStoreService(deps StoreDependencies) *StoreService {
	return &StoreService{
		stores:  deps.StoreRepo,
		bc:      deps.BigCommerce,
		codec:   deps.Codec,
		baseURL: deps.BaseURL,
		logger:  deps.Logger,
	}
}

// Install exchanges the install code, stores the access token and returns
// the dashboard URL carrying a fresh context token.
func (s *StoreService) Install(ctx context.Context, cb bigcommerce.AuthCallback) (string, error) {
	identity, err := s.bc.Authorize(ctx, cb)
	if err != nil {
		return "", err
	}

	token, err := s.codec.Encode(identity)
	if err != nil {
		return "", apperrors.NewBadRequest("install callback did not identify a store")
	}

	storeHash := identity.StoreHash()
	store := &domain.Store{
		StoreHash:   storeHash,
		AccessToken: identity.AccessToken,
		Scope:       identity.Scope,
		AdminID:     identity.User.ID,
	}
	if err := s.stores.UpsertStore(ctx, store); err != nil {
		return "", err
	}
	if err := s.stores.UpsertUser(ctx, identity.User, storeHash); err != nil {
		return "", err
	}

	s.logger.Info("store installed", zap.String("store_hash", storeHash), zap.Int64("user_id", identity.User.ID))
	return s.dashboardURL(token), nil
}

// Load verifies the signed payload of an app launch and returns the dashboard URL.
func (s *StoreService) Load(ctx context.Context, signedPayload string) (string, error) {
	identity, err := s.bc.VerifySignedPayload(signedPayload)
	if err != nil {
		return "", err
	}

	storeHash := identity.StoreHash()
	if _, err := s.stores.GetStore(ctx, storeHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewUnauthorized("store not installed")
		}
		return "", err
	}

	token, err := s.codec.Encode(identity)
	if err != nil {
		return "", apperrors.NewUnauthorized("signed payload has no store")
	}
	if identity.User.ID != 0 {
		if err := s.stores.UpsertUser(ctx, identity.User, storeHash); err != nil {
			return "", err
		}
	}
	return s.dashboardURL(token), nil
}

// Uninstall removes the store and detaches the user; a user left with no
// stores is deleted.
func (s *StoreService) Uninstall(ctx context.Context, signedPayload string) error {
	identity, err := s.bc.VerifySignedPayload(signedPayload)
	if err != nil {
		return err
	}

	storeHash := identity.StoreHash()
	if err := s.stores.DeleteStore(ctx, storeHash); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	userID := identity.User.ID
	if userID == 0 {
		userID = identity.Owner.ID
	}
	if userID != 0 {
		if err := s.stores.DetachUser(ctx, userID, storeHash); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}

	s.logger.Info("store uninstalled", zap.String("store_hash", storeHash))
	return nil
}

// CustomerGroups proxies the store's customer groups.
func (s *StoreService) CustomerGroups(ctx context.Context, session domain.Session) ([]json.RawMessage, error) {
	return s.bc.CustomerGroups(ctx, session)
}

func (s *StoreService) dashboardURL(token string) string {
	return s.baseURL + "/?context=" + url.QueryEscape(token)
}
