package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/events"
	"github.com/spec-kit/signup-forms/internal/observability"
	"github.com/spec-kit/signup-forms/internal/repository"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// SettingsReader exposes the cooldown needed to gate resubmissions.
type SettingsReader interface {
	Get(ctx context.Context, session domain.Session) (domain.StoreSettings, error)
}

// SignupRequestService coordinates the review workflow of signup requests.
type SignupRequestService struct {
	requests   repository.SignupRequestRepository
	stores     repository.StoreRepository
	settings   SettingsReader
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SignupRequestDependencies bundles collaborators for the signup request service.
type SignupRequestDependencies struct {
	RequestRepo repository.SignupRequestRepository
	StoreRepo   repository.StoreRepository
	Settings    SettingsReader
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// StatusUpdateInput describes a merchant decision on a request.
type StatusUpdateInput struct {
	ID                  string
	Status              domain.SignupStatus
	RequiredInformation string
	MerchantMessage     string
}

// Submission is a storefront form post.
type Submission struct {
	Data      map[string]any
	IP        string
	Origin    string
	UserAgent string
}

// SubmissionResult reports what a submission turned into.
type SubmissionResult struct {
	Request     *domain.SignupRequest
	Resubmitted bool
}

// NewSignupRequestService constructs the service.
func NewSignupRequestService(deps SignupRequestDependencies) *SignupRequestService {
	return &SignupRequestService{
		requests:   deps.RequestRepo,
		stores:     deps.StoreRepo,
		settings:   deps.Settings,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// List returns one page of the store's requests, newest first.
func (s *SignupRequestService) List(ctx context.Context, session domain.Session, filter domain.SignupRequestFilter) (domain.SignupRequestPage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return domain.SignupRequestPage{}, apperrors.NewBadRequest("invalid status filter")
	}
	page, err := s.requests.List(ctx, session.StoreHash, filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return domain.SignupRequestPage{}, apperrors.NewBadRequest("invalid cursor")
		}
		return domain.SignupRequestPage{}, err
	}
	return page, nil
}

// Stats counts the store's requests by status.
func (s *SignupRequestService) Stats(ctx context.Context, session domain.Session) (domain.SignupStats, error) {
	return s.requests.Stats(ctx, session.StoreHash)
}

// UpdateStatus records a decision and publishes a status-changed event.
func (s *SignupRequestService) UpdateStatus(ctx context.Context, session domain.Session, input StatusUpdateInput) (*domain.SignupRequest, error) {
	if strings.TrimSpace(input.ID) == "" {
		return nil, apperrors.NewBadRequest("id is required")
	}
	if !input.Status.Valid() {
		return nil, apperrors.NewBadRequest("invalid status")
	}
	input.RequiredInformation = strings.TrimSpace(input.RequiredInformation)
	if input.Status == domain.SignupStatusMoreInfo && input.RequiredInformation == "" {
		return nil, apperrors.NewBadRequest("requiredInformation is required when requesting more information")
	}

	current, err := s.requests.GetByID(ctx, session.StoreHash, input.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("signup request", map[string]any{"id": input.ID})
		}
		return nil, err
	}

	updated, err := s.requests.UpdateStatus(ctx, session.StoreHash, input.ID, input.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("signup request", map[string]any{"id": input.ID})
		}
		return nil, err
	}

	payload := events.SignupStatusChangedPayload{
		OldStatus:           current.Status,
		NewStatus:           updated.Status,
		RequiredInformation: input.RequiredInformation,
		MerchantMessage:     strings.TrimSpace(input.MerchantMessage),
	}
	s.publish(ctx, events.EventSignupStatusChanged, updated, payload)

	s.logger.Info("signup request status updated",
		zap.String("store_hash", session.StoreHash),
		zap.String("signup_id", updated.ID),
		zap.String("old_status", string(current.Status)),
		zap.String("new_status", string(updated.Status)),
	)
	return updated, nil
}

// Submit stores a storefront submission for the store behind publicID.
//
// The applicant's latest request decides the outcome: a request awaiting more
// information is resubmitted in place, a pending one is a conflict, and a
// rejection blocks new submissions until the cooldown has elapsed.
func (s *SignupRequestService) Submit(ctx context.Context, publicID string, sub Submission) (SubmissionResult, error) {
	if strings.TrimSpace(publicID) == "" {
		return SubmissionResult{}, apperrors.NewBadRequest("pub is required")
	}
	if len(sub.Data) == 0 {
		return SubmissionResult{}, apperrors.NewBadRequest("data is required")
	}

	store, err := s.stores.GetStoreByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubmissionResult{}, apperrors.NewNotFound("store", map[string]any{"pub": publicID})
		}
		return SubmissionResult{}, err
	}

	req := &domain.SignupRequest{
		StoreHash: store.StoreHash,
		Data:      sub.Data,
		IP:        optional(sub.IP),
		Origin:    optional(sub.Origin),
		UserAgent: optional(sub.UserAgent),
	}

	if email := req.ApplicantEmail(); email != "" {
		latest, err := s.requests.LatestByEmail(ctx, store.StoreHash, email)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return SubmissionResult{}, err
		default:
			resubmit, err := s.checkPrevious(ctx, store.StoreHash, latest)
			if err != nil {
				return SubmissionResult{}, err
			}
			if resubmit {
				req.ID = latest.ID
				if err := s.requests.Resubmit(ctx, req); err != nil {
					return SubmissionResult{}, err
				}
				s.publish(ctx, events.EventSignupResubmitted, req, nil)
				s.logger.Info("signup request resubmitted",
					zap.String("store_hash", store.StoreHash),
					zap.String("signup_id", req.ID),
					zap.Int("resubmission_count", req.ResubmissionCount),
				)
				return SubmissionResult{Request: req, Resubmitted: true}, nil
			}
		}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return SubmissionResult{}, err
	}
	s.publish(ctx, events.EventSignupCreated, req, nil)
	s.logger.Info("signup request created",
		zap.String("store_hash", store.StoreHash),
		zap.String("signup_id", req.ID),
	)
	return SubmissionResult{Request: req}, nil
}

func (s *SignupRequestService) checkPrevious(ctx context.Context, storeHash string, latest *domain.SignupRequest) (bool, error) {
	switch latest.Status {
	case domain.SignupStatusMoreInfo:
		return true, nil
	case domain.SignupStatusPending:
		return false, apperrors.NewConflict("a signup request for this email is already pending review", nil)
	case domain.SignupStatusRejected:
		settings, err := s.settings.Get(ctx, domain.Session{StoreHash: storeHash})
		if err != nil {
			return false, err
		}
		days := settings.CooldownDays
		if days <= 0 {
			days = domain.DefaultCooldownDays
		}
		until := latest.UpdatedAt.Add(time.Duration(days) * 24 * time.Hour)
		if s.now().Before(until) {
			remaining := int(math.Ceil(until.Sub(s.now()).Hours() / 24))
			return false, apperrors.NewTooManyRequests(
				fmt.Sprintf("please wait %d more day(s) before submitting again", remaining),
				map[string]any{"retryAfterDays": remaining},
			)
		}
	}
	return false, nil
}

func (s *SignupRequestService) publish(ctx context.Context, eventType events.EventType, req *domain.SignupRequest, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, req.StoreHash, req.ID, observability.RequestIDFrom(ctx), payload)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
