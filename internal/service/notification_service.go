package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/config"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/events"
	"github.com/spec-kit/signup-forms/internal/mailer"
	"github.com/spec-kit/signup-forms/internal/observability"
	"github.com/spec-kit/signup-forms/internal/repository"
	"github.com/spec-kit/signup-forms/internal/templating"
)

// TemplateRenderer renders a store's stored template for one recipient.
type TemplateRenderer interface {
	RenderFor(ctx context.Context, storeHash string, kind domain.TemplateKind, vars templating.Variables) (templating.Message, error)
}

// NotificationService turns signup events into applicant emails.
type NotificationService struct {
	requests     repository.SignupRequestRepository
	renderer     TemplateRenderer
	mailer       mailer.Mailer
	metrics      *observability.Metrics
	logger       *zap.Logger
	platformName string
	actionURL    string
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	RequestRepo repository.SignupRequestRepository
	Renderer    TemplateRenderer
	Mailer      mailer.Mailer
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	App         config.AppConfig
	Config      config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	actionURL := deps.Config.ActionURL
	if actionURL == "" {
		actionURL = deps.App.BaseURL
	}
	return &NotificationService{
		requests:     deps.RequestRepo,
		renderer:     deps.Renderer,
		mailer:       deps.Mailer,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		platformName: deps.App.PlatformName,
		actionURL:    actionURL,
	}
}

// KindForEvent picks the template an event is announced with. It reports
// false for events that send nothing, such as a move back to pending.
func KindForEvent(event events.Event) (domain.TemplateKind, bool) {
	switch event.Type {
	case events.EventSignupCreated:
		return domain.TemplateSignup, true
	case events.EventSignupResubmitted:
		return domain.TemplateResubmissionConfirmation, true
	case events.EventSignupStatusChanged:
		payload, ok := statusPayload(event.Payload)
		if !ok {
			return "", false
		}
		switch payload.NewStatus {
		case domain.SignupStatusApproved:
			return domain.TemplateApproval, true
		case domain.SignupStatusRejected:
			return domain.TemplateRejection, true
		case domain.SignupStatusMoreInfo:
			return domain.TemplateMoreInfo, true
		}
	}
	return "", false
}

// Handle renders and sends the email announcing event to the applicant.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	kind, ok := KindForEvent(event)
	if !ok {
		return nil
	}

	req, err := n.requests.GetByID(ctx, event.StoreHash, event.SignupID)
	if err != nil {
		return fmt.Errorf("load signup request %s: %w", event.SignupID, err)
	}

	to := req.ApplicantEmail()
	if to == "" {
		n.logger.Warn("skipping notification without applicant email",
			zap.String("store_hash", event.StoreHash),
			zap.String("signup_id", event.SignupID),
			zap.String("kind", string(kind)),
		)
		return nil
	}

	msg, err := n.renderer.RenderFor(ctx, event.StoreHash, kind, n.variables(event, req, to))
	if err != nil {
		return fmt.Errorf("render %s email: %w", kind, err)
	}

	err = n.mailer.Send(ctx, mailer.Email{To: to, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text})
	n.metrics.RecordNotification(string(kind), err)
	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	n.logger.Info("notification sent",
		zap.String("store_hash", event.StoreHash),
		zap.String("signup_id", event.SignupID),
		zap.String("kind", string(kind)),
		zap.String("request_id", event.RequestID),
	)
	return nil
}

func (n *NotificationService) variables(event events.Event, req *domain.SignupRequest, to string) templating.Variables {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	vars := templating.Variables{
		"name":          req.ApplicantName(),
		"email":         to,
		"date":          ts.Format("January 2, 2006"),
		"store_name":    n.platformName,
		"platform_name": n.platformName,
		"action_url":    n.actionURL,
	}
	if payload, ok := statusPayload(event.Payload); ok {
		vars["required_information"] = payload.RequiredInformation
		vars["merchant_message"] = payload.MerchantMessage
	}
	return vars
}

func statusPayload(payload interface{}) (events.SignupStatusChangedPayload, bool) {
	switch p := payload.(type) {
	case events.SignupStatusChangedPayload:
		return p, true
	case *events.SignupStatusChangedPayload:
		if p != nil {
			return *p, true
		}
	}
	return events.SignupStatusChangedPayload{}, false
}
