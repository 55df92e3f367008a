package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/cache"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/mailer"
	"github.com/spec-kit/signup-forms/internal/observability"
	"github.com/spec-kit/signup-forms/internal/repository"
	"github.com/spec-kit/signup-forms/internal/templating"
	"github.com/spec-kit/signup-forms/internal/validation"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

const migrationTimeout = 10 * time.Second

// EmailTemplateService manages the template set and shared branding of a store.
type EmailTemplateService struct {
	repo         repository.EmailTemplateRepository
	cache        *cache.Cache
	validator    *validation.Validator
	mailer       mailer.Mailer
	metrics      *observability.Metrics
	logger       *zap.Logger
	platformName string
	actionURL    string
}

// EmailTemplateDependencies bundles collaborators for the template service.
type EmailTemplateDependencies struct {
	Repo         repository.EmailTemplateRepository
	Cache        *cache.Cache
	Validator    *validation.Validator
	Mailer       mailer.Mailer
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	PlatformName string
	ActionURL    string
}

// NewEmailTemplateService builds the service.
func NewEmailTemplateService(deps EmailTemplateDependencies) *EmailTemplateService {
	return &EmailTemplateService{
		repo:         deps.Repo,
		cache:        deps.Cache,
		validator:    deps.Validator,
		mailer:       deps.Mailer,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		platformName: deps.PlatformName,
		actionURL:    deps.ActionURL,
	}
}

// TemplateSet is the dashboard view of a store's templates.
type TemplateSet struct {
	Templates      domain.EmailTemplates
	SharedBranding *domain.SharedBranding
}

// SaveInput carries the optional parts of a save request as raw JSON.
type SaveInput struct {
	Templates      json.RawMessage
	SharedBranding json.RawMessage
}

// PreviewInput describes an unsaved render request.
type PreviewInput struct {
	Kind           domain.TemplateKind
	Template       *domain.EmailTemplate
	SharedBranding *domain.SharedBranding
	Variables      map[string]string
}

// Get returns every template merged with its default, and the shared branding.
// It also kicks off the one-time branding migration in the background.
func (s *EmailTemplateService) Get(ctx context.Context, session domain.Session) (TemplateSet, error) {
	go s.migrateInBackground(session.StoreHash)

	templates, err := s.loadTemplates(ctx, session.StoreHash)
	if err != nil {
		return TemplateSet{}, err
	}
	branding, err := s.loadBranding(ctx, session.StoreHash)
	if err != nil {
		return TemplateSet{}, err
	}
	return TemplateSet{Templates: templates, SharedBranding: branding}, nil
}

// Save validates and persists whichever parts of input are present.
func (s *EmailTemplateService) Save(ctx context.Context, session domain.Session, input SaveInput) error {
	hasTemplates := present(input.Templates)
	hasBranding := present(input.SharedBranding)
	if !hasTemplates && !hasBranding {
		return apperrors.NewBadRequest("templates or sharedBranding is required")
	}

	if hasTemplates {
		if errs := s.validator.Templates(input.Templates); len(errs) > 0 {
			return apperrors.NewValidationFailed("Validation error", errs)
		}
	}
	if hasBranding {
		if errs := s.validator.SharedBranding(input.SharedBranding); len(errs) > 0 {
			return apperrors.NewValidationFailed("Shared branding validation error", errs)
		}
	}

	if hasTemplates {
		var incoming domain.EmailTemplates
		if err := json.Unmarshal(input.Templates, &incoming); err != nil {
			return apperrors.NewBadRequest("invalid templates")
		}
		stored, err := s.repo.GetTemplates(ctx, session.StoreHash)
		if err != nil {
			return err
		}
		for kind, tpl := range incoming {
			stored[kind] = tpl
		}
		if err := s.repo.SaveTemplates(ctx, session.StoreHash, stored); err != nil {
			return err
		}
		if err := s.cache.Invalidate(ctx, cache.EmailTemplatesKey(session.StoreHash)); err != nil {
			s.logger.Warn("failed to invalidate template cache", zap.String("store_hash", session.StoreHash), zap.Error(err))
		}
	}

	if hasBranding {
		var branding domain.SharedBranding
		if err := json.Unmarshal(input.SharedBranding, &branding); err != nil {
			return apperrors.NewBadRequest("invalid shared branding")
		}
		branding.SocialLinks = fillIconURLs(branding.SocialLinks)
		branding, _ = templating.SanitizeBranding(branding)
		if err := s.repo.SaveSharedBranding(ctx, session.StoreHash, branding); err != nil {
			return err
		}
	}

	s.logger.Info("email templates updated",
		zap.String("store_hash", session.StoreHash),
		zap.Bool("templates", hasTemplates),
		zap.Bool("shared_branding", hasBranding),
	)
	return nil
}

// Preview renders a template with sample variables. Missing template or
// branding fall back to what the store has saved.
func (s *EmailTemplateService) Preview(ctx context.Context, session domain.Session, input PreviewInput) (templating.Message, error) {
	if !input.Kind.Valid() {
		return templating.Message{}, apperrors.NewBadRequest("unknown template kind")
	}

	var tpl domain.EmailTemplate
	if input.Template != nil {
		tpl = templating.MergeWithDefaults(input.Kind, input.Template)
	} else {
		templates, err := s.loadTemplates(ctx, session.StoreHash)
		if err != nil {
			return templating.Message{}, err
		}
		tpl = templates[input.Kind]
	}

	branding := input.SharedBranding
	if branding == nil {
		stored, err := s.loadBranding(ctx, session.StoreHash)
		if err != nil {
			return templating.Message{}, err
		}
		branding = stored
	}

	vars := s.sampleVariables(input.Kind, session.StoreHash)
	for k, v := range input.Variables {
		vars[k] = v
	}
	return s.render(input.Kind, tpl, branding, vars)
}

// SendTest renders the stored template with sample data and mails it to to.
func (s *EmailTemplateService) SendTest(ctx context.Context, session domain.Session, kind domain.TemplateKind, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return apperrors.NewBadRequest("recipient is required")
	}
	msg, err := s.Preview(ctx, session, PreviewInput{Kind: kind, Variables: map[string]string{"email": to}})
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, mailer.Email{To: to, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text})
	s.metrics.RecordNotification(string(kind), err)
	if err != nil {
		return apperrors.NewUpstreamError("failed to send test email", 0, err)
	}
	return nil
}

// RenderFor renders the stored template of kind for a real recipient.
func (s *EmailTemplateService) RenderFor(ctx context.Context, storeHash string, kind domain.TemplateKind, vars templating.Variables) (templating.Message, error) {
	templates, err := s.loadTemplates(ctx, storeHash)
	if err != nil {
		return templating.Message{}, err
	}
	branding, err := s.loadBranding(ctx, storeHash)
	if err != nil {
		return templating.Message{}, err
	}
	return s.render(kind, templates[kind], branding, s.baseVariables().With(flatten(vars)...))
}

func (s *EmailTemplateService) render(kind domain.TemplateKind, tpl domain.EmailTemplate, branding *domain.SharedBranding, vars templating.Variables) (templating.Message, error) {
	msg, err := templating.Render(kind, tpl, branding, vars)
	if err != nil {
		return templating.Message{}, apperrors.NewInternalError(err)
	}
	s.metrics.RecordRender(string(kind))
	return msg, nil
}

func (s *EmailTemplateService) loadTemplates(ctx context.Context, storeHash string) (domain.EmailTemplates, error) {
	stored, err := cache.GetOrLoad(ctx, s.cache, cache.EmailTemplatesKey(storeHash), func(ctx context.Context) (domain.EmailTemplates, error) {
		return s.repo.GetTemplates(ctx, storeHash)
	})
	if err != nil {
		return nil, err
	}
	return templating.MergeAllWithDefaults(stored), nil
}

// loadBranding returns the sanitized branding, persisting the cleanup once.
func (s *EmailTemplateService) loadBranding(ctx context.Context, storeHash string) (*domain.SharedBranding, error) {
	branding, err := s.repo.GetSharedBranding(ctx, storeHash)
	if err != nil || branding == nil {
		return branding, err
	}
	sanitized, changed := templating.SanitizeBranding(*branding)
	if changed {
		if err := s.repo.SaveSharedBranding(ctx, storeHash, sanitized); err != nil {
			s.logger.Warn("failed to persist sanitized branding", zap.String("store_hash", storeHash), zap.Error(err))
		}
	}
	return &sanitized, nil
}

func (s *EmailTemplateService) migrateInBackground(storeHash string) {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()
	if _, err := s.MigrateSharedBranding(ctx, storeHash); err != nil {
		s.logger.Warn("background branding migration failed", zap.String("store_hash", storeHash), zap.Error(err))
	}
}

type legacyTemplate struct {
	Design struct {
		LogoURL     string              `json:"logoUrl"`
		BannerURL   string              `json:"bannerUrl"`
		SocialLinks []domain.SocialLink `json:"socialLinks"`
	} `json:"design"`
}

// MigrateSharedBranding moves logo, banner and social links that older
// versions stored inside each template design into the shared branding
// record. It is a no-op once shared branding exists.
func (s *EmailTemplateService) MigrateSharedBranding(ctx context.Context, storeHash string) (bool, error) {
	existing, err := s.repo.GetSharedBranding(ctx, storeHash)
	if err != nil || existing != nil {
		return false, err
	}
	raw, err := s.repo.GetTemplatesDocument(ctx, storeHash)
	if err != nil || len(raw) == 0 {
		return false, err
	}

	var legacy map[domain.TemplateKind]legacyTemplate
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return false, err
	}

	var branding domain.SharedBranding
	found := false
	for _, kind := range domain.TemplateKinds() {
		d := legacy[kind].Design
		if branding.LogoURL == "" && d.LogoURL != "" {
			branding.LogoURL, found = d.LogoURL, true
		}
		if branding.BannerURL == "" && d.BannerURL != "" {
			branding.BannerURL, found = d.BannerURL, true
		}
		if len(branding.SocialLinks) == 0 && len(d.SocialLinks) > 0 {
			branding.SocialLinks, found = d.SocialLinks, true
		}
	}
	if !found {
		return false, nil
	}

	branding.SocialLinks = fillIconURLs(branding.SocialLinks)
	branding, _ = templating.SanitizeBranding(branding)
	if err := s.repo.SaveSharedBranding(ctx, storeHash, branding); err != nil {
		return false, err
	}

	// Decoding into the current types drops the legacy design fields.
	templates, err := s.repo.GetTemplates(ctx, storeHash)
	if err != nil {
		return true, err
	}
	if err := s.repo.SaveTemplates(ctx, storeHash, templates); err != nil {
		return true, err
	}
	if err := s.cache.Invalidate(ctx, cache.EmailTemplatesKey(storeHash)); err != nil {
		s.logger.Warn("failed to invalidate template cache", zap.String("store_hash", storeHash), zap.Error(err))
	}
	s.logger.Info("migrated shared branding", zap.String("store_hash", storeHash))
	return true, nil
}

func (s *EmailTemplateService) baseVariables() templating.Variables {
	return templating.Variables{
		"platform_name": s.platformName,
		"store_name":    s.platformName,
		"date":          time.Now().UTC().Format("January 2, 2006"),
		"action_url":    s.actionURL,
	}
}

func (s *EmailTemplateService) sampleVariables(kind domain.TemplateKind, storeHash string) templating.Variables {
	vars := s.baseVariables().With(
		"name", "Jane Doe",
		"email", "jane.doe@example.com",
		"store_hash", storeHash,
	)
	if kind == domain.TemplateMoreInfo {
		vars["required_information"] = "Email, Phone Number"
		vars["merchant_message"] = "Please double-check the formatting of these fields."
	}
	return vars
}

// fillIconURLs derives an icon for links saved without one.
func fillIconURLs(links []domain.SocialLink) []domain.SocialLink {
	out := make([]domain.SocialLink, 0, len(links))
	for _, l := range links {
		if strings.TrimSpace(l.IconURL) == "" && (l.Name != "" || l.URL != "") {
			l.IconURL = templating.ResolveIconURL(l.Name, l.URL, templating.FormatPreview)
		}
		out = append(out, l)
	}
	return out
}

func flatten(vars templating.Variables) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	return pairs
}

// present treats an absent part and an explicit null alike.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
