package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signup-forms/internal/api/dto"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/service"
	"github.com/spec-kit/signup-forms/internal/templating"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// EmailTemplateService is what the template endpoints need.
type EmailTemplateService interface {
	Get(ctx context.Context, session domain.Session) (service.TemplateSet, error)
	Save(ctx context.Context, session domain.Session, input service.SaveInput) error
	Preview(ctx context.Context, session domain.Session, input service.PreviewInput) (templating.Message, error)
	SendTest(ctx context.Context, session domain.Session, kind domain.TemplateKind, to string) error
}

// EmailTemplatesHandler serves /api/email-templates.
type EmailTemplatesHandler struct {
	service EmailTemplateService
}

// NewEmailTemplatesHandler constructs handler.
func NewEmailTemplatesHandler(svc EmailTemplateService) *EmailTemplatesHandler {
	return &EmailTemplatesHandler{service: svc}
}

// Get GET /api/email-templates.
func (h *EmailTemplatesHandler) Get(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	set, err := h.service.Get(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(dto.EmailTemplatesResponse{Templates: set.Templates, SharedBranding: set.SharedBranding})
}

// Save POST /api/email-templates.
func (h *EmailTemplatesHandler) Save(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.SaveEmailTemplatesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := h.service.Save(c.UserContext(), session, service.SaveInput{
		Templates:      req.Templates,
		SharedBranding: req.SharedBranding,
	}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Preview POST /api/email-templates/preview.
func (h *EmailTemplatesHandler) Preview(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	msg, err := h.service.Preview(c.UserContext(), session, service.PreviewInput{
		Kind:           req.Kind,
		Template:       req.Template,
		SharedBranding: req.SharedBranding,
		Variables:      req.Variables,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.PreviewResponse{Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text})
}

// SendTest POST /api/email-templates/test.
func (h *EmailTemplatesHandler) SendTest(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.SendTestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := h.service.SendTest(c.UserContext(), session, req.Kind, req.To); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
