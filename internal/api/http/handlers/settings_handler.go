package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signup-forms/internal/api/dto"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/validation"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// SettingsService is what the settings endpoints need.
type SettingsService interface {
	CooldownDays(ctx context.Context, session domain.Session) (int, error)
	SetCooldownDays(ctx context.Context, session domain.Session, days int) error
	SignupForm(ctx context.Context, session domain.Session) (json.RawMessage, bool, error)
	SaveSignupForm(ctx context.Context, session domain.Session, form json.RawMessage, active bool) error
}

// SettingsHandler serves cooldown and signup form settings.
type SettingsHandler struct {
	service   SettingsService
	validator *validation.Validator
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(svc SettingsService, validator *validation.Validator) *SettingsHandler {
	return &SettingsHandler{service: svc, validator: validator}
}

// GetCooldown GET /api/cooldown-config.
func (h *SettingsHandler) GetCooldown(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	days, err := h.service.CooldownDays(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(dto.CooldownConfig{Days: days})
}

// SetCooldown POST /api/cooldown-config.
func (h *SettingsHandler) SetCooldown(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	if errs := h.validator.Cooldown(c.Body()); len(errs) > 0 {
		return apperrors.NewValidationFailed("Validation error", errs)
	}
	var req dto.CooldownConfig
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := h.service.SetCooldownDays(c.UserContext(), session, req.Days); err != nil {
		return err
	}
	return c.JSON(req)
}

// GetSignupForm GET /api/signup-form.
func (h *SettingsHandler) GetSignupForm(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	form, active, err := h.service.SignupForm(c.UserContext(), session)
	if err != nil {
		return err
	}
	if len(form) == 0 {
		form = json.RawMessage("null")
	}
	return c.JSON(dto.SignupFormResponse{Form: form, Active: active})
}

// SaveSignupForm POST /api/signup-form.
func (h *SettingsHandler) SaveSignupForm(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.SignupFormRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := h.service.SaveSignupForm(c.UserContext(), session, req.Form, req.Active); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
