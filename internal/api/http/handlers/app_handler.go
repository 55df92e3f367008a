package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signup-forms/internal/bigcommerce"
	"github.com/spec-kit/signup-forms/internal/domain"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// StoreService handles the BigCommerce app lifecycle callbacks.
type StoreService interface {
	Install(ctx context.Context, cb bigcommerce.AuthCallback) (string, error)
	Load(ctx context.Context, signedPayload string) (string, error)
	Uninstall(ctx context.Context, signedPayload string) error
	CustomerGroups(ctx context.Context, session domain.Session) ([]json.RawMessage, error)
}

// AppHandler serves the install, load and uninstall callbacks.
type AppHandler struct {
	stores StoreService
}

// NewAppHandler constructs handler.
func NewAppHandler(stores StoreService) *AppHandler {
	return &AppHandler{stores: stores}
}

// Auth GET /api/auth.
func (h *AppHandler) Auth(c *fiber.Ctx) error {
	cb := bigcommerce.AuthCallback{
		Code:    c.Query("code"),
		Scope:   c.Query("scope"),
		Context: c.Query("context"),
	}
	if cb.Code == "" || cb.Context == "" {
		return apperrors.NewBadRequest("code and context are required")
	}
	redirect, err := h.stores.Install(c.UserContext(), cb)
	if err != nil {
		return err
	}
	return c.Redirect(redirect, fiber.StatusFound)
}

// Load GET /api/load.
func (h *AppHandler) Load(c *fiber.Ctx) error {
	payload, err := signedPayload(c)
	if err != nil {
		return err
	}
	redirect, err := h.stores.Load(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.Redirect(redirect, fiber.StatusFound)
}

// Uninstall GET /api/uninstall.
func (h *AppHandler) Uninstall(c *fiber.Ctx) error {
	payload, err := signedPayload(c)
	if err != nil {
		return err
	}
	if err := h.stores.Uninstall(c.UserContext(), payload); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CustomerGroups GET /api/customer-groups.
func (h *AppHandler) CustomerGroups(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	groups, err := h.stores.CustomerGroups(c.UserContext(), session)
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []json.RawMessage{}
	}
	return c.JSON(groups)
}

func signedPayload(c *fiber.Ctx) (string, error) {
	payload := c.Query("signed_payload_jwt")
	if payload == "" {
		return "", apperrors.NewUnauthorized("missing signed_payload_jwt")
	}
	return payload, nil
}
