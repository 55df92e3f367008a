package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signup-forms/internal/api/dto"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/service"
	"github.com/spec-kit/signup-forms/internal/validation"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// SignupRequestService is what the signup request endpoints need.
type SignupRequestService interface {
	List(ctx context.Context, session domain.Session, filter domain.SignupRequestFilter) (domain.SignupRequestPage, error)
	Stats(ctx context.Context, session domain.Session) (domain.SignupStats, error)
	UpdateStatus(ctx context.Context, session domain.Session, input service.StatusUpdateInput) (*domain.SignupRequest, error)
	Submit(ctx context.Context, publicID string, sub service.Submission) (service.SubmissionResult, error)
}

// SignupRequestsHandler serves the review dashboard and the storefront endpoint.
type SignupRequestsHandler struct {
	service   SignupRequestService
	validator *validation.Validator
}

// NewSignupRequestsHandler constructs handler.
func NewSignupRequestsHandler(svc SignupRequestService, validator *validation.Validator) *SignupRequestsHandler {
	return &SignupRequestsHandler{service: svc, validator: validator}
}

// List GET /api/signup-requests.
func (h *SignupRequestsHandler) List(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	filter, err := parseSignupFilter(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), session, filter)
	if err != nil {
		return err
	}
	items := make([]dto.SignupRequestResponse, 0, len(page.Items))
	for _, req := range page.Items {
		items = append(items, dto.NewSignupRequestResponse(req))
	}
	return c.JSON(dto.SignupRequestPageResponse{Items: items, NextCursor: page.NextCursor})
}

// Stats GET /api/signup-requests/stats.
func (h *SignupRequestsHandler) Stats(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// UpdateStatus PATCH /api/signup-requests?id=.
func (h *SignupRequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	if errs := h.validator.StatusUpdate(c.Body()); len(errs) > 0 {
		return apperrors.NewValidationFailed("Validation error", errs)
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	updated, err := h.service.UpdateStatus(c.UserContext(), session, service.StatusUpdateInput{
		ID:                  c.Query("id"),
		Status:              req.Status,
		RequiredInformation: req.RequiredInformation,
		MerchantMessage:     req.MerchantMessage,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSignupRequestResponse(*updated))
}

// Submit POST /api/public/signup-requests?pub=.
func (h *SignupRequestsHandler) Submit(c *fiber.Ctx) error {
	if errs := h.validator.Submission(c.Body()); len(errs) > 0 {
		return apperrors.NewValidationFailed("Validation error", errs)
	}
	var req dto.PublicSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	res, err := h.service.Submit(c.UserContext(), c.Query("pub"), service.Submission{
		Data:      req.Data,
		IP:        c.IP(),
		Origin:    c.Get(fiber.HeaderOrigin),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	status := fiber.StatusCreated
	if res.Resubmitted {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.PublicSubmissionResponse{
		ID:          res.Request.ID,
		Status:      res.Request.Status,
		Resubmitted: res.Resubmitted,
	})
}

func parseSignupFilter(c *fiber.Ctx) (domain.SignupRequestFilter, error) {
	var filter domain.SignupRequestFilter
	if raw := strings.TrimSpace(c.Query("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return filter, apperrors.NewBadRequest("pageSize must be a positive integer")
		}
		filter.PageSize = size
	}
	filter.Cursor = strings.TrimSpace(c.Query("cursor"))
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		status := domain.SignupStatus(raw)
		filter.Status = &status
	}
	return filter, nil
}
