package dto

import (
	"time"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// SignupRequestResponse is one request as the dashboard sees it.
type SignupRequestResponse struct {
	ID                string              `json:"id"`
	Status            domain.SignupStatus `json:"status"`
	Data              map[string]any      `json:"data"`
	IP                *string             `json:"ip"`
	Origin            *string             `json:"origin"`
	UserAgent         *string             `json:"userAgent"`
	ResubmissionCount int                 `json:"resubmissionCount"`
	SubmittedAt       time.Time           `json:"submittedAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// SignupRequestPageResponse is one page of requests.
type SignupRequestPageResponse struct {
	Items      []SignupRequestResponse `json:"items"`
	NextCursor *string                 `json:"nextCursor"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status              domain.SignupStatus `json:"status"`
	RequiredInformation string              `json:"requiredInformation"`
	MerchantMessage     string              `json:"merchantMessage"`
}

// PublicSubmissionRequest is posted by the storefront script.
type PublicSubmissionRequest struct {
	Data map[string]any `json:"data"`
}

// PublicSubmissionResponse acknowledges a submission.
type PublicSubmissionResponse struct {
	ID          string              `json:"id"`
	Status      domain.SignupStatus `json:"status"`
	Resubmitted bool                `json:"resubmitted"`
}

// NewSignupRequestResponse maps a domain request.
func NewSignupRequestResponse(req domain.SignupRequest) SignupRequestResponse {
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	return SignupRequestResponse{
		ID:                req.ID,
		Status:            req.Status,
		Data:              data,
		IP:                req.IP,
		Origin:            req.Origin,
		UserAgent:         req.UserAgent,
		ResubmissionCount: req.ResubmissionCount,
		SubmittedAt:       req.SubmittedAt,
		UpdatedAt:         req.UpdatedAt,
	}
}
