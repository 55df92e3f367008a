package dto

import (
	"encoding/json"

	"github.com/spec-kit/signup-forms/internal/domain"
)

// EmailTemplatesResponse is the GET /api/email-templates body.
type EmailTemplatesResponse struct {
	Templates      domain.EmailTemplates  `json:"templates"`
	SharedBranding *domain.SharedBranding `json:"sharedBranding"`
}

// SaveEmailTemplatesRequest keeps both parts raw so they can be schema checked.
type SaveEmailTemplatesRequest struct {
	Templates      json.RawMessage `json:"templates"`
	SharedBranding json.RawMessage `json:"sharedBranding"`
}

// PreviewRequest payload.
type PreviewRequest struct {
	Kind           domain.TemplateKind    `json:"kind"`
	Template       *domain.EmailTemplate  `json:"template"`
	SharedBranding *domain.SharedBranding `json:"sharedBranding"`
	Variables      map[string]string      `json:"variables"`
}

// PreviewResponse carries the rendered email.
type PreviewResponse struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// SendTestRequest payload.
type SendTestRequest struct {
	Kind domain.TemplateKind `json:"kind"`
	To   string              `json:"to"`
}
