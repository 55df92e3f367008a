package dto

import "encoding/json"

// CooldownConfig is the body of /api/cooldown-config.
type CooldownConfig struct {
	Days int `json:"days"`
}

// SignupFormRequest is the body of POST /api/signup-form.
type SignupFormRequest struct {
	Form   json.RawMessage `json:"form"`
	Active bool            `json:"active"`
}

// SignupFormResponse returns the saved form.
type SignupFormResponse struct {
	Form   json.RawMessage `json:"form"`
	Active bool            `json:"active"`
}
