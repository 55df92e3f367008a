package domain

import (
	"strings"
	"time"
)

// Store is an installed BigCommerce store.
type Store struct {
	StoreHash        string
	AccessToken      string
	Scope            string
	AdminID          int64
	PublicID         string
	SignupScriptUUID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StoreUser is a BigCommerce account that has opened the app for one or more stores.
type StoreUser struct {
	ID       int64
	Email    string
	Username string
	Stores   []string
}

// BCUser is the user block BigCommerce sends during install and load.
type BCUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
}

// StoreIdentity is the verified payload of an install, load or uninstall callback.
// Context (install) and Sub (signed payload) both look like "stores/{hash}".
type StoreIdentity struct {
	AccessToken string `json:"access_token,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Context     string `json:"context,omitempty"`
	Sub         string `json:"sub,omitempty"`
	User        BCUser `json:"user"`
	Owner       BCUser `json:"owner"`
}

// StoreHash extracts the hash from Context, falling back to Sub.
func (s StoreIdentity) StoreHash() string {
	ctx := s.Context
	if ctx == "" {
		ctx = s.Sub
	}
	return StoreHashFromContext(ctx)
}

// StoreHashFromContext returns the second "/" segment of a "stores/{hash}" string.
func StoreHashFromContext(ctx string) string {
	parts := strings.Split(ctx, "/")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
