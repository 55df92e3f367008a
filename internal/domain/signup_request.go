package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// SignupStatus enumerates the review states of a signup request.
type SignupStatus string

const (
	SignupStatusPending  SignupStatus = "pending"
	SignupStatusApproved SignupStatus = "approved"
	SignupStatusRejected SignupStatus = "rejected"
	SignupStatusMoreInfo SignupStatus = "moreInfo"
)

// Valid reports whether s is a known status.
func (s SignupStatus) Valid() bool {
	switch s {
	case SignupStatusPending, SignupStatusApproved, SignupStatusRejected, SignupStatusMoreInfo:
		return true
	}
	return false
}

// SignupRequest is a storefront signup form submission awaiting review.
type SignupRequest struct {
	ID                string
	StoreHash         string
	Status            SignupStatus
	Data              map[string]any
	IP                *string
	Origin            *string
	UserAgent         *string
	ResubmissionCount int
	SubmittedAt       time.Time
	UpdatedAt         time.Time
}

// SignupRequestFilter narrows a paginated listing.
type SignupRequestFilter struct {
	Status   *SignupStatus
	PageSize int
	Cursor   string
}

// SignupRequestPage is one page of a listing.
type SignupRequestPage struct {
	Items      []SignupRequest
	NextCursor *string
}

// SignupStats counts requests by status.
type SignupStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	MoreInfo int `json:"moreInfo"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ApplicantName finds the applicant's name among the submitted fields.
func (r SignupRequest) ApplicantName() string {
	return lookupField(r.Data, []string{"name", "full_name", "full name", "first_name", "first name"}, "name", nil)
}

// ApplicantEmail finds a well-formed email address among the submitted fields.
func (r SignupRequest) ApplicantEmail() string {
	normalize := func(v string) string {
		email := strings.ToLower(strings.TrimSpace(v))
		if emailPattern.MatchString(email) {
			return email
		}
		return ""
	}
	return lookupField(r.Data, []string{"email", "e-mail", "email_address", "email address"}, "email", normalize)
}

func lookupField(data map[string]any, candidates []string, fuzzy string, normalize func(string) string) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	accept := func(v any) string {
		if v == nil {
			return ""
		}
		s := fmt.Sprint(v)
		if normalize != nil {
			return normalize(s)
		}
		return s
	}

	for _, candidate := range candidates {
		for _, k := range keys {
			if strings.ToLower(k) == candidate {
				if v := accept(data[k]); v != "" {
					return v
				}
			}
		}
	}
	for _, k := range keys {
		if strings.Contains(strings.ToLower(k), fuzzy) {
			if v := accept(data[k]); v != "" {
				return v
			}
		}
	}
	return ""
}
