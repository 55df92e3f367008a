package bigcommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/signup-forms/internal/config"
	"github.com/spec-kit/signup-forms/internal/domain"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// Client talks to the BigCommerce OAuth and REST endpoints.
type Client struct {
	http *resty.Client
	cfg  config.BigCommerceConfig
}

// NewClient builds a client with the app credentials from cfg.
func NewClient(cfg config.BigCommerceConfig) *Client {
	httpClient := resty.New().
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Client{http: httpClient, cfg: cfg}
}

// AuthCallback carries the query parameters of the install callback.
type AuthCallback struct {
	Code    string
	Scope   string
	Context string
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
	Scope        string `json:"scope"`
	GrantType    string `json:"grant_type"`
	RedirectURI  string `json:"redirect_uri"`
	Context      string `json:"context"`
}

type errorBody struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Error   string `json:"error"`
}

func (e errorBody) text(fallback string) string {
	for _, s := range []string{e.Message, e.Title, e.Error} {
		if s != "" {
			return s
		}
	}
	return fallback
}

// Authorize exchanges an install code for a store access token.
func (c *Client) Authorize(ctx context.Context, cb AuthCallback) (domain.StoreIdentity, error) {
	if cb.Code == "" || cb.Context == "" {
		return domain.StoreIdentity{}, apperrors.NewBadRequest("missing code or context")
	}

	var (
		identity domain.StoreIdentity
		failure  errorBody
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(tokenRequest{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			Code:         cb.Code,
			Scope:        cb.Scope,
			GrantType:    "authorization_code",
			RedirectURI:  c.cfg.AuthCallback,
			Context:      cb.Context,
		}).
		SetResult(&identity).
		SetError(&failure).
		Post(strings.TrimRight(c.cfg.LoginURL, "/") + "/oauth2/token")
	if err != nil {
		return domain.StoreIdentity{}, apperrors.NewUpstreamError("bigcommerce authorization failed", http.StatusBadGateway, err)
	}
	if resp.IsError() {
		return domain.StoreIdentity{}, apperrors.NewUpstreamError(
			failure.text("bigcommerce authorization failed"), resp.StatusCode(), nil)
	}
	if identity.AccessToken == "" {
		return domain.StoreIdentity{}, apperrors.NewUpstreamError("bigcommerce returned no access token", http.StatusBadGateway, nil)
	}
	if identity.Context == "" {
		identity.Context = cb.Context
	}
	return identity, nil
}

// CustomerGroups lists the store's customer groups through the v2 API.
func (c *Client) CustomerGroups(ctx context.Context, session domain.Session) ([]json.RawMessage, error) {
	var (
		groups  []json.RawMessage
		failure errorBody
	)
	url := fmt.Sprintf("%s/stores/%s/v2/customer_groups", strings.TrimRight(c.cfg.APIURL, "/"), session.StoreHash)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Auth-Token", session.AccessToken).
		SetResult(&groups).
		SetError(&failure).
		Get(url)
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to fetch customer groups", http.StatusBadGateway, err)
	}
	if resp.IsError() {
		return nil, apperrors.NewUpstreamError(failure.text("failed to fetch customer groups"), resp.StatusCode(), nil)
	}
	if groups == nil {
		groups = []json.RawMessage{}
	}
	return groups, nil
}
