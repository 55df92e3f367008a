package bigcommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/signup-forms/internal/config"
	"github.com/spec-kit/signup-forms/internal/domain"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

func testConfig(url string) config.BigCommerceConfig {
	return config.BigCommerceConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthCallback: "https://app.example/api/auth",
		APIURL:       url,
		LoginURL:     url,
	}
}

func TestAuthorize(t *testing.T) {
	var received tokenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","scope":"store_v2_customers","context":"stores/abc","user":{"id":7,"email":"owner@acme.example"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	identity, err := client.Authorize(context.Background(), AuthCallback{Code: "c0de", Scope: "store_v2_customers", Context: "stores/abc"})
	require.NoError(t, err)

	assert.Equal(t, "tok", identity.AccessToken)
	assert.Equal(t, "abc", identity.StoreHash())
	assert.Equal(t, int64(7), identity.User.ID)
	assert.Equal(t, "authorization_code", received.GrantType)
	assert.Equal(t, "client-id", received.ClientID)
	assert.Equal(t, "https://app.example/api/auth", received.RedirectURI)
}

func TestAuthorizeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Authorize(context.Background(), AuthCallback{Code: "bad", Context: "stores/abc"})
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusUnauthorized, domainErr.HTTPStatus)
	assert.Equal(t, "invalid_grant", domainErr.Message)
}

func TestAuthorizeRequiresCode(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:0"))
	_, err := client.Authorize(context.Background(), AuthCallback{})
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)
}

func TestCustomerGroups(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/abc/v2/customer_groups", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-Auth-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Wholesale"},{"id":2,"name":"Retail"}]`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	groups, err := client.CustomerGroups(context.Background(), domain.Session{StoreHash: "abc", AccessToken: "tok"})
	require.NoError(t, err)
	assert.Len(t, groups, 2)
	assert.JSONEq(t, `{"id":1,"name":"Wholesale"}`, string(groups[0]))
}

func TestCustomerGroupsForwardsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"title":"You don't have a required scope"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.CustomerGroups(context.Background(), domain.Session{StoreHash: "abc", AccessToken: "tok"})

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusForbidden, domainErr.HTTPStatus)
	assert.Equal(t, "You don't have a required scope", domainErr.Message)
}

func signPayload(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifySignedPayload(t *testing.T) {
	client := NewClient(testConfig("http://unused"))
	exp := time.Now().Add(time.Hour).Unix()

	token := signPayload(t, "client-secret", jwt.MapClaims{
		"aud":   "client-id",
		"iss":   "bc",
		"sub":   "stores/abc",
		"exp":   exp,
		"user":  map[string]any{"id": 9, "email": "staff@acme.example"},
		"owner": map[string]any{"id": 7, "email": "owner@acme.example"},
	})

	identity, err := client.VerifySignedPayload(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", identity.StoreHash())
	assert.Equal(t, int64(9), identity.User.ID)
	assert.Equal(t, int64(7), identity.Owner.ID)
}

func TestVerifySignedPayloadRejects(t *testing.T) {
	client := NewClient(testConfig("http://unused"))
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "wrong secret", token: signPayload(t, "other", jwt.MapClaims{"aud": "client-id", "sub": "stores/abc", "exp": exp})},
		{name: "wrong audience", token: signPayload(t, "client-secret", jwt.MapClaims{"aud": "someone-else", "sub": "stores/abc", "exp": exp})},
		{name: "no store", token: signPayload(t, "client-secret", jwt.MapClaims{"aud": "client-id", "sub": "stores/", "exp": exp})},
		{name: "expired", token: signPayload(t, "client-secret", jwt.MapClaims{"aud": "client-id", "sub": "stores/abc", "exp": time.Now().Add(-time.Hour).Unix()})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.VerifySignedPayload(tt.token)
			assert.Error(t, err)
		})
	}
}
