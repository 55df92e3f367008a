package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/signup-forms/internal/api/http/handlers"
	"github.com/spec-kit/signup-forms/internal/auth"
	"github.com/spec-kit/signup-forms/internal/bigcommerce"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/observability"
	"github.com/spec-kit/signup-forms/internal/service"
	"github.com/spec-kit/signup-forms/internal/templating"
	"github.com/spec-kit/signup-forms/internal/validation"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

type stubStores struct{}

func (stubStores) UpsertStore(context.Context, *domain.Store) error { return nil }

func (stubStores) GetStore(_ context.Context, hash string) (*domain.Store, error) {
	if hash != "abc123" {
		return nil, pgx.ErrNoRows
	}
	return &domain.Store{StoreHash: hash, AccessToken: "tok"}, nil
}

func (stubStores) GetStoreByPublicID(context.Context, string) (*domain.Store, error) {
	return nil, pgx.ErrNoRows
}

func (stubStores) DeleteStore(context.Context, string) error { return nil }

func (stubStores) UpsertUser(context.Context, domain.BCUser, string) error { return nil }

func (stubStores) DetachUser(context.Context, int64, string) error { return nil }

type stubStoreService struct {
	uninstalled bool
}

func (s *stubStoreService) Install(_ context.Context, cb bigcommerce.AuthCallback) (string, error) {
	return "https://app.example/?context=tok-" + cb.Code, nil
}
func (s *stubStoreService) Load(_ context.Context, payload string) (string, error) {
	if payload == "bad" {
		return "", apperrors.NewUnauthorized("invalid signed payload")
	}
	return "https://app.example/?context=loaded", nil
}
func (s *stubStoreService) Uninstall(context.Context, string) error {
	s.uninstalled = true
	return nil
}
func (s *stubStoreService) CustomerGroups(_ context.Context, session domain.Session) ([]json.RawMessage, error) {
	return []json.RawMessage{json.RawMessage(`{"id":1,"name":"` + session.AccessToken + `"}`)}, nil
}

type stubTemplateService struct {
	saved   service.SaveInput
	sentTo  string
	session domain.Session
}

func (s *stubTemplateService) Get(_ context.Context, session domain.Session) (service.TemplateSet, error) {
	s.session = session
	return service.TemplateSet{Templates: templating.DefaultTemplates()}, nil
}
func (s *stubTemplateService) Save(_ context.Context, _ domain.Session, input service.SaveInput) error {
	s.saved = input
	return nil
}
func (s *stubTemplateService) Preview(_ context.Context, _ domain.Session, input service.PreviewInput) (templating.Message, error) {
	if !input.Kind.Valid() {
		return templating.Message{}, apperrors.NewBadRequest("unknown template kind")
	}
	return templating.Message{Subject: "subject", HTML: "<p>" + input.Variables["name"] + "</p>"}, nil
}
func (s *stubTemplateService) SendTest(_ context.Context, _ domain.Session, _ domain.TemplateKind, to string) error {
	s.sentTo = to
	return nil
}

type stubSignupService struct {
	filter   domain.SignupRequestFilter
	update   service.StatusUpdateInput
	submit   service.Submission
	publicID string
}

func (s *stubSignupService) List(_ context.Context, _ domain.Session, filter domain.SignupRequestFilter) (domain.SignupRequestPage, error) {
	s.filter = filter
	next := "r2"
	return domain.SignupRequestPage{Items: []domain.SignupRequest{{ID: "r1", Status: domain.SignupStatusPending}}, NextCursor: &next}, nil
}
func (s *stubSignupService) Stats(context.Context, domain.Session) (domain.SignupStats, error) {
	return domain.SignupStats{Total: 3, Pending: 1, Approved: 1, MoreInfo: 1}, nil
}
func (s *stubSignupService) UpdateStatus(_ context.Context, _ domain.Session, input service.StatusUpdateInput) (*domain.SignupRequest, error) {
	s.update = input
	return &domain.SignupRequest{ID: input.ID, Status: input.Status}, nil
}
func (s *stubSignupService) Submit(_ context.Context, publicID string, sub service.Submission) (service.SubmissionResult, error) {
	s.publicID = publicID
	s.submit = sub
	return service.SubmissionResult{Request: &domain.SignupRequest{ID: "new", Status: domain.SignupStatusPending}}, nil
}

type stubSettingsService struct {
	days   int
	form   json.RawMessage
	active bool
}

func (s *stubSettingsService) CooldownDays(context.Context, domain.Session) (int, error) { return s.days, nil }
func (s *stubSettingsService) SetCooldownDays(_ context.Context, _ domain.Session, days int) error {
	s.days = days
	return nil
}
func (s *stubSettingsService) SignupForm(context.Context, domain.Session) (json.RawMessage, bool, error) {
	return s.form, s.active, nil
}
func (s *stubSettingsService) SaveSignupForm(_ context.Context, _ domain.Session, form json.RawMessage, active bool) error {
	s.form, s.active = form, active
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app       *fiber.App
	token     string
	stores    *stubStoreService
	templates *stubTemplateService
	signups   *stubSignupService
	settings  *stubSettingsService
}

func newTestServer(t *testing.T, postgresErr error) *testServer {
	t.Helper()
	return newTestServerWith(t, postgresErr, nil)
}

func newTestServerWith(t *testing.T, postgresErr error, configure func(*RouteConfig)) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	codec := auth.NewContextCodec("secret", time.Hour, logger)
	token, err := codec.Encode(domain.StoreIdentity{Context: "stores/abc123"})
	require.NoError(t, err)

	ts := &testServer{
		token:     token,
		stores:    &stubStoreService{},
		templates: &stubTemplateService{},
		signups:   &stubSignupService{},
		settings:  &stubSettingsService{days: 7},
	}
	validator := validation.MustNew()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	health := handlers.NewHealthHandler("signup-forms", "test",
		handlers.Dependency{Name: "postgres", Pinger: stubPinger{err: postgresErr}},
		handlers.Dependency{Name: "redis", Pinger: stubPinger{err: errors.New("redis disabled")}, Optional: true},
	)
	routes := RouteConfig{
		Health:            health,
		App:               handlers.NewAppHandler(ts.stores),
		EmailTemplates:    handlers.NewEmailTemplatesHandler(ts.templates),
		SignupRequests:    handlers.NewSignupRequestsHandler(ts.signups, validator),
		Settings:          handlers.NewSettingsHandler(ts.settings, validator),
		SessionMiddleware: auth.NewSessionMiddleware(codec, stubStores{}),
		MetricsHandler:    promhttp.Handler(),
	}
	if configure != nil {
		configure(&routes)
	}
	RegisterRoutes(app, routes)
	ts.app = app
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func (ts *testServer) admin(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "context=" + url.QueryEscape(ts.token)
}

func TestAdminRoutesRequireContext(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
	}{
		{"missing", "/api/email-templates"},
		{"garbage", "/api/email-templates?context=not-a-token"},
		{"unknown store", "/api/signup-requests?context=" + url.QueryEscape(mustToken(t, "other"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, nethttp.MethodGet, tt.path, "")
			assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, "UNAUTHORIZED", body["code"])
		})
	}
}

func mustToken(t *testing.T, hash string) string {
	t.Helper()
	token, err := auth.NewContextCodec("secret", time.Hour, zap.NewNop()).Encode(domain.StoreIdentity{Context: "stores/" + hash})
	require.NoError(t, err)
	return token
}

func TestEmailTemplateRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := ts.do(t, nethttp.MethodGet, ts.admin("/api/email-templates"), "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, body["templates"], "moreInfo")
	assert.Equal(t, domain.Session{StoreHash: "abc123", AccessToken: "tok"}, ts.templates.session)

	resp, _ = ts.do(t, nethttp.MethodPost, ts.admin("/api/email-templates"), `{"templates":{"signup":{"subject":"x"}}}`)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"signup":{"subject":"x"}}`, string(ts.templates.saved.Templates))
	assert.Empty(t, ts.templates.saved.SharedBranding)

	resp, body = ts.do(t, nethttp.MethodPost, ts.admin("/api/email-templates/preview"), `{"kind":"approval","variables":{"name":"Sam"}}`)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>Sam</p>", body["html"])

	resp, body = ts.do(t, nethttp.MethodPost, ts.admin("/api/email-templates/preview"), `{"kind":"welcome"}`)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown template kind", body["message"])

	resp, _ = ts.do(t, nethttp.MethodPost, ts.admin("/api/email-templates/test"), `{"kind":"signup","to":"me@example.com"}`)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "me@example.com", ts.templates.sentTo)
}

func TestSignupRequestRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := ts.do(t, nethttp.MethodGet, ts.admin("/api/signup-requests?pageSize=5&cursor=r0&status=pending"), "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "r2", body["nextCursor"])
	assert.Len(t, body["items"], 1)
	assert.Equal(t, 5, ts.signups.filter.PageSize)
	assert.Equal(t, "r0", ts.signups.filter.Cursor)
	require.NotNil(t, ts.signups.filter.Status)
	assert.Equal(t, domain.SignupStatusPending, *ts.signups.filter.Status)

	resp, _ = ts.do(t, nethttp.MethodGet, ts.admin("/api/signup-requests?pageSize=abc"), "")
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, nethttp.MethodGet, ts.admin("/api/signup-requests/stats"), "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["moreInfo"])

	resp, body = ts.do(t, nethttp.MethodPatch, ts.admin("/api/signup-requests?id=r1"), `{"status":"moreInfo","requiredInformation":"Email"}`)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "moreInfo", body["status"])
	assert.Equal(t, "r1", ts.signups.update.ID)
	assert.Equal(t, "Email", ts.signups.update.RequiredInformation)

	resp, body = ts.do(t, nethttp.MethodPatch, ts.admin("/api/signup-requests?id=r1"), `{"status":"archived"}`)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body["message"].(string), "Validation error"))
	assert.Contains(t, body, "details")
}

func TestPublicSubmission(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/public/signup-requests?pub=pub-1", strings.NewReader(`{"data":{"email":"a@b.co"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("User-Agent", "test-agent")
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "pub-1", ts.signups.publicID)
	assert.Equal(t, "https://shop.example", ts.signups.submit.Origin)
	assert.Equal(t, "test-agent", ts.signups.submit.UserAgent)

	resp, _ = ts.do(t, nethttp.MethodPost, "/api/public/signup-requests?pub=pub-1", `{"nodata":true}`)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestSettingsRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := ts.do(t, nethttp.MethodGet, ts.admin("/api/cooldown-config"), "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 7, body["days"])

	resp, _ = ts.do(t, nethttp.MethodPost, ts.admin("/api/cooldown-config"), `{"days":30}`)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, 30, ts.settings.days)

	resp, _ = ts.do(t, nethttp.MethodPost, ts.admin("/api/cooldown-config"), `{"days":0}`)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 30, ts.settings.days)

	resp, body = ts.do(t, nethttp.MethodGet, ts.admin("/api/signup-form"), "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Nil(t, body["form"])

	resp, _ = ts.do(t, nethttp.MethodPost, ts.admin("/api/signup-form"), `{"form":{"fields":[]},"active":true}`)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.True(t, ts.settings.active)
	assert.JSONEq(t, `{"fields":[]}`, string(ts.settings.form))
}

func TestAppLifecycleRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := ts.do(t, nethttp.MethodGet, "/api/auth?code=c1&scope=s&context=stores/abc123", "")
	assert.Equal(t, nethttp.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://app.example/?context=tok-c1", resp.Header.Get("Location"))

	resp, _ = ts.do(t, nethttp.MethodGet, "/api/auth?scope=s", "")
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, nethttp.MethodGet, "/api/load?signed_payload_jwt=ok", "")
	assert.Equal(t, nethttp.StatusFound, resp.StatusCode)

	resp, body := ts.do(t, nethttp.MethodGet, "/api/load?signed_payload_jwt=bad", "")
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid signed payload", body["message"])

	resp, _ = ts.do(t, nethttp.MethodGet, "/api/uninstall?signed_payload_jwt=ok", "")
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)
	assert.True(t, ts.stores.uninstalled)

	req := httptest.NewRequest(nethttp.MethodGet, ts.admin("/api/customer-groups"), nil)
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1,"name":"tok"}]`, string(raw))
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := ts.do(t, nethttp.MethodGet, "/health/ready", "")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, map[string]any{"postgres": "ok", "redis": "redis disabled"}, body["dependencies"])

	resp, _ = ts.do(t, nethttp.MethodGet, "/metrics", "")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	down := newTestServer(t, errors.New("connection refused"))
	resp, body = down.do(t, nethttp.MethodGet, "/health/ready", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body["code"])
}

func TestRequestIDAndPanicRecovery(t *testing.T) {
	logger := zap.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, nil)})
	RegisterMiddlewares(app, logger, nil, time.Second)

	var seen string
	app.Get("/echo", func(c *fiber.Ctx) error {
		seen = observability.RequestIDFrom(c.UserContext())
		return c.SendStatus(nethttp.StatusNoContent)
	})
	app.Get("/panic", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/echo", nil), -1)
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header.Get(fiber.HeaderXRequestID))

	resp, err = app.Test(httptest.NewRequest(nethttp.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(nethttp.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestPublicSubmissionRateLimit(t *testing.T) {
	ts := newTestServerWith(t, nil, func(rc *RouteConfig) { rc.PublicRateLimit = 2 })

	for i := 0; i < 2; i++ {
		resp, _ := ts.do(t, nethttp.MethodPost, "/api/public/signup-requests?pub=pub-1", `{"data":{"email":"a@b.co"}}`)
		assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	}

	resp, body := ts.do(t, nethttp.MethodPost, "/api/public/signup-requests?pub=pub-1", `{"data":{"email":"a@b.co"}}`)
	assert.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "TOO_MANY_REQUESTS", body["code"])

	// Admin routes are not limited.
	resp, _ = ts.do(t, nethttp.MethodGet, ts.admin("/api/cooldown-config"), "")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}
