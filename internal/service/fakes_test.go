package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/signup-forms/internal/bigcommerce"
	"github.com/spec-kit/signup-forms/internal/domain"
	"github.com/spec-kit/signup-forms/internal/events"
	"github.com/spec-kit/signup-forms/internal/mailer"
	"github.com/spec-kit/signup-forms/internal/templating"
)

type fakeStoreRepo struct {
	stores     map[string]*domain.Store
	users      map[int64][]string
	upsertErr  error
	detached   []int64
	deleted    []string
	publicByID map[string]string
}

func newFakeStoreRepo() *fakeStoreRepo {
	return &fakeStoreRepo{
		stores:     map[string]*domain.Store{},
		users:      map[int64][]string{},
		publicByID: map[string]string{},
	}
}

func (f *fakeStoreRepo) UpsertStore(_ context.Context, store *domain.Store) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *store
	f.stores[store.StoreHash] = &cp
	return nil
}

func (f *fakeStoreRepo) GetStore(_ context.Context, storeHash string) (*domain.Store, error) {
	s, ok := f.stores[storeHash]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStoreRepo) GetStoreByPublicID(_ context.Context, publicID string) (*domain.Store, error) {
	hash, ok := f.publicByID[publicID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.Store{StoreHash: hash, PublicID: publicID}, nil
}

func (f *fakeStoreRepo) DeleteStore(_ context.Context, storeHash string) error {
	if _, ok := f.stores[storeHash]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.stores, storeHash)
	f.deleted = append(f.deleted, storeHash)
	return nil
}

func (f *fakeStoreRepo) UpsertUser(_ context.Context, user domain.BCUser, storeHash string) error {
	f.users[user.ID] = append(f.users[user.ID], storeHash)
	return nil
}

func (f *fakeStoreRepo) DetachUser(_ context.Context, userID int64, _ string) error {
	f.detached = append(f.detached, userID)
	return nil
}

type fakeBigCommerce struct {
	identity  domain.StoreIdentity
	err       error
	groups    []json.RawMessage
	callbacks []bigcommerce.AuthCallback
}

func (f *fakeBigCommerce) Authorize(_ context.Context, cb bigcommerce.AuthCallback) (domain.StoreIdentity, error) {
	f.callbacks = append(f.callbacks, cb)
	return f.identity, f.err
}

func (f *fakeBigCommerce) VerifySignedPayload(string) (domain.StoreIdentity, error) {
	return f.identity, f.err
}

func (f *fakeBigCommerce) CustomerGroups(context.Context, domain.Session) ([]json.RawMessage, error) {
	return f.groups, f.err
}

type fakeTemplateRepo struct {
	mu           sync.Mutex
	templates    domain.EmailTemplates
	document     json.RawMessage
	branding     *domain.SharedBranding
	brandingSave int
	templateSave int
	err          error
}

func (f *fakeTemplateRepo) GetTemplates(context.Context, string) (domain.EmailTemplates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := domain.EmailTemplates{}
	for k, v := range f.templates {
		out[k] = v
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetTemplatesDocument(context.Context, string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.document, f.err
}

func (f *fakeTemplateRepo) SaveTemplates(_ context.Context, _ string, templates domain.EmailTemplates) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.templates = templates
	f.templateSave++
	return nil
}

func (f *fakeTemplateRepo) GetSharedBranding(context.Context, string) (*domain.SharedBranding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.branding == nil {
		return nil, f.err
	}
	cp := *f.branding
	cp.SocialLinks = append([]domain.SocialLink(nil), f.branding.SocialLinks...)
	return &cp, f.err
}

func (f *fakeTemplateRepo) SaveSharedBranding(_ context.Context, _ string, branding domain.SharedBranding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.branding = &branding
	f.brandingSave++
	return nil
}

type fakeSignupRepo struct {
	requests  map[string]*domain.SignupRequest
	latest    *domain.SignupRequest
	created   []*domain.SignupRequest
	resubmits []*domain.SignupRequest
	page      domain.SignupRequestPage
	listErr   error
	stats     domain.SignupStats
}

func newFakeSignupRepo() *fakeSignupRepo {
	return &fakeSignupRepo{requests: map[string]*domain.SignupRequest{}}
}

func (f *fakeSignupRepo) Create(_ context.Context, req *domain.SignupRequest) error {
	if req.ID == "" {
		req.ID = "new-id"
	}
	req.Status = domain.SignupStatusPending
	f.created = append(f.created, req)
	f.requests[req.ID] = req
	return nil
}

func (f *fakeSignupRepo) GetByID(_ context.Context, _ string, id string) (*domain.SignupRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *req
	return &cp, nil
}

func (f *fakeSignupRepo) LatestByEmail(context.Context, string, string) (*domain.SignupRequest, error) {
	if f.latest == nil {
		return nil, pgx.ErrNoRows
	}
	return f.latest, nil
}

func (f *fakeSignupRepo) List(context.Context, string, domain.SignupRequestFilter) (domain.SignupRequestPage, error) {
	return f.page, f.listErr
}

func (f *fakeSignupRepo) UpdateStatus(_ context.Context, _ string, id string, status domain.SignupStatus) (*domain.SignupRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	req.Status = status
	cp := *req
	return &cp, nil
}

func (f *fakeSignupRepo) Resubmit(_ context.Context, req *domain.SignupRequest) error {
	req.Status = domain.SignupStatusPending
	req.ResubmissionCount++
	f.resubmits = append(f.resubmits, req)
	return nil
}

func (f *fakeSignupRepo) Stats(context.Context, string) (domain.SignupStats, error) {
	return f.stats, nil
}

type fakeSettingsRepo struct {
	settings domain.StoreSettings
	gets     int
	err      error
}

func (f *fakeSettingsRepo) Get(context.Context, string) (*domain.StoreSettings, error) {
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettingsRepo) SaveCooldownDays(_ context.Context, _ string, days int) error {
	f.settings.CooldownDays = days
	return f.err
}

func (f *fakeSettingsRepo) SaveSignupForm(_ context.Context, _ string, form json.RawMessage, active bool) error {
	f.settings.SignupForm = form
	f.settings.SignupFormActive = active
	return f.err
}

type fakeMailer struct {
	sent []mailer.Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, email mailer.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

type recordingDispatcher struct {
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventHandler, ...events.EventType) {}

type fakeRenderer struct {
	kind domain.TemplateKind
	vars templating.Variables
	err  error
}

func (f *fakeRenderer) RenderFor(_ context.Context, _ string, kind domain.TemplateKind, vars templating.Variables) (templating.Message, error) {
	f.kind = kind
	f.vars = vars
	if f.err != nil {
		return templating.Message{}, f.err
	}
	return templating.Message{Subject: "subject " + string(kind), HTML: "<p>hi</p>", Text: "hi"}, nil
}
