package http

import (
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/spec-kit/signup-forms/internal/api/http/handlers"
	"github.com/spec-kit/signup-forms/internal/auth"
	apperrors "github.com/spec-kit/signup-forms/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	App               *handlers.AppHandler
	EmailTemplates    *handlers.EmailTemplatesHandler
	SignupRequests    *handlers.SignupRequestsHandler
	Settings          *handlers.SettingsHandler
	SessionMiddleware *auth.SessionMiddleware
	MetricsHandler    nethttp.Handler
	AllowedOrigins    []string
	// PublicRateLimit caps public submissions per client IP and minute; 0 disables it.
	PublicRateLimit int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.MetricsHandler))
	}

	api := app.Group("/api")

	// The storefront script posts from the merchant's own domain.
	publicMiddlewares := []fiber.Handler{cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST,OPTIONS",
		AllowHeaders: "Content-Type",
	})}
	if cfg.PublicRateLimit > 0 {
		publicMiddlewares = append(publicMiddlewares, limiter.New(limiter.Config{
			Max:        cfg.PublicRateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			LimitReached: func(*fiber.Ctx) error {
				return apperrors.NewTooManyRequests("too many submissions, try again later", nil)
			},
		}))
	}
	public := api.Group("/public", publicMiddlewares...)
	public.Post("/signup-requests", cfg.SignupRequests.Submit)

	api.Get("/auth", cfg.App.Auth)
	api.Get("/load", cfg.App.Load)
	api.Get("/uninstall", cfg.App.Uninstall)

	// Registered after the unauthenticated routes so the session check only
	// reaches what follows.
	adminMiddlewares := []fiber.Handler{}
	if len(cfg.AllowedOrigins) > 0 {
		adminMiddlewares = append(adminMiddlewares, cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
			AllowMethods: "GET,POST,PATCH,OPTIONS",
			AllowHeaders: "Content-Type",
		}))
	}
	adminMiddlewares = append(adminMiddlewares, cfg.SessionMiddleware.Handle)
	admin := api.Group("", adminMiddlewares...)

	admin.Get("/email-templates", cfg.EmailTemplates.Get)
	admin.Post("/email-templates", cfg.EmailTemplates.Save)
	admin.Post("/email-templates/preview", cfg.EmailTemplates.Preview)
	admin.Post("/email-templates/test", cfg.EmailTemplates.SendTest)

	admin.Get("/signup-requests/stats", cfg.SignupRequests.Stats)
	admin.Get("/signup-requests", cfg.SignupRequests.List)
	admin.Patch("/signup-requests", cfg.SignupRequests.UpdateStatus)

	admin.Get("/cooldown-config", cfg.Settings.GetCooldown)
	admin.Post("/cooldown-config", cfg.Settings.SetCooldown)
	admin.Get("/signup-form", cfg.Settings.GetSignupForm)
	admin.Post("/signup-form", cfg.Settings.SaveSignupForm)

	admin.Get("/customer-groups", cfg.App.CustomerGroups)
}
