package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaydesk/live-chat/internal/api/http/handlers"
	"github.com/relaydesk/live-chat/internal/auth"
	"github.com/relaydesk/live-chat/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Participants   *handlers.ParticipantsHandler
	Requests       *handlers.RequestsHandler
	Messages       *handlers.MessagesHandler
	Uploads        *handlers.UploadsHandler
	FAQ            *handlers.FAQHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// FilesRoot is served under /files when images are stored on local disk.
	FilesRoot string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}
	if cfg.FilesRoot != "" {
		app.Static("/files", cfg.FilesRoot, fiber.Static{Browse: false})
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/agents/login", cfg.Auth.Login)

	agentOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAgent()}

	v1 := app.Group("/v1", cfg.AuthMiddleware.Optional)
	v1.Post("/participants", cfg.Participants.Create)
	v1.Get("/participants", cfg.Participants.Lookup)
	v1.Get("/participants/:id", cfg.Participants.Get)

	v1.Post("/requests", cfg.Requests.Create)
	v1.Get("/requests", append(agentOnly, cfg.Requests.List)...)
	v1.Get("/requests/:id", cfg.Requests.Get)
	v1.Post("/requests/:id/transition", append(agentOnly, cfg.Requests.Transition)...)

	v1.Get("/requests/:id/messages", cfg.Messages.List)
	v1.Post("/requests/:id/messages", cfg.Messages.Create)
	v1.Put("/requests/:id/typing", cfg.Messages.Typing)
	v1.Post("/messages/read", cfg.Messages.MarkRead)

	v1.Post("/uploads", cfg.Uploads.Upload)

	v1.Post("/faq/chat", cfg.FAQ.Chat)
	v1.Get("/faq/unanswered", append(agentOnly, cfg.FAQ.Pending)...)
}
