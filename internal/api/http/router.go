package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/supportdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-service/internal/auth"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Admin          *handlers.AdminHandler
	Analytics      *handlers.AnalyticsHandler
	AuthMiddleware *auth.AuthMiddleware
	CORSOrigins    string
	IntakeMax      int
	IntakeWindow   time.Duration
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.CORSOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireRole(), cfg.Users.Me)
	authGroup.Put("/profile", cfg.AuthMiddleware.Handle, auth.RequireRole(), cfg.Users.UpdateProfile)

	// Staff checks are per route; intake stays public.
	staff := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireStaff(), h}
	}
	api.Post("/tickets", intakeLimiter(cfg.IntakeMax, cfg.IntakeWindow), cfg.Tickets.CreateTicket)
	api.Get("/tickets", staff(cfg.Tickets.ListTickets)...)
	api.Get("/tickets/:id", staff(cfg.Tickets.GetTicket)...)
	api.Put("/tickets/:id", staff(cfg.Tickets.UpdateTicket)...)
	api.Delete("/tickets/:id", staff(cfg.Tickets.DeleteTicket)...)

	api.Get("/analytics", staff(cfg.Analytics.Summary)...)

	reports := api.Group("/reports", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	reports.Get("/advanced", cfg.Analytics.AdvancedReport)
	reports.Get("/export", cfg.Analytics.Export)

	users := api.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	users.Get("/", cfg.Admin.ListUsers)
	users.Post("/", cfg.Admin.CreateUser)
	users.Put("/:id", cfg.Admin.UpdateUser)
	users.Delete("/:id", cfg.Admin.DeleteUser)

	teams := api.Group("/teams", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	teams.Get("/", cfg.Admin.ListTeams)
	teams.Get("/performance", cfg.Admin.TeamStats)
	teams.Put("/:userId/team", cfg.Admin.UpdateTeam)
	teams.Put("/:userId/role", cfg.Admin.UpdateRole)
}

// intakeLimiter bounds public ticket submissions per client IP.
func intakeLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewDomainError("RATE_LIMITED", "too many submissions, try again later", fiber.StatusTooManyRequests, nil)
		},
	})
}

func corsOrigins(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "*"
	}
	return raw
}
