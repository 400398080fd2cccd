package handler

import (
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"signapi/docs"
	"signapi/internal/http/middleware"
	"signapi/internal/service"
)

// Deps are the collaborators the routes are bound to.
type Deps struct {
	DB        *sql.DB
	Signing   service.SigningService
	TwoFactor service.TwoFactorService
	Gatherer  prometheus.Gatherer
	JWTSecret string
	Log       *zap.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	sign := app.Group("/api/v1/sign/:token", middleware.Identity(d.JWTSecret))
	sign.Get("/", GetSigningView(d.Signing, log))
	sign.Post("/fields/:fieldId", SignField(d.Signing, v, log))
	sign.Post("/complete", CompleteDocument(d.Signing, v, log))
	sign.Post("/two-factor", IssueTwoFactor(d.TwoFactor, log))
}
