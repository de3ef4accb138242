package router

import (
	"errors"
	"time"

	"loanadmin/config"
	mysqldb "loanadmin/infra/mysql"
	"loanadmin/internal/domain"
	"loanadmin/middleware"
	ratelimiter "loanadmin/pkg/rate-limiter"
	"loanadmin/pkg/telemetry"
	"loanadmin/presenter"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRouter(
	presenter presenter.Presenter,
	db *gorm.DB,
	tel *telemetry.OpenTelemetry,
	cfg *config.Config,
	limiter *ratelimiter.RateLimiter,
	store *session.Store,
) *fiber.App {

	jwtAuth := middleware.NewJWTAuthMiddleware(cfg.JWT_SECRET_KEY)
	customCSRF := middleware.NewCustomCSRFMiddleware(store)
	requireAdmin := middleware.RequireRole(domain.SuperAdminRole, domain.AdminRole)
	requireAgent := middleware.RequireRole(domain.AgentRole, domain.AdminRole, domain.SuperAdminRole)

	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: ErrorCustomHandler(tel.Log),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:5000",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-CSRF-Token",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${ip} ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(otelfiber.Middleware(
		otelfiber.WithTracerProvider(tel.TracerProvider),
		otelfiber.WithPropagators(otel.GetTextMapPropagator()),
	))

	if cfg.REQUESTS_METRIC {
		zap.L().Info("Enabling HTTP request metrics middleware")
		app.Use(middleware.NewOtelMiddleware().Handle())
	} else {
		zap.L().Info("HTTP request metrics middleware is disabled")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := mysqldb.Ping(db, c.Context()); err != nil {
			zap.L().Error("Health check failed: database ping error", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":      "healthy",
			"service":     cfg.SERVICE_NAME,
			"version":     cfg.SERVICE_VERSION,
			"environment": cfg.ENVIRONMENT,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := app.Group("/api/v1")

	api.Use(limiter.RateLimitMiddleware())

	authAPI := api.Group("/auth")
	{
		authAPI.Post("/login", presenter.PrivatePresenter.Login)
		authAPI.Post("/logout", jwtAuth, customCSRF, presenter.PrivatePresenter.Logout)
		authAPI.Get("/csrf-token", func(c *fiber.Ctx) error {
			sess, err := store.Get(c)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
			}

			token := sess.Get("csrf_token")
			if token == nil {
				newToken, err := middleware.GenerateCSRFToken()
				if err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate CSRF token"})
				}
				sess.Set("csrf_token", newToken)
				sess.Save()
				token = newToken
			}
			return c.JSON(fiber.Map{"csrf_token": token})
		})
	}

	agentAPI := api.Group("/agent", jwtAuth, requireAgent)
	{
		agentAPI.Get("/overdue-emis", presenter.OverduePresenter.ListOverdue)
		agentAPI.Get("/overdue-summary", presenter.OverduePresenter.Summary)
		agentAPI.Get("/overdue-report", presenter.OverduePresenter.ExportReport)
		agentAPI.Post("/collect", customCSRF, presenter.CollectionPresenter.RecordPayment)
	}

	adminAPI := api.Group("/admin", jwtAuth, customCSRF, requireAdmin)
	{
		adminAPI.Get("/users", presenter.AdminPresenter.ListUsers)
		adminAPI.Post("/users", presenter.AdminPresenter.CreateUser)
		adminAPI.Get("/loans", presenter.AdminPresenter.ListLoans)
		adminAPI.Post("/loans", presenter.AdminPresenter.CreateLoan)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Resource not found",
			"path":    c.Path(),
		})
	})

	return app
}

func ErrorCustomHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}

		log.Error("Request error occured",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.Int("status_code", code),
		)

		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": message,
			"code":    code,
		})
	}
}
