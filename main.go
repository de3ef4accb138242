package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loanadmin/config"
	mysqldb "loanadmin/infra/mysql"
	redisdb "loanadmin/infra/redis"
	"loanadmin/internal/domain"
	"loanadmin/internal/jobs"
	"loanadmin/internal/model"
	"loanadmin/pkg/password"
	ratelimiter "loanadmin/pkg/rate-limiter"
	"loanadmin/pkg/telemetry"
	"loanadmin/presenter"
	"loanadmin/router"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	slog.Info("Starting application setup...")

	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.Error("No .env file found, using system environment variables", "error", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	tel, err := telemetry.New(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize monitoring: %v", err))
	}

	db, err := mysqldb.InitializeDatabase()
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.SHUTDOWN_TIMEOUT)
		defer cancelShutdown()

		zap.L().Info("Closing MySQL Connection...")
		if err := mysqldb.Close(db, shutdownCtx); err != nil {
			zap.L().Error("Error disconnecting from MySQL", zap.Error(err))
		} else {
			zap.L().Info("Disconnected from MySQL.")
		}

		zap.L().Info("Shutting down monitoring...")
		if err := tel.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Error during monitoring shutdown", zap.Error(err))
		} else {
			zap.L().Info("Monitoring shutdown complete.")
		}
	}()

	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migration completed!")

	SeedSuperAdmin(db)

	if cfg.DEVELOPMENT_MODE {
		mysqldb.EnableDebugMode(db)
	}

	if err := mysqldb.Ping(db, ctx); err != nil {
		slog.Error("Database ping failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connection successful!")

	stats := mysqldb.GetStats(db)
	slog.Info("Database stats:", "stats", stats)

	redisClient := redisdb.MonitorRedis(cfg)
	go redisdb.WatchConnectionRedis(&redisClient, cfg)

	limiter := ratelimiter.NewRateLimiter(redisClient, 20, 40, 5*time.Minute)
	store := session.New(session.Config{
		Expiration:     24 * time.Hour,
		CookieHTTPOnly: true,
		CookieSameSite: "Strict",
	})

	pres := presenter.NewPresenter(db, cfg, tel)

	sweeperMeter := tel.MeterProvider.Meter("overdue-sweeper-meter")
	sweeperTracer := tel.TracerProvider.Tracer("overdue-sweeper-trace")
	sweeper := jobs.NewSweeper(cfg, pres.EmiRepository, sweeperMeter, sweeperTracer, tel.Log)
	if err := sweeper.Start(); err != nil {
		slog.Error("Failed to start overdue sweeper", "error", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	app := router.NewRouter(pres, db, tel, cfg, limiter, store)

	addr := ":" + cfg.SERVER_PORT

	listenErr := make(chan error, 1)

	go func() {
		zap.L().Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		} else {
			listenErr <- nil
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		zap.L().Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			zap.L().Error("Server listen error", zap.Error(err))
			os.Exit(1)
		}
	}

	zap.L().Info("Starting graceful shutdown...")
	if err := app.ShutdownWithTimeout(cfg.SHUTDOWN_TIMEOUT); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			zap.L().Warn("Server shutdown timed out", zap.Duration("timeout", cfg.SHUTDOWN_TIMEOUT))
		} else {
			zap.L().Error("Server shutdown error", zap.Error(err))
		}
	} else {
		zap.L().Info("Server gracefully stopped.")
	}

	zap.L().Info("Application shutdown complete.")
}

const (
	superAdminID     uint64 = 1
	superAdminMobile string = "0800000001"
)

func SeedSuperAdmin(db *gorm.DB) {
	slog.Info("Checking for superadmin user...")

	var admin model.User
	err := db.First(&admin, superAdminID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Info("Superadmin not found, creating one...")

		initialPassword := os.Getenv("SUPERADMIN_PASSWORD")
		if initialPassword == "" {
			initialPassword = "changeme"
			slog.Warn("SUPERADMIN_PASSWORD not set, using default, change it immediately")
		}

		hashed, err := password.HashPassword(initialPassword)
		if err != nil {
			slog.Error("Failed to hash superadmin password", "error", err)
			os.Exit(1)
		}

		newAdmin := model.User{
			ID:       superAdminID,
			Mobile:   superAdminMobile,
			FullName: "System Administrator",
			Password: hashed,
			Role:     string(domain.SuperAdminRole),
			Active:   true,
		}

		if err := db.Create(&newAdmin).Error; err != nil {
			slog.Error("Failed to seed superadmin user", "error", err)
			os.Exit(1)
		}
		slog.Info("Superadmin user created successfully.")
	} else if err != nil {
		slog.Error("Error checking for superadmin user", "error", err)
		os.Exit(1)
	} else {
		slog.Info("Superadmin user already exists.")
	}
}
