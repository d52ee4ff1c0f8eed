package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flux-parties/config"
	"flux-parties/handlers"
	"flux-parties/models"
	"flux-parties/monitoring"
	"flux-parties/repo"
	"flux-parties/security"
	"flux-parties/services"
	"flux-parties/store"
	"flux-parties/utils"

	"github.com/labstack/echo/v5"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	// Load configuration
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Open the entity store
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	r := repo.New(st)

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Initialize services
	guestService := services.NewGuestService(r)
	registrationService := services.NewRegistrationService(r)
	alerter := services.NewPubNubAlerter(pn, logger)
	lifecycleService := services.NewLifecycleService(r, guestService, alerter)
	adminService := services.NewAdminService(r, guestService, logger)
	authService := services.NewAuthService(r, redisClient, cfg.JWTSecret, cfg.SessionTTL)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	guestHandler := handlers.NewGuestHandler(guestService)
	scanHandler := handlers.NewScanHandler(lifecycleService)
	adminHandler := handlers.NewAdminHandler(adminService, lifecycleService)

	limiter := security.NewRateLimiter(redisClient, cfg.ScanRateLimit, cfg.RateLimitWindow)

	adminOnly := handlers.RequireRole(authService, models.RoleAdmin)
	staff := handlers.RequireRole(authService, models.RoleAdmin, models.RoleSecurity)

	e := echo.New()

	// Public endpoints
	e.GET("/api/v1/terms", registrationHandler.Terms)
	e.POST("/api/v1/register", registrationHandler.Register,
		limiter.AntiBotMiddleware(), limiter.RegisterRateLimit())
	e.GET("/api/v1/ticket", guestHandler.Lookup)

	// Auth endpoints
	e.POST("/api/v1/auth/login", authHandler.Login)
	e.POST("/api/v1/auth/logout", authHandler.Logout, staff)

	// Door endpoints (ADMIN or SECURITY)
	e.GET("/api/v1/guests", guestHandler.List, staff)
	e.POST("/api/v1/scan/checkin", scanHandler.CheckIn, staff, limiter.ScanRateLimit())
	e.POST("/api/v1/scan/checkout", scanHandler.CheckOut, staff, limiter.ScanRateLimit())

	// Admin endpoints
	e.GET("/api/v1/admin/waves", adminHandler.ListWaves, adminOnly)
	e.PUT("/api/v1/admin/waves", adminHandler.UpdateWave, adminOnly)
	e.POST("/api/v1/admin/waves/activate", adminHandler.ActivateWave, adminOnly)
	e.POST("/api/v1/admin/approve", adminHandler.Approve, adminOnly)
	e.PUT("/api/v1/admin/guests", adminHandler.UpdateGuest, adminOnly)
	e.DELETE("/api/v1/admin/guests", adminHandler.DeleteGuest, adminOnly)
	e.POST("/api/v1/admin/guests/clear", adminHandler.ClearGuests, adminOnly)
	e.GET("/api/v1/admin/expenses", adminHandler.ListExpenses, adminOnly)
	e.POST("/api/v1/admin/expenses", adminHandler.AddExpense, adminOnly)
	e.DELETE("/api/v1/admin/expenses", adminHandler.DeleteExpense, adminOnly)
	e.POST("/api/v1/admin/expenses/clear", adminHandler.ClearExpenses, adminOnly)
	e.GET("/api/v1/admin/summary", adminHandler.Summary, adminOnly)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(503, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(200, map[string]string{"status": "healthy"})
	})

	if cfg.EnableMetrics {
		go func() {
			if err := monitoring.Serve(cfg.MetricsPort); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "environment", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
