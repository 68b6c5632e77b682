package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"userhistory/api/config"
	"userhistory/api/database"
	"userhistory/api/email"
	"userhistory/api/handlers"
	"userhistory/api/history"
	"userhistory/api/identity"
	"userhistory/api/logger"
	"userhistory/api/middleware"
	"userhistory/api/render"
	"userhistory/api/store"
)

var (
	migrateOrderID int64
	staffEmail     string
	staffPassword  string

	rootCmd = &cobra.Command{
		Use:           "userhistory",
		Short:         "Tracks visitor browsing history and attaches it to completed orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate-orders",
		Short: "Move order histories out of the legacy payment metadata",
		RunE:  runMigrate,
	}

	createStaffCmd = &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff account allowed to review order histories",
		RunE:  runCreateStaff,
	}
)

func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.DBClient, error) {
	dbClient, err := database.NewPostgresDB(log, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL database: %w", err)
	}
	if err := database.EnsureSchema(ctx, dbClient.DB); err != nil {
		dbClient.Close()
		return nil, err
	}
	return dbClient, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET_KEY is not set; staff login is disabled")
	}

	// --- Initialize PostgreSQL Database (orders and staff) ---
	dbClient, err := openPostgres(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	// --- Initialize History Store (Redis, or process memory when unset) ---
	var historyStore store.HistoryStore
	if cfg.RedisAddr != "" {
		redisClient, err := database.NewRedisDB(log, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()
		historyStore = store.NewRedisHistoryStore(redisClient.Client, cfg.HistoryKeyPrefix, cfg.HistoryRetention)
	} else {
		log.Warn("REDIS_ADDR is not set; histories are kept in process memory")
		historyStore = store.NewMemoryHistoryStore()
	}

	// --- Initialize ClickHouse visit journal (optional) ---
	var journal handlers.VisitJournal
	if cfg.ClickHouseHost != "" {
		chClient, err := database.NewClickHouseDB(log, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize ClickHouse database: %w", err)
		}
		defer chClient.Close()
		if err := chClient.EnsureJournalSchema(cmd.Context()); err != nil {
			return err
		}
		journal = store.NewJournalStore(chClient, log)
	}

	// --- Initialize Services ---
	orderStore := store.NewOrderStore(dbClient.DB)
	staffStore := store.NewStaffStore(dbClient.DB)
	issuer := identity.NewIssuer(identity.Options{
		CookieName: cfg.CookieName,
		Lifetime:   cfg.CookieLifetime,
		Domain:     cfg.CookieDomain,
		Secure:     cfg.CookieSecure,
	})
	log.Info("Visitor tokens configured", "cookie", issuer.CookieName(), "lifetime", cfg.CookieLifetime.String())
	tracker := history.NewTracker(historyStore, log)
	checkout := history.NewCheckout(historyStore, orderStore, issuer, log)
	views := render.NewViews(orderStore, render.NewFormatter(cfg.GMTOffset, cfg.Currency))
	tags := email.NewRegistry(views)

	var notifier handlers.OrderNotifier
	if n := email.NewNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.NotifyEmail, tags, log); n != nil {
		notifier = n
	}

	// --- Initialize Handlers ---
	authHandlers := handlers.NewAuthHandlers(staffStore, log)
	trackHandlers := handlers.NewTrackHandlers(tracker, issuer, journal, log)
	checkoutHandlers := handlers.NewCheckoutHandlers(checkout, notifier, log)
	adminHandlers := handlers.NewAdminHandlers(views, orderStore, tags, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.FEOrigin))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/track", trackHandlers.TrackVisit)
		api.DELETE("/history", trackHandlers.ResetHistory)
		api.POST("/orders/:id/complete", checkoutHandlers.CompleteOrder)

		// Authentication Endpoints (no authentication required)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		if cfg.Debug {
			api.GET("/debug/history", trackHandlers.DebugHistory)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(cfg.AuthDefault, log))
		{
			admin.GET("/orders/search", adminHandlers.SearchOrders)
			admin.GET("/orders/:id/history", adminHandlers.OrderHistoryHTML)
			admin.GET("/orders/:id/history.json", adminHandlers.OrderHistoryJSON)
			admin.POST("/orders/:id/migrate", adminHandlers.MigrateOrder)
			admin.GET("/email/tags", adminHandlers.EmailTags)
			admin.POST("/email/preview", adminHandlers.EmailPreview)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepIdleHistories(ctx, tracker, cfg.HistoryRetention, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("API server starting", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("API server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exiting.")
	return nil
}

// sweepIdleHistories drops abandoned histories every hour until ctx ends. Redis expires its
// keys by itself, so this only does work for the in-memory store.
func sweepIdleHistories(ctx context.Context, tracker *history.Tracker, retention time.Duration, log *logger.Logger) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := tracker.Sweep(ctx, now.Add(-retention)); err != nil {
				log.Warn("History sweep failed", "error", err)
			}
		}
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	dbClient, err := openPostgres(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer dbClient.Close()
	orders := store.NewOrderStore(dbClient.DB)

	if migrateOrderID > 0 {
		moved, err := orders.MigrateLegacyHistory(cmd.Context(), migrateOrderID)
		if err != nil {
			return err
		}
		log.Info("Order migration finished", "order_id", migrateOrderID, "migrated", moved)
		return nil
	}

	moved, err := orders.MigrateAllLegacyHistories(cmd.Context())
	if err != nil {
		return fmt.Errorf("migration stopped after %d orders: %w", moved, err)
	}
	log.Info("Legacy history migration finished", "migrated", moved)
	return nil
}

func runCreateStaff(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if len(staffPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(staffPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	dbClient, err := openPostgres(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	user, err := store.NewStaffStore(dbClient.DB).CreateStaff(cmd.Context(), staffEmail, hashedPassword)
	if err != nil {
		return err
	}
	log.Info("Staff user created", "staff_id", user.ID, "email", user.Email)
	return nil
}
