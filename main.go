package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/sponsorboard/sponsorboard-engine/pkg/config"
	"github.com/sponsorboard/sponsorboard-engine/pkg/database"
	"github.com/sponsorboard/sponsorboard-engine/pkg/handlers"
	"github.com/sponsorboard/sponsorboard-engine/pkg/middleware"
	"github.com/sponsorboard/sponsorboard-engine/pkg/repositories"
	"github.com/sponsorboard/sponsorboard-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Migrations run over database/sql; the server itself uses pgxpool.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	leaderboardRepo := repositories.NewLeaderboardRepository(db)
	profileRepo := repositories.NewProfileRepository(db)

	leaderboardService := services.NewLeaderboardService(leaderboardRepo, logger)
	profileService := services.NewProfileService(profileRepo, logger)

	exportLimiter := middleware.NewRateLimiter(
		cfg.Export.RatePerMinute,
		cfg.Export.Burst,
		cfg.Export.ClientTTL,
		logger,
	)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	usersHandler := handlers.NewUsersHandler(leaderboardService, profileService, logger)
	usersHandler.RegisterRoutes(mux, exportLimiter.Wrap)

	mux.Handle("GET /metrics", middleware.MetricsHandler())

	handler := middleware.RequestID(
		middleware.RequestLogger(logger)(
			middleware.Metrics(mux)(mux)))

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Starting sponsorboard-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
