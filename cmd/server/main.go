package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drilldown/backend/internal/config"
	"github.com/drilldown/backend/internal/handler"
	"github.com/drilldown/backend/internal/logging"
	"github.com/drilldown/backend/internal/mail"
	"github.com/drilldown/backend/internal/metrics"
	"github.com/drilldown/backend/internal/migrate"
	"github.com/drilldown/backend/internal/repository"
	"github.com/drilldown/backend/internal/service"
	"github.com/drilldown/backend/internal/telemetry"
	"github.com/drilldown/backend/migrations"
	"github.com/drilldown/backend/pkg/auth"
	"github.com/joho/godotenv"
)

const serviceName = "drilldown-backend"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load config", "error", err)
	}
	logger := logging.Setup(cfg.Env, cfg.LogLevel)

	ctx := context.Background()

	repo, db, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	gate, err := newGate(cfg.Admin)
	if err != nil {
		logging.Fatal("invalid admin credentials", "error", err)
	}

	tel, err := telemetry.Init(ctx, cfg.Telemetry, serviceName, logger)
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
		tel = &telemetry.Telemetry{Metrics: metrics.NewMock()}
	}

	sender := mail.NewSMTPSender(cfg.Mail)
	if !sender.Configured() {
		logger.Warn("SMTP credentials not configured, outgoing email is disabled")
	}
	notifier := mail.NewNotifier(sender, cfg.Brand, cfg.Mail.To, cfg.Mail.Timeout(), logger.With("component", "mail"))

	submissions := service.NewSubmissionService(repo, notifier, tel.Metrics, logger.With("component", "submissions"))

	h := handler.New(db, cfg.Brand.Name, cfg.Server.AllowedOrigins)
	contactHandler := handler.NewContactHandler(submissions, logger)
	adminHandler := handler.NewAdminHandler(submissions, gate, logger)
	mux := handler.NewMux(h, contactHandler, adminHandler, auth.RequireAdmin(gate, logger))

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: handler.Chain(mux,
			handler.Recover(logger),
			handler.RequestLogger(logger),
			handler.SecurityHeaders,
			h.CORS,
		),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Env, "store", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := submissions.Close(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned", "error", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to flush metrics", "error", err)
	}
	logger.Info("server stopped")
}

// openStore selects the submission store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.SubmissionRepository, repository.DB, func()) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory submission store, data is lost on restart")
		repo := repository.NewMemorySubmissionRepository()
		return repo, repo, func() {}
	}

	pool, err := repository.NewPool(ctx, cfg.Database.URL, repository.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: time.Duration(cfg.Database.MaxConnLifetimeSeconds) * time.Second,
	})
	if err != nil {
		logging.Fatal("failed to connect to database", "error", err)
	}

	if cfg.Database.AutoMigrate {
		migrator := migrate.New(pool, migrations.FS, logger.With("component", "migrate"))
		if _, err := migrator.Up(ctx); err != nil {
			pool.Close()
			logging.Fatal("failed to apply migrations", "error", err)
		}
	}
	return repository.NewPgSubmissionRepository(pool), pool, pool.Close
}

func newGate(cfg config.AdminConfig) (*auth.Gate, error) {
	if cfg.PasswordHash != "" {
		return auth.NewGateWithHash(cfg.Username, cfg.PasswordHash)
	}
	return auth.NewGate(cfg.Username, cfg.Password)
}
