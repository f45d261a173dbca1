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

	"github.com/ThiagoRGoveia/apt-trades/internal/config"
	"github.com/ThiagoRGoveia/apt-trades/internal/database"
	"github.com/ThiagoRGoveia/apt-trades/internal/server"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.DBDriver == config.DriverSQLite {
		return database.OpenSQLite(cfg.DatabaseURL)
	}
	dbpool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return database.NewPostgresStore(dbpool), nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env file", "err", err)
	}

	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.DateTime,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to the database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	router := server.SetupRoutes(server.NewStatusService(store, cfg.SuspectPageCaps))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "err", err)
		}
	}()

	slog.Info("server starting", "port", cfg.APIPort, "driver", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to start server", "err", err)
		os.Exit(1)
	}
}
