package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"animetracker/internal/activity"
	"animetracker/internal/api"
	"animetracker/internal/auth"
	"animetracker/internal/catalog"
	"animetracker/internal/club"
	"animetracker/internal/config"
	rpc "animetracker/internal/grpc"
	"animetracker/internal/show"
	"animetracker/internal/user"
	"animetracker/internal/watchlist"
	"animetracker/pkg/database"
	"animetracker/pkg/models"
)

const (
	shutdownTimeout = 10 * time.Second
	eventBuffer     = 100
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the gRPC listener when GRPC_ADDR is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFiles...)
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			if err := serve(cmd.Context(), cfg, log); err != nil {
				log.Error("server stopped with error", slog.Any("error", err))
				return err
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if err := ensureDir(cfg.DBConfig.Path); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := database.Open(cfg.DBConfig.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	seed(db, cfg.DBConfig.SeedFile, log)

	signer, err := auth.NewSigner(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenTTL())
	if err != nil {
		return err
	}

	events := make(chan models.WatchlistEvent, eventBuffer)
	shows := show.NewRegistry(db)
	ledger := watchlist.NewLedger(watchlist.NewSQLStore(db), shows, log, watchlist.WithEvents(events))

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := activity.NewHub(events, log)
	go hub.Run(hubCtx)

	if cfg.LogConfig.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Users:     user.NewService(user.NewStore(db), signer, log),
		Signer:    signer,
		Shows:     shows,
		Ledger:    ledger,
		Clubs:     club.NewStore(db),
		Catalog:   catalog.NewHTTPClient(cfg.CatalogConfig.BaseURL, cfg.CatalogConfig.Timeout(), log),
		Feed:      hub,
		StaticDir: cfg.AppConfig.StaticDir,
		Logger:    log,
	})

	httpServer := &http.Server{
		Addr:              cfg.AppConfig.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP API listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var stopGRPC func()
	if cfg.AppConfig.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.AppConfig.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", cfg.AppConfig.GRPCAddr, err)
		}
		grpcServer := rpc.NewGRPCServer(rpc.NewServer(ledger, log), signer)
		stopGRPC = grpcServer.GracefulStop
		go func() {
			log.Info("gRPC listening", slog.String("addr", cfg.AppConfig.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", slog.Any("error", err))
	}
	if stopGRPC != nil {
		stopGRPC()
	}
	stopHub()
	log.Info("server stopped")
	return runErr
}

// seed loads the show seed file when present. A missing file is not an error.
func seed(db *sql.DB, path string, log *slog.Logger) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn("seed file not found, skipping", slog.String("path", path))
		return
	}
	shows, err := database.LoadShowsFromJSON(path)
	if err != nil {
		log.Error("failed to read seed file", slog.String("path", path), slog.Any("error", err))
		return
	}
	n, err := database.SeedShows(db, shows)
	if err != nil {
		log.Error("failed to seed shows", slog.Any("error", err))
		return
	}
	log.Info("seeded shows", slog.Int("inserted", n), slog.String("path", path))
}
