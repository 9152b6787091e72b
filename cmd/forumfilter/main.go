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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/upstream"
	httphandler "github.com/ericfisherdev/forumfilter/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/forumfilter/internal/adapter/driving/web"
	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/bootstrap"
	"github.com/ericfisherdev/forumfilter/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"upstream", cfg.UpstreamURL,
		"reflow_delay", cfg.ReflowDelay,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the preference store backend.
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			slog.Error("error closing preference store", "error", closeErr)
		}
	}()

	// 4. Wire the upstream fetcher and the content host.
	fetcher, err := upstream.NewFetcher(upstream.Options{
		BaseURL:  cfg.UpstreamURL,
		Sanitize: cfg.Sanitize,
	}, slog.Default())
	if err != nil {
		return err
	}

	annotator := application.NewAnnotator(store, cfg.Profile, slog.Default())
	tabs := application.NewTabManager(fetcher, annotator, store, slog.Default(),
		application.WithReflowDelay(cfg.ReflowDelay),
		application.WithReflowLogger(slog.Default()),
	)
	defer tabs.Shutdown()

	presenter := application.NewPresenter(tabs, store, cfg.ForumDomain, cfg.UpstreamURL, slog.Default())

	// 5. Register API and popup routes.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(tabs, fetcher, slog.Default()))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(presenter, slog.Default()))

	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("forumfilter started", "listen_addr", cfg.ListenAddr, "forum_domain", cfg.ForumDomain)

	// 6. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
