package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/hostclient"
	"github.com/ericfisherdev/forumfilter/internal/adapter/driving/cli"
	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/bootstrap"
	"github.com/ericfisherdev/forumfilter/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// Diagnostics stay off stdout so export to "-" remains valid JSON.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connect := func(ctx context.Context, hostURL string) (*application.Presenter, func() error, error) {
		if cfg.Store == config.StoreMemory {
			return nil, nil, fmt.Errorf("store backend %q is private to the content host", cfg.Store)
		}
		client, err := hostclient.NewClient(hostURL, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			return nil, nil, err
		}
		store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return application.NewPresenter(client, store, cfg.ForumDomain, cfg.UpstreamURL, logger), closeStore, nil
	}

	return cli.Execute(ctx, cli.NewRootCommand(connect, cfg.HostURL))
}
