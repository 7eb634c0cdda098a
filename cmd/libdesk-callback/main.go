// Command libdesk-callback serves the payment gateway's return URL: it
// verifies the payment with the backend and sends the user on to their borrows.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/libdesk/internal/bootstrap"
	"github.com/and161185/libdesk/internal/config"
	"github.com/and161185/libdesk/internal/repository/rest"
	"github.com/and161185/libdesk/internal/server/httpcb"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, opens the shared session store and serves the
// callback until SIGINT/SIGTERM.
func main() {
	cfgPath := flag.String("config", "", "config file")
	addr := flag.String("addr", "", "listen address (overrides callback.addr)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	v := config.New(*cfgPath)
	if *addr != "" {
		v.Set("callback.addr", *addr)
	}
	cfg, err := config.Load(v, *cfgPath != "")
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Callback.Addr),
		zap.String("session_backend", cfg.Session.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg.Session, logger)
	if err != nil {
		logger.Fatal("open session store", zap.Error(err))
	}
	defer closeStore()

	client, err := bootstrap.NewClient(cfg, store, logger, nil)
	if err != nil {
		logger.Fatal("api client", zap.Error(err))
	}

	srv := httpcb.New(rest.NewPaymentRepo(client), httpcb.NewMetrics(), cfg.Callback.PublicBase, logger)
	hs := &http.Server{
		Addr:              cfg.Callback.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Callback.Addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = hs.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			closeStore()
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
