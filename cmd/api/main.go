package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/canscan/internal/application"
	appprofile "github.com/bryanwahyu/canscan/internal/application/profile"
	appscans "github.com/bryanwahyu/canscan/internal/application/scans"
	apptracker "github.com/bryanwahyu/canscan/internal/application/tracker"
	"github.com/bryanwahyu/canscan/internal/config"
	"github.com/bryanwahyu/canscan/internal/infra/bootstrap"
	"github.com/bryanwahyu/canscan/internal/infra/httpserver"
	"github.com/bryanwahyu/canscan/internal/middleware"
)

func main() {
	// load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, flush, err := bootstrap.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init record store
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error(err, "record store init failed")
		os.Exit(1)
	}
	defer store.Close()

	// init service
	opts := appscans.Options{
		Clock:         application.SystemClock{},
		Log:           log.WithName("scans"),
		SessionTTL:    cfg.Session.TTL,
		MaxImageBytes: cfg.Session.MaxImageBytes,
	}
	images, err := bootstrap.NewImageStore(ctx, cfg)
	if err != nil {
		log.Error(err, "image store init failed")
		os.Exit(1)
	}
	if images != nil {
		opts.Images = images
		store.Checks[middleware.CheckImages] = middleware.PingCheck(images.Ping)
	}
	scansSvc := appscans.NewService(store, bootstrap.NewOracle(cfg, log), opts)
	go scansSvc.RunJanitor(ctx, time.Minute)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSecond)
	go limiter.RunCleanup(ctx)

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Deps{
		Scans:         scansSvc,
		Profiles:      appprofile.NewService(store, log.WithName("profile")),
		Trackers:      apptracker.NewService(store, application.SystemClock{}, log.WithName("tracker")),
		Log:           log.WithName("http"),
		Checks:        store.Checks,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Limiter:       limiter,
		MaxImageBytes: cfg.Session.MaxImageBytes,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
		// Waiting analyses can take as long as the oracle timeout.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Oracle.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error(err, "server error")
	}

	// graceful shutdown
	log.Info("shutting down server...")
	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error(err, "shutdown error")
	}
}
