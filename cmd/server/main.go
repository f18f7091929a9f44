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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"notifygate/internal/authprobe"
	"notifygate/internal/notify"
	"notifygate/internal/notify/mailer"
	"notifygate/internal/platform/config"
	"notifygate/internal/platform/httpserver"
	"notifygate/internal/platform/httputil"
	"notifygate/internal/platform/logger"
	"notifygate/internal/platform/metrics"
	"notifygate/internal/platform/middleware"
	"notifygate/internal/platform/postgres"
	platformredis "notifygate/internal/platform/redis"
	"notifygate/internal/ratelimit"
	ratelimitstore "notifygate/internal/ratelimit/store"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mx := metrics.New()

	store, healthcheck, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	limiter, err := ratelimit.New(store, log,
		ratelimit.WithWindow(cfg.RateLimit.Window),
		ratelimit.WithMetrics(mx),
	)
	if err != nil {
		return err
	}

	var verifier authprobe.Verifier
	if cfg.AuthVerifyURL != "" {
		verifier = authprobe.NewHTTPVerifier(cfg.AuthVerifyURL)
	} else {
		log.Warn("no AUTH_VERIFY_URL configured, all callers treated as anonymous")
	}
	probe := authprobe.New(verifier, log)

	var m mailer.Mailer
	if cfg.Mail.APIKey != "" {
		m = mailer.NewClient(cfg.Mail.APIURL, cfg.Mail.APIKey)
	} else {
		log.Warn("no MAIL_API_KEY configured, emails will be logged and dropped")
		m = &mailer.Log{Logger: log}
	}
	dispatcher := notify.NewDispatcher(m, log)

	handler := notify.New(
		probe,
		limiter,
		m,
		dispatcher,
		log,
		mx,
		notify.Tiers{
			Anonymous:     cfg.RateLimit.AnonymousLimit,
			Authenticated: cfg.RateLimit.AuthenticatedLimit,
		},
		cfg.Mail.From,
		cfg.Mail.To,
		notify.ContactForm(),
		notify.ContributionForm(),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS)
	handler.Register(r)
	r.Get("/healthz", healthHandler(healthcheck))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting notification relay", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := limiter.RunHousekeeping(gctx, cfg.RateLimit.HousekeepingInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		dispatcher.Wait()
		return nil
	})

	return g.Wait()
}

// buildStore selects the attempt store: Redis when configured, then Postgres,
// then in-memory as a single-node fallback.
func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (ratelimit.Store, func(context.Context) error, func(), error) {
	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("rate limiting backed by redis")
		return ratelimitstore.NewRedis(client.Client), client.Health, func() { _ = client.Close() }, nil
	}

	if cfg.DatabaseURL != "" {
		pool, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("rate limiting backed by postgres")
		return ratelimitstore.NewPostgres(pool.Pool), pool.Health, pool.Close, nil
	}

	log.Warn("no shared store configured, rate limits are per-instance only")
	noop := func(context.Context) error { return nil }
	return ratelimitstore.NewMemory(), noop, func() {}, nil
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		storeStatus := "ok"
		if err := check(r.Context()); err != nil {
			// The relay fails open on store outages, so a degraded
			// store does not fail liveness.
			status = "degraded"
			storeStatus = err.Error()
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"status": status,
			"store":  storeStatus,
		})
	}
}
