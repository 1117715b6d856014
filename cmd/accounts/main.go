package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"accounts/internal/config"
	"accounts/internal/observability/logging"
	"accounts/internal/observability/metrics"
	"accounts/internal/ratelimit"
	impl "accounts/internal/service/impl"
	"accounts/internal/store"
	httpx "accounts/internal/transport/http"
	"accounts/pkg/db"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "accounts",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	logger.Info("starting service")

	cfg := config.Load()

	gdb, err := db.OpenGorm(db.Config{
		DSN:    cfg.DatabaseURL,
		LogSQL: cfg.LogSQL,
	})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	st := &store.Store{DB: gdb}

	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	metrics.MustRegister("accounts")

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		limiter = ratelimit.NewRedisLimiter(redis.NewClient(opts), cfg.RateMaxRequests, cfg.RateWindow, "accounts:rl")
		logger.Info("rate limiting backed by redis")
	} else {
		limiter = ratelimit.NewSlidingWindow(cfg.RateMaxRequests, cfg.RateWindow)
	}

	pw := impl.NewPasswordServiceArgon2id()

	ts := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		SigningKey:    []byte(cfg.SigningKey),
		RotateRefresh: cfg.RotateRefresh,
	}, st)

	at := impl.NewActionTokenService(st, pw, cfg.ActionTokenTTL)
	mail := impl.NewLogEmailService()

	as := impl.NewAuthServiceImpl(st, pw, ts, at, mail, limiter, cfg.FrontendURL)
	us := impl.NewUserServiceImpl(st)

	h := &httpx.Handlers{
		Auth:       as,
		Users:      us,
		Tokens:     ts,
		UserLookup: st.Users(),
		TrustProxy: cfg.TrustProxy,
	}

	mux := httpx.NewRouter(h, httpx.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
	})

	go sweepExpired(st, cfg.SweepInterval, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("accounts service listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// sweepExpired periodically drops expired sessions and action tokens.
// Expiry checks never depend on the sweep; this only reclaims rows.
func sweepExpired(st *store.Store, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		now := time.Now().UTC()
		if n, err := st.Sessions().DeleteExpired(ctx, now); err != nil {
			logger.Warn("session sweep failed", "error", err)
		} else if n > 0 {
			logger.Info("swept expired sessions", "count", n)
		}
		if n, err := st.ActionTokens().DeleteExpired(ctx, now); err != nil {
			logger.Warn("action token sweep failed", "error", err)
		} else if n > 0 {
			logger.Info("swept expired action tokens", "count", n)
		}
		cancel()
	}
}
