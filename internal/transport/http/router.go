package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accounts/internal/authz"
	"accounts/internal/observability/metrics"
	obsmw "accounts/internal/observability/middleware"
)

// RouterConfig holds the transport-level knobs; service behavior is
// configured on the services themselves.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	IPRateLimit    int
	IPRateWindow   time.Duration
}

// NewRouter assembles the account service routes. Per-route identity and
// capability checks live in the middleware chain; handlers assume an
// attached principal where the chain guarantees one.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = 100
	}
	if cfg.IPRateWindow <= 0 {
		cfg.IPRateWindow = time.Minute
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(httprate.LimitByIP(cfg.IPRateLimit, cfg.IPRateWindow))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	requireAuth := RequireAuth(h.Tokens, h.UserLookup)

	// -------- Public auth endpoints --------
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/token/refresh", h.refresh)
		r.Post("/password/reset", h.requestPasswordReset)
		r.Post("/password/reset/confirm", h.confirmPasswordReset)
		r.Post("/email/verify", h.requestEmailVerification)
		r.Post("/email/verify/confirm", h.confirmEmailVerification)

		// Bearer-gated lifecycle endpoints.
		r.Group(func(pr chi.Router) {
			pr.Use(requireAuth)
			pr.Post("/logout", h.logout)
			pr.Post("/password/change", h.changePassword)
		})
	})

	// -------- Profile (owner) --------
	r.Group(func(pr chi.Router) {
		pr.Use(requireAuth)
		pr.Use(RequireCaps(authz.Authenticated, authz.Active, authz.NotBlocked))
		pr.Get("/profile", h.profile)
		pr.Put("/profile/update", h.updateProfile)
	})

	// -------- Admin --------
	r.Route("/admin/users", func(ar chi.Router) {
		ar.Use(requireAuth)
		ar.Use(RequireCaps(authz.Authenticated, authz.Active, authz.NotBlocked, authz.Admin))
		ar.Get("/", h.listUsers)
		ar.Get("/{id}", h.getUser)
		ar.Put("/{id}/update", h.adminUpdateUser)
		ar.Delete("/{id}", h.adminDeleteUser)
	})

	return r
}

// instrument records request counts and latency per route pattern, so
// /admin/users/{id} stays one series regardless of the id.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

func originsIfSet(in []string) []string {
	out := []string{}
	for _, o := range in {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
