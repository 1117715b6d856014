package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"service", "result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"service", "result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_tokens_issued_total",
			Help: "Total number of token pairs issued or refreshed.",
		},
		[]string{"service", "flow", "result"},
	)

	SessionsRevokedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_sessions_revoked_total",
			Help: "Total number of refresh sessions revoked.",
		},
		[]string{"service", "reason"},
	)

	ActionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_action_tokens_total",
			Help: "Single-use reset/verification tokens issued and redeemed.",
		},
		[]string{"service", "kind", "op", "result"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_rate_limit_rejections_total",
			Help: "Requests rejected by the sliding-window limiter.",
		},
		[]string{"service", "scope"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)
	RegistrationsTotal = RegistrationsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	LoginsTotal = LoginsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	TokensIssuedTotal = TokensIssuedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	SessionsRevokedTotal = SessionsRevokedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	ActionTokensTotal = ActionTokensTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	RateLimitRejectionsTotal = RateLimitRejectionsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		RegistrationsTotal,
		LoginsTotal,
		TokensIssuedTotal,
		SessionsRevokedTotal,
		ActionTokensTotal,
		RateLimitRejectionsTotal,
	)
}
