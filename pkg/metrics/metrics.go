package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by method (password|oidc) and result (success|failure|unverified).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goout_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// VerificationSteps counts email verification protocol steps (issue|dispatch|consume) by outcome.
	VerificationSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goout_verification_steps_total",
			Help: "Email verification steps by outcome",
		},
		[]string{"step", "outcome"},
	)

	// MailDeliveries counts outbound email by result.
	MailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goout_mail_deliveries_total",
			Help: "Outbound email deliveries",
		},
		[]string{"template", "result"},
	)

	// PurgedTokens counts expired verification rows removed by maintenance.
	PurgedTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goout_verification_purged_total",
			Help: "Expired verification rows removed by maintenance",
		},
		[]string{"kind"},
	)

	// Uploads counts image uploads by result.
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goout_uploads_total",
			Help: "Image uploads by result",
		},
		[]string{"result"},
	)

	// Bookings counts created bookings.
	Bookings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goout_bookings_created_total",
			Help: "Total bookings created",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goout_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
