package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	tokenRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_token_rejections_total",
			Help:      "Bearer tokens that did not yield a principal, by reason.",
		},
		[]string{"reason"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_login_attempts_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	accessDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_access_decisions_total",
			Help:      "Access policy decisions by result.",
		},
		[]string{"decision"},
	)
)

// TokenRejected counts a token that was ignored, e.g. reason "expired".
func TokenRejected(reason string) { tokenRejections.WithLabelValues(reason).Inc() }

// LoginAttempt counts a login by outcome ("success", "rejected", "error").
func LoginAttempt(outcome string) { loginAttempts.WithLabelValues(outcome).Inc() }

// AccessDecision counts a policy decision.
func AccessDecision(decision string) { accessDecisions.WithLabelValues(decision).Inc() }
