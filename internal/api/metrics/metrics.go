// Package metrics defines the custom Prometheus collectors of the bongocat web
// app. It is the single source of truth for metric names, labels and help
// strings. Collectors register with the default registry on import through
// promauto; request level metrics come from the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bongocat"

// ── Account metrics ──────────────────────────────────────────────────────────

// AccountsRegisteredTotal counts successful registrations.
var AccountsRegisteredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_registered_total",
		Help:      "Total number of accounts created.",
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid" (bad credentials) or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// PasswordResetsTotal counts the two stages of the reset flow.
// Labels:
//   - stage: "request" or "confirm"
//   - result: "accepted", "expired", "invalid", "rejected" or "error"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests and confirmations.",
	},
	[]string{"stage", "result"},
)

// AccountsDeletedTotal counts self-service account deletions.
var AccountsDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_deleted_total",
		Help:      "Total number of accounts deleted by their owner.",
	},
)

// ── Score metrics ────────────────────────────────────────────────────────────

// ScoreSyncsTotal counts sync reports.
// Label:
//   - result: "applied", "noop" or the error code returned to the client
var ScoreSyncsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_syncs_total",
		Help:      "Total number of score sync reports, by result.",
	},
	[]string{"result"},
)

// ScorePointsTotal sums the deltas applied to user scores.
var ScorePointsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_points_total",
		Help:      "Total points added to user scores.",
	},
)

// ── Mail metrics ─────────────────────────────────────────────────────────────

// MailDispatchTotal counts outbound mails.
// Label:
//   - result: "sent", "failed" or "dropped" (queue full)
var MailDispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_dispatch_total",
		Help:      "Total number of outbound mails, by result.",
	},
	[]string{"result"},
)

// MailSendDuration measures one delivery attempt by the underlying mailer.
var MailSendDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_send_duration_seconds",
		Help:      "Duration of a single mail delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	},
)

// MailQueueDepth tracks mails waiting in the dispatcher.
var MailQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of mails waiting in the dispatcher queue.",
	},
)
