// Package metrics defines all custom Prometheus metrics for the
// accounts API. It is the single source of truth for metric names,
// labels, and help strings; collectors register themselves with the
// default registry at init time via promauto.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brightpath/accounts-api/internal/core/domain"
	"github.com/brightpath/accounts-api/internal/core/ports"
)

const namespace = "accounts"

// SignUpsTotal counts created accounts.
// Label:
//   - provider: the identity method that created the account
//     ("LOCAL", "GOOGLE", "GITHUB")
var SignUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ups_total",
		Help:      "Total number of accounts created, by originating provider.",
	},
	[]string{"provider"},
)

// SignInsTotal counts local sign-in attempts.
// Label:
//   - result: "success" or "failure"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of local sign-in attempts, by result.",
	},
	[]string{"result"},
)

// OAuthLoginsTotal counts OAuth callback resolutions.
// Labels:
//   - provider: "GOOGLE" or "GITHUB"
//   - outcome: "resolved" (identity mapped to an account) or "rejected"
var OAuthLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_logins_total",
		Help:      "Total number of OAuth logins resolved, by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

// IdentitiesLinkedTotal counts identity links merged into existing
// accounts via email match.
var IdentitiesLinkedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identities_linked_total",
		Help:      "Total number of OAuth identities linked to pre-existing accounts.",
	},
	[]string{"provider"},
)

// TokensIssuedTotal counts signed bearer tokens handed out.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of JWTs issued.",
	},
)

// UsernameFallbacksTotal counts username generations that exhausted
// their suffix attempts and resorted to the timestamp form. A non-zero
// rate means the random suffix space is saturating.
var UsernameFallbacksTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "username_fallbacks_total",
		Help:      "Total number of generated usernames that fell back to the timestamp form.",
	},
)

// QueueDepth tracks the number of buffered account events per
// dispatcher worker.
// Label:
//   - worker: the worker's shard index
var QueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Number of account events buffered per dispatcher worker.",
	},
	[]string{"worker"},
)

// RecordAccountEvent is the dispatcher's processor: it turns account
// lifecycle events into counter increments.
func RecordAccountEvent(_ context.Context, event ports.AccountEvent) {
	switch event.Type {
	case ports.EventSignedUp:
		SignUpsTotal.WithLabelValues(string(event.Provider)).Inc()
	case ports.EventSignedIn:
		if event.Provider == domain.ProviderLocal {
			SignInsTotal.WithLabelValues("success").Inc()
		}
	case ports.EventLinked:
		IdentitiesLinkedTotal.WithLabelValues(string(event.Provider)).Inc()
	}
}
