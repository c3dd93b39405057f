package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for subkit
type Metrics struct {
	// Avatar flow metrics
	NonceRequests          *prometheus.CounterVec
	AvatarOperations       *prometheus.CounterVec
	TextRecordSyncFailures *prometheus.CounterVec

	// Identity metrics
	IdentityLookups *prometheus.CounterVec

	// Claim service metrics
	AuthAttempts  *prometheus.CounterVec
	SubnameClaims *prometheus.CounterVec
}

// NewMetrics initializes and registers metrics with the default registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes and registers metrics with registry
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		NonceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subkit_nonce_requests_total",
			Help: "Nonce requests sent to the metadata service",
		}, []string{"scope", "result"}),
		AvatarOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subkit_avatar_operations_total",
			Help: "Avatar uploads and deletions by outcome",
		}, []string{"op", "result"}),
		TextRecordSyncFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subkit_text_record_sync_failures_total",
			Help: "Avatar text record writes that failed after a successful avatar operation",
		}, []string{"op"}),
		IdentityLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subkit_identity_lookups_total",
			Help: "Subname lookups behind identity resolution by source",
		}, []string{"source"}),
		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subkit_auth_attempts_total",
			Help: "Wallet sign-in attempts by outcome",
		}, []string{"result"}),
		SubnameClaims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subkit_subname_claims_total",
			Help: "Subname claims by outcome",
		}, []string{"result"}),
	}
}

// Discard returns metrics registered with a private registry, for tests and
// tools that do not expose them.
func Discard() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}
