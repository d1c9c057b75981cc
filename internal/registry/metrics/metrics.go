// Package metrics exposes Prometheus counters and gauges for the
// registry and groups state machines: table sizes, conflicts resolved,
// and peer-departure purges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/pkg/types"
)

// Reporter records registry/groups activity as Prometheus metrics. A
// disabled Reporter's methods are no-ops, so call sites never need to
// branch on whether metrics are enabled.
type Reporter struct {
	enabled bool

	registryEntries *prometheus.GaugeVec
	groupEntries    *prometheus.GaugeVec
	conflicts       *prometheus.CounterVec
	purges          *prometheus.CounterVec
}

// New creates a Reporter and, if cfg.Enabled, registers its collectors
// with registerer.
func New(cfg config.MetricsConfig, registerer prometheus.Registerer) *Reporter {
	r := &Reporter{enabled: cfg.Enabled}
	if !cfg.Enabled {
		return r
	}

	r.registryEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "registry_entries",
		Help:      "Current number of registered names, per scope.",
	}, []string{"scope"})

	r.groupEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "group_entries",
		Help:      "Current number of (group, pid) memberships, per scope.",
	}, []string{"scope"})

	r.conflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "conflicts_resolved_total",
		Help:      "Registry conflicts resolved, by outcome.",
	}, []string{"scope", "outcome"})

	r.purges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "peer_purges_total",
		Help:      "Entries removed because their owning node's scope actor was detected down.",
	}, []string{"scope"})

	registerer.MustRegister(r.registryEntries, r.groupEntries, r.conflicts, r.purges)

	return r
}

// SetRegistryEntries records scope's current by-name table size.
func (r *Reporter) SetRegistryEntries(scope types.Scope, count int) {
	if !r.enabled {
		return
	}
	r.registryEntries.WithLabelValues(scope.String()).Set(float64(count))
}

// SetGroupEntries records scope's current group-membership table size.
func (r *Reporter) SetGroupEntries(scope types.Scope, count int) {
	if !r.enabled {
		return
	}
	r.groupEntries.WithLabelValues(scope.String()).Set(float64(count))
}

// ConflictOutcome labels what a registry conflict resolved to.
type ConflictOutcome string

const (
	ConflictKeptIncoming ConflictOutcome = "kept_incoming"
	ConflictKeptLocal    ConflictOutcome = "kept_local"
	ConflictEvictedBoth  ConflictOutcome = "evicted_both"
)

// IncConflict records one resolved conflict.
func (r *Reporter) IncConflict(scope types.Scope, outcome ConflictOutcome) {
	if !r.enabled {
		return
	}
	r.conflicts.WithLabelValues(scope.String(), string(outcome)).Inc()
}

// IncPurge records count entries removed by a peer-departure purge.
func (r *Reporter) IncPurge(scope types.Scope, count int) {
	if !r.enabled || count == 0 {
		return
	}
	r.purges.WithLabelValues(scope.String()).Add(float64(count))
}
