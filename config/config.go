// Package config provides the registry's unified configuration management.
//
// This package follows a hybrid configuration pattern:
//   - a top-level Config struct embeds every sub-config
//   - each sub-config is defined in its own concern and carries its own
//     Default*Config() constructor and Validate() method
//   - the top-level Config.Validate() validates every sub-config in turn
//
// Example:
//
//	cfg := config.NewConfig()
//	cfg.Groups.SymmetricLeave = false
//	cfg.Metrics.Namespace = "myapp"
package config

// Config is the registry's complete configuration tree.
type Config struct {
	// Scope configures which scopes exist at startup and how a scope
	// actor's process name is derived.
	Scope ScopeConfig `json:"scope"`

	// Discovery configures the DISCOVER/ACK_SYNC anti-entropy exchange.
	Discovery DiscoveryConfig `json:"discovery"`

	// Liveness configures the per-node process liveness service.
	Liveness LivenessConfig `json:"liveness"`

	// Conflict configures registry conflict resolution policy.
	Conflict ConflictConfig `json:"conflict"`

	// Groups configures the groups state machine, including the
	// SYNC_LEAVE symmetry decision (see DESIGN.md Open Question #2).
	Groups GroupsConfig `json:"groups"`

	// Peers configures the scope actor's remote-peer cache.
	Peers PeersConfig `json:"peers"`

	// Hashring configures the optional best-effort key-ownership hint.
	Hashring HashringConfig `json:"hashring"`

	// Metrics configures Prometheus instrumentation.
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig returns a Config populated with every sub-config's defaults.
func NewConfig() *Config {
	return &Config{
		Scope:     DefaultScopeConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Liveness:  DefaultLivenessConfig(),
		Conflict:  DefaultConflictConfig(),
		Groups:    DefaultGroupsConfig(),
		Peers:     DefaultPeersConfig(),
		Hashring:  DefaultHashringConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate checks every sub-config, returning the first error found.
func (c *Config) Validate() error {
	if err := c.Scope.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.Liveness.Validate(); err != nil {
		return err
	}
	if err := c.Conflict.Validate(); err != nil {
		return err
	}
	if err := c.Groups.Validate(); err != nil {
		return err
	}
	if err := c.Peers.Validate(); err != nil {
		return err
	}
	if err := c.Hashring.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep-enough copy of c for tests that mutate a config
// without affecting the original (sub-configs hold no pointers/slices that
// need a deeper copy today; Scopes is copied explicitly).
func (c *Config) Clone() *Config {
	clone := *c
	clone.Scope.Scopes = append([]string(nil), c.Scope.Scopes...)
	return &clone
}

// ============================================================================
//                              ScopeConfig
// ============================================================================

// ScopeConfig configures which scopes a Manager brings up at startup.
type ScopeConfig struct {
	// Scopes lists the scope names created automatically when a Manager
	// starts, in addition to DefaultScope, which always exists.
	Scopes []string `json:"scopes,omitempty"`
}

// DefaultScopeConfig returns the default scope configuration: only the
// default scope exists.
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{}
}

// Validate reports whether the scope configuration is well-formed.
func (c ScopeConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Scopes))
	for _, s := range c.Scopes {
		if s == "" {
			return errEmptyScopeName
		}
		if _, dup := seen[s]; dup {
			return errDuplicateScopeName
		}
		seen[s] = struct{}{}
	}
	return nil
}

// ============================================================================
//                              DiscoveryConfig
// ============================================================================

// DiscoveryConfig configures the scope actor's mesh discovery.
type DiscoveryConfig struct {
	// ReannounceInterval re-sends DISCOVER to every visible peer on this
	// cadence, as a supplement to the node-up trigger (useful when a
	// DISCOVER or ACK_SYNC was dropped and no further node-up fires). Set
	// to 0 to disable periodic reannounce and rely solely on node-up.
	ReannounceInterval Duration `json:"reannounce_interval"`
}

// DefaultDiscoveryConfig returns the default discovery configuration.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{ReannounceInterval: Duration(0)}
}

// Validate reports whether the discovery configuration is well-formed.
func (c DiscoveryConfig) Validate() error {
	if c.ReannounceInterval.Duration() < 0 {
		return errNegativeDuration
	}
	return nil
}

// ============================================================================
//                              LivenessConfig
// ============================================================================

// LivenessConfig configures the per-node process liveness service.
type LivenessConfig struct {
	// DownChannelBuffer is validated to be at least 1 but is not read by
	// the liveness service: each Monitor channel holds one DownEvent, and
	// Kill never blocks on a full channel; it drops the event and logs a
	// warning instead.
	DownChannelBuffer int `json:"down_channel_buffer"`
}

// DefaultLivenessConfig returns the default liveness configuration.
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{DownChannelBuffer: 256}
}

// Validate reports whether the liveness configuration is well-formed.
func (c LivenessConfig) Validate() error {
	if c.DownChannelBuffer < 1 {
		return errNonPositiveBuffer
	}
	return nil
}

// ============================================================================
//                              ConflictConfig
// ============================================================================

// ConflictConfig configures registry conflict resolution.
type ConflictConfig struct {
	// RequireCustomResolver, when true, makes creating a registry scope
	// panic when no EventHandler was supplied, forcing an explicit choice
	// instead of silently falling back to
	// interfaces.DefaultResolver's documented degenerate behavior.
	RequireCustomResolver bool `json:"require_custom_resolver"`
}

// DefaultConflictConfig returns the default conflict configuration: the
// default resolver is permitted.
func DefaultConflictConfig() ConflictConfig {
	return ConflictConfig{RequireCustomResolver: false}
}

// Validate reports whether the conflict configuration is well-formed.
func (c ConflictConfig) Validate() error {
	return nil
}

// ============================================================================
//                              GroupsConfig
// ============================================================================

// GroupsConfig configures the groups state machine.
type GroupsConfig struct {
	// SymmetricLeave decides the Open Question left by spec.md §9's
	// groups SYNC_LEAVE note: when true (the default in this module,
	// see DESIGN.md), the owner's DOWN handler broadcasts a SYNC_LEAVE
	// analogous to the registry's SYNC_UNREGISTER, symmetrizing with the
	// registry design. When false, the groups DOWN handler behaves
	// exactly as the source describes: local-only removal, relying on
	// purge_local_data_for_node when the scope actor itself dies.
	SymmetricLeave bool `json:"symmetric_leave"`
}

// DefaultGroupsConfig returns the default groups configuration.
func DefaultGroupsConfig() GroupsConfig {
	return GroupsConfig{SymmetricLeave: true}
}

// Validate reports whether the groups configuration is well-formed.
func (c GroupsConfig) Validate() error {
	return nil
}

// ============================================================================
//                              PeersConfig
// ============================================================================

// PeersConfig configures the scope actor's remote-peer / snapshot cache.
type PeersConfig struct {
	// SnapshotCacheSize bounds the LRU of ACK_SYNC snapshot fingerprints
	// each scope actor's peers.Map keeps (peers.Map.MarkSeen). Remote
	// snapshots themselves are applied on arrival, not cached.
	SnapshotCacheSize int `json:"snapshot_cache_size"`
}

// DefaultPeersConfig returns the default peers configuration.
func DefaultPeersConfig() PeersConfig {
	return PeersConfig{SnapshotCacheSize: 256}
}

// Validate reports whether the peers configuration is well-formed.
func (c PeersConfig) Validate() error {
	if c.SnapshotCacheSize < 1 {
		return errNonPositiveBuffer
	}
	return nil
}

// ============================================================================
//                              HashringConfig
// ============================================================================

// HashringConfig configures the optional best-effort key→node hint.
type HashringConfig struct {
	// Enabled turns the hint helper on. It never gates correctness: the
	// owner node returned by lookup is always authoritative.
	Enabled bool `json:"enabled"`
}

// DefaultHashringConfig returns the default hashring configuration.
func DefaultHashringConfig() HashringConfig {
	return HashringConfig{Enabled: true}
}

// Validate reports whether the hashring configuration is well-formed.
func (c HashringConfig) Validate() error {
	return nil
}

// ============================================================================
//                              MetricsConfig
// ============================================================================

// MetricsConfig configures Prometheus instrumentation.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `json:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true, Namespace: "registry"}
}

// Validate reports whether the metrics configuration is well-formed.
func (c MetricsConfig) Validate() error {
	if c.Enabled && c.Namespace == "" {
		return errEmptyNamespace
	}
	return nil
}
