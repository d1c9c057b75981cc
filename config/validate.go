package config

import (
	"errors"
	"fmt"
)

var (
	errEmptyScopeName     = errors.New("config: scope name must not be empty")
	errDuplicateScopeName = errors.New("config: duplicate scope name")
	errNegativeDuration   = errors.New("config: duration must not be negative")
	errNonPositiveBuffer  = errors.New("config: buffer/cache size must be positive")
	errEmptyNamespace     = errors.New("config: metrics namespace must not be empty when metrics are enabled")
)

// ValidateAll validates the entire config tree. It is an explicit alias
// for Config.Validate, for call sites that prefer a free function.
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config: config is nil")
	}
	return c.Validate()
}

// ValidateSubConfig is satisfied by every sub-config; used by tooling that
// wants to validate one concern without validating the whole tree.
type ValidateSubConfig interface {
	Validate() error
}

// MustValidate validates c and panics on failure. Intended for
// program-startup code and tests, never for request-handling paths.
func MustValidate(c *Config) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}
