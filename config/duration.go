// Package config - Duration.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration with JSON support for both human-readable
// strings and raw nanosecond numbers.
//
// Supported JSON forms:
//   - string: "30s", "5m", "1h30m", "100ms", parsed with time.ParseDuration
//   - number: nanoseconds, for callers that serialize time.Duration directly
//
// Example:
//
//	type Config struct {
//	    Timeout Duration `json:"timeout"`
//	}
//
//	// JSON: {"timeout": "30s"} or {"timeout": 30000000000}
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler, accepting either form above.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		duration, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", s, err)
		}
		*d = Duration(duration)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration(n)
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g. \"30s\") or a number of nanoseconds")
}

// MarshalJSON implements json.Marshaler, emitting the human-readable form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String returns the human-readable form.
func (d Duration) String() string {
	return time.Duration(d).String()
}
