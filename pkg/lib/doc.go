// Package lib holds infrastructure utility libraries that have no
// dependency on the architecture's core components:
//
//   - log: slog-backed logging wrapper
//
// # Relationship to the rest of pkg/
//
//   - interfaces/: public component interfaces
//   - types/: public value types
//   - lib/: infrastructure utilities (this directory)
package lib
