// Package types defines the registry's base value types.
//
// This is the lowest-level package in the module: it has no dependency on
// any other internal package, so interfaces, config, transport and scope
// code can all import it without risking an import cycle.
//
// # File organization
//
//   - ids.go    - NodeID, Pid, LocalID, Scope, Name/GroupName/Meta aliases
//   - base58.go - Base58 codec used by NodeID.String()
//   - entry.go  - RegistryEntry, GroupEntry and their lifecycle helpers
//   - wire.go   - inter-node message envelopes (DISCOVER, ACK_SYNC, ...)
//   - errors.go - sentinel errors for the register/unregister/join outcomes
//   - events.go - node membership and process-down event types
//
// # Design principles
//
//  1. Value types: entries and messages are plain structs, copied freely.
//  2. Comparable identity: NodeID and Pid are valid map keys.
//  3. Zero dependency on transport, table or scope packages.
package types
