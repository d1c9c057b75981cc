// Package types defines the base value types shared across the registry.
//
// This is the lowest-level package in the module: it has no dependency on
// any other internal package, so it can be imported from transport, table,
// scope and config code alike without creating cycles.
package types

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// ============================================================================
//                              NodeID - cluster node identity
// ============================================================================

// NodeID identifies a cluster node. It has no relationship to any network
// address; the transport is responsible for resolving a NodeID to something
// it can actually dial.
//
// External representation:
//   - String(): Base58 (compact, safe to log and to put in config files)
//   - ShortString(): Base58 prefix, for log lines
type NodeID [32]byte

// EmptyNodeID is the zero value of NodeID.
var EmptyNodeID NodeID

// ErrInvalidNodeID is returned when a string cannot be parsed as a NodeID.
var ErrInvalidNodeID = errors.New("invalid node ID: must be base58")

// String returns the canonical Base58 representation of the NodeID.
func (id NodeID) String() string {
	if id.IsEmpty() {
		return ""
	}
	return Base58Encode(id[:])
}

// ShortString returns the first 8 characters of the Base58 representation,
// for compact log lines.
func (id NodeID) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes returns the raw bytes backing the NodeID.
func (id NodeID) Bytes() []byte {
	return id[:]
}

// Equal reports whether two NodeIDs are identical.
func (id NodeID) Equal(other NodeID) bool {
	return id == other
}

// IsEmpty reports whether id is the zero value.
func (id NodeID) IsEmpty() bool {
	return id == EmptyNodeID
}

// NodeIDFromBytes builds a NodeID from exactly 32 raw bytes.
func NodeIDFromBytes(b []byte) (NodeID, error) {
	if len(b) != 32 {
		return EmptyNodeID, ErrInvalidNodeID
	}
	var id NodeID
	copy(id[:], b)
	return id, nil
}

// NewNodeID generates a fresh random NodeID, for simulated/in-process nodes
// that have no externally-derived identity (e.g. a public key) to adopt.
func NewNodeID() NodeID {
	var id NodeID
	if _, err := rand.Read(id[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return id
}

// ParseNodeID parses a NodeID from its Base58 string form.
func ParseNodeID(s string) (NodeID, error) {
	if s == "" {
		return EmptyNodeID, ErrInvalidNodeID
	}
	b, err := Base58Decode(s)
	if err != nil {
		return EmptyNodeID, ErrInvalidNodeID
	}
	if len(b) != 32 {
		return EmptyNodeID, ErrInvalidNodeID
	}
	var id NodeID
	copy(id[:], b)
	return id, nil
}

// ============================================================================
//                              Pid - cluster-wide process handle
// ============================================================================

// LocalID discriminates processes hosted by the same node. It carries no
// meaning beyond uniqueness: no key-derivation property is required of it,
// unlike NodeID, so it is generated with a UUID rather than a hash.
type LocalID [16]byte

// EmptyLocalID is the zero value of LocalID.
var EmptyLocalID LocalID

// NewLocalID generates a fresh, globally-unique LocalID.
func NewLocalID() LocalID {
	var id LocalID
	u := uuid.New()
	copy(id[:], u[:])
	return id
}

// String returns the hex form of the LocalID. LocalIDs are never
// user-facing on their own, only as part of a Pid.
func (id LocalID) String() string {
	return hex.EncodeToString(id[:])
}

// Pid is the module's answer to "no native cluster-wide process identity":
// it pairs a NodeID with a LocalID so the owning node of any Pid can be
// recovered without a lookup.
type Pid struct {
	Node  NodeID
	Local LocalID
}

// ZeroPid is the zero value of Pid; never a valid handle.
var ZeroPid Pid

// NewPid builds a fresh Pid owned by node.
func NewPid(node NodeID) Pid {
	return Pid{Node: node, Local: NewLocalID()}
}

// IsZero reports whether p is the zero value.
func (p Pid) IsZero() bool {
	return p == ZeroPid
}

// Equal reports whether two Pids identify the same process.
func (p Pid) Equal(other Pid) bool {
	return p == other
}

// String renders a Pid as "<node-short>/<local>". Stable enough for logs
// and tests, not meant to be parsed back.
func (p Pid) String() string {
	if p.IsZero() {
		return "<nil>"
	}
	local := p.Local.String()
	if len(local) > 8 {
		local = local[:8]
	}
	return p.Node.ShortString() + "/" + local
}

// ============================================================================
//                              Scope - registration namespace
// ============================================================================

// Scope names an independent namespace of registrations and groups. Two
// scopes never interact: a name registered in one is invisible in another.
type Scope string

// DefaultScope is the scope used by the convenience overloads of the public
// API when the caller does not name one explicitly.
const DefaultScope Scope = "default"

// String returns the scope name.
func (s Scope) String() string {
	return string(s)
}

// ============================================================================
//                              Name / Meta - opaque user terms
// ============================================================================

// Name is the registry key a caller chooses to register a process under.
// It is an opaque, comparable value — mirroring the source system's use of
// arbitrary atoms/terms as registry keys — so it must be a value valid as a
// Go map key (registering under an unhashable value panics, just as
// registering under an unhashable Erlang term would be a caller error).
type Name = any

// GroupName is the key a caller chooses for a process group. Same
// comparability requirement as Name.
type GroupName = any

// Meta is an opaque payload a caller attaches to a registration or group
// membership. The registry never inspects it.
type Meta = any
