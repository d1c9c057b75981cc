// Package types - sentinel errors.
//
// Every error the registry's public operations can return is a package
// level sentinel, comparable with errors.Is, grouped by concern under a
// banner comment.
package types

import "errors"

// ============================================================================
//                              Registry outcomes
// ============================================================================

var (
	// ErrNotAlive is returned by register/join when the target pid is not
	// alive on its owning node.
	ErrNotAlive = errors.New("not_alive")

	// ErrTaken is returned by register when the name is already held by a
	// different pid.
	ErrTaken = errors.New("taken")

	// ErrRaceCondition is returned by unregister when a different pid than
	// the caller expected currently holds the name.
	ErrRaceCondition = errors.New("race_condition")

	// ErrUndefined is returned by unregister when nothing is registered
	// under the given name.
	ErrUndefined = errors.New("undefined")
)

// ============================================================================
//                              Scope errors
// ============================================================================

var (
	// ErrInvalidScope is a programming error: the caller addressed a scope
	// that was never created with NewScope. Surfaced as a panic at the
	// public API boundary, not as a normal return value.
	ErrInvalidScope = errors.New("invalid_scope")

	// ErrScopeExists is returned by NewScope when the scope already exists.
	ErrScopeExists = errors.New("scope already exists")
)

// ============================================================================
//                              Transport errors
// ============================================================================

var (
	// ErrPeerUnreachable is surfaced to a synchronous caller when the
	// remote scope actor cannot be reached.
	ErrPeerUnreachable = errors.New("peer unreachable")

	// ErrTransportClosed is returned by a Transport once it has been
	// closed.
	ErrTransportClosed = errors.New("transport closed")
)

// ============================================================================
//                              Process lifecycle errors
// ============================================================================

var (
	// ErrProcessNotFound is returned by a Liveness implementation when
	// asked about a pid it never saw registered locally.
	ErrProcessNotFound = errors.New("process not found")

	// ErrAlreadyMonitored is an internal consistency error: a duplicate
	// monitor was about to be installed for a pid that already has one.
	ErrAlreadyMonitored = errors.New("pid already monitored")
)

// ============================================================================
//                              Actor lifecycle errors
// ============================================================================

var (
	// ErrActorStopped is returned by an API call issued against a scope
	// actor that has already shut down.
	ErrActorStopped = errors.New("scope actor stopped")

	// ErrActorBusy is returned when an actor's mailbox is full and it
	// cannot accept another message (bounded-mailbox deployments only).
	ErrActorBusy = errors.New("scope actor mailbox full")
)
