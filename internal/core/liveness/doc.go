// Package liveness tracks the life/death of locally-hosted pids.
//
// A scope actor calls Register when a pid first appears on this node and
// Monitor/Demonitor as Names and Groups come to depend on its liveness.
// Each Monitor call gets its own ref and its own delivery channel, even
// for a pid already being watched by someone else — coalescing per
// invariant I3 (one shared monitor per (pid, scope, state-machine kind))
// is the caller's responsibility, not this package's: a scope machine
// that wants one shared monitor reuses the ref already stored on one of
// the pid's existing rows instead of calling Monitor again.
//
// Kill is how conflict resolution evicts a losing local pid: it
// synthesizes a DownEvent for every current monitor, carrying the losing
// registration's Name/Meta via ResolveKillInfo so Down handlers can log or
// recover it.
package liveness
