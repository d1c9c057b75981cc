// Package membership bridges a Transport's raw node-up/node-down channel
// onto the typed event bus, so a scope actor can learn about cluster
// membership changes without importing the transport package directly.
package membership
