// Package transport provides the interfaces.Transport implementations
// scope actors use to reach remote nodes.
//
// Memory is the only implementation: it wires simulated nodes together
// through a shared Network rather than a real socket, which is enough to
// exercise the full anti-entropy and conflict-resolution protocol in
// tests and the demo CLI without standing up an actual cluster.
package transport
