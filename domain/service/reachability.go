package service

// Reachability is a fast local connectivity check consulted before any
// network attempt. It is a hint, not a round trip.
type Reachability interface {
	// IsReachable reports whether the network currently looks usable.
	IsReachable() bool
}
