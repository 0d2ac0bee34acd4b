// File: reactor/reactor.go
// Platform-neutral readiness-notification interface.

package reactor

// EventType is a bit set of readiness conditions reported for one descriptor.
type EventType uint8

const (
	// EventRead reports that a read or accept will not block.
	EventRead EventType = 1 << iota
	// EventError reports an error or hangup condition on the descriptor.
	EventError
)

// Event is one readiness notification.
type Event struct {
	Fd   int
	Type EventType
}

// Reactor watches a set of non-blocking descriptors for readiness.
type Reactor interface {
	// Register adds a descriptor to the watch set for read and error events.
	Register(fd int) error

	// Unregister removes a descriptor from the watch set.
	Unregister(fd int) error

	// Wait blocks until at least one registered descriptor is ready and
	// fills events. A signal interruption returns 0 events and no error.
	Wait(events []Event) (int, error)

	// Close releases the underlying polling resources.
	Close() error
}
