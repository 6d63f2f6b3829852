package core

// External collaborator contracts. The core depends on these but never
// implements them; concrete implementations are injected at construction
// time rather than constructed internally.

// NetworkTransport delivers point-to-point messages and answers
// reachability queries. Out of scope to implement here: production
// deployments inject a concrete transport (see package p2p for a
// libp2p-backed one).
type NetworkTransport interface {
	SendToNode(nodeID, messageID string) (bool, error)
	IsNodeReachable(nodeID string) (bool, error)
}

// DeliveryStatusStore persists per-recipient delivery status external to
// the retry service's in-memory tracking (e.g. a database projection for
// UI/audit use). Out of scope to implement here.
type DeliveryStatusStore interface {
	UpdateDeliveryStatus(messageID, recipientID string, status DeliveryStatus) error
}

// EventType enumerates the kinds a MessageEventEmitter accepts.
type EventType string

const (
	EventMessageStored    EventType = "message:stored"
	EventMessageReceived  EventType = "message:received"
	EventMessageDelivered EventType = "message:delivered"
	EventMessageFailed    EventType = "message:failed"
)

// MessageEventEmitter publishes terminal and lifecycle events for
// observers (UI, metrics, audit log). Out of scope to implement here.
type MessageEventEmitter interface {
	Emit(eventType EventType, metadata map[string]any)
}

// LocationIndex is a pluggable index keyed on the composite (nodeID,
// poolID): entries sharing a nodeID but differing in poolID coexist.
// Concrete persistence beyond the in-memory reference implementation
// (MemoryLocationIndex) is out of scope.
type LocationIndex interface {
	// Put records (or replaces) the location for (nodeID, poolID).
	Put(nodeID, poolID string, location NodeLocation) error
	// Get retrieves the location recorded for (nodeID, poolID).
	Get(nodeID, poolID string) (NodeLocation, error)
	// Delete removes the entry for (nodeID, poolID), failing with
	// ErrNotFound if absent.
	Delete(nodeID, poolID string) error
	// ListByPool returns every entry recorded under poolID.
	ListByPool(poolID string) ([]LocationEntry, error)
}
