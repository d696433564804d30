package watcher

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventActiveChanged   EventType = "active_changed"
	EventSafeInfoUpdated EventType = "safe_info_updated"
	EventBalancesUpdated EventType = "balances_updated"
	EventFetchFailed     EventType = "fetch_failed"
)

// Event represents a monitoring event.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// FetchFailure is the payload of EventFetchFailed.
type FetchFailure struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
