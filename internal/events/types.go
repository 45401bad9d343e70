package events

import "time"

// RefreshRequested indicates the statistics view should be recomputed soon.
//
// Mutation paths publish this after every store write; the daemon's
// RefreshDebouncer coalesces bursts into a single RefreshNow. Not durable.
type RefreshRequested struct {
	Reason      string
	ItemID      string
	RequestedAt time.Time
}

// RefreshNow is emitted by the RefreshDebouncer once the quiet window (or
// max delay) elapses. Consumers recompute statistics exactly once per burst.
type RefreshNow struct {
	TriggeredAt   time.Time
	RequestCount  int
	LastReason    string
	LastItemID    string
	FirstRequest  time.Time
	LastRequest   time.Time
	DebounceCause string // "quiet" or "max_delay"
}

// CollectionChanged is published after adds and deletes so the change
// monitor can sync its tracked set without waiting for the next tick.
type CollectionChanged struct {
	Reason    string
	ItemID    string
	ChangedAt time.Time
}

// SweepCompleted reports the outcome of a cleanup sweep of stale used items.
type SweepCompleted struct {
	Deleted   int
	SweptAt   time.Time
	Triggered string // "schedule" or "manual"
}
