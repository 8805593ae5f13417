package storage

// Store persists the full subscription mapping. Load returns a consistent
// snapshot of every subscriber; Save atomically replaces the whole mapping.
// There is deliberately no per-user mutation: an evaluation pass commits all
// of its changes in a single replace.
type Store interface {
	Load() (map[string]Subscription, error)
	Save(snapshot map[string]Subscription) error
}
