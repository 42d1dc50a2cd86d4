package session

// SnapshotStore handles durable persistence of the session snapshot.
// There is one snapshot per install; the session service is its only writer.
type SnapshotStore interface {
	// Load returns the persisted snapshot, or ErrSnapshotNotFound when none
	// exists. A snapshot that cannot be decoded is cleared and reported as
	// ErrSnapshotCorrupt.
	Load() (*Snapshot, error)

	// Save atomically replaces the persisted snapshot.
	Save(sn *Snapshot) error

	// Clear removes the persisted snapshot. Clearing an absent snapshot is
	// not an error.
	Clear() error
}
