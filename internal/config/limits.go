package config

const (
	// MaxEntryPathLength is the maximum length of a listing entry path.
	// The reader allows fairly deep hierarchies; anything beyond this is
	// a malformed listing rather than a real path.
	MaxEntryPathLength = 1000

	// MaxEntryNameLength is the maximum length of a single entry name,
	// matching the device's own filename limit.
	MaxEntryNameLength = 255

	// DefaultSnapshotListLimit is how many archived listings the API
	// returns when no limit is given.
	DefaultSnapshotListLimit = 20

	// MaxSnapshotListLimit caps the snapshot listing page size.
	MaxSnapshotListLimit = 100
)
