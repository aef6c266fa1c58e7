// Package services declares the service interfaces the handler layer
// depends on.
package services

import (
	"context"
	"time"

	"dptmirror/internal/domain/models"
	"dptmirror/internal/tree"
)

// DeviceLister is the device-facing dependency of the mirror: anything
// that can produce a complete flat listing.
type DeviceLister interface {
	ListEntries(ctx context.Context) ([]models.Record, error)
}

// SyncResult describes one completed sync.
type SyncResult struct {
	SnapshotID string    `json:"snapshot_id,omitempty"`
	EntryCount int       `json:"entry_count"`
	NodeCount  int       `json:"node_count"`
	SyncedAt   time.Time `json:"synced_at"`
}

// MirrorService owns the mirrored tree and serializes access to it.
type MirrorService interface {
	// Sync fetches the device listing, validates it, and rebuilds the
	// mirror. All-or-nothing: on failure the previous mirror stays
	// available.
	Sync(ctx context.Context) (*SyncResult, error)

	// NodeByPath resolves a full slash-delimited path to its node.
	// Returns domain.ErrNotBuilt before the first successful Sync and
	// domain.ErrNotFound for a missing path.
	NodeByPath(path string) (*models.Node, error)

	// Tree returns the nested projection of the current mirror.
	Tree() (*tree.TreeNode, error)

	// Snapshots lists archived listings, newest first. Empty when no
	// snapshot store is configured.
	Snapshots(ctx context.Context, limit int) ([]models.ListingSnapshot, error)

	// LatestSnapshot returns the most recent archived listing including
	// its raw records. domain.ErrNotFound when nothing has been archived
	// or no snapshot store is configured.
	LatestSnapshot(ctx context.Context) (*models.ListingSnapshot, error)

	// LastSync returns the result of the most recent successful Sync,
	// or nil.
	LastSync() *SyncResult
}
