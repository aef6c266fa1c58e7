// Package repositories declares the persistence interfaces the service
// layer depends on.
package repositories

import (
	"context"

	"dptmirror/internal/domain/models"
)

// SnapshotRepository archives the raw listings fetched from the device.
// The in-memory tree is never persisted; snapshots are an audit trail of
// what the device reported at each sync.
type SnapshotRepository interface {
	// Save archives one listing. A missing ID is assigned.
	Save(ctx context.Context, snapshot *models.ListingSnapshot) error

	// GetLatest returns the most recent snapshot including its raw
	// records, or domain.ErrNotFound when nothing has been archived.
	GetLatest(ctx context.Context) (*models.ListingSnapshot, error)

	// List returns up to limit snapshots, newest first, metadata only.
	List(ctx context.Context, limit int) ([]models.ListingSnapshot, error)
}
