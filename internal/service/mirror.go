package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dptmirror/internal/domain"
	"dptmirror/internal/domain/models"
	"dptmirror/internal/domain/repositories"
	"dptmirror/internal/domain/services"
	"dptmirror/internal/tree"
)

type mirrorService struct {
	device    services.DeviceLister
	snapshots repositories.SnapshotRepository // nil disables archiving
	logger    *slog.Logger

	// mu serializes Rebuild against lookups; the tree itself is
	// single-threaded.
	mu   sync.RWMutex
	tree *tree.Tree
	last *services.SyncResult
}

// NewMirrorService creates the mirror service. snapshots may be nil when
// no database is configured.
func NewMirrorService(
	device services.DeviceLister,
	snapshots repositories.SnapshotRepository,
	logger *slog.Logger,
) services.MirrorService {
	return &mirrorService{
		device:    device,
		snapshots: snapshots,
		logger:    logger,
		tree:      tree.New(logger),
	}
}

// Sync fetches the listing, rebuilds the mirror, and archives the raw
// listing. A failed fetch, validation, or rebuild leaves the previous
// mirror published; a failed archive only logs (the mirror is current
// either way).
func (s *mirrorService) Sync(ctx context.Context) (*services.SyncResult, error) {
	records, err := s.device.ListEntries(ctx)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return nil, fmt.Errorf("%w: listing entry %d (%q): %v",
				domain.ErrValidation, i, records[i].EntryPath, err)
		}
	}

	s.mu.Lock()
	err = s.tree.Rebuild(records)
	var nodeCount int
	if err == nil {
		nodeCount = s.tree.Len()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := &services.SyncResult{
		EntryCount: len(records),
		NodeCount:  nodeCount,
		SyncedAt:   time.Now().UTC(),
	}

	if s.snapshots != nil {
		snapshot := &models.ListingSnapshot{
			TakenAt:    result.SyncedAt,
			EntryCount: len(records),
			Raw:        records,
		}
		if err := s.snapshots.Save(ctx, snapshot); err != nil {
			// Best effort: the mirror is already current.
			s.logger.Warn("failed to archive listing snapshot", "error", err)
		} else {
			result.SnapshotID = snapshot.ID
		}
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	s.logger.Info("device listing synced",
		"entries", result.EntryCount,
		"nodes", result.NodeCount,
		"snapshot_id", result.SnapshotID,
	)
	return result, nil
}

func (s *mirrorService) NodeByPath(path string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.NodeByPath(path)
}

func (s *mirrorService) Tree() (*tree.TreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Project()
}

func (s *mirrorService) Snapshots(ctx context.Context, limit int) ([]models.ListingSnapshot, error) {
	if s.snapshots == nil {
		return []models.ListingSnapshot{}, nil
	}
	return s.snapshots.List(ctx, limit)
}

func (s *mirrorService) LatestSnapshot(ctx context.Context) (*models.ListingSnapshot, error) {
	if s.snapshots == nil {
		return nil, fmt.Errorf("no snapshot store configured: %w", domain.ErrNotFound)
	}
	return s.snapshots.GetLatest(ctx)
}

func (s *mirrorService) LastSync() *services.SyncResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
