package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"dptmirror/internal/domain"
	"dptmirror/internal/domain/models"
	"dptmirror/internal/domain/repositories"
)

// snapshotRepository implements repositories.SnapshotRepository on
// Postgres, storing the raw listing as JSONB.
type snapshotRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSnapshotRepository creates a Postgres-backed snapshot repository.
func NewSnapshotRepository(cfg *RepositoryConfig) repositories.SnapshotRepository {
	return &snapshotRepository{
		pool:   cfg.Pool,
		tables: cfg.Tables,
		logger: cfg.Logger,
	}
}

// EnsureSchema creates the snapshot table when it does not exist yet.
func EnsureSchema(ctx context.Context, cfg *RepositoryConfig) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			taken_at TIMESTAMPTZ NOT NULL,
			entry_count INTEGER NOT NULL,
			raw JSONB NOT NULL
		)`, cfg.Tables.Snapshots)
	if _, err := cfg.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

func (r *snapshotRepository) Save(ctx context.Context, snapshot *models.ListingSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = time.Now().UTC()
	}

	raw, err := json.Marshal(snapshot.Raw)
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, taken_at, entry_count, raw)
		VALUES ($1, $2, $3, $4)`, r.tables.Snapshots)
	if _, err := r.pool.Exec(ctx, query, snapshot.ID, snapshot.TakenAt, snapshot.EntryCount, raw); err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("snapshot %s already archived: %w", snapshot.ID, err)
		}
		return fmt.Errorf("save snapshot: %w", err)
	}

	r.logger.Debug("listing snapshot archived",
		"id", snapshot.ID,
		"entry_count", snapshot.EntryCount,
	)
	return nil
}

func (r *snapshotRepository) GetLatest(ctx context.Context) (*models.ListingSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, taken_at, entry_count, raw
		FROM %s
		ORDER BY taken_at DESC
		LIMIT 1`, r.tables.Snapshots)

	var snapshot models.ListingSnapshot
	var raw []byte
	err := r.pool.QueryRow(ctx, query).Scan(&snapshot.ID, &snapshot.TakenAt, &snapshot.EntryCount, &raw)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("no snapshots archived: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, &snapshot.Raw); err != nil {
		return nil, fmt.Errorf("decode listing of snapshot %s: %w", snapshot.ID, err)
	}
	return &snapshot, nil
}

func (r *snapshotRepository) List(ctx context.Context, limit int) ([]models.ListingSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, taken_at, entry_count
		FROM %s
		ORDER BY taken_at DESC
		LIMIT $1`, r.tables.Snapshots)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]models.ListingSnapshot, 0, limit)
	for rows.Next() {
		var s models.ListingSnapshot
		if err := rows.Scan(&s.ID, &s.TakenAt, &s.EntryCount); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}
