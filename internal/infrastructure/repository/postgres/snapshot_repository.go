package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
)

// SnapshotRepository persists the aggregation store snapshot as a single
// jsonb row, matching the file store's full-replace semantics: every save
// overwrites the previous snapshot in one statement.
type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Load(ctx context.Context) (standings.Snapshot, bool, error) {
	var payload []byte
	err := r.db.QueryRowxContext(ctx,
		`SELECT payload FROM store_snapshots WHERE id = 1`,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return standings.Snapshot{}, false, nil
	}
	if err != nil {
		return standings.Snapshot{}, false, fmt.Errorf("load snapshot row: %w", err)
	}

	var snapshot standings.Snapshot
	if err := sonic.Unmarshal(payload, &snapshot); err != nil {
		return standings.Snapshot{}, false, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return snapshot, true, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot standings.Snapshot) error {
	payload, err := sonic.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO store_snapshots (id, payload, updated_at)
VALUES (1, $1, NOW())
ON CONFLICT (id)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, payload)
	if err != nil {
		return fmt.Errorf("save snapshot row: %w", err)
	}
	return nil
}
