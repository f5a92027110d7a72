package standings

import (
	"context"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/match"
)

// Store holds the running aggregates. Implementations must serialize
// merges: a merge is a read-modify-write over a player's cumulative fields
// and two concurrent merges for the same player must not interleave.
type Store interface {
	UpsertMatchRecord(ctx context.Context, record match.PlayerMatchRecord) error
	RecordEventWinner(ctx context.Context, eventID int, playerName string) error
	GetPlayer(ctx context.Context, name string) (Player, bool, error)
	GetEvent(ctx context.Context, eventID int) (Event, bool, error)
	Leaderboard(ctx context.Context, key SortKey) ([]RankedPlayer, error)
	QualifiedPlayers(ctx context.Context) ([]Player, error)
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (Snapshot, error)
	Restore(ctx context.Context, snapshot Snapshot) error
}

// Persistence is the durability collaborator. Save receives a complete
// snapshot and must replace the previous one atomically.
type Persistence interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snapshot Snapshot) error
}
