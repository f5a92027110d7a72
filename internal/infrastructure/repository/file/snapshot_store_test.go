package file

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
)

func TestSnapshotStore_LoadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore(filepath.Join(t.TempDir(), "missing.json"))
	_, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if found {
		t.Fatal("missing file must report not found, not an error")
	}
}

func TestSnapshotStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "standings.json")
	store := NewSnapshotStore(path)

	mergedAt := time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC)
	winner := "Alice Smith"
	snapshot := standings.Snapshot{
		SeriesInfo: standings.SeriesInfo{Name: "Test Series", TotalEvents: 7, QualifyingFrom: 1, QualifyingThrough: 6},
		Players: map[string]standings.Player{
			"Alice Smith": {
				Name:        "Alice Smith",
				WeightedAvg: 54.58,
				WeightedSum: 272.9,
				TotalLegs:   5,
				Qualified:   true,
				EventHistory: []standings.HistoryEntry{
					{EventID: 1, MatchID: "m1", MergedAt: mergedAt, ThreeDartAvg: 54.55, LegsPlayed: 2, LegsWon: 2},
				},
			},
		},
		Events: map[string]standings.Event{
			"1": {EventID: 1, Participants: []string{"Alice Smith"}, Winner: &winner, Completed: true},
		},
		MergedKeys:  map[string]time.Time{"1|m1|alice smith": mergedAt},
		LastUpdated: &mergedAt,
	}

	if err := store.Save(ctx, snapshot); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, found, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !found {
		t.Fatal("saved snapshot not found")
	}

	player, ok := loaded.Players["Alice Smith"]
	if !ok {
		t.Fatal("player missing from loaded snapshot")
	}
	if player.WeightedAvg != 54.58 || player.WeightedSum != 272.9 || player.TotalLegs != 5 {
		t.Fatalf("unexpected player aggregates: %+v", player)
	}
	if len(player.EventHistory) != 1 || !player.EventHistory[0].MergedAt.Equal(mergedAt) {
		t.Fatalf("unexpected history: %+v", player.EventHistory)
	}
	event := loaded.Events["1"]
	if event.Winner == nil || *event.Winner != "Alice Smith" || !event.Completed {
		t.Fatalf("unexpected event: %+v", event)
	}
	if _, ok := loaded.MergedKeys["1|m1|alice smith"]; !ok {
		t.Fatal("merged key index lost in round trip")
	}
}

func TestSnapshotStore_SaveReplacesAtomically(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "standings.json")
	store := NewSnapshotStore(path)

	first := standings.Snapshot{SeriesInfo: standings.SeriesInfo{Name: "v1", TotalEvents: 7}}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first Save error: %v", err)
	}
	second := standings.Snapshot{SeriesInfo: standings.SeriesInfo{Name: "v2", TotalEvents: 7}}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second Save error: %v", err)
	}

	loaded, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.SeriesInfo.Name != "v2" {
		t.Fatalf("loaded series = %q, want v2", loaded.SeriesInfo.Name)
	}

	matches, err := filepath.Glob(path + ".tmp-*")
	if err != nil {
		t.Fatalf("Glob error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}
