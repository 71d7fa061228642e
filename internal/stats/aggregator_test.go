package stats

import (
	"context"
	"testing"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
	"github.com/oklog/ulid/v2"
)

func seed(t *testing.T, store storage.Store) (model.Song, model.Wallpaper) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	song := model.Song{
		ID: ulid.Make().String(), Title: "Tizita", Artist: "A", Category: "Traditional",
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.CreateSong(ctx, song); err != nil {
		t.Fatal(err)
	}
	wp := model.Wallpaper{
		ID: ulid.Make().String(), Title: "Lalibela", Category: "Nature",
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.CreateWallpaper(ctx, wp); err != nil {
		t.Fatal(err)
	}
	return song, wp
}

func TestOverviewAggregates(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	song, wp := seed(t, store)

	for i := 0; i < 3; i++ {
		if _, err := store.IncrementSongStat(ctx, song.ID, "plays"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.IncrementWallpaperStat(ctx, wp.ID, "downloads"); err != nil {
		t.Fatal(err)
	}

	overview, err := NewAggregator(store).Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Counts.Songs != 1 || overview.Counts.Wallpapers != 1 || overview.Counts.Ringtones != 0 {
		t.Errorf("counts = %+v", overview.Counts)
	}
	if overview.Songs.TotalPlays != 3 {
		t.Errorf("totalPlays = %d, want 3", overview.Songs.TotalPlays)
	}
	if overview.Wallpapers.TotalDownloads != 1 {
		t.Errorf("wallpaper totalDownloads = %d, want 1", overview.Wallpapers.TotalDownloads)
	}
	if len(overview.TopSongs) != 1 || overview.TopSongs[0].ID != song.ID {
		t.Errorf("topSongs = %+v", overview.TopSongs)
	}
	if len(overview.TopRingtones) != 0 {
		t.Errorf("topRingtones = %+v, want empty", overview.TopRingtones)
	}
}

func TestRollupSnapshotsAndOverwrites(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	song, _ := seed(t, store)
	agg := NewAggregator(store)
	day := time.Date(2026, 8, 30, 13, 22, 0, 0, time.UTC)

	if _, err := store.IncrementSongStat(ctx, song.ID, "plays"); err != nil {
		t.Fatal(err)
	}
	first, err := agg.Rollup(ctx, day)
	if err != nil {
		t.Fatalf("first rollup: %v", err)
	}
	if !first.Date.Equal(model.Day(day)) {
		t.Errorf("rollup date not truncated: %v", first.Date)
	}
	if first.Songs.TotalPlays != 1 {
		t.Errorf("first totalPlays = %d, want 1", first.Songs.TotalPlays)
	}
	if len(first.TopSongs) != 1 || first.TopSongs[0].ID != song.ID || first.TopSongs[0].Value != 1 {
		t.Errorf("first topSongs = %+v", first.TopSongs)
	}

	for i := 0; i < 4; i++ {
		if _, err := store.IncrementSongStat(ctx, song.ID, "plays"); err != nil {
			t.Fatal(err)
		}
	}
	second, err := agg.Rollup(ctx, day)
	if err != nil {
		t.Fatalf("second rollup: %v", err)
	}
	if second.Songs.TotalPlays != 5 {
		t.Errorf("second totalPlays = %d, want 5", second.Songs.TotalPlays)
	}

	all, err := agg.Range(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("rollup rows = %d, want 1", len(all))
	}
}

func TestForDayMissingRollup(t *testing.T) {
	store := storage.NewMemory()
	agg := NewAggregator(store)
	if _, err := agg.ForDay(context.Background(), time.Now().UTC()); err == nil {
		t.Error("missing rollup returned no error")
	}
}
