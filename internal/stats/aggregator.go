// Package stats computes catalog engagement aggregations: the live overview
// served on demand and the persisted per-day rollups.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
)

const (
	overviewTopN = 10
	rollupTopN   = 5
)

// Aggregator derives statistics from the catalog store.
type Aggregator struct {
	store storage.Store
}

// NewAggregator returns an aggregator backed by the given store.
func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Overview computes the live aggregation: active counts, per-entity
// engagement totals and the top ten items of each type.
func (a *Aggregator) Overview(ctx context.Context) (*model.StatsOverview, error) {
	counts, err := a.store.ActiveCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("active counts: %w", err)
	}

	songTotals, err := a.store.SongTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("song totals: %w", err)
	}
	wpTotals, err := a.store.WallpaperTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallpaper totals: %w", err)
	}
	rtTotals, err := a.store.RingtoneTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("ringtone totals: %w", err)
	}

	topSongs, err := a.store.TopSongs(ctx, overviewTopN)
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}
	topWallpapers, err := a.store.TopWallpapers(ctx, overviewTopN)
	if err != nil {
		return nil, fmt.Errorf("top wallpapers: %w", err)
	}
	topRingtones, err := a.store.TopRingtones(ctx, overviewTopN)
	if err != nil {
		return nil, fmt.Errorf("top ringtones: %w", err)
	}

	return &model.StatsOverview{
		Counts:        counts,
		Songs:         songTotals,
		Wallpapers:    wpTotals,
		Ringtones:     rtTotals,
		TopSongs:      topSongs,
		TopWallpapers: topWallpapers,
		TopRingtones:  topRingtones,
	}, nil
}

// Rollup snapshots the current totals into the daily rollup for the given
// day and persists it. Running it twice for the same day overwrites the
// earlier snapshot, so the operation is safe to retry.
func (a *Aggregator) Rollup(ctx context.Context, day time.Time) (*model.DailyStats, error) {
	day = model.Day(day)

	songTotals, err := a.store.SongTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("song totals: %w", err)
	}
	wpTotals, err := a.store.WallpaperTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallpaper totals: %w", err)
	}
	rtTotals, err := a.store.RingtoneTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("ringtone totals: %w", err)
	}

	topSongs, err := a.store.TopSongs(ctx, rollupTopN)
	if err != nil {
		return nil, fmt.Errorf("top songs: %w", err)
	}
	topWallpapers, err := a.store.TopWallpapers(ctx, rollupTopN)
	if err != nil {
		return nil, fmt.Errorf("top wallpapers: %w", err)
	}
	topRingtones, err := a.store.TopRingtones(ctx, rollupTopN)
	if err != nil {
		return nil, fmt.Errorf("top ringtones: %w", err)
	}

	rollup := model.DailyStats{
		Date:          day,
		Songs:         songTotals,
		Wallpapers:    wpTotals,
		Ringtones:     rtTotals,
		TopSongs:      songEntries(topSongs),
		TopWallpapers: wallpaperEntries(topWallpapers),
		TopRingtones:  ringtoneEntries(topRingtones),
	}

	saved, err := a.store.UpsertDailyStats(ctx, rollup)
	if err != nil {
		return nil, fmt.Errorf("upsert daily stats: %w", err)
	}
	return saved, nil
}

// ForDay returns the persisted rollup for one day.
func (a *Aggregator) ForDay(ctx context.Context, day time.Time) (*model.DailyStats, error) {
	return a.store.GetDailyStats(ctx, model.Day(day))
}

// Range returns the persisted rollups between start and end inclusive,
// newest first.
func (a *Aggregator) Range(ctx context.Context, start, end time.Time) ([]model.DailyStats, error) {
	return a.store.ListDailyStats(ctx, model.Day(start), model.Day(end))
}

// Rollup top lists store only (id, metric) pairs; the metric is each entity
// type's primary engagement signal.

func songEntries(songs []model.Song) []model.TopEntry {
	entries := make([]model.TopEntry, 0, len(songs))
	for _, s := range songs {
		entries = append(entries, model.TopEntry{ID: s.ID, Value: s.Plays})
	}
	return entries
}

func wallpaperEntries(wps []model.Wallpaper) []model.TopEntry {
	entries := make([]model.TopEntry, 0, len(wps))
	for _, w := range wps {
		entries = append(entries, model.TopEntry{ID: w.ID, Value: w.Downloads})
	}
	return entries
}

func ringtoneEntries(rts []model.Ringtone) []model.TopEntry {
	entries := make([]model.TopEntry, 0, len(rts))
	for _, r := range rts {
		entries = append(entries, model.TopEntry{ID: r.ID, Value: r.Downloads})
	}
	return entries
}
