// Package storage provides implementations of the Store interface for both
// in-memory and PostgreSQL backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/model"
)

// Standard errors returned by the storage layer
var (
	ErrNotFound    = errors.New("not found")             // No document with the given id
	ErrConflict    = errors.New("conflict")              // Unique constraint violated
	ErrUnavailable = errors.New("store unavailable")     // Backend unreachable
	ErrBadField    = errors.New("unknown counter field") // Increment target not in the column allow-list
)

// Store defines the storage operations required by the catalog service.
// Implemented by the PostgreSQL backend and by an in-memory twin used in
// development and tests.
type Store interface {
	// Song operations
	CreateSong(ctx context.Context, song model.Song) error
	GetSong(ctx context.Context, id string) (*model.Song, error)
	UpdateSong(ctx context.Context, song model.Song) error
	DeleteSong(ctx context.Context, id string) error
	ListSongs(ctx context.Context, q model.ListQuery) ([]model.Song, int64, error)
	IncrementSongStat(ctx context.Context, id, field string) (*model.Song, error)

	// Wallpaper operations
	CreateWallpaper(ctx context.Context, wp model.Wallpaper) error
	GetWallpaper(ctx context.Context, id string) (*model.Wallpaper, error)
	UpdateWallpaper(ctx context.Context, wp model.Wallpaper) error
	DeleteWallpaper(ctx context.Context, id string) error
	ListWallpapers(ctx context.Context, q model.ListQuery) ([]model.Wallpaper, int64, error)
	IncrementWallpaperStat(ctx context.Context, id, field string) (*model.Wallpaper, error)

	// Ringtone operations
	CreateRingtone(ctx context.Context, rt model.Ringtone) error
	GetRingtone(ctx context.Context, id string) (*model.Ringtone, error)
	UpdateRingtone(ctx context.Context, rt model.Ringtone) error
	DeleteRingtone(ctx context.Context, id string) error
	ListRingtones(ctx context.Context, q model.ListQuery) ([]model.Ringtone, int64, error)
	IncrementRingtoneStat(ctx context.Context, id, field string) (*model.Ringtone, error)

	// Admin operations. CreateAdmin decides the first-admin promotion
	// atomically: when no principal exists yet the stored role is super_admin
	// regardless of the requested one.
	CreateAdmin(ctx context.Context, admin model.Admin) (*model.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetAdminByID(ctx context.Context, id string) (*model.Admin, error)
	CountAdmins(ctx context.Context) (int64, error)
	UpdateAdminLogin(ctx context.Context, id string, at time.Time) error
	UpdateAdminPassword(ctx context.Context, id, passwordHash string) error

	// Aggregation over active documents
	ActiveCounts(ctx context.Context) (model.EntityCounts, error)
	SongTotals(ctx context.Context) (model.SongTotals, error)
	WallpaperTotals(ctx context.Context) (model.WallpaperTotals, error)
	RingtoneTotals(ctx context.Context) (model.RingtoneTotals, error)
	TopSongs(ctx context.Context, n int) ([]model.Song, error)
	TopWallpapers(ctx context.Context, n int) ([]model.Wallpaper, error)
	TopRingtones(ctx context.Context, n int) ([]model.Ringtone, error)

	// Daily rollups, keyed by midnight-UTC date. Upsert overwrites.
	UpsertDailyStats(ctx context.Context, stats model.DailyStats) (*model.DailyStats, error)
	GetDailyStats(ctx context.Context, date time.Time) (*model.DailyStats, error)
	ListDailyStats(ctx context.Context, start, end time.Time) ([]model.DailyStats, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Default limits for list operations
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampPage normalizes page/limit query values: page is at least 1, limit
// falls back to the default and is capped at the maximum.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultListLimit
	} else if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return page, limit
}
