// Package model defines the data structures used throughout the catalog service.
// These structures represent the core domain objects for songs, wallpapers,
// ringtones, admin principals and daily statistics rollups.
package model

import (
	"time"
)

// Admin roles. The first principal ever registered is promoted to super_admin
// at creation time; the promotion is never re-evaluated afterwards.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Closed category sets per entity type. "All" on songs doubles as the
// no-filter sentinel on list queries.
var (
	SongCategories      = []string{"All", "Traditional", "Modern", "Instrumental", "Acoustic", "Live"}
	WallpaperCategories = []string{"Abstract", "Nature", "City", "Art", "Minimal", "Space"}
	RingtoneCategories  = []string{"Melodies", "Classic", "Alarms", "Notifications", "Traditional"}
)

// Engagement actions accepted by the public stats endpoint, mapped to the
// counter column they increment. Anything outside the map is a validation error.
var (
	SongStatActions      = map[string]string{"play": "plays", "download": "downloads", "favorite": "favorites", "share": "shares"}
	WallpaperStatActions = map[string]string{"download": "downloads", "set": "sets", "share": "shares"}
	RingtoneStatActions  = map[string]string{"play": "plays", "download": "downloads", "set": "sets", "share": "shares"}
)

// Song is a catalog audio item. Asset keys are the deletion handles returned by
// the hosted asset store; they are empty for externally hosted URLs.
type Song struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Artist        string    `json:"artist" db:"artist"`
	Category      string    `json:"category" db:"category"`
	ImageURL      string    `json:"imageUrl" db:"image_url"`
	AudioURL      string    `json:"audioUrl" db:"audio_url"`
	Duration      string    `json:"duration" db:"duration"` // "m:ss"
	Lyrics        string    `json:"lyrics" db:"lyrics"`
	Description   string    `json:"description" db:"description"`
	ImageAssetKey string    `json:"imageAssetKey,omitempty" db:"image_asset_key"`
	AudioAssetKey string    `json:"audioAssetKey,omitempty" db:"audio_asset_key"`
	Plays         int64     `json:"plays" db:"plays"`
	Downloads     int64     `json:"downloads" db:"downloads"`
	Favorites     int64     `json:"favorites" db:"favorites"`
	Shares        int64     `json:"shares" db:"shares"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Resolution is the pixel dimensions of a wallpaper image.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Wallpaper is a catalog image item. Views are incremented as a side effect of
// a single-item fetch; this is the only entity type whose reads mutate state.
type Wallpaper struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Category      string     `json:"category" db:"category"`
	ImageURL      string     `json:"imageUrl" db:"image_url"`
	ThumbnailURL  string     `json:"thumbnailUrl" db:"thumbnail_url"`
	Resolution    Resolution `json:"resolution" db:"resolution"`
	Tags          []string   `json:"tags" db:"tags"`
	ImageAssetKey string     `json:"imageAssetKey,omitempty" db:"image_asset_key"`
	Views         int64      `json:"views" db:"views"`
	Downloads     int64      `json:"downloads" db:"downloads"`
	Sets          int64      `json:"sets" db:"sets"`
	Shares        int64      `json:"shares" db:"shares"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	IsFeatured    bool       `json:"isFeatured" db:"is_featured"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// Ringtone is a short catalog audio item with a thumbnail.
type Ringtone struct {
	ID                string    `json:"id" db:"id"`
	Title             string    `json:"title" db:"title"`
	Artist            string    `json:"artist" db:"artist"`
	Category          string    `json:"category" db:"category"`
	ThumbnailURL      string    `json:"thumbnailUrl" db:"thumbnail_url"`
	AudioURL          string    `json:"audioUrl" db:"audio_url"`
	Duration          string    `json:"duration" db:"duration"`
	Description       string    `json:"description" db:"description"`
	ThumbnailAssetKey string    `json:"thumbnailAssetKey,omitempty" db:"thumbnail_asset_key"`
	AudioAssetKey     string    `json:"audioAssetKey,omitempty" db:"audio_asset_key"`
	Plays             int64     `json:"plays" db:"plays"`
	Downloads         int64     `json:"downloads" db:"downloads"`
	Sets              int64     `json:"sets" db:"sets"`
	Shares            int64     `json:"shares" db:"shares"`
	IsActive          bool      `json:"isActive" db:"is_active"`
	IsFeatured        bool      `json:"isFeatured" db:"is_featured"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// Admin is an authenticated administrative principal. The password hash never
// leaves the service.
type Admin struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// ListQuery captures the common listing parameters for catalog entities.
// Page is 1-based. Featured filters to featured items only when true.
type ListQuery struct {
	Category string `json:"category"`
	Search   string `json:"search"`
	Featured bool   `json:"featured"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

// SongTotals aggregates engagement counters over active songs.
type SongTotals struct {
	TotalPlays     int64 `json:"totalPlays"`
	TotalDownloads int64 `json:"totalDownloads"`
	TotalFavorites int64 `json:"totalFavorites"`
	TotalShares    int64 `json:"totalShares"`
}

// WallpaperTotals aggregates engagement counters over active wallpapers.
type WallpaperTotals struct {
	TotalViews     int64 `json:"totalViews"`
	TotalDownloads int64 `json:"totalDownloads"`
	TotalSets      int64 `json:"totalSets"`
	TotalShares    int64 `json:"totalShares"`
}

// RingtoneTotals aggregates engagement counters over active ringtones.
type RingtoneTotals struct {
	TotalPlays     int64 `json:"totalPlays"`
	TotalDownloads int64 `json:"totalDownloads"`
	TotalSets      int64 `json:"totalSets"`
	TotalShares    int64 `json:"totalShares"`
}

// TopEntry is one (entity id, metric value) pair in a rollup's top list.
type TopEntry struct {
	ID    string `json:"id"`
	Value int64  `json:"value"`
}

// EntityCounts holds the number of active documents per entity type.
type EntityCounts struct {
	Songs      int64 `json:"songs"`
	Wallpapers int64 `json:"wallpapers"`
	Ringtones  int64 `json:"ringtones"`
}

// StatsOverview is the live (non-persisted) aggregation served by the
// statistics overview endpoint.
type StatsOverview struct {
	Counts        EntityCounts    `json:"counts"`
	Songs         SongTotals      `json:"songs"`
	Wallpapers    WallpaperTotals `json:"wallpapers"`
	Ringtones     RingtoneTotals  `json:"ringtones"`
	TopSongs      []Song          `json:"topSongs"`
	TopWallpapers []Wallpaper     `json:"topWallpapers"`
	TopRingtones  []Ringtone      `json:"topRingtones"`
}

// DailyStats is the persisted rollup document for one calendar day.
// Date is truncated to midnight UTC and unique; re-running the rollup for the
// same day overwrites the previous values.
type DailyStats struct {
	Date          time.Time       `json:"date" db:"date"`
	Songs         SongTotals      `json:"songs" db:"songs"`
	Wallpapers    WallpaperTotals `json:"wallpapers" db:"wallpapers"`
	Ringtones     RingtoneTotals  `json:"ringtones" db:"ringtones"`
	TopSongs      []TopEntry      `json:"topSongs" db:"top_songs"`
	TopWallpapers []TopEntry      `json:"topWallpapers" db:"top_wallpapers"`
	TopRingtones  []TopEntry      `json:"topRingtones" db:"top_ringtones"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// RegisterRequest is the request body for registering an admin principal.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdatePasswordRequest is the request body for changing the current
// principal's password. The current password must be re-submitted.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// StatsActionRequest is the request body for the public engagement endpoint.
type StatsActionRequest struct {
	Action string `json:"action"`
}

// Day truncates t to midnight UTC, the key granularity for rollups.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
