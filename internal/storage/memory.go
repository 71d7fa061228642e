// In-memory implementation of the Store interface, used for development and
// tests. Behavior mirrors the PostgreSQL backend, including the active-only
// listing, newest-first ordering and atomic counter increments.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/model"
)

type memory struct {
	mu         sync.RWMutex
	songs      map[string]*model.Song
	wallpapers map[string]*model.Wallpaper
	ringtones  map[string]*model.Ringtone
	admins     map[string]*model.Admin
	rollups    map[time.Time]*model.DailyStats
}

// NewMemory creates a new in-memory store.
func NewMemory() Store {
	return &memory{
		songs:      make(map[string]*model.Song),
		wallpapers: make(map[string]*model.Wallpaper),
		ringtones:  make(map[string]*model.Ringtone),
		admins:     make(map[string]*model.Admin),
		rollups:    make(map[time.Time]*model.DailyStats),
	}
}

func (m *memory) Ping(ctx context.Context) error { return nil }

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate(total int, q model.ListQuery) (start, end int) {
	page, limit := ClampPage(q.Page, q.Limit)
	start = (page - 1) * limit
	if start > total {
		start = total
	}
	end = start + limit
	if end > total {
		end = total
	}
	return start, end
}

func (m *memory) CreateSong(ctx context.Context, song model.Song) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.songs[song.ID]; exists {
		return ErrConflict
	}
	copy := song
	m.songs[song.ID] = &copy
	return nil
}

func (m *memory) GetSong(ctx context.Context, id string) (*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	song, exists := m.songs[id]
	if !exists {
		return nil, ErrNotFound
	}
	copy := *song
	return &copy, nil
}

func (m *memory) UpdateSong(ctx context.Context, song model.Song) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.songs[song.ID]
	if !exists {
		return ErrNotFound
	}
	song.Plays = existing.Plays
	song.Downloads = existing.Downloads
	song.Favorites = existing.Favorites
	song.Shares = existing.Shares
	song.CreatedAt = existing.CreatedAt
	copy := song
	m.songs[song.ID] = &copy
	return nil
}

func (m *memory) DeleteSong(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.songs[id]; !exists {
		return ErrNotFound
	}
	delete(m.songs, id)
	return nil
}

func (m *memory) ListSongs(ctx context.Context, q model.ListQuery) ([]model.Song, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := []model.Song{}
	for _, s := range m.songs {
		if !s.IsActive {
			continue
		}
		if q.Category != "" && q.Category != "All" && s.Category != q.Category {
			continue
		}
		if q.Search != "" && !containsFold(s.Title, q.Search) && !containsFold(s.Artist, q.Search) {
			continue
		}
		filtered = append(filtered, *s)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID > filtered[j].ID
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := int64(len(filtered))
	start, end := paginate(len(filtered), q)
	return filtered[start:end], total, nil
}

func (m *memory) IncrementSongStat(ctx context.Context, id, field string) (*model.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	song, exists := m.songs[id]
	if !exists {
		return nil, ErrNotFound
	}
	switch field {
	case "plays":
		song.Plays++
	case "downloads":
		song.Downloads++
	case "favorites":
		song.Favorites++
	case "shares":
		song.Shares++
	default:
		return nil, ErrBadField
	}
	copy := *song
	return &copy, nil
}

func (m *memory) CreateWallpaper(ctx context.Context, wp model.Wallpaper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.wallpapers[wp.ID]; exists {
		return ErrConflict
	}
	if wp.Tags == nil {
		wp.Tags = []string{}
	}
	copy := wp
	m.wallpapers[wp.ID] = &copy
	return nil
}

func (m *memory) GetWallpaper(ctx context.Context, id string) (*model.Wallpaper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wp, exists := m.wallpapers[id]
	if !exists {
		return nil, ErrNotFound
	}
	copy := *wp
	return &copy, nil
}

func (m *memory) UpdateWallpaper(ctx context.Context, wp model.Wallpaper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.wallpapers[wp.ID]
	if !exists {
		return ErrNotFound
	}
	wp.Views = existing.Views
	wp.Downloads = existing.Downloads
	wp.Sets = existing.Sets
	wp.Shares = existing.Shares
	wp.CreatedAt = existing.CreatedAt
	if wp.Tags == nil {
		wp.Tags = []string{}
	}
	copy := wp
	m.wallpapers[wp.ID] = &copy
	return nil
}

func (m *memory) DeleteWallpaper(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.wallpapers[id]; !exists {
		return ErrNotFound
	}
	delete(m.wallpapers, id)
	return nil
}

func (m *memory) ListWallpapers(ctx context.Context, q model.ListQuery) ([]model.Wallpaper, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := []model.Wallpaper{}
	for _, w := range m.wallpapers {
		if !w.IsActive {
			continue
		}
		if q.Category != "" && q.Category != "All" && w.Category != q.Category {
			continue
		}
		if q.Featured && !w.IsFeatured {
			continue
		}
		if q.Search != "" && !containsFold(w.Title, q.Search) && !containsFold(strings.Join(w.Tags, " "), q.Search) {
			continue
		}
		filtered = append(filtered, *w)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID > filtered[j].ID
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := int64(len(filtered))
	start, end := paginate(len(filtered), q)
	return filtered[start:end], total, nil
}

func (m *memory) IncrementWallpaperStat(ctx context.Context, id, field string) (*model.Wallpaper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wp, exists := m.wallpapers[id]
	if !exists {
		return nil, ErrNotFound
	}
	switch field {
	case "views":
		wp.Views++
	case "downloads":
		wp.Downloads++
	case "sets":
		wp.Sets++
	case "shares":
		wp.Shares++
	default:
		return nil, ErrBadField
	}
	copy := *wp
	return &copy, nil
}

func (m *memory) CreateRingtone(ctx context.Context, rt model.Ringtone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.ringtones[rt.ID]; exists {
		return ErrConflict
	}
	copy := rt
	m.ringtones[rt.ID] = &copy
	return nil
}

func (m *memory) GetRingtone(ctx context.Context, id string) (*model.Ringtone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, exists := m.ringtones[id]
	if !exists {
		return nil, ErrNotFound
	}
	copy := *rt
	return &copy, nil
}

func (m *memory) UpdateRingtone(ctx context.Context, rt model.Ringtone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.ringtones[rt.ID]
	if !exists {
		return ErrNotFound
	}
	rt.Plays = existing.Plays
	rt.Downloads = existing.Downloads
	rt.Sets = existing.Sets
	rt.Shares = existing.Shares
	rt.CreatedAt = existing.CreatedAt
	copy := rt
	m.ringtones[rt.ID] = &copy
	return nil
}

func (m *memory) DeleteRingtone(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.ringtones[id]; !exists {
		return ErrNotFound
	}
	delete(m.ringtones, id)
	return nil
}

func (m *memory) ListRingtones(ctx context.Context, q model.ListQuery) ([]model.Ringtone, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := []model.Ringtone{}
	for _, r := range m.ringtones {
		if !r.IsActive {
			continue
		}
		if q.Category != "" && q.Category != "All" && r.Category != q.Category {
			continue
		}
		if q.Featured && !r.IsFeatured {
			continue
		}
		if q.Search != "" && !containsFold(r.Title, q.Search) && !containsFold(r.Artist, q.Search) {
			continue
		}
		filtered = append(filtered, *r)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID > filtered[j].ID
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := int64(len(filtered))
	start, end := paginate(len(filtered), q)
	return filtered[start:end], total, nil
}

func (m *memory) IncrementRingtoneStat(ctx context.Context, id, field string) (*model.Ringtone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, exists := m.ringtones[id]
	if !exists {
		return nil, ErrNotFound
	}
	switch field {
	case "plays":
		rt.Plays++
	case "downloads":
		rt.Downloads++
	case "sets":
		rt.Sets++
	case "shares":
		rt.Shares++
	default:
		return nil, ErrBadField
	}
	copy := *rt
	return &copy, nil
}

func (m *memory) CreateAdmin(ctx context.Context, admin model.Admin) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == admin.Email {
			return nil, ErrConflict
		}
	}
	if len(m.admins) == 0 {
		admin.Role = model.RoleSuperAdmin
	} else if admin.Role == "" {
		admin.Role = model.RoleAdmin
	}
	copy := admin
	m.admins[admin.ID] = &copy
	out := admin
	return &out, nil
}

func (m *memory) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.Email == email {
			copy := *a
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memory) GetAdminByID(ctx context.Context, id string) (*model.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	admin, exists := m.admins[id]
	if !exists {
		return nil, ErrNotFound
	}
	copy := *admin
	return &copy, nil
}

func (m *memory) CountAdmins(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.admins)), nil
}

func (m *memory) UpdateAdminLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, exists := m.admins[id]
	if !exists {
		return ErrNotFound
	}
	t := at
	admin.LastLogin = &t
	return nil
}

func (m *memory) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, exists := m.admins[id]
	if !exists {
		return ErrNotFound
	}
	admin.PasswordHash = passwordHash
	return nil
}

func (m *memory) ActiveCounts(ctx context.Context) (model.EntityCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var c model.EntityCounts
	for _, s := range m.songs {
		if s.IsActive {
			c.Songs++
		}
	}
	for _, w := range m.wallpapers {
		if w.IsActive {
			c.Wallpapers++
		}
	}
	for _, r := range m.ringtones {
		if r.IsActive {
			c.Ringtones++
		}
	}
	return c, nil
}

func (m *memory) SongTotals(ctx context.Context) (model.SongTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var t model.SongTotals
	for _, s := range m.songs {
		if !s.IsActive {
			continue
		}
		t.TotalPlays += s.Plays
		t.TotalDownloads += s.Downloads
		t.TotalFavorites += s.Favorites
		t.TotalShares += s.Shares
	}
	return t, nil
}

func (m *memory) WallpaperTotals(ctx context.Context) (model.WallpaperTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var t model.WallpaperTotals
	for _, w := range m.wallpapers {
		if !w.IsActive {
			continue
		}
		t.TotalViews += w.Views
		t.TotalDownloads += w.Downloads
		t.TotalSets += w.Sets
		t.TotalShares += w.Shares
	}
	return t, nil
}

func (m *memory) RingtoneTotals(ctx context.Context) (model.RingtoneTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var t model.RingtoneTotals
	for _, r := range m.ringtones {
		if !r.IsActive {
			continue
		}
		t.TotalPlays += r.Plays
		t.TotalDownloads += r.Downloads
		t.TotalSets += r.Sets
		t.TotalShares += r.Shares
	}
	return t, nil
}

func (m *memory) TopSongs(ctx context.Context, n int) ([]model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	songs := []model.Song{}
	for _, s := range m.songs {
		if s.IsActive {
			songs = append(songs, *s)
		}
	}
	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Plays == songs[j].Plays {
			return songs[i].ID < songs[j].ID
		}
		return songs[i].Plays > songs[j].Plays
	})
	if len(songs) > n {
		songs = songs[:n]
	}
	return songs, nil
}

func (m *memory) TopWallpapers(ctx context.Context, n int) ([]model.Wallpaper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wallpapers := []model.Wallpaper{}
	for _, w := range m.wallpapers {
		if w.IsActive {
			wallpapers = append(wallpapers, *w)
		}
	}
	sort.Slice(wallpapers, func(i, j int) bool {
		if wallpapers[i].Downloads == wallpapers[j].Downloads {
			return wallpapers[i].ID < wallpapers[j].ID
		}
		return wallpapers[i].Downloads > wallpapers[j].Downloads
	})
	if len(wallpapers) > n {
		wallpapers = wallpapers[:n]
	}
	return wallpapers, nil
}

func (m *memory) TopRingtones(ctx context.Context, n int) ([]model.Ringtone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ringtones := []model.Ringtone{}
	for _, r := range m.ringtones {
		if r.IsActive {
			ringtones = append(ringtones, *r)
		}
	}
	sort.Slice(ringtones, func(i, j int) bool {
		if ringtones[i].Downloads == ringtones[j].Downloads {
			return ringtones[i].ID < ringtones[j].ID
		}
		return ringtones[i].Downloads > ringtones[j].Downloads
	})
	if len(ringtones) > n {
		ringtones = ringtones[:n]
	}
	return ringtones, nil
}

func (m *memory) UpsertDailyStats(ctx context.Context, stats model.DailyStats) (*model.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats.Date = model.Day(stats.Date)
	if stats.TopSongs == nil {
		stats.TopSongs = []model.TopEntry{}
	}
	if stats.TopWallpapers == nil {
		stats.TopWallpapers = []model.TopEntry{}
	}
	if stats.TopRingtones == nil {
		stats.TopRingtones = []model.TopEntry{}
	}
	if existing, ok := m.rollups[stats.Date]; ok {
		stats.CreatedAt = existing.CreatedAt
	}
	copy := stats
	m.rollups[stats.Date] = &copy
	out := stats
	return &out, nil
}

func (m *memory) GetDailyStats(ctx context.Context, date time.Time) (*model.DailyStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats, exists := m.rollups[model.Day(date)]
	if !exists {
		return nil, ErrNotFound
	}
	copy := *stats
	return &copy, nil
}

func (m *memory) ListDailyStats(ctx context.Context, start, end time.Time) ([]model.DailyStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.DailyStats{}
	for _, d := range m.rollups {
		if !start.IsZero() && d.Date.Before(model.Day(start)) {
			continue
		}
		if !end.IsZero() && d.Date.After(model.Day(end)) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}
