// PostgreSQL implementation of the Store interface, intended for production
// use. Catalog documents are flat rows with JSONB columns for the nested
// pieces (wallpaper resolution/tags, rollup blocks).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Advisory lock key serializing first-admin creation.
const adminCreateLockKey = 7741

type postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates the PostgreSQL store. It establishes a connection pool
// eagerly, pings it, and initializes the schema, so a misconfigured database
// fails at startup rather than on first request.
func NewPostgres(dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgres{db: pool}, nil
}

// initSchema creates all required tables and indexes if they do not exist.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		CREATE TABLE IF NOT EXISTS songs (
		    id TEXT PRIMARY KEY,
		    title TEXT NOT NULL,
		    artist TEXT NOT NULL,
		    category TEXT NOT NULL DEFAULT 'All',
		    image_url TEXT NOT NULL DEFAULT '',
		    audio_url TEXT NOT NULL DEFAULT '',
		    duration TEXT NOT NULL DEFAULT '0:00',
		    lyrics TEXT NOT NULL DEFAULT '',
		    description TEXT NOT NULL DEFAULT '',
		    image_asset_key TEXT NOT NULL DEFAULT '',
		    audio_asset_key TEXT NOT NULL DEFAULT '',
		    plays BIGINT NOT NULL DEFAULT 0,
		    downloads BIGINT NOT NULL DEFAULT 0,
		    favorites BIGINT NOT NULL DEFAULT 0,
		    shares BIGINT NOT NULL DEFAULT 0,
		    is_active BOOLEAN NOT NULL DEFAULT TRUE,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_songs_category ON songs(category);
		CREATE INDEX IF NOT EXISTS idx_songs_created_at ON songs(created_at DESC);

		CREATE TABLE IF NOT EXISTS wallpapers (
		    id TEXT PRIMARY KEY,
		    title TEXT NOT NULL,
		    category TEXT NOT NULL DEFAULT 'Abstract',
		    image_url TEXT NOT NULL DEFAULT '',
		    thumbnail_url TEXT NOT NULL DEFAULT '',
		    resolution JSONB NOT NULL DEFAULT '{}',
		    tags JSONB NOT NULL DEFAULT '[]',
		    image_asset_key TEXT NOT NULL DEFAULT '',
		    views BIGINT NOT NULL DEFAULT 0,
		    downloads BIGINT NOT NULL DEFAULT 0,
		    sets BIGINT NOT NULL DEFAULT 0,
		    shares BIGINT NOT NULL DEFAULT 0,
		    is_active BOOLEAN NOT NULL DEFAULT TRUE,
		    is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_wallpapers_category ON wallpapers(category);
		CREATE INDEX IF NOT EXISTS idx_wallpapers_featured ON wallpapers(is_featured);
		CREATE INDEX IF NOT EXISTS idx_wallpapers_created_at ON wallpapers(created_at DESC);

		CREATE TABLE IF NOT EXISTS ringtones (
		    id TEXT PRIMARY KEY,
		    title TEXT NOT NULL,
		    artist TEXT NOT NULL DEFAULT '',
		    category TEXT NOT NULL DEFAULT 'Melodies',
		    thumbnail_url TEXT NOT NULL DEFAULT '',
		    audio_url TEXT NOT NULL DEFAULT '',
		    duration TEXT NOT NULL DEFAULT '0:00',
		    description TEXT NOT NULL DEFAULT '',
		    thumbnail_asset_key TEXT NOT NULL DEFAULT '',
		    audio_asset_key TEXT NOT NULL DEFAULT '',
		    plays BIGINT NOT NULL DEFAULT 0,
		    downloads BIGINT NOT NULL DEFAULT 0,
		    sets BIGINT NOT NULL DEFAULT 0,
		    shares BIGINT NOT NULL DEFAULT 0,
		    is_active BOOLEAN NOT NULL DEFAULT TRUE,
		    is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ringtones_category ON ringtones(category);
		CREATE INDEX IF NOT EXISTS idx_ringtones_created_at ON ringtones(created_at DESC);

		CREATE TABLE IF NOT EXISTS admins (
		    id TEXT PRIMARY KEY,
		    email TEXT NOT NULL UNIQUE,
		    password_hash TEXT NOT NULL,
		    name TEXT NOT NULL,
		    role TEXT NOT NULL DEFAULT 'admin',
		    is_active BOOLEAN NOT NULL DEFAULT TRUE,
		    last_login TIMESTAMP WITH TIME ZONE,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS daily_stats (
		    date DATE PRIMARY KEY,
		    songs JSONB NOT NULL DEFAULT '{}',
		    wallpapers JSONB NOT NULL DEFAULT '{}',
		    ringtones JSONB NOT NULL DEFAULT '{}',
		    top_songs JSONB NOT NULL DEFAULT '[]',
		    top_wallpapers JSONB NOT NULL DEFAULT '[]',
		    top_ringtones JSONB NOT NULL DEFAULT '[]',
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_daily_stats_date ON daily_stats(date DESC);
	`
	_, err := db.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (p *postgres) Close() {
	p.db.Close()
}

// Ping reports backend reachability.
func (p *postgres) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", ErrUnavailable)
	}
	return nil
}

// classify maps driver errors onto the storage error taxonomy: unique
// violations become ErrConflict, connection-class failures become
// ErrUnavailable so handlers can answer 503.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Counter columns that the increment operations may touch. Interpolating a
// column name into SQL is only done after this allow-list check.
var (
	songCounterCols      = map[string]bool{"plays": true, "downloads": true, "favorites": true, "shares": true}
	wallpaperCounterCols = map[string]bool{"views": true, "downloads": true, "sets": true, "shares": true}
	ringtoneCounterCols  = map[string]bool{"plays": true, "downloads": true, "sets": true, "shares": true}
)

const songCols = `id, title, artist, category, image_url, audio_url, duration, lyrics, description,
	image_asset_key, audio_asset_key, plays, downloads, favorites, shares, is_active, created_at, updated_at`

func scanSong(row pgx.Row) (*model.Song, error) {
	var s model.Song
	err := row.Scan(&s.ID, &s.Title, &s.Artist, &s.Category, &s.ImageURL, &s.AudioURL, &s.Duration,
		&s.Lyrics, &s.Description, &s.ImageAssetKey, &s.AudioAssetKey,
		&s.Plays, &s.Downloads, &s.Favorites, &s.Shares, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *postgres) CreateSong(ctx context.Context, song model.Song) error {
	query := `INSERT INTO songs (` + songCols + `)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := p.db.Exec(ctx, query, song.ID, song.Title, song.Artist, song.Category,
		song.ImageURL, song.AudioURL, song.Duration, song.Lyrics, song.Description,
		song.ImageAssetKey, song.AudioAssetKey,
		song.Plays, song.Downloads, song.Favorites, song.Shares,
		song.IsActive, song.CreatedAt, song.UpdatedAt)
	if err != nil {
		return classify("create song", err)
	}
	return nil
}

func (p *postgres) GetSong(ctx context.Context, id string) (*model.Song, error) {
	song, err := scanSong(p.db.QueryRow(ctx, `SELECT `+songCols+` FROM songs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get song", err)
	}
	return song, nil
}

func (p *postgres) UpdateSong(ctx context.Context, song model.Song) error {
	query := `UPDATE songs SET title=$2, artist=$3, category=$4, image_url=$5, audio_url=$6,
	          duration=$7, lyrics=$8, description=$9, image_asset_key=$10, audio_asset_key=$11,
	          is_active=$12, updated_at=$13 WHERE id=$1`
	tag, err := p.db.Exec(ctx, query, song.ID, song.Title, song.Artist, song.Category,
		song.ImageURL, song.AudioURL, song.Duration, song.Lyrics, song.Description,
		song.ImageAssetKey, song.AudioAssetKey, song.IsActive, song.UpdatedAt)
	if err != nil {
		return classify("update song", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) DeleteSong(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return classify("delete song", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) ListSongs(ctx context.Context, q model.ListQuery) ([]model.Song, int64, error) {
	where := ` WHERE is_active = TRUE`
	args := []interface{}{}
	argIndex := 1

	if q.Category != "" && q.Category != "All" {
		where += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, q.Category)
		argIndex++
	}
	if q.Search != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d OR artist ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+q.Search+"%")
		argIndex++
	}

	var total int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM songs`+where, args...).Scan(&total); err != nil {
		return nil, 0, classify("count songs", err)
	}

	page, limit := ClampPage(q.Page, q.Limit)
	query := `SELECT ` + songCols + ` FROM songs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list songs", err)
	}
	defer rows.Close()

	songs := []model.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("list songs", err)
	}
	return songs, total, nil
}

func (p *postgres) IncrementSongStat(ctx context.Context, id, field string) (*model.Song, error) {
	if !songCounterCols[field] {
		return nil, ErrBadField
	}
	query := fmt.Sprintf(`UPDATE songs SET %s = %s + 1 WHERE id = $1 RETURNING `+songCols, field, field)
	song, err := scanSong(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("increment song stat", err)
	}
	return song, nil
}

const wallpaperCols = `id, title, category, image_url, thumbnail_url, resolution, tags,
	image_asset_key, views, downloads, sets, shares, is_active, is_featured, created_at, updated_at`

func scanWallpaper(row pgx.Row) (*model.Wallpaper, error) {
	var w model.Wallpaper
	var resolution, tags []byte
	err := row.Scan(&w.ID, &w.Title, &w.Category, &w.ImageURL, &w.ThumbnailURL, &resolution, &tags,
		&w.ImageAssetKey, &w.Views, &w.Downloads, &w.Sets, &w.Shares,
		&w.IsActive, &w.IsFeatured, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resolution, &w.Resolution); err != nil {
		return nil, fmt.Errorf("unmarshal resolution: %w", err)
	}
	if err := json.Unmarshal(tags, &w.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &w, nil
}

func (p *postgres) CreateWallpaper(ctx context.Context, wp model.Wallpaper) error {
	resolution, err := json.Marshal(wp.Resolution)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	if wp.Tags == nil {
		wp.Tags = []string{}
	}
	tags, err := json.Marshal(wp.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := `INSERT INTO wallpapers (` + wallpaperCols + `)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err = p.db.Exec(ctx, query, wp.ID, wp.Title, wp.Category, wp.ImageURL, wp.ThumbnailURL,
		resolution, tags, wp.ImageAssetKey, wp.Views, wp.Downloads, wp.Sets, wp.Shares,
		wp.IsActive, wp.IsFeatured, wp.CreatedAt, wp.UpdatedAt)
	if err != nil {
		return classify("create wallpaper", err)
	}
	return nil
}

func (p *postgres) GetWallpaper(ctx context.Context, id string) (*model.Wallpaper, error) {
	wp, err := scanWallpaper(p.db.QueryRow(ctx, `SELECT `+wallpaperCols+` FROM wallpapers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get wallpaper", err)
	}
	return wp, nil
}

func (p *postgres) UpdateWallpaper(ctx context.Context, wp model.Wallpaper) error {
	resolution, err := json.Marshal(wp.Resolution)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	if wp.Tags == nil {
		wp.Tags = []string{}
	}
	tags, err := json.Marshal(wp.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := `UPDATE wallpapers SET title=$2, category=$3, image_url=$4, thumbnail_url=$5,
	          resolution=$6, tags=$7, image_asset_key=$8, is_active=$9, is_featured=$10,
	          updated_at=$11 WHERE id=$1`
	tag, err := p.db.Exec(ctx, query, wp.ID, wp.Title, wp.Category, wp.ImageURL, wp.ThumbnailURL,
		resolution, tags, wp.ImageAssetKey, wp.IsActive, wp.IsFeatured, wp.UpdatedAt)
	if err != nil {
		return classify("update wallpaper", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) DeleteWallpaper(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM wallpapers WHERE id = $1`, id)
	if err != nil {
		return classify("delete wallpaper", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) ListWallpapers(ctx context.Context, q model.ListQuery) ([]model.Wallpaper, int64, error) {
	where := ` WHERE is_active = TRUE`
	args := []interface{}{}
	argIndex := 1

	if q.Category != "" && q.Category != "All" {
		where += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, q.Category)
		argIndex++
	}
	if q.Featured {
		where += " AND is_featured = TRUE"
	}
	if q.Search != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d OR tags::text ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+q.Search+"%")
		argIndex++
	}

	var total int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM wallpapers`+where, args...).Scan(&total); err != nil {
		return nil, 0, classify("count wallpapers", err)
	}

	page, limit := ClampPage(q.Page, q.Limit)
	query := `SELECT ` + wallpaperCols + ` FROM wallpapers` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list wallpapers", err)
	}
	defer rows.Close()

	wallpapers := []model.Wallpaper{}
	for rows.Next() {
		w, err := scanWallpaper(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan wallpaper: %w", err)
		}
		wallpapers = append(wallpapers, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("list wallpapers", err)
	}
	return wallpapers, total, nil
}

func (p *postgres) IncrementWallpaperStat(ctx context.Context, id, field string) (*model.Wallpaper, error) {
	if !wallpaperCounterCols[field] {
		return nil, ErrBadField
	}
	query := fmt.Sprintf(`UPDATE wallpapers SET %s = %s + 1 WHERE id = $1 RETURNING `+wallpaperCols, field, field)
	wp, err := scanWallpaper(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("increment wallpaper stat", err)
	}
	return wp, nil
}

const ringtoneCols = `id, title, artist, category, thumbnail_url, audio_url, duration, description,
	thumbnail_asset_key, audio_asset_key, plays, downloads, sets, shares, is_active, is_featured, created_at, updated_at`

func scanRingtone(row pgx.Row) (*model.Ringtone, error) {
	var r model.Ringtone
	err := row.Scan(&r.ID, &r.Title, &r.Artist, &r.Category, &r.ThumbnailURL, &r.AudioURL,
		&r.Duration, &r.Description, &r.ThumbnailAssetKey, &r.AudioAssetKey,
		&r.Plays, &r.Downloads, &r.Sets, &r.Shares, &r.IsActive, &r.IsFeatured, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *postgres) CreateRingtone(ctx context.Context, rt model.Ringtone) error {
	query := `INSERT INTO ringtones (` + ringtoneCols + `)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := p.db.Exec(ctx, query, rt.ID, rt.Title, rt.Artist, rt.Category, rt.ThumbnailURL,
		rt.AudioURL, rt.Duration, rt.Description, rt.ThumbnailAssetKey, rt.AudioAssetKey,
		rt.Plays, rt.Downloads, rt.Sets, rt.Shares, rt.IsActive, rt.IsFeatured, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return classify("create ringtone", err)
	}
	return nil
}

func (p *postgres) GetRingtone(ctx context.Context, id string) (*model.Ringtone, error) {
	rt, err := scanRingtone(p.db.QueryRow(ctx, `SELECT `+ringtoneCols+` FROM ringtones WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get ringtone", err)
	}
	return rt, nil
}

func (p *postgres) UpdateRingtone(ctx context.Context, rt model.Ringtone) error {
	query := `UPDATE ringtones SET title=$2, artist=$3, category=$4, thumbnail_url=$5, audio_url=$6,
	          duration=$7, description=$8, thumbnail_asset_key=$9, audio_asset_key=$10,
	          is_active=$11, is_featured=$12, updated_at=$13 WHERE id=$1`
	tag, err := p.db.Exec(ctx, query, rt.ID, rt.Title, rt.Artist, rt.Category, rt.ThumbnailURL,
		rt.AudioURL, rt.Duration, rt.Description, rt.ThumbnailAssetKey, rt.AudioAssetKey,
		rt.IsActive, rt.IsFeatured, rt.UpdatedAt)
	if err != nil {
		return classify("update ringtone", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) DeleteRingtone(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM ringtones WHERE id = $1`, id)
	if err != nil {
		return classify("delete ringtone", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) ListRingtones(ctx context.Context, q model.ListQuery) ([]model.Ringtone, int64, error) {
	where := ` WHERE is_active = TRUE`
	args := []interface{}{}
	argIndex := 1

	if q.Category != "" && q.Category != "All" {
		where += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, q.Category)
		argIndex++
	}
	if q.Featured {
		where += " AND is_featured = TRUE"
	}
	if q.Search != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d OR artist ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+q.Search+"%")
		argIndex++
	}

	var total int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM ringtones`+where, args...).Scan(&total); err != nil {
		return nil, 0, classify("count ringtones", err)
	}

	page, limit := ClampPage(q.Page, q.Limit)
	query := `SELECT ` + ringtoneCols + ` FROM ringtones` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list ringtones", err)
	}
	defer rows.Close()

	ringtones := []model.Ringtone{}
	for rows.Next() {
		r, err := scanRingtone(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ringtone: %w", err)
		}
		ringtones = append(ringtones, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("list ringtones", err)
	}
	return ringtones, total, nil
}

func (p *postgres) IncrementRingtoneStat(ctx context.Context, id, field string) (*model.Ringtone, error) {
	if !ringtoneCounterCols[field] {
		return nil, ErrBadField
	}
	query := fmt.Sprintf(`UPDATE ringtones SET %s = %s + 1 WHERE id = $1 RETURNING `+ringtoneCols, field, field)
	rt, err := scanRingtone(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("increment ringtone stat", err)
	}
	return rt, nil
}

const adminCols = `id, email, password_hash, name, role, is_active, last_login, created_at`

func scanAdmin(row pgx.Row) (*model.Admin, error) {
	var a model.Admin
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.IsActive, &a.LastLogin, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAdmin inserts a principal. The first-admin promotion is decided under
// an advisory transaction lock so two concurrent first registrations cannot
// both become super_admin.
func (p *postgres) CreateAdmin(ctx context.Context, admin model.Admin) (*model.Admin, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, classify("create admin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, adminCreateLockKey); err != nil {
		return nil, classify("create admin", err)
	}

	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return nil, classify("create admin", err)
	}
	if count == 0 {
		admin.Role = model.RoleSuperAdmin
	} else if admin.Role == "" {
		admin.Role = model.RoleAdmin
	}

	query := `INSERT INTO admins (` + adminCols + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err = tx.Exec(ctx, query, admin.ID, admin.Email, admin.PasswordHash, admin.Name,
		admin.Role, admin.IsActive, admin.LastLogin, admin.CreatedAt)
	if err != nil {
		return nil, classify("create admin", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("create admin", err)
	}
	return &admin, nil
}

func (p *postgres) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	admin, err := scanAdmin(p.db.QueryRow(ctx, `SELECT `+adminCols+` FROM admins WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get admin by email", err)
	}
	return admin, nil
}

func (p *postgres) GetAdminByID(ctx context.Context, id string) (*model.Admin, error) {
	admin, err := scanAdmin(p.db.QueryRow(ctx, `SELECT `+adminCols+` FROM admins WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get admin by id", err)
	}
	return admin, nil
}

func (p *postgres) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, classify("count admins", err)
	}
	return count, nil
}

func (p *postgres) UpdateAdminLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := p.db.Exec(ctx, `UPDATE admins SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return classify("update admin login", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	tag, err := p.db.Exec(ctx, `UPDATE admins SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return classify("update admin password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgres) ActiveCounts(ctx context.Context) (model.EntityCounts, error) {
	var c model.EntityCounts
	query := `SELECT
		(SELECT COUNT(*) FROM songs WHERE is_active),
		(SELECT COUNT(*) FROM wallpapers WHERE is_active),
		(SELECT COUNT(*) FROM ringtones WHERE is_active)`
	if err := p.db.QueryRow(ctx, query).Scan(&c.Songs, &c.Wallpapers, &c.Ringtones); err != nil {
		return c, classify("active counts", err)
	}
	return c, nil
}

func (p *postgres) SongTotals(ctx context.Context) (model.SongTotals, error) {
	var t model.SongTotals
	query := `SELECT COALESCE(SUM(plays),0), COALESCE(SUM(downloads),0),
	          COALESCE(SUM(favorites),0), COALESCE(SUM(shares),0) FROM songs WHERE is_active`
	if err := p.db.QueryRow(ctx, query).Scan(&t.TotalPlays, &t.TotalDownloads, &t.TotalFavorites, &t.TotalShares); err != nil {
		return t, classify("song totals", err)
	}
	return t, nil
}

func (p *postgres) WallpaperTotals(ctx context.Context) (model.WallpaperTotals, error) {
	var t model.WallpaperTotals
	query := `SELECT COALESCE(SUM(views),0), COALESCE(SUM(downloads),0),
	          COALESCE(SUM(sets),0), COALESCE(SUM(shares),0) FROM wallpapers WHERE is_active`
	if err := p.db.QueryRow(ctx, query).Scan(&t.TotalViews, &t.TotalDownloads, &t.TotalSets, &t.TotalShares); err != nil {
		return t, classify("wallpaper totals", err)
	}
	return t, nil
}

func (p *postgres) RingtoneTotals(ctx context.Context) (model.RingtoneTotals, error) {
	var t model.RingtoneTotals
	query := `SELECT COALESCE(SUM(plays),0), COALESCE(SUM(downloads),0),
	          COALESCE(SUM(sets),0), COALESCE(SUM(shares),0) FROM ringtones WHERE is_active`
	if err := p.db.QueryRow(ctx, query).Scan(&t.TotalPlays, &t.TotalDownloads, &t.TotalSets, &t.TotalShares); err != nil {
		return t, classify("ringtone totals", err)
	}
	return t, nil
}

func (p *postgres) TopSongs(ctx context.Context, n int) ([]model.Song, error) {
	rows, err := p.db.Query(ctx, `SELECT `+songCols+` FROM songs WHERE is_active ORDER BY plays DESC, id ASC LIMIT $1`, n)
	if err != nil {
		return nil, classify("top songs", err)
	}
	defer rows.Close()

	songs := []model.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, *s)
	}
	return songs, rows.Err()
}

func (p *postgres) TopWallpapers(ctx context.Context, n int) ([]model.Wallpaper, error) {
	rows, err := p.db.Query(ctx, `SELECT `+wallpaperCols+` FROM wallpapers WHERE is_active ORDER BY downloads DESC, id ASC LIMIT $1`, n)
	if err != nil {
		return nil, classify("top wallpapers", err)
	}
	defer rows.Close()

	wallpapers := []model.Wallpaper{}
	for rows.Next() {
		w, err := scanWallpaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallpaper: %w", err)
		}
		wallpapers = append(wallpapers, *w)
	}
	return wallpapers, rows.Err()
}

func (p *postgres) TopRingtones(ctx context.Context, n int) ([]model.Ringtone, error) {
	rows, err := p.db.Query(ctx, `SELECT `+ringtoneCols+` FROM ringtones WHERE is_active ORDER BY downloads DESC, id ASC LIMIT $1`, n)
	if err != nil {
		return nil, classify("top ringtones", err)
	}
	defer rows.Close()

	ringtones := []model.Ringtone{}
	for rows.Next() {
		r, err := scanRingtone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ringtone: %w", err)
		}
		ringtones = append(ringtones, *r)
	}
	return ringtones, rows.Err()
}

const dailyStatsCols = `date, songs, wallpapers, ringtones, top_songs, top_wallpapers, top_ringtones, created_at`

func scanDailyStats(row pgx.Row) (*model.DailyStats, error) {
	var d model.DailyStats
	var songs, wallpapers, ringtones, topSongs, topWallpapers, topRingtones []byte
	err := row.Scan(&d.Date, &songs, &wallpapers, &ringtones, &topSongs, &topWallpapers, &topRingtones, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw []byte
		dst interface{}
	}{
		{songs, &d.Songs}, {wallpapers, &d.Wallpapers}, {ringtones, &d.Ringtones},
		{topSongs, &d.TopSongs}, {topWallpapers, &d.TopWallpapers}, {topRingtones, &d.TopRingtones},
	} {
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return nil, fmt.Errorf("unmarshal rollup block: %w", err)
		}
	}
	// DATE columns come back in local midnight; normalize to UTC day
	d.Date = model.Day(d.Date)
	return &d, nil
}

func marshalDailyStats(stats model.DailyStats) ([][]byte, error) {
	if stats.TopSongs == nil {
		stats.TopSongs = []model.TopEntry{}
	}
	if stats.TopWallpapers == nil {
		stats.TopWallpapers = []model.TopEntry{}
	}
	if stats.TopRingtones == nil {
		stats.TopRingtones = []model.TopEntry{}
	}
	out := make([][]byte, 0, 6)
	for _, v := range []interface{}{stats.Songs, stats.Wallpapers, stats.Ringtones,
		stats.TopSongs, stats.TopWallpapers, stats.TopRingtones} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal rollup block: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// UpsertDailyStats writes the rollup for stats.Date, overwriting any previous
// rollup for that day.
func (p *postgres) UpsertDailyStats(ctx context.Context, stats model.DailyStats) (*model.DailyStats, error) {
	blocks, err := marshalDailyStats(stats)
	if err != nil {
		return nil, err
	}
	query := `INSERT INTO daily_stats (` + dailyStatsCols + `)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	          ON CONFLICT (date) DO UPDATE SET
	              songs = EXCLUDED.songs,
	              wallpapers = EXCLUDED.wallpapers,
	              ringtones = EXCLUDED.ringtones,
	              top_songs = EXCLUDED.top_songs,
	              top_wallpapers = EXCLUDED.top_wallpapers,
	              top_ringtones = EXCLUDED.top_ringtones
	          RETURNING ` + dailyStatsCols
	row := p.db.QueryRow(ctx, query, model.Day(stats.Date),
		blocks[0], blocks[1], blocks[2], blocks[3], blocks[4], blocks[5], stats.CreatedAt)
	out, err := scanDailyStats(row)
	if err != nil {
		return nil, classify("upsert daily stats", err)
	}
	return out, nil
}

func (p *postgres) GetDailyStats(ctx context.Context, date time.Time) (*model.DailyStats, error) {
	row := p.db.QueryRow(ctx, `SELECT `+dailyStatsCols+` FROM daily_stats WHERE date = $1`, model.Day(date))
	stats, err := scanDailyStats(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify("get daily stats", err)
	}
	return stats, nil
}

func (p *postgres) ListDailyStats(ctx context.Context, start, end time.Time) ([]model.DailyStats, error) {
	// Either bound may be zero for an open range, matching the memory store.
	query := `SELECT ` + dailyStatsCols + ` FROM daily_stats WHERE TRUE`
	args := []interface{}{}
	if !start.IsZero() {
		args = append(args, model.Day(start))
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if !end.IsZero() {
		args = append(args, model.Day(end))
		query += fmt.Sprintf(` AND date <= $%d`, len(args))
	}
	query += ` ORDER BY date DESC`

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list daily stats", err)
	}
	defer rows.Close()

	out := []model.DailyStats{}
	for rows.Next() {
		d, err := scanDailyStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
