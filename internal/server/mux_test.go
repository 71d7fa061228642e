package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/auth"
	"github.com/ZemaLabs/zema-catalog-go/internal/config"
	"github.com/ZemaLabs/zema-catalog-go/internal/event"
	"github.com/ZemaLabs/zema-catalog-go/internal/media"
	"github.com/ZemaLabs/zema-catalog-go/internal/metrics"
	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
	"github.com/oklog/ulid/v2"
)

// fakeAssets implements media.Store without network access.
type fakeAssets struct {
	uploads   int
	deleted   []string
	deleteErr error
}

func (f *fakeAssets) Upload(ctx context.Context, kind media.AssetKind, filename, contentType string, r io.Reader) (*media.UploadResult, error) {
	f.uploads++
	key := fmt.Sprintf("%s/test-%d-%s", kind.Folder(), f.uploads, filename)
	return &media.UploadResult{
		URL: "https://assets.test/" + key,
		Key: key,
	}, nil
}

func (f *fakeAssets) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

// testEnvelope mirrors the JSON response shape for assertions.
type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
	Count   int             `json:"count"`
	Total   int64           `json:"total"`
	Pages   int             `json:"pages"`
	Warning string          `json:"warning"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func newTestMux(t *testing.T, assets media.Store) (*Mux, storage.Store, http.Handler) {
	t.Helper()
	cfg := config.Config{
		Env:            "test",
		JWTSecret:      "test-secret",
		JWTIssuer:      "zema-catalog",
		JWTAudience:    "zema-admin",
		MaxImageSize:   10 << 20,
		MaxAudioSize:   50 << 20,
		RateLimitRPS:   10000,
		RateLimitBurst: 10000,
	}
	store := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub, err := event.NewPublisher("", logger)
	if err != nil {
		t.Fatalf("event publisher: %v", err)
	}
	m, err := New(cfg, store, assets, pub, metrics.New(), logger, "test")
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return m, store, m.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env testEnvelope
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, env
}

func registerAdmin(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rr, env := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret123",
		"name":     "Test Admin",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rr.Code, rr.Body.String())
	}
	if env.Token == "" {
		t.Fatal("register returned no token")
	}
	return env.Token
}

func seedSong(t *testing.T, store storage.Store, title string, createdAt time.Time) model.Song {
	t.Helper()
	song := model.Song{
		ID:        ulid.Make().String(),
		Title:     title,
		Artist:    "Artist",
		Category:  "Traditional",
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := store.CreateSong(context.Background(), song); err != nil {
		t.Fatalf("seed song: %v", err)
	}
	return song
}

func TestHealthEndpoint(t *testing.T) {
	_, _, h := newTestMux(t, nil)

	rr, env := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health returned %d", rr.Code)
	}
	if !env.Success {
		t.Error("health envelope not successful")
	}
	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode health data: %v", err)
	}
	if data["database"] != "connected" {
		t.Errorf("database status = %q, want connected", data["database"])
	}
}

func TestCreateSongMissingTitle(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")

	rr, env := doJSON(t, h, http.MethodPost, "/api/songs", token, map[string]string{
		"artist": "Someone",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("create returned %d, want 400", rr.Code)
	}
	if !strings.Contains(env.Error, "title") {
		t.Errorf("validation message %q does not name the missing field", env.Error)
	}
}

func TestCreateSongEchoesDocument(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")

	rr, env := doJSON(t, h, http.MethodPost, "/api/songs", token, map[string]string{
		"title":    "Selam",
		"artist":   "Aster",
		"category": "Modern",
		"duration": "3:45",
		"lyrics":   "lyrics text",
		"imageUrl": "https://cdn.example/covers/selam.jpg",
		"audioUrl": "https://cdn.example/audio/selam.mp3",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}
	var song model.Song
	if err := json.Unmarshal(env.Data, &song); err != nil {
		t.Fatalf("decode created song: %v", err)
	}
	if song.ID == "" {
		t.Error("created song has no id")
	}
	if song.Title != "Selam" || song.Artist != "Aster" || song.Category != "Modern" || song.Duration != "3:45" {
		t.Errorf("created song fields not echoed: %+v", song)
	}
	if song.AudioURL != "https://cdn.example/audio/selam.mp3" {
		t.Errorf("audioUrl = %q, want the supplied URL", song.AudioURL)
	}
	if !song.IsActive {
		t.Error("new song should default to active")
	}
}

func TestCreateSongRejectsBadCategory(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")

	rr, _ := doJSON(t, h, http.MethodPost, "/api/songs", token, map[string]string{
		"title":    "Selam",
		"artist":   "Aster",
		"category": "Jazz",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("create with unknown category returned %d, want 400", rr.Code)
	}
}

func TestCreateRequiresEveryAssetField(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")

	cases := []struct {
		name  string
		path  string
		body  map[string]string
		field string
	}{
		{"song without any asset", "/api/songs",
			map[string]string{"title": "Selam", "artist": "Aster"}, "imageUrl"},
		{"song without audio", "/api/songs",
			map[string]string{"title": "Selam", "artist": "Aster",
				"imageUrl": "https://cdn.example/c.jpg"}, "audioUrl"},
		{"wallpaper without image", "/api/wallpapers",
			map[string]string{"title": "Lalibela"}, "imageUrl"},
		{"ringtone without thumbnail", "/api/ringtones",
			map[string]string{"title": "Bell", "duration": "0:20",
				"audioUrl": "https://cdn.example/b.mp3"}, "thumbnailUrl"},
		{"ringtone without audio", "/api/ringtones",
			map[string]string{"title": "Bell", "duration": "0:20",
				"thumbnailUrl": "https://cdn.example/b.jpg"}, "audioUrl"},
	}
	for _, tc := range cases {
		rr, env := doJSON(t, h, http.MethodPost, tc.path, token, tc.body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: returned %d, want 400", tc.name, rr.Code)
			continue
		}
		if !strings.Contains(env.Error, tc.field) {
			t.Errorf("%s: error %q does not name %s", tc.name, env.Error, tc.field)
		}
	}
}

func TestSongStatsIncrementsExactlyOneCounter(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	song := seedSong(t, store, "Tizita", time.Now().UTC())

	rr, env := doJSON(t, h, http.MethodPut, "/api/songs/"+song.ID+"/stats", "", map[string]string{
		"action": "play",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("stats returned %d: %s", rr.Code, rr.Body.String())
	}
	var updated model.Song
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode updated song: %v", err)
	}
	if updated.Plays != 1 {
		t.Errorf("plays = %d, want 1", updated.Plays)
	}
	if updated.Downloads != 0 || updated.Favorites != 0 || updated.Shares != 0 {
		t.Errorf("other counters moved: %+v", updated)
	}
}

func TestSongStatsUnknownAction(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	song := seedSong(t, store, "Tizita", time.Now().UTC())

	rr, _ := doJSON(t, h, http.MethodPut, "/api/songs/"+song.ID+"/stats", "", map[string]string{
		"action": "set", // valid for ringtones, not songs
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown action returned %d, want 400", rr.Code)
	}
}

func TestListSongsPagination(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		seedSong(t, store, fmt.Sprintf("Song %02d", i), base.Add(time.Duration(i)*time.Hour))
	}

	rr, env := doJSON(t, h, http.MethodGet, "/api/songs?page=2&limit=5", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list returned %d", rr.Code)
	}
	if env.Count != 5 || env.Total != 12 || env.Pages != 3 {
		t.Errorf("count/total/pages = %d/%d/%d, want 5/12/3", env.Count, env.Total, env.Pages)
	}

	var songs []model.Song
	if err := json.Unmarshal(env.Data, &songs); err != nil {
		t.Fatalf("decode songs: %v", err)
	}
	// Newest first: page 2 of 12 holds songs 07 down to 03.
	if songs[0].Title != "Song 07" || songs[4].Title != "Song 03" {
		t.Errorf("page 2 range wrong: first=%q last=%q", songs[0].Title, songs[4].Title)
	}
}

func TestListSongsClampsLimit(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	seedSong(t, store, "Only", time.Now().UTC())

	rr, env := doJSON(t, h, http.MethodGet, "/api/songs?limit=5000", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list returned %d", rr.Code)
	}
	// pages derives from the clamped limit, so 1 item still means 1 page
	if env.Pages != 1 {
		t.Errorf("pages = %d, want 1", env.Pages)
	}
}

func TestUploadWithoutAssetStore(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Selam")
	_ = mw.WriteField("artist", "Aster")
	part, _ := mw.CreateFormFile("image", "cover.jpg")
	_, _ = part.Write([]byte("fake image bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/songs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("upload without asset store returned %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not configured") {
		t.Errorf("error does not mention missing configuration: %s", rr.Body.String())
	}
}

func TestUploadedFileWinsOverURL(t *testing.T) {
	assets := &fakeAssets{}
	_, _, h := newTestMux(t, assets)
	token := registerAdmin(t, h, "admin@test.io")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Selam")
	_ = mw.WriteField("artist", "Aster")
	_ = mw.WriteField("imageUrl", "https://elsewhere.example/cover.png")
	_ = mw.WriteField("audioUrl", "https://elsewhere.example/selam.mp3")
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="cover.jpg"`},
		"Content-Type":        {"image/jpeg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("fake image bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/songs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}
	var env testEnvelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	var song model.Song
	_ = json.Unmarshal(env.Data, &song)
	if !strings.HasPrefix(song.ImageURL, "https://assets.test/") {
		t.Errorf("imageUrl = %q, want the uploaded file's URL, not the client-supplied one", song.ImageURL)
	}
	if song.ImageAssetKey == "" {
		t.Error("uploaded asset must carry a deletion handle")
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	assets := &fakeAssets{}
	m, store, _ := newTestMux(t, assets)
	_ = store
	m.limits.MaxImageSize = 8 // shrink the cap instead of building a 10MiB body
	h := m.Handler()
	token := registerAdmin(t, h, "admin@test.io")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Selam")
	_ = mw.WriteField("artist", "Aster")
	part, _ := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="cover.jpg"`},
		"Content-Type":        {"image/jpeg"},
	})
	_, _ = part.Write([]byte("more than eight bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/songs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("oversized upload returned %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Image file too large") {
		t.Errorf("size error does not identify the kind: %s", rr.Body.String())
	}
}

func TestWallpaperGetIncrementsViews(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	wp := model.Wallpaper{
		ID:        ulid.Make().String(),
		Title:     "Lalibela",
		Category:  "Nature",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.CreateWallpaper(context.Background(), wp); err != nil {
		t.Fatal(err)
	}

	for want := int64(1); want <= 2; want++ {
		rr, env := doJSON(t, h, http.MethodGet, "/api/wallpapers/"+wp.ID, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("get returned %d", rr.Code)
		}
		var got model.Wallpaper
		_ = json.Unmarshal(env.Data, &got)
		if got.Views != want {
			t.Errorf("views after fetch %d = %d, want %d", want, got.Views, want)
		}
	}
}

func TestLoginIdenticalBodiesForBadEmailAndBadPassword(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	registerAdmin(t, h, "admin@test.io")

	rrUnknown, _ := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@test.io", "password": "whatever1",
	})
	rrWrongPass, _ := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@test.io", "password": "wrongpass",
	})

	if rrUnknown.Code != http.StatusUnauthorized || rrWrongPass.Code != http.StatusUnauthorized {
		t.Fatalf("login failures returned %d and %d, want 401 both", rrUnknown.Code, rrWrongPass.Code)
	}
	if rrUnknown.Body.String() != rrWrongPass.Body.String() {
		t.Errorf("failure bodies differ:\n%s\n%s", rrUnknown.Body.String(), rrWrongPass.Body.String())
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	registerAdmin(t, h, "first@test.io")

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.CreateAdmin(context.Background(), model.Admin{
		ID:           ulid.Make().String(),
		Email:        "inactive@test.io",
		PasswordHash: hash,
		Name:         "Inactive",
		Role:         model.RoleAdmin,
		IsActive:     false,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rr, env := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "inactive@test.io", "password": "secret123",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated login returned %d, want 401", rr.Code)
	}
	if env.Error != "Account is deactivated" {
		t.Errorf("error = %q, want deactivation message", env.Error)
	}
}

func TestFirstAdminPromotedToSuperAdmin(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	registerAdmin(t, h, "first@test.io")
	registerAdmin(t, h, "second@test.io")

	first, err := store.GetAdminByEmail(context.Background(), "first@test.io")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.GetAdminByEmail(context.Background(), "second@test.io")
	if err != nil {
		t.Fatal(err)
	}
	if first.Role != model.RoleSuperAdmin {
		t.Errorf("first admin role = %q, want super_admin", first.Role)
	}
	if second.Role != model.RoleAdmin {
		t.Errorf("second admin role = %q, want admin", second.Role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	registerAdmin(t, h, "admin@test.io")

	rr, env := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "admin@test.io", "password": "secret123", "name": "Again",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register returned %d, want 400", rr.Code)
	}
	if !strings.Contains(env.Error, "already exists") {
		t.Errorf("error = %q, want duplicate message", env.Error)
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	_, _, h := newTestMux(t, nil)

	rr, _ := doJSON(t, h, http.MethodPost, "/api/songs", "", map[string]string{"title": "x", "artist": "y"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated create returned %d, want 401", rr.Code)
	}

	rr, _ = doJSON(t, h, http.MethodGet, "/api/statistics/overview", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated statistics returned %d, want 401", rr.Code)
	}
}

func TestUnknownRoleForbidden(t *testing.T) {
	m, store, h := newTestMux(t, nil)

	// Seed a principal outside the allowed role set.
	registerAdmin(t, h, "first@test.io")
	viewer, err := store.CreateAdmin(context.Background(), model.Admin{
		ID:        ulid.Make().String(),
		Email:     "viewer@test.io",
		Name:      "Viewer",
		Role:      "viewer",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	token, err := m.tokens.Issue(viewer.ID)
	if err != nil {
		t.Fatal(err)
	}

	rr, _ := doJSON(t, h, http.MethodPost, "/api/songs", token, map[string]string{"title": "x", "artist": "y"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("viewer create returned %d, want 403", rr.Code)
	}
}

func TestDailyRollupIdempotentUpsert(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")
	song := seedSong(t, store, "Tizita", time.Now().UTC())

	// First rollup with one play.
	if _, err := store.IncrementSongStat(context.Background(), song.ID, "plays"); err != nil {
		t.Fatal(err)
	}
	rr, _ := doJSON(t, h, http.MethodPost, "/api/statistics/update", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("first rollup returned %d: %s", rr.Code, rr.Body.String())
	}

	// More plays, second rollup must overwrite, not duplicate.
	for i := 0; i < 4; i++ {
		if _, err := store.IncrementSongStat(context.Background(), song.ID, "plays"); err != nil {
			t.Fatal(err)
		}
	}
	rr, env := doJSON(t, h, http.MethodPost, "/api/statistics/update", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("second rollup returned %d", rr.Code)
	}
	var rollup model.DailyStats
	if err := json.Unmarshal(env.Data, &rollup); err != nil {
		t.Fatal(err)
	}
	if rollup.Songs.TotalPlays != 5 {
		t.Errorf("second rollup totalPlays = %d, want 5", rollup.Songs.TotalPlays)
	}

	all, err := store.ListDailyStats(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("rollup rows = %d, want 1", len(all))
	}
}

func TestStatisticsRangeOpenBounds(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")
	for d := 1; d <= 3; d++ {
		if _, err := store.UpsertDailyStats(context.Background(), model.DailyStats{
			Date: time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatal(err)
		}
	}

	// startDate alone bounds the range from below only.
	rr, env := doJSON(t, h, http.MethodGet, "/api/statistics/range?startDate=2026-08-02", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("range returned %d: %s", rr.Code, rr.Body.String())
	}
	if env.Count != 2 {
		t.Fatalf("startDate-only range count = %d, want 2", env.Count)
	}

	rr, env = doJSON(t, h, http.MethodGet, "/api/statistics/range?endDate=2026-08-01", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("range returned %d: %s", rr.Code, rr.Body.String())
	}
	if env.Count != 1 {
		t.Fatalf("endDate-only range count = %d, want 1", env.Count)
	}

	rr, _ = doJSON(t, h, http.MethodGet, "/api/statistics/range?startDate=08-02-2026", token, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed startDate returned %d, want 400", rr.Code)
	}
}

func TestStatisticsOverview(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")
	song := seedSong(t, store, "Tizita", time.Now().UTC())
	for i := 0; i < 3; i++ {
		if _, err := store.IncrementSongStat(context.Background(), song.ID, "downloads"); err != nil {
			t.Fatal(err)
		}
	}

	rr, env := doJSON(t, h, http.MethodGet, "/api/statistics/overview", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("overview returned %d: %s", rr.Code, rr.Body.String())
	}
	var overview model.StatsOverview
	if err := json.Unmarshal(env.Data, &overview); err != nil {
		t.Fatal(err)
	}
	if overview.Counts.Songs != 1 {
		t.Errorf("song count = %d, want 1", overview.Counts.Songs)
	}
	if overview.Songs.TotalDownloads != 3 {
		t.Errorf("totalDownloads = %d, want 3", overview.Songs.TotalDownloads)
	}
	if len(overview.TopSongs) != 1 || overview.TopSongs[0].ID != song.ID {
		t.Errorf("topSongs = %+v, want the seeded song", overview.TopSongs)
	}
}

func TestDeleteSongRemovesHostedAssets(t *testing.T) {
	assets := &fakeAssets{}
	_, store, h := newTestMux(t, assets)
	token := registerAdmin(t, h, "admin@test.io")

	song := model.Song{
		ID:            ulid.Make().String(),
		Title:         "Hosted",
		Artist:        "A",
		Category:      "Modern",
		ImageAssetKey: "images/abc",
		AudioAssetKey: "audio/def",
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := store.CreateSong(context.Background(), song); err != nil {
		t.Fatal(err)
	}

	rr, env := doJSON(t, h, http.MethodDelete, "/api/songs/"+song.ID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", rr.Code, rr.Body.String())
	}
	if env.Warning != "" {
		t.Errorf("unexpected warning: %q", env.Warning)
	}
	if len(assets.deleted) != 2 {
		t.Errorf("deleted assets = %v, want both keys", assets.deleted)
	}
	if _, err := store.GetSong(context.Background(), song.ID); err == nil {
		t.Error("song still present after delete")
	}
}

func TestDeleteWarnsWhenAssetRemovalFails(t *testing.T) {
	assets := &fakeAssets{deleteErr: fmt.Errorf("bucket gone")}
	_, store, h := newTestMux(t, assets)
	token := registerAdmin(t, h, "admin@test.io")

	song := model.Song{
		ID:            ulid.Make().String(),
		Title:         "Hosted",
		Artist:        "A",
		Category:      "Modern",
		ImageAssetKey: "images/abc",
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := store.CreateSong(context.Background(), song); err != nil {
		t.Fatal(err)
	}

	rr, env := doJSON(t, h, http.MethodDelete, "/api/songs/"+song.ID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete returned %d, asset failure must not block", rr.Code)
	}
	if env.Warning == "" {
		t.Error("expected a warning for the failed asset removal")
	}
	if _, err := store.GetSong(context.Background(), song.ID); err == nil {
		t.Error("song still present after delete")
	}
}

func TestUpdateSongPartialMerge(t *testing.T) {
	_, store, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")
	song := seedSong(t, store, "Before", time.Now().UTC())

	rr, env := doJSON(t, h, http.MethodPut, "/api/songs/"+song.ID, token, map[string]string{
		"title": "After",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rr.Code, rr.Body.String())
	}
	var updated model.Song
	_ = json.Unmarshal(env.Data, &updated)
	if updated.Title != "After" {
		t.Errorf("title = %q, want After", updated.Title)
	}
	if updated.Artist != song.Artist || updated.Category != song.Category {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestGetSongNotFound(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	rr, env := doJSON(t, h, http.MethodGet, "/api/songs/01ZZZZZZZZZZZZZZZZZZZZZZZZ", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing song returned %d, want 404", rr.Code)
	}
	if env.Success {
		t.Error("404 envelope marked successful")
	}
	if env.Error != "Song not found" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestMeReturnsPrincipalWithoutHash(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")

	rr, env := doJSON(t, h, http.MethodGet, "/api/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me returned %d", rr.Code)
	}
	if strings.Contains(string(env.Data), "passwordHash") || strings.Contains(string(env.Data), "$2a$") {
		t.Errorf("me leaked the password hash: %s", env.Data)
	}
}

func TestUpdatePassword(t *testing.T) {
	_, _, h := newTestMux(t, nil)
	token := registerAdmin(t, h, "admin@test.io")

	rr, _ := doJSON(t, h, http.MethodPut, "/api/auth/update-password", token, map[string]string{
		"currentPassword": "wrong", "newPassword": "newsecret1",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password returned %d, want 401", rr.Code)
	}

	rr, env := doJSON(t, h, http.MethodPut, "/api/auth/update-password", token, map[string]string{
		"currentPassword": "secret123", "newPassword": "newsecret1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update-password returned %d: %s", rr.Code, rr.Body.String())
	}
	if env.Token == "" {
		t.Error("update-password did not re-issue a token")
	}

	// Old password no longer works.
	rr, _ = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@test.io", "password": "secret123",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", rr.Code)
	}
	rr, _ = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@test.io", "password": "newsecret1",
	})
	if rr.Code != http.StatusOK {
		t.Errorf("new password rejected: %d", rr.Code)
	}
}
