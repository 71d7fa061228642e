package server

import (
	"net/http"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/apperr"
	"github.com/ZemaLabs/zema-catalog-go/internal/media"
	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/schema"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
)

var songAssetSlots = struct {
	image assetSlot
	audio assetSlot
}{
	image: assetSlot{fileKey: "image", urlKey: "imageUrl", kind: media.AssetImage},
	audio: assetSlot{fileKey: "audio", urlKey: "audioUrl", kind: media.AssetAudio},
}

// handleListSongs handles GET /api/songs.
func (m *Mux) handleListSongs(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)
	songs, total, err := m.store.ListSongs(r.Context(), q)
	if err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}
	m.writeList(w, songs, len(songs), total, q.Limit)
}

// handleGetSong handles GET /api/songs/{id}.
func (m *Mux) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, err := m.store.GetSong(r.Context(), r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}
	m.writeData(w, http.StatusOK, song)
}

// handleCreateSong handles POST /api/songs.
func (m *Mux) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "createSong")
	defer span.End()

	form, aerr := parseEntityForm(r)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if err := m.validator.ValidateCreate(schema.EntitySong, form.schemaFields()); err != nil {
		m.writeError(w, apperr.New(apperr.Validation, err.Error()))
		return
	}

	image, aerr := m.resolveAsset(ctx, form, songAssetSlots.image, "", "")
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	audio, aerr := m.resolveAsset(ctx, form, songAssetSlots.audio, "", "")
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if aerr := requireAsset(image, songAssetSlots.image); aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if aerr := requireAsset(audio, songAssetSlots.audio); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	now := time.Now().UTC()
	song := model.Song{
		ID:            ulid.Make().String(),
		Title:         form.get("title"),
		Artist:        form.get("artist"),
		Category:      form.getOr("category", "All"),
		ImageURL:      image.URL,
		AudioURL:      audio.URL,
		Duration:      form.get("duration"),
		Lyrics:        form.get("lyrics"),
		Description:   form.get("description"),
		ImageAssetKey: image.Key,
		AudioAssetKey: audio.Key,
		IsActive:      form.getBool("isActive", true),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := m.store.CreateSong(ctx, song); err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}
	m.events.Created(ctx, "song", song.ID)
	m.writeData(w, http.StatusCreated, song)
}

// handleUpdateSong handles PUT /api/songs/{id}. Fields absent from the
// request keep their stored values; replaced hosted assets are removed
// best-effort with a warning on failure.
func (m *Mux) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "updateSong")
	defer span.End()

	song, err := m.store.GetSong(ctx, r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}

	form, aerr := parseEntityForm(r)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if err := m.validator.ValidateUpdate(schema.EntitySong, form.schemaFields()); err != nil {
		m.writeError(w, apperr.New(apperr.Validation, err.Error()))
		return
	}

	image, aerr := m.resolveAsset(ctx, form, songAssetSlots.image, song.ImageURL, song.ImageAssetKey)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	audio, aerr := m.resolveAsset(ctx, form, songAssetSlots.audio, song.AudioURL, song.AudioAssetKey)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}

	var warnings []string
	if image.Changed && song.ImageAssetKey != "" {
		m.deleteAsset(ctx, song.ImageAssetKey, &warnings)
	}
	if audio.Changed && song.AudioAssetKey != "" {
		m.deleteAsset(ctx, song.AudioAssetKey, &warnings)
	}

	if form.has("title") {
		song.Title = form.get("title")
	}
	if form.has("artist") {
		song.Artist = form.get("artist")
	}
	if form.has("category") {
		song.Category = form.get("category")
	}
	if form.has("duration") {
		song.Duration = form.get("duration")
	}
	if form.has("lyrics") {
		song.Lyrics = form.get("lyrics")
	}
	if form.has("description") {
		song.Description = form.get("description")
	}
	if form.has("isActive") {
		song.IsActive = form.getBool("isActive", song.IsActive)
	}
	song.ImageURL, song.ImageAssetKey = image.URL, image.Key
	song.AudioURL, song.AudioAssetKey = audio.URL, audio.Key
	song.UpdatedAt = time.Now().UTC()

	if err := m.store.UpdateSong(ctx, *song); err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}

	if len(warnings) > 0 {
		m.writeDataWarning(w, http.StatusOK, song, joinWarnings(warnings))
		return
	}
	m.writeData(w, http.StatusOK, song)
}

// handleDeleteSong handles DELETE /api/songs/{id}.
func (m *Mux) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	song, err := m.store.GetSong(ctx, r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}

	var warnings []string
	m.deleteAsset(ctx, song.ImageAssetKey, &warnings)
	m.deleteAsset(ctx, song.AudioAssetKey, &warnings)

	if err := m.store.DeleteSong(ctx, song.ID); err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}

	if len(warnings) > 0 {
		m.writeDataWarning(w, http.StatusOK, map[string]interface{}{}, joinWarnings(warnings))
		return
	}
	m.writeData(w, http.StatusOK, map[string]interface{}{})
}

// handleSongStats handles PUT /api/songs/{id}/stats: one engagement action
// increments exactly one counter.
func (m *Mux) handleSongStats(w http.ResponseWriter, r *http.Request) {
	var req model.StatsActionRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	field, ok := model.SongStatActions[req.Action]
	if !ok {
		m.writeError(w, apperr.New(apperr.Validation, "Invalid action"))
		return
	}

	song, err := m.store.IncrementSongStat(r.Context(), r.PathValue("id"), field)
	if err != nil {
		m.writeError(w, m.storeError(err, "Song not found"))
		return
	}

	m.metrics.StatActions.WithLabelValues("song", req.Action).Inc()
	m.events.Engagement(r.Context(), "song", song.ID, req.Action)
	m.writeData(w, http.StatusOK, song)
}
