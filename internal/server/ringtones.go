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

var ringtoneAssetSlots = struct {
	thumbnail assetSlot
	audio     assetSlot
}{
	thumbnail: assetSlot{fileKey: "thumbnail", urlKey: "thumbnailUrl", kind: media.AssetImage},
	audio:     assetSlot{fileKey: "audio", urlKey: "audioUrl", kind: media.AssetAudio},
}

// handleListRingtones handles GET /api/ringtones.
func (m *Mux) handleListRingtones(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)
	ringtones, total, err := m.store.ListRingtones(r.Context(), q)
	if err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}
	m.writeList(w, ringtones, len(ringtones), total, q.Limit)
}

// handleGetRingtone handles GET /api/ringtones/{id}.
func (m *Mux) handleGetRingtone(w http.ResponseWriter, r *http.Request) {
	ringtone, err := m.store.GetRingtone(r.Context(), r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}
	m.writeData(w, http.StatusOK, ringtone)
}

// handleCreateRingtone handles POST /api/ringtones.
func (m *Mux) handleCreateRingtone(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "createRingtone")
	defer span.End()

	form, aerr := parseEntityForm(r)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if err := m.validator.ValidateCreate(schema.EntityRingtone, form.schemaFields()); err != nil {
		m.writeError(w, apperr.New(apperr.Validation, err.Error()))
		return
	}

	thumbnail, aerr := m.resolveAsset(ctx, form, ringtoneAssetSlots.thumbnail, "", "")
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	audio, aerr := m.resolveAsset(ctx, form, ringtoneAssetSlots.audio, "", "")
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if aerr := requireAsset(thumbnail, ringtoneAssetSlots.thumbnail); aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if aerr := requireAsset(audio, ringtoneAssetSlots.audio); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	now := time.Now().UTC()
	ringtone := model.Ringtone{
		ID:                ulid.Make().String(),
		Title:             form.get("title"),
		Artist:            form.get("artist"),
		Category:          form.getOr("category", "Melodies"),
		ThumbnailURL:      thumbnail.URL,
		AudioURL:          audio.URL,
		Duration:          form.get("duration"),
		Description:       form.get("description"),
		ThumbnailAssetKey: thumbnail.Key,
		AudioAssetKey:     audio.Key,
		IsActive:          form.getBool("isActive", true),
		IsFeatured:        form.getBool("isFeatured", false),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := m.store.CreateRingtone(ctx, ringtone); err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}
	m.events.Created(ctx, "ringtone", ringtone.ID)
	m.writeData(w, http.StatusCreated, ringtone)
}

// handleUpdateRingtone handles PUT /api/ringtones/{id}.
func (m *Mux) handleUpdateRingtone(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "updateRingtone")
	defer span.End()

	ringtone, err := m.store.GetRingtone(ctx, r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}

	form, aerr := parseEntityForm(r)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if err := m.validator.ValidateUpdate(schema.EntityRingtone, form.schemaFields()); err != nil {
		m.writeError(w, apperr.New(apperr.Validation, err.Error()))
		return
	}

	thumbnail, aerr := m.resolveAsset(ctx, form, ringtoneAssetSlots.thumbnail, ringtone.ThumbnailURL, ringtone.ThumbnailAssetKey)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	audio, aerr := m.resolveAsset(ctx, form, ringtoneAssetSlots.audio, ringtone.AudioURL, ringtone.AudioAssetKey)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}

	var warnings []string
	if thumbnail.Changed && ringtone.ThumbnailAssetKey != "" {
		m.deleteAsset(ctx, ringtone.ThumbnailAssetKey, &warnings)
	}
	if audio.Changed && ringtone.AudioAssetKey != "" {
		m.deleteAsset(ctx, ringtone.AudioAssetKey, &warnings)
	}

	if form.has("title") {
		ringtone.Title = form.get("title")
	}
	if form.has("artist") {
		ringtone.Artist = form.get("artist")
	}
	if form.has("category") {
		ringtone.Category = form.get("category")
	}
	if form.has("duration") {
		ringtone.Duration = form.get("duration")
	}
	if form.has("description") {
		ringtone.Description = form.get("description")
	}
	if form.has("isActive") {
		ringtone.IsActive = form.getBool("isActive", ringtone.IsActive)
	}
	if form.has("isFeatured") {
		ringtone.IsFeatured = form.getBool("isFeatured", ringtone.IsFeatured)
	}
	ringtone.ThumbnailURL, ringtone.ThumbnailAssetKey = thumbnail.URL, thumbnail.Key
	ringtone.AudioURL, ringtone.AudioAssetKey = audio.URL, audio.Key
	ringtone.UpdatedAt = time.Now().UTC()

	if err := m.store.UpdateRingtone(ctx, *ringtone); err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}

	if len(warnings) > 0 {
		m.writeDataWarning(w, http.StatusOK, ringtone, joinWarnings(warnings))
		return
	}
	m.writeData(w, http.StatusOK, ringtone)
}

// handleDeleteRingtone handles DELETE /api/ringtones/{id}.
func (m *Mux) handleDeleteRingtone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ringtone, err := m.store.GetRingtone(ctx, r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}

	var warnings []string
	m.deleteAsset(ctx, ringtone.ThumbnailAssetKey, &warnings)
	m.deleteAsset(ctx, ringtone.AudioAssetKey, &warnings)

	if err := m.store.DeleteRingtone(ctx, ringtone.ID); err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}

	if len(warnings) > 0 {
		m.writeDataWarning(w, http.StatusOK, map[string]interface{}{}, joinWarnings(warnings))
		return
	}
	m.writeData(w, http.StatusOK, map[string]interface{}{})
}

// handleRingtoneStats handles PUT /api/ringtones/{id}/stats.
func (m *Mux) handleRingtoneStats(w http.ResponseWriter, r *http.Request) {
	var req model.StatsActionRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	field, ok := model.RingtoneStatActions[req.Action]
	if !ok {
		m.writeError(w, apperr.New(apperr.Validation, "Invalid action"))
		return
	}

	ringtone, err := m.store.IncrementRingtoneStat(r.Context(), r.PathValue("id"), field)
	if err != nil {
		m.writeError(w, m.storeError(err, "Ringtone not found"))
		return
	}

	m.metrics.StatActions.WithLabelValues("ringtone", req.Action).Inc()
	m.events.Engagement(r.Context(), "ringtone", ringtone.ID, req.Action)
	m.writeData(w, http.StatusOK, ringtone)
}
