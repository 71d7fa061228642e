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

var wallpaperImageSlot = assetSlot{fileKey: "image", urlKey: "imageUrl", kind: media.AssetImage}

// handleListWallpapers handles GET /api/wallpapers, including the featured
// filter.
func (m *Mux) handleListWallpapers(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)
	wallpapers, total, err := m.store.ListWallpapers(r.Context(), q)
	if err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}
	m.writeList(w, wallpapers, len(wallpapers), total, q.Limit)
}

// handleGetWallpaper handles GET /api/wallpapers/{id}. Fetching a wallpaper
// counts as a view, so the read goes through the atomic increment and
// returns the updated document.
func (m *Mux) handleGetWallpaper(w http.ResponseWriter, r *http.Request) {
	wallpaper, err := m.store.IncrementWallpaperStat(r.Context(), r.PathValue("id"), "views")
	if err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}
	m.writeData(w, http.StatusOK, wallpaper)
}

// handleCreateWallpaper handles POST /api/wallpapers. An uploaded image
// serves as both the full image and the thumbnail.
func (m *Mux) handleCreateWallpaper(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "createWallpaper")
	defer span.End()

	form, aerr := parseEntityForm(r)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if err := m.validator.ValidateCreate(schema.EntityWallpaper, form.schemaFields()); err != nil {
		m.writeError(w, apperr.New(apperr.Validation, err.Error()))
		return
	}

	image, aerr := m.resolveAsset(ctx, form, wallpaperImageSlot, "", "")
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if aerr := requireAsset(image, wallpaperImageSlot); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	// The thumbnail falls back to the full image, so it is always set once
	// the image requirement holds.
	thumbnail := form.getOr("thumbnailUrl", image.URL)

	now := time.Now().UTC()
	wallpaper := model.Wallpaper{
		ID:           ulid.Make().String(),
		Title:        form.get("title"),
		Category:     form.getOr("category", "Abstract"),
		ImageURL:     image.URL,
		ThumbnailURL: thumbnail,
		Resolution: model.Resolution{
			Width:  form.getInt("width", 0),
			Height: form.getInt("height", 0),
		},
		Tags:          form.tags("tags"),
		ImageAssetKey: image.Key,
		IsActive:      form.getBool("isActive", true),
		IsFeatured:    form.getBool("isFeatured", false),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := m.store.CreateWallpaper(ctx, wallpaper); err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}
	m.events.Created(ctx, "wallpaper", wallpaper.ID)
	m.writeData(w, http.StatusCreated, wallpaper)
}

// handleUpdateWallpaper handles PUT /api/wallpapers/{id}.
func (m *Mux) handleUpdateWallpaper(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "updateWallpaper")
	defer span.End()

	wallpaper, err := m.store.GetWallpaper(ctx, r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}

	form, aerr := parseEntityForm(r)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}
	if err := m.validator.ValidateUpdate(schema.EntityWallpaper, form.schemaFields()); err != nil {
		m.writeError(w, apperr.New(apperr.Validation, err.Error()))
		return
	}

	image, aerr := m.resolveAsset(ctx, form, wallpaperImageSlot, wallpaper.ImageURL, wallpaper.ImageAssetKey)
	if aerr != nil {
		m.writeError(w, aerr)
		return
	}

	var warnings []string
	if image.Changed && wallpaper.ImageAssetKey != "" {
		m.deleteAsset(ctx, wallpaper.ImageAssetKey, &warnings)
	}

	if form.has("title") {
		wallpaper.Title = form.get("title")
	}
	if form.has("category") {
		wallpaper.Category = form.get("category")
	}
	if form.has("tags") {
		wallpaper.Tags = form.tags("tags")
	}
	if form.has("width") {
		wallpaper.Resolution.Width = form.getInt("width", wallpaper.Resolution.Width)
	}
	if form.has("height") {
		wallpaper.Resolution.Height = form.getInt("height", wallpaper.Resolution.Height)
	}
	if form.has("isActive") {
		wallpaper.IsActive = form.getBool("isActive", wallpaper.IsActive)
	}
	if form.has("isFeatured") {
		wallpaper.IsFeatured = form.getBool("isFeatured", wallpaper.IsFeatured)
	}
	wallpaper.ImageURL, wallpaper.ImageAssetKey = image.URL, image.Key
	if image.Changed {
		wallpaper.ThumbnailURL = image.URL
	}
	if form.has("thumbnailUrl") {
		wallpaper.ThumbnailURL = form.get("thumbnailUrl")
	}
	wallpaper.UpdatedAt = time.Now().UTC()

	if err := m.store.UpdateWallpaper(ctx, *wallpaper); err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}

	if len(warnings) > 0 {
		m.writeDataWarning(w, http.StatusOK, wallpaper, joinWarnings(warnings))
		return
	}
	m.writeData(w, http.StatusOK, wallpaper)
}

// handleDeleteWallpaper handles DELETE /api/wallpapers/{id}.
func (m *Mux) handleDeleteWallpaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallpaper, err := m.store.GetWallpaper(ctx, r.PathValue("id"))
	if err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}

	var warnings []string
	m.deleteAsset(ctx, wallpaper.ImageAssetKey, &warnings)

	if err := m.store.DeleteWallpaper(ctx, wallpaper.ID); err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}

	if len(warnings) > 0 {
		m.writeDataWarning(w, http.StatusOK, map[string]interface{}{}, joinWarnings(warnings))
		return
	}
	m.writeData(w, http.StatusOK, map[string]interface{}{})
}

// handleWallpaperStats handles PUT /api/wallpapers/{id}/stats.
func (m *Mux) handleWallpaperStats(w http.ResponseWriter, r *http.Request) {
	var req model.StatsActionRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		m.writeError(w, aerr)
		return
	}

	field, ok := model.WallpaperStatActions[req.Action]
	if !ok {
		m.writeError(w, apperr.New(apperr.Validation, "Invalid action"))
		return
	}

	wallpaper, err := m.store.IncrementWallpaperStat(r.Context(), r.PathValue("id"), field)
	if err != nil {
		m.writeError(w, m.storeError(err, "Wallpaper not found"))
		return
	}

	m.metrics.StatActions.WithLabelValues("wallpaper", req.Action).Inc()
	m.events.Engagement(r.Context(), "wallpaper", wallpaper.ID, req.Action)
	m.writeData(w, http.StatusOK, wallpaper)
}
