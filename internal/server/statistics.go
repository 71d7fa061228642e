package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/apperr"
	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
	"go.opentelemetry.io/otel"
)

// handleStatsOverview handles GET /api/statistics/overview.
func (m *Mux) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "statsOverview")
	defer span.End()

	overview, err := m.aggregator.Overview(ctx)
	if err != nil {
		m.writeError(w, m.storeError(err, "statistics not found"))
		return
	}
	m.writeData(w, http.StatusOK, overview)
}

// handleStatsRange handles GET /api/statistics/range?startDate&endDate.
// Omitting the bounds returns every stored rollup, newest first.
func (m *Mux) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	var start, end time.Time
	q := r.URL.Query()

	if s := q.Get("startDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			m.writeError(w, apperr.New(apperr.Validation, "startDate must be formatted YYYY-MM-DD"))
			return
		}
		start = t
	}
	if s := q.Get("endDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			m.writeError(w, apperr.New(apperr.Validation, "endDate must be formatted YYYY-MM-DD"))
			return
		}
		end = t
	}

	rollups, err := m.aggregator.Range(r.Context(), start, end)
	if err != nil {
		m.writeError(w, m.storeError(err, "statistics not found"))
		return
	}
	m.writeCount(w, rollups, len(rollups))
}

// handleStatsToday handles GET /api/statistics/today. A missing rollup is
// created zero-valued rather than returned as a 404.
func (m *Mux) handleStatsToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := model.Day(time.Now().UTC())

	rollup, err := m.aggregator.ForDay(ctx, today)
	if errors.Is(err, storage.ErrNotFound) {
		rollup, err = m.store.UpsertDailyStats(ctx, model.DailyStats{Date: today, CreatedAt: time.Now().UTC()})
	}
	if err != nil {
		m.writeError(w, m.storeError(err, "statistics not found"))
		return
	}
	m.writeData(w, http.StatusOK, rollup)
}

// handleStatsUpdate handles POST /api/statistics/update: recompute today's
// rollup from live counters and persist it.
func (m *Mux) handleStatsUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("zema-catalog").Start(r.Context(), "statsUpdate")
	defer span.End()

	rollup, err := m.aggregator.Rollup(ctx, time.Now().UTC())
	if err != nil {
		m.writeError(w, m.storeError(err, "statistics not found"))
		return
	}
	m.writeData(w, http.StatusOK, rollup)
}
