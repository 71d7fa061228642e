// Package server implements the HTTP surface of the catalog service: entity
// CRUD with multipart asset intake, public engagement endpoints, admin auth
// and the statistics API, all behind a shared middleware front door.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/apperr"
	"github.com/ZemaLabs/zema-catalog-go/internal/auth"
	"github.com/ZemaLabs/zema-catalog-go/internal/config"
	"github.com/ZemaLabs/zema-catalog-go/internal/event"
	"github.com/ZemaLabs/zema-catalog-go/internal/media"
	"github.com/ZemaLabs/zema-catalog-go/internal/metrics"
	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/schema"
	"github.com/ZemaLabs/zema-catalog-go/internal/stats"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// contextKey scopes request-context values to this package.
type contextKey string

const (
	ctxKeyAdmin         contextKey = "admin"
	ctxKeyCorrelationID contextKey = "correlationId"
)

// Mux holds the handler dependencies and the route table.
type Mux struct {
	mux        *http.ServeMux
	store      storage.Store
	assets     media.Store // nil when the hosted asset store is unconfigured
	events     event.Publisher
	tokens     *auth.Tokens
	validator  *schema.Validator
	aggregator *stats.Aggregator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	limits     media.Limits
	limiter    *clientLimiter
	cors       []string
	env        string
	version    string
}

// New wires the route table. assets may be nil; file uploads are then
// rejected with an explicit error instead of being dropped.
func New(cfg config.Config, store storage.Store, assets media.Store, events event.Publisher, mtr *metrics.Metrics, logger *slog.Logger, version string) (*Mux, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	m := &Mux{
		mux:        http.NewServeMux(),
		store:      store,
		assets:     assets,
		events:     events,
		tokens:     auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		validator:  validator,
		aggregator: stats.NewAggregator(store),
		metrics:    mtr,
		logger:     logger,
		limits: media.Limits{
			MaxImageSize: cfg.MaxImageSize,
			MaxAudioSize: cfg.MaxAudioSize,
			ImageTypes:   cfg.AllowedImageTypes,
			AudioTypes:   cfg.AllowedAudioTypes,
		},
		limiter: newClientLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		cors:    cfg.CORSAllowedOrigins,
		env:     cfg.Env,
		version: version,
	}

	mux := m.mux
	mux.HandleFunc("GET /{$}", m.handleInfo)
	mux.HandleFunc("GET /health", m.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(mtr.Registry, promhttp.HandlerOpts{}))

	// Songs
	mux.HandleFunc("GET /api/songs", m.handleListSongs)
	mux.HandleFunc("GET /api/songs/{id}", m.handleGetSong)
	mux.HandleFunc("POST /api/songs", m.protect(m.authorize(m.handleCreateSong, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("PUT /api/songs/{id}", m.protect(m.authorize(m.handleUpdateSong, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("DELETE /api/songs/{id}", m.protect(m.authorize(m.handleDeleteSong, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("PUT /api/songs/{id}/stats", m.handleSongStats)

	// Wallpapers
	mux.HandleFunc("GET /api/wallpapers", m.handleListWallpapers)
	mux.HandleFunc("GET /api/wallpapers/{id}", m.handleGetWallpaper)
	mux.HandleFunc("POST /api/wallpapers", m.protect(m.authorize(m.handleCreateWallpaper, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("PUT /api/wallpapers/{id}", m.protect(m.authorize(m.handleUpdateWallpaper, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("DELETE /api/wallpapers/{id}", m.protect(m.authorize(m.handleDeleteWallpaper, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("PUT /api/wallpapers/{id}/stats", m.handleWallpaperStats)

	// Ringtones
	mux.HandleFunc("GET /api/ringtones", m.handleListRingtones)
	mux.HandleFunc("GET /api/ringtones/{id}", m.handleGetRingtone)
	mux.HandleFunc("POST /api/ringtones", m.protect(m.authorize(m.handleCreateRingtone, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("PUT /api/ringtones/{id}", m.protect(m.authorize(m.handleUpdateRingtone, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("DELETE /api/ringtones/{id}", m.protect(m.authorize(m.handleDeleteRingtone, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("PUT /api/ringtones/{id}/stats", m.handleRingtoneStats)

	// Auth. Register stays public so the first principal can bootstrap
	// itself; late registrations still go through duplicate-email and
	// role-assignment rules in the storage layer.
	mux.HandleFunc("POST /api/auth/register", m.handleRegister)
	mux.HandleFunc("POST /api/auth/login", m.handleLogin)
	mux.HandleFunc("GET /api/auth/me", m.protect(m.handleMe))
	mux.HandleFunc("PUT /api/auth/update-password", m.protect(m.handleUpdatePassword))

	// Statistics (admin only)
	mux.HandleFunc("GET /api/statistics/overview", m.protect(m.authorize(m.handleStatsOverview, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("GET /api/statistics/range", m.protect(m.authorize(m.handleStatsRange, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("GET /api/statistics/today", m.protect(m.authorize(m.handleStatsToday, model.RoleAdmin, model.RoleSuperAdmin)))
	mux.HandleFunc("POST /api/statistics/update", m.protect(m.authorize(m.handleStatsUpdate, model.RoleAdmin, model.RoleSuperAdmin)))

	return m, nil
}

// Handler returns the mux wrapped in the front-door middleware chain.
func (m *Mux) Handler() http.Handler {
	return m.frontDoor(m.mux)
}

// statusRecorder captures the status code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// frontDoor applies CORS, security headers, correlation IDs, per-client rate
// limiting, panic containment, request logging and HTTP metrics around every
// route.
func (m *Mux) frontDoor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.applyCORS(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-Id", correlationID)
		r = r.WithContext(context.WithValue(r.Context(), ctxKeyCorrelationID, correlationID))

		if !m.limiter.allow(clientIP(r)) {
			m.writeError(w, apperr.New(apperr.RateLimit, "too many requests"))
			m.logRequest(r, http.StatusTooManyRequests, time.Since(start), correlationID)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				m.logger.Error("handler panic", "panic", p, "path", r.URL.Path, "correlation_id", correlationID)
				m.writeError(rec, apperr.New(apperr.Internal, "internal server error"))
			}
			dur := time.Since(start)
			route := routePattern(r)
			m.metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			m.metrics.RequestDuration.WithLabelValues(route).Observe(dur.Seconds())
			m.logRequest(r, rec.status, dur, correlationID)
		}()

		next.ServeHTTP(rec, r)
	})
}

// applyCORS handles origin checking for both preflight and regular requests.
// An empty allow-list denies all cross-origin callers.
func (m *Mux) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || len(m.cors) == 0 {
		return
	}
	for _, allowed := range m.cors {
		if allowed == "*" || allowed == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Correlation-Id")
			w.Header().Set("Access-Control-Max-Age", "86400")
			return
		}
	}
}

func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, correlationID string) {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("correlation_id", correlationID),
	}
	if admin, ok := r.Context().Value(ctxKeyAdmin).(*model.Admin); ok {
		attrs = append(attrs, slog.String("admin_id", admin.ID))
	}
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	m.logger.LogAttrs(r.Context(), level, "request completed", attrs...)
}

// routePattern returns the matched mux pattern, falling back to the raw path
// for unmatched requests. Using the pattern keeps metric cardinality bounded.
func routePattern(r *http.Request) string {
	if p := r.Pattern; p != "" {
		return p
	}
	return "unmatched"
}

// clientIP extracts the caller address for rate limiting, honoring the first
// X-Forwarded-For hop when present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rps     rate.Limit
	burst   int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterPruneThreshold = 10000

func newClientLimiter(rps rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rps,
		burst:   burst,
	}
}

func (c *clientLimiter) allow(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.clients[ip]
	if !ok {
		if len(c.clients) >= limiterPruneThreshold {
			c.prune()
		}
		b = &clientBucket{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.clients[ip] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// prune drops buckets idle for ten minutes. Called with the lock held.
func (c *clientLimiter) prune() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, b := range c.clients {
		if b.lastSeen.Before(cutoff) {
			delete(c.clients, ip)
		}
	}
}

// handleInfo serves the public service descriptor at the root path.
func (m *Mux) handleInfo(w http.ResponseWriter, r *http.Request) {
	m.writeData(w, http.StatusOK, map[string]interface{}{
		"service": "zema-catalog",
		"version": m.version,
		"endpoints": map[string]string{
			"songs":      "/api/songs",
			"wallpapers": "/api/wallpapers",
			"ringtones":  "/api/ringtones",
			"auth":       "/api/auth",
			"statistics": "/api/statistics",
			"health":     "/health",
		},
	})
}

// handleHealth reports liveness plus database reachability.
func (m *Mux) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "connected"
	health := "ok"
	status := http.StatusOK
	if err := m.store.Ping(ctx); err != nil {
		dbStatus = "disconnected"
		health = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, envelope{
		Success: status == http.StatusOK,
		Data: map[string]interface{}{
			"status":    health,
			"database":  dbStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}

func principal(ctx context.Context) *model.Admin {
	admin, _ := ctx.Value(ctxKeyAdmin).(*model.Admin)
	return admin
}
