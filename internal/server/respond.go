package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/ZemaLabs/zema-catalog-go/internal/apperr"
	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
)

// envelope is the JSON response shape shared by every endpoint. Success
// responses carry data (and list metadata where relevant); failures carry
// error + code with success=false.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Token   string      `json:"token,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Total   *int64      `json:"total,omitempty"`
	Pages   *int        `json:"pages,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeData writes a single-document success response.
func (m *Mux) writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeDataWarning is writeData plus a non-fatal warning (e.g. a hosted
// asset that could not be removed).
func (m *Mux) writeDataWarning(w http.ResponseWriter, status int, data interface{}, warning string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Warning: warning})
}

// writeToken writes an auth success response carrying a bearer token next to
// the principal's public profile.
func (m *Mux) writeToken(w http.ResponseWriter, status int, token string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Token: token, Data: data})
}

// writeList writes a paginated collection response. pages is derived from
// total and the effective limit.
func (m *Mux) writeList(w http.ResponseWriter, data interface{}, count int, total int64, limit int) {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Count:   &count,
		Total:   &total,
		Pages:   &pages,
	})
}

// writeCount writes a collection response without pagination metadata.
func (m *Mux) writeCount(w http.ResponseWriter, data interface{}, count int) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

// writeError writes a failure envelope from a classified error.
func (m *Mux) writeError(w http.ResponseWriter, err *apperr.Error) {
	writeJSON(w, err.HTTPStatus, envelope{
		Success: false,
		Error:   err.Message,
		Code:    string(err.Code),
	})
}

// storeError classifies a storage failure. notFoundMsg is the entity-specific
// 404 message; everything unexpected collapses to a generic message so
// internals never reach clients.
func (m *Mux) storeError(err error, notFoundMsg string) *apperr.Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.New(apperr.NotFound, notFoundMsg)
	case errors.Is(err, storage.ErrConflict):
		return apperr.New(apperr.Conflict, "resource already exists")
	case errors.Is(err, storage.ErrUnavailable):
		return apperr.New(apperr.Unavailable, "service temporarily unavailable")
	default:
		return apperr.New(apperr.Internal, "internal server error")
	}
}

// parseListQuery reads the shared listing parameters. Page and limit are
// clamped by the storage layer's bounds.
func parseListQuery(r *http.Request) model.ListQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, limit = storage.ClampPage(page, limit)
	return model.ListQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Featured: q.Get("featured") == "true",
		Page:     page,
		Limit:    limit,
	}
}

// decodeJSON decodes a JSON request body into dst, rejecting malformed input.
func decodeJSON(r *http.Request, dst interface{}) *apperr.Error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.New(apperr.Validation, "invalid JSON body")
	}
	return nil
}
