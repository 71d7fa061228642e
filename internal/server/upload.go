package server

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/ZemaLabs/zema-catalog-go/internal/apperr"
	"github.com/ZemaLabs/zema-catalog-go/internal/media"
)

// multipartMemoryLimit is the in-memory threshold for multipart parsing;
// larger parts spill to temp files.
const multipartMemoryLimit = 32 << 20

// entityForm is the parsed body of a create/update request. Creates arrive
// as multipart form-data; updates without a file change may also be plain
// JSON.
type entityForm struct {
	fields map[string]string
	files  map[string]*multipart.FileHeader
}

// parseEntityForm reads either multipart form-data or a JSON object into a
// uniform field map.
func parseEntityForm(r *http.Request) (*entityForm, *apperr.Error) {
	f := &entityForm{
		fields: make(map[string]string),
		files:  make(map[string]*multipart.FileHeader),
	}

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			return nil, apperr.New(apperr.Validation, "invalid multipart form")
		}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				f.fields[key] = vals[0]
			}
		}
		for key, headers := range r.MultipartForm.File {
			if len(headers) > 0 {
				f.files[key] = headers[0]
			}
		}
		return f, nil
	}

	var body map[string]interface{}
	if aerr := decodeJSON(r, &body); aerr != nil {
		return nil, aerr
	}
	for key, val := range body {
		switch v := val.(type) {
		case string:
			f.fields[key] = v
		case bool:
			f.fields[key] = strconv.FormatBool(v)
		case float64:
			f.fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			f.fields[key] = strings.Join(parts, ",")
		case map[string]interface{}:
			// Nested objects (resolution) flatten to their scalar members.
			for nk, nv := range v {
				if n, ok := nv.(float64); ok {
					f.fields[nk] = strconv.FormatFloat(n, 'f', -1, 64)
				}
			}
		}
	}
	return f, nil
}

func (f *entityForm) has(key string) bool {
	_, ok := f.fields[key]
	return ok
}

func (f *entityForm) get(key string) string {
	return f.fields[key]
}

// getOr returns the field value or a fallback when absent or empty.
func (f *entityForm) getOr(key, fallback string) string {
	if v := f.fields[key]; v != "" {
		return v
	}
	return fallback
}

func (f *entityForm) getBool(key string, fallback bool) bool {
	v, ok := f.fields[key]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func (f *entityForm) getInt(key string, fallback int) int {
	v, ok := f.fields[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// tags splits a comma-separated field into trimmed values.
func (f *entityForm) tags(key string) []string {
	v := f.fields[key]
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// schemaFields converts the text fields into the loose map the schema
// validator consumes. File parts are not schema-validated.
func (f *entityForm) schemaFields() map[string]interface{} {
	out := make(map[string]interface{}, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}

// assetSlot describes one uploadable asset position on an entity: the
// multipart file key, the plain-URL fallback field and the asset kind.
type assetSlot struct {
	fileKey string
	urlKey  string
	kind    media.AssetKind
}

// resolvedAsset is the outcome of applying the precedence policy to a slot.
type resolvedAsset struct {
	URL     string
	Key     string
	Changed bool
}

// resolveAsset applies the upload precedence policy for one slot: an
// uploaded file always wins, a client-supplied URL is the fallback, and the
// current values stand when neither is present. A file arriving while the
// asset store is unconfigured is an explicit client error, never a silent
// drop.
func (m *Mux) resolveAsset(ctx context.Context, form *entityForm, slot assetSlot, currentURL, currentKey string) (resolvedAsset, *apperr.Error) {
	fh := form.files[slot.fileKey]
	if fh != nil {
		if m.assets == nil {
			return resolvedAsset{}, apperr.Newf(apperr.Validation,
				"File uploads are not available: %v", media.ErrNotConfigured)
		}
		if fh.Size > m.limits.MaxSize(slot.kind) {
			m.metrics.UploadsTotal.WithLabelValues(string(slot.kind), "rejected").Inc()
			return resolvedAsset{}, apperr.New(apperr.MediaSize, m.limits.SizeError(slot.kind))
		}
		contentType := fh.Header.Get("Content-Type")
		if !m.limits.TypeAllowed(slot.kind, contentType) {
			m.metrics.UploadsTotal.WithLabelValues(string(slot.kind), "rejected").Inc()
			return resolvedAsset{}, apperr.Newf(apperr.MediaType,
				"%s type %s is not allowed", slot.kind.Label(), contentType)
		}

		file, err := fh.Open()
		if err != nil {
			return resolvedAsset{}, apperr.New(apperr.Internal, "failed to read uploaded file")
		}
		defer file.Close()

		result, err := m.assets.Upload(ctx, slot.kind, fh.Filename, contentType, file)
		if err != nil {
			m.metrics.UploadsTotal.WithLabelValues(string(slot.kind), "error").Inc()
			m.logger.Error("asset upload failed", "error", err,
				"kind", slot.kind, "correlation_id", correlationID(ctx))
			return resolvedAsset{}, apperr.New(apperr.Internal, "failed to store uploaded file")
		}
		m.metrics.UploadsTotal.WithLabelValues(string(slot.kind), "ok").Inc()
		m.metrics.UploadBytes.Add(float64(fh.Size))
		return resolvedAsset{URL: result.URL, Key: result.Key, Changed: true}, nil
	}

	if url := form.get(slot.urlKey); url != "" && url != currentURL {
		// Externally hosted asset: no deletion handle.
		return resolvedAsset{URL: url, Changed: true}, nil
	}

	return resolvedAsset{URL: currentURL, Key: currentKey}, nil
}

// requireAsset rejects a slot that resolved to nothing. Creates must supply
// every asset-bearing field as either an uploaded file or a URL.
func requireAsset(a resolvedAsset, slot assetSlot) *apperr.Error {
	if a.URL == "" {
		return apperr.Newf(apperr.Validation, "%s is required", slot.urlKey)
	}
	return nil
}

// deleteAsset removes a hosted object best-effort. Failures append a warning
// for the response instead of aborting the operation.
func (m *Mux) deleteAsset(ctx context.Context, key string, warnings *[]string) {
	if key == "" || m.assets == nil {
		return
	}
	if err := m.assets.Delete(ctx, key); err != nil {
		m.logger.Warn("asset deletion failed", "error", err, "key", key,
			"correlation_id", correlationID(ctx))
		*warnings = append(*warnings, fmt.Sprintf("failed to remove hosted asset %s", key))
	}
}

func joinWarnings(warnings []string) string {
	return strings.Join(warnings, "; ")
}
