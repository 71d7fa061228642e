// Package media provides the hosted asset integration: streaming uploads to
// an S3-compatible object store and the upload resolution policy applied to
// multipart form fields.
package media

import (
	"errors"
	"fmt"
)

// AssetKind is the closed set of binary asset variants the catalog stores.
// Every upload decision (folder, size cap, MIME allow-list) dispatches on the
// kind through lookup tables rather than on raw field-name strings.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetAudio AssetKind = "audio"
)

// ErrNotConfigured is returned when a file upload arrives but the hosted
// asset store has no credentials. Callers must surface this to the client;
// buffered upload bytes are never silently discarded.
var ErrNotConfigured = errors.New("asset store is not configured")

// kindSpec holds the per-kind storage layout.
type kindSpec struct {
	folder string // object key prefix in the bucket
	label  string // human label used in error messages
}

var kindSpecs = map[AssetKind]kindSpec{
	AssetImage: {folder: "images", label: "Image"},
	AssetAudio: {folder: "audio", label: "Audio"},
}

// Folder returns the bucket prefix for the kind.
func (k AssetKind) Folder() string { return kindSpecs[k].folder }

// Label returns the capitalized label for the kind, used in client-facing
// error messages ("Image file too large...").
func (k AssetKind) Label() string { return kindSpecs[k].label }

// Limits carries per-kind upload constraints from configuration.
type Limits struct {
	MaxImageSize int64
	MaxAudioSize int64
	ImageTypes   []string
	AudioTypes   []string
}

// MaxSize returns the byte cap for the kind.
func (l Limits) MaxSize(kind AssetKind) int64 {
	if kind == AssetAudio {
		return l.MaxAudioSize
	}
	return l.MaxImageSize
}

// TypeAllowed reports whether the content type is acceptable for the kind.
// An empty allow-list accepts everything.
func (l Limits) TypeAllowed(kind AssetKind, contentType string) bool {
	types := l.ImageTypes
	if kind == AssetAudio {
		types = l.AudioTypes
	}
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == contentType {
			return true
		}
	}
	return false
}

// SizeError builds the kind-identified message for an oversized upload.
func (l Limits) SizeError(kind AssetKind) string {
	max := l.MaxSize(kind)
	return fmt.Sprintf("%s file too large. Maximum size is %dMB.", kind.Label(), max/(1024*1024))
}
