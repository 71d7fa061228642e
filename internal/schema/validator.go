// Package schema provides JSON-schema validation for catalog entity fields.
// Create requests are checked against a per-entity compiled schema so that
// missing required fields and out-of-set categories come back as 400s naming
// the offending field.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZemaLabs/zema-catalog-go/internal/model"
	"github.com/xeipuuv/gojsonschema"
)

// Entity names known to the validator.
const (
	EntitySong      = "song"
	EntityWallpaper = "wallpaper"
	EntityRingtone  = "ringtone"
)

// Validator validates entity field maps against compiled schemas.
type Validator struct {
	create map[string]*gojsonschema.Schema // required fields + enums, for creates
	update map[string]*gojsonschema.Schema // enums only, for partial updates
}

// NewValidator compiles the per-entity schemas.
func NewValidator() (*Validator, error) {
	v := &Validator{
		create: make(map[string]*gojsonschema.Schema),
		update: make(map[string]*gojsonschema.Schema),
	}

	specs := map[string]struct {
		required   []string
		categories []string
	}{
		EntitySong:      {required: []string{"title", "artist"}, categories: model.SongCategories},
		EntityWallpaper: {required: []string{"title"}, categories: model.WallpaperCategories},
		EntityRingtone:  {required: []string{"title", "duration"}, categories: model.RingtoneCategories},
	}

	for entity, spec := range specs {
		createSchema, err := compile(buildSchema(spec.required, spec.categories))
		if err != nil {
			return nil, fmt.Errorf("compile %s create schema: %w", entity, err)
		}
		updateSchema, err := compile(buildSchema(nil, spec.categories))
		if err != nil {
			return nil, fmt.Errorf("compile %s update schema: %w", entity, err)
		}
		v.create[entity] = createSchema
		v.update[entity] = updateSchema
	}

	return v, nil
}

// buildSchema produces a JSON schema enforcing non-empty required string
// fields and the closed category set.
func buildSchema(required []string, categories []string) map[string]interface{} {
	properties := map[string]interface{}{
		"category": map[string]interface{}{
			"type": "string",
			"enum": categories,
		},
	}
	for _, field := range required {
		properties[field] = map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func compile(schema map[string]interface{}) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
}

// ValidateCreate checks a create payload. Returns nil when valid, otherwise
// an error whose message names the first offending field.
func (v *Validator) ValidateCreate(entity string, fields map[string]interface{}) error {
	return v.validate(v.create, entity, fields)
}

// ValidateUpdate checks a partial-update payload (enums only; absent fields
// are fine).
func (v *Validator) ValidateUpdate(entity string, fields map[string]interface{}) error {
	return v.validate(v.update, entity, fields)
}

func (v *Validator) validate(schemas map[string]*gojsonschema.Schema, entity string, fields map[string]interface{}) error {
	s, ok := schemas[entity]
	if !ok {
		return fmt.Errorf("unknown entity type %q", entity)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(fields))
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}
	return fmt.Errorf("%s", describe(result.Errors()[0]))
}

// describe turns a schema violation into a client-facing, field-identified
// message.
func describe(e gojsonschema.ResultError) string {
	switch e.Type() {
	case "required":
		if prop, ok := e.Details()["property"].(string); ok {
			return fmt.Sprintf("%s is required", prop)
		}
	case "string_gte": // minLength
		return fmt.Sprintf("%s is required", e.Field())
	case "enum":
		return fmt.Sprintf("%s must be one of the allowed values", e.Field())
	}
	field := e.Field()
	if field == "(root)" {
		return e.Description()
	}
	return fmt.Sprintf("%s: %s", field, strings.TrimSpace(e.Description()))
}
