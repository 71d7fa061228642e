package schema

import (
	"strings"
	"testing"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestCreateRequiresTitle(t *testing.T) {
	v := newValidator(t)
	err := v.ValidateCreate(EntitySong, map[string]interface{}{
		"artist": "Aster",
	})
	if err == nil {
		t.Fatal("missing title accepted")
	}
	if !strings.Contains(err.Error(), "title") {
		t.Errorf("error %q does not name the missing field", err)
	}
}

func TestCreateRequiresEntitySpecificFields(t *testing.T) {
	v := newValidator(t)

	if err := v.ValidateCreate(EntitySong, map[string]interface{}{"title": "x"}); err == nil ||
		!strings.Contains(err.Error(), "artist") {
		t.Errorf("song without artist: %v, want artist named", err)
	}
	if err := v.ValidateCreate(EntityRingtone, map[string]interface{}{"title": "x"}); err == nil ||
		!strings.Contains(err.Error(), "duration") {
		t.Errorf("ringtone without duration: %v, want duration named", err)
	}
	// Wallpapers only require a title.
	if err := v.ValidateCreate(EntityWallpaper, map[string]interface{}{"title": "x"}); err != nil {
		t.Errorf("minimal wallpaper rejected: %v", err)
	}
}

func TestCreateRejectsEmptyRequiredField(t *testing.T) {
	v := newValidator(t)
	err := v.ValidateCreate(EntitySong, map[string]interface{}{
		"title":  "",
		"artist": "Aster",
	})
	if err == nil {
		t.Fatal("empty title accepted")
	}
	if !strings.Contains(err.Error(), "title") {
		t.Errorf("error %q does not name the field", err)
	}
}

func TestCategoryEnums(t *testing.T) {
	v := newValidator(t)

	ok := map[string]interface{}{"title": "x", "artist": "y", "category": "Modern"}
	if err := v.ValidateCreate(EntitySong, ok); err != nil {
		t.Errorf("valid category rejected: %v", err)
	}

	bad := map[string]interface{}{"title": "x", "artist": "y", "category": "Jazz"}
	if err := v.ValidateCreate(EntitySong, bad); err == nil {
		t.Error("unknown category accepted")
	}

	// Category sets are per entity: Nature is a wallpaper category, not a song one.
	cross := map[string]interface{}{"title": "x", "artist": "y", "category": "Nature"}
	if err := v.ValidateCreate(EntitySong, cross); err == nil {
		t.Error("wallpaper category accepted on a song")
	}
}

func TestUpdateAllowsPartialPayloads(t *testing.T) {
	v := newValidator(t)

	if err := v.ValidateUpdate(EntitySong, map[string]interface{}{"lyrics": "text"}); err != nil {
		t.Errorf("partial update rejected: %v", err)
	}
	if err := v.ValidateUpdate(EntitySong, map[string]interface{}{}); err != nil {
		t.Errorf("empty update rejected: %v", err)
	}
	if err := v.ValidateUpdate(EntitySong, map[string]interface{}{"category": "Jazz"}); err == nil {
		t.Error("bad category accepted on update")
	}
}

func TestUnknownEntity(t *testing.T) {
	v := newValidator(t)
	if err := v.ValidateCreate("podcast", map[string]interface{}{"title": "x"}); err == nil {
		t.Error("unknown entity type accepted")
	}
}
