package media

import (
	"strings"
	"testing"
)

func testLimits() Limits {
	return Limits{
		MaxImageSize: 10 * 1024 * 1024,
		MaxAudioSize: 50 * 1024 * 1024,
		ImageTypes:   []string{"image/jpeg", "image/png"},
		AudioTypes:   []string{"audio/mpeg"},
	}
}

func TestMaxSizePerKind(t *testing.T) {
	l := testLimits()
	if l.MaxSize(AssetImage) != 10*1024*1024 {
		t.Errorf("image cap = %d", l.MaxSize(AssetImage))
	}
	if l.MaxSize(AssetAudio) != 50*1024*1024 {
		t.Errorf("audio cap = %d", l.MaxSize(AssetAudio))
	}
}

func TestTypeAllowed(t *testing.T) {
	l := testLimits()
	if !l.TypeAllowed(AssetImage, "image/png") {
		t.Error("allowed image type rejected")
	}
	if l.TypeAllowed(AssetImage, "application/pdf") {
		t.Error("disallowed type accepted")
	}
	if l.TypeAllowed(AssetAudio, "image/png") {
		t.Error("image type accepted for audio slot")
	}

	open := Limits{}
	if !open.TypeAllowed(AssetImage, "anything/at-all") {
		t.Error("empty allow-list should accept everything")
	}
}

func TestSizeErrorIdentifiesKind(t *testing.T) {
	l := testLimits()
	msg := l.SizeError(AssetImage)
	if !strings.Contains(msg, "Image") || !strings.Contains(msg, "10MB") {
		t.Errorf("image size error = %q", msg)
	}
	msg = l.SizeError(AssetAudio)
	if !strings.Contains(msg, "Audio") || !strings.Contains(msg, "50MB") {
		t.Errorf("audio size error = %q", msg)
	}
}

func TestKindFolders(t *testing.T) {
	if AssetImage.Folder() != "images" || AssetAudio.Folder() != "audio" {
		t.Errorf("folders = %q/%q", AssetImage.Folder(), AssetAudio.Folder())
	}
}

func TestObjectKeySanitization(t *testing.T) {
	key := objectKey(AssetImage, "../..\\weird name!.jpg")
	if strings.Contains(key, "..") || strings.Contains(key, " ") || strings.Contains(key, "!") {
		t.Errorf("object key not sanitized: %q", key)
	}
	if !strings.HasPrefix(key, "images/") {
		t.Errorf("object key missing kind prefix: %q", key)
	}

	// Keys embed a ULID, so collisions between identical filenames are avoided.
	if objectKey(AssetImage, "a.jpg") == objectKey(AssetImage, "a.jpg") {
		t.Error("two keys for the same filename collided")
	}
}
