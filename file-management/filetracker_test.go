package filemanagement

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMediaLayout_Paths(t *testing.T) {
	layout := MediaLayout{PictureDir: "/data/pictures", VideoDir: "/data/videos"}
	ts := time.Date(2024, 5, 17, 8, 3, 9, 123456789, time.UTC)

	if got := layout.StillPath(ts); got != "/data/pictures/2024-05-17-08-03-09.123456.jpg" {
		t.Errorf("Unexpected still path: %s", got)
	}
	if got := layout.ClipPath(ts); got != "/data/videos/2024-05-17-08-03-09.123456.h264" {
		t.Errorf("Unexpected clip path: %s", got)
	}

	layout.ClipExtension = "avi"
	if got := layout.ClipPath(ts); !strings.HasSuffix(got, ".123456.avi") {
		t.Errorf("Expected custom clip extension, got %s", got)
	}
}

func TestMediaLayout_PathsUniqueWithinSecond(t *testing.T) {
	layout := MediaLayout{PictureDir: "/p", VideoDir: "/v"}
	ts := time.Date(2024, 5, 17, 8, 3, 9, 0, time.UTC)

	if layout.StillPath(ts) == layout.StillPath(ts.Add(time.Microsecond)) {
		t.Error("Stills a microsecond apart must get distinct names")
	}
}

func setupTracker(t *testing.T) (*LocalFileTracker, MediaLayout) {
	root := t.TempDir()
	layout := MediaLayout{
		PictureDir: filepath.Join(root, "pictures"),
		VideoDir:   filepath.Join(root, "videos"),
	}
	tracker := NewLocalFileTracker(layout, nil)
	if err := tracker.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	return tracker, layout
}

func TestLocalFileTracker_EnsureDirectories(t *testing.T) {
	_, layout := setupTracker(t)

	for _, dir := range []string{layout.PictureDir, layout.VideoDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Expected directory %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("Expected %s to be a directory", dir)
		}
	}
}

func TestLocalFileTracker_UpdateLatest(t *testing.T) {
	tracker, layout := setupTracker(t)
	now := time.Now()

	first := layout.StillPath(now)
	second := layout.StillPath(now.Add(time.Second))
	if err := os.WriteFile(first, []byte("first"), 0644); err != nil {
		t.Fatalf("Failed to write still: %v", err)
	}
	if err := os.WriteFile(second, []byte("second"), 0644); err != nil {
		t.Fatalf("Failed to write still: %v", err)
	}

	if err := tracker.UpdateLatest(first); err != nil {
		t.Fatalf("UpdateLatest failed: %v", err)
	}
	data, err := os.ReadFile(tracker.LatestPath())
	if err != nil {
		t.Fatalf("Failed to read through latest pointer: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("Expected latest to resolve to first still, got %q", string(data))
	}

	if err := tracker.UpdateLatest(second); err != nil {
		t.Fatalf("UpdateLatest failed: %v", err)
	}
	data, err = os.ReadFile(tracker.LatestPath())
	if err != nil {
		t.Fatalf("Failed to read through latest pointer: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Expected latest to resolve to second still, got %q", string(data))
	}

	target, err := os.Readlink(tracker.LatestPath())
	if err != nil {
		t.Fatalf("latest.jpg should be a symlink: %v", err)
	}
	if target != filepath.Base(second) {
		t.Errorf("Expected relative link target %s, got %s", filepath.Base(second), target)
	}

	// the old still is not owned by the pointer and must survive the update
	if _, err := os.Stat(first); err != nil {
		t.Errorf("Previous still should be untouched: %v", err)
	}

	entries, err := os.ReadDir(layout.PictureDir)
	if err != nil {
		t.Fatalf("Failed to read picture dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".latest-") {
			t.Errorf("Temporary pointer left behind: %s", entry.Name())
		}
	}
}
