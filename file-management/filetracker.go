package filemanagement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/motioncam/ccc/logging"
)

const (
	// TimestampLayout names every still and clip; microseconds keep names unique within a tick.
	TimestampLayout = "2006-01-02-15-04-05.000000"

	// LatestStillName is the pointer in the picture directory that resolves to the newest still
	LatestStillName = "latest.jpg"

	StillExtension = ".jpg"
	ClipExtension  = ".h264"
)

// FileTracker manages the media directories and the latest-still pointer
type FileTracker interface {
	// EnsureDirectories creates the picture and video directories if they don't exist
	EnsureDirectories() error

	// UpdateLatest repoints the latest-still pointer at stillPath
	UpdateLatest(stillPath string) error

	// LatestPath returns the location of the latest-still pointer
	LatestPath() string
}

// MediaLayout describes where stills and clips are written and how they are named
type MediaLayout struct {
	PictureDir     string
	VideoDir       string
	ClipExtension  string // defaults to ClipExtension
	StillExtension string // defaults to StillExtension
}

// StillPath returns the path of a still captured at t
func (l MediaLayout) StillPath(t time.Time) string {
	return filepath.Join(l.PictureDir, t.Format(TimestampLayout)+withDefault(l.StillExtension, StillExtension))
}

// ClipPath returns the path of a clip started at t
func (l MediaLayout) ClipPath(t time.Time) string {
	return filepath.Join(l.VideoDir, t.Format(TimestampLayout)+withDefault(l.ClipExtension, ClipExtension))
}

func withDefault(ext, fallback string) string {
	if ext == "" {
		return fallback
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// LocalFileTracker implements FileTracker for the local filesystem
type LocalFileTracker struct {
	layout MediaLayout
	logger logging.Logger
}

// NewLocalFileTracker creates a new local file tracker
func NewLocalFileTracker(layout MediaLayout, logger logging.Logger) *LocalFileTracker {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &LocalFileTracker{
		layout: layout,
		logger: logger,
	}
}

// Layout returns the media layout this tracker manages
func (t *LocalFileTracker) Layout() MediaLayout {
	return t.layout
}

// EnsureDirectories creates the picture and video directories if they don't exist
func (t *LocalFileTracker) EnsureDirectories() error {
	for _, dir := range []string{t.layout.PictureDir, t.layout.VideoDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		t.logger.Info("Media directory ready", "path", dir)
	}
	return nil
}

// LatestPath returns the location of the latest-still pointer
func (t *LocalFileTracker) LatestPath() string {
	return filepath.Join(t.layout.PictureDir, LatestStillName)
}

// UpdateLatest points latest.jpg at stillPath. A fresh symlink is created under a unique
// temporary name and renamed over the old pointer, so readers always resolve either the
// previous or the new still and never a missing file.
func (t *LocalFileTracker) UpdateLatest(stillPath string) error {
	latest := t.LatestPath()

	// relative targets keep the pointer valid when the media tree is moved or mounted elsewhere
	target := stillPath
	if filepath.Dir(stillPath) == filepath.Dir(latest) {
		target = filepath.Base(stillPath)
	}

	tmp := filepath.Join(filepath.Dir(latest), fmt.Sprintf(".latest-%s.tmp", uuid.NewString()))
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("failed to create latest pointer: %w", err)
	}

	if err := os.Rename(tmp, latest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace latest pointer: %w", err)
	}

	t.logger.Debug("Latest still updated", "latest", latest, "target", stillPath)
	return nil
}
