package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/motioncam/ccc/logging"
	"github.com/yeti47/motioncam/common"
)

// StopTriggerInterrupted marks clips found open at startup
const StopTriggerInterrupted = "interrupted"

// Journal records what the camera wrote. It is bookkeeping only: callers log its errors
// and carry on.
type Journal interface {
	// RecordStill stores a still taken at takenAt
	RecordStill(ctx context.Context, path, trigger string, takenAt time.Time) (*Capture, error)

	// OpenClip stores a clip started at startedAt and returns its ID
	OpenClip(ctx context.Context, path, trigger string, startedAt time.Time) (string, error)

	// CloseClip completes the clip opened under id
	CloseClip(ctx context.Context, id string, details ClipDetails) error
}

type captureJournal struct {
	logger logging.Logger
	repo   CaptureRepository
}

// NewJournal creates a Journal backed by repo
func NewJournal(repo CaptureRepository, logger logging.Logger) *captureJournal {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &captureJournal{
		logger: logger,
		repo:   repo,
	}
}

func (j *captureJournal) RecordStill(ctx context.Context, path, trigger string, takenAt time.Time) (*Capture, error) {
	capture := &Capture{
		ID:        uuid.New().String(),
		Kind:      KindStill,
		Path:      path,
		MimeType:  common.MediaMimeType(path),
		Trigger:   trigger,
		StartedAt: takenAt,
		EndedAt:   &takenAt,
	}

	if err := j.repo.Add(ctx, capture); err != nil {
		return nil, fmt.Errorf("failed to record still: %w", err)
	}
	return capture, nil
}

func (j *captureJournal) OpenClip(ctx context.Context, path, trigger string, startedAt time.Time) (string, error) {
	capture := &Capture{
		ID:        uuid.New().String(),
		Kind:      KindClip,
		Path:      path,
		MimeType:  common.MediaMimeType(path),
		Trigger:   trigger,
		StartedAt: startedAt,
	}

	if err := j.repo.Add(ctx, capture); err != nil {
		return "", fmt.Errorf("failed to open clip: %w", err)
	}
	j.logger.Debug("Clip opened in journal", "id", capture.ID, "path", path)
	return capture.ID, nil
}

func (j *captureJournal) CloseClip(ctx context.Context, id string, details ClipDetails) error {
	if err := j.repo.Complete(ctx, id, details); err != nil {
		return fmt.Errorf("failed to close clip: %w", err)
	}
	j.logger.Debug("Clip closed in journal", "id", id, "duration", details.Duration.String())
	return nil
}

// RecoverOpenClips closes clips left open by a previous run that did not shut down cleanly
func RecoverOpenClips(ctx context.Context, repo CaptureRepository, now time.Time, logger logging.Logger) error {
	closed, err := repo.CloseOpenClips(ctx, now, StopTriggerInterrupted)
	if err != nil {
		return err
	}
	if closed > 0 && logger != nil {
		logger.Warn("Closed clips left open by a previous run", "count", closed)
	}
	return nil
}

type nopJournal struct{}

// NopJournal discards every entry. Used when journal_path is empty.
var NopJournal Journal = &nopJournal{}

func (j *nopJournal) RecordStill(ctx context.Context, path, trigger string, takenAt time.Time) (*Capture, error) {
	return &Capture{Kind: KindStill, Path: path, Trigger: trigger, StartedAt: takenAt}, nil
}

func (j *nopJournal) OpenClip(ctx context.Context, path, trigger string, startedAt time.Time) (string, error) {
	return "", nil
}

func (j *nopJournal) CloseClip(ctx context.Context, id string, details ClipDetails) error {
	return nil
}
