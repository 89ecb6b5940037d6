package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yeti47/motioncam/ccc/logging"
	filemanagement "github.com/yeti47/motioncam/file-management"
	"github.com/yeti47/motioncam/journal"
	motiondetection "github.com/yeti47/motioncam/motion-detection"
	"github.com/yeti47/motioncam/notifications"
	postprocessing "github.com/yeti47/motioncam/post-processing"
	"github.com/yeti47/motioncam/recording"
	"github.com/yeti47/motioncam/scheduling"
)

// DefaultShutdownTimeout bounds the final StopRecording issued when the controller is cancelled
const DefaultShutdownTimeout = 10 * time.Second

// Status is a snapshot of the controller published after every tick
type Status struct {
	Phase       string
	Since       time.Time // zero while idle
	Deadline    time.Time // zero unless cooling down
	LastStillAt time.Time
	LatestStill string // path of the newest still, empty before the first one
	ClipPath    string // open clip, empty while idle
	Motion      bool
	LastTickAt  time.Time
	LastError   string
	LastErrorAt time.Time
	StillCount  int
	ClipCount   int
	FailedTicks int

	CameraRecording bool // as reported by the camera device
}

// Controller runs the capture loop: it samples the motion sensor once per tick, asks the
// scheduler what to do, executes the resulting commands on the camera and commits the
// decision only if every command succeeded.
type Controller struct {
	scheduler *scheduling.Scheduler
	sensor    motiondetection.MotionSensor
	camera    recording.CameraDevice
	tracker   filemanagement.FileTracker
	journal   journal.Journal
	inspector postprocessing.ClipInspector
	notifier  notifications.MotionNotifier
	logger    logging.Logger

	tickInterval    time.Duration
	shutdownTimeout time.Duration
	now             func() time.Time

	// open clip bookkeeping, touched by the loop goroutine only
	clipID        string
	clipPath      string
	clipStartedAt time.Time

	mu     sync.RWMutex
	status Status
}

// NewController wires a controller. journal and inspector may be nil.
func NewController(
	scheduler *scheduling.Scheduler,
	sensor motiondetection.MotionSensor,
	camera recording.CameraDevice,
	tracker filemanagement.FileTracker,
	captureJournal journal.Journal,
	inspector postprocessing.ClipInspector,
	tickInterval time.Duration,
	logger logging.Logger,
) *Controller {
	if logger == nil {
		logger = logging.NopLogger
	}
	if captureJournal == nil {
		captureJournal = journal.NopJournal
	}
	if inspector == nil {
		inspector = postprocessing.NopClipInspector
	}

	c := &Controller{
		scheduler:       scheduler,
		sensor:          sensor,
		camera:          camera,
		tracker:         tracker,
		journal:         captureJournal,
		inspector:       inspector,
		notifier:        notifications.NopMotionNotifier,
		logger:          logger,
		tickInterval:    tickInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		now:             time.Now,
	}
	c.publish(time.Time{}, false, nil)
	return c
}

// SetMotionNotifier installs a notifier told about every clip started by motion
func (c *Controller) SetMotionNotifier(notifier notifications.MotionNotifier) {
	c.notifier = notifier
}

// SetClock replaces the time source used by Run
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Run ticks until ctx is cancelled, then closes an open clip before returning. Tick errors
// are logged and never end the loop.
func (c *Controller) Run(ctx context.Context) error {
	settings := c.scheduler.Settings()
	c.logger.Info("Capture loop started",
		"tick_interval", c.tickInterval.String(),
		"picture_interval", settings.PictureInterval.String(),
		"min_video_length", settings.MinVideoLength.String(),
		"max_video_length", settings.MaxVideoLength.String(),
	)

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	c.Step(ctx, c.now())

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Capture loop stopping")
			return c.Shutdown(c.now())
		case <-ticker.C:
			c.Step(ctx, c.now())
		}
	}
}

// Step runs a single tick at now
func (c *Controller) Step(ctx context.Context, now time.Time) error {
	motion, err := c.sensor.MotionDetected(ctx)
	if err != nil {
		c.logger.Debug("Motion sensor reading failed, assuming no motion", "error", err)
		motion = false
	}

	d := c.scheduler.Decide(now, motion)
	err = c.apply(ctx, d)
	c.publish(now, motion, err)
	return err
}

// Shutdown stops an open clip. It uses its own timeout since the loop context is already done.
func (c *Controller) Shutdown(now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
	defer cancel()

	d := c.scheduler.Shutdown(now)
	if d.IsNone() {
		return nil
	}

	err := c.apply(ctx, d)
	c.publish(now, false, err)
	if err != nil {
		return fmt.Errorf("failed to stop recording on shutdown: %w", err)
	}
	return nil
}

// apply executes the commands of d in order and commits d if all of them succeeded.
// A still written before a failing command still restarts the periodic timer.
func (c *Controller) apply(ctx context.Context, d scheduling.Decision) error {
	stillTaken := false
	for _, cmd := range d.Commands {
		if err := c.execute(ctx, cmd, d.At()); err != nil {
			if stillTaken {
				c.scheduler.NoteStill(d.At())
			}
			if recording.IsRecoverableDeviceError(err) {
				c.logger.Warn("Camera command failed, retrying next tick", "command", cmd.Kind.String(), "error", err)
			} else {
				c.logger.Error("Camera command failed", "command", cmd.Kind.String(), "error", err)
			}
			return err
		}
		stillTaken = stillTaken || cmd.Kind == scheduling.CommandCaptureStill
	}
	return c.scheduler.Commit(d)
}

func (c *Controller) execute(ctx context.Context, cmd scheduling.Command, now time.Time) error {
	switch cmd.Kind {
	case scheduling.CommandCaptureStill:
		return c.captureStill(ctx, cmd, now)
	case scheduling.CommandStartRecording:
		return c.startRecording(ctx, cmd, now)
	case scheduling.CommandStopRecording:
		return c.stopRecording(ctx, cmd, now)
	default:
		return nil
	}
}

func (c *Controller) captureStill(ctx context.Context, cmd scheduling.Command, now time.Time) error {
	if err := c.camera.CaptureStill(ctx, cmd.Path); err != nil {
		return err
	}

	if cmd.UpdateLatest {
		if err := c.tracker.UpdateLatest(cmd.Path); err != nil {
			c.logger.Warn("Failed to update latest still", "path", cmd.Path, "error", err)
		}
	}
	if _, err := c.journal.RecordStill(ctx, cmd.Path, string(cmd.Trigger), now); err != nil {
		c.logger.Warn("Failed to journal still", "path", cmd.Path, "error", err)
	}

	c.mu.Lock()
	c.status.LatestStill = cmd.Path
	c.status.StillCount++
	c.mu.Unlock()
	return nil
}

func (c *Controller) startRecording(ctx context.Context, cmd scheduling.Command, now time.Time) error {
	if err := c.camera.StartRecording(ctx, cmd.Path); err != nil {
		return err
	}

	id, err := c.journal.OpenClip(ctx, cmd.Path, string(cmd.Trigger), now)
	if err != nil {
		c.logger.Warn("Failed to journal clip start", "path", cmd.Path, "error", err)
	}

	c.clipID = id
	c.clipPath = cmd.Path
	c.clipStartedAt = now

	if cmd.Trigger == scheduling.TriggerMotion {
		c.notifier.NotifyMotion(cmd.Path, now)
	}
	return nil
}

func (c *Controller) stopRecording(ctx context.Context, cmd scheduling.Command, now time.Time) error {
	if err := c.camera.StopRecording(ctx); err != nil {
		if !errors.Is(err, recording.ErrNotRecording) {
			return err
		}
		// the schedule and the camera disagree; bring the schedule back to Idle
		c.logger.Error("Stop recording issued but camera was not recording", "trigger", string(cmd.Trigger))
	}

	path, id, startedAt := c.clipPath, c.clipID, c.clipStartedAt
	c.clipID, c.clipPath, c.clipStartedAt = "", "", time.Time{}

	if path == "" {
		return nil
	}

	details := journal.ClipDetails{
		EndedAt:     now,
		StopTrigger: string(cmd.Trigger),
		Duration:    now.Sub(startedAt),
	}
	if info, err := c.inspector.InspectClip(path, details.Duration); err != nil {
		c.logger.Warn("Failed to inspect clip", "path", path, "error", err)
	} else {
		details.Duration = info.Duration
		details.Width = info.Width
		details.Height = info.Height
		details.Codec = info.Codec
	}

	if id != "" {
		if err := c.journal.CloseClip(ctx, id, details); err != nil {
			c.logger.Warn("Failed to journal clip stop", "path", path, "error", err)
		}
	}

	c.mu.Lock()
	c.status.ClipCount++
	c.mu.Unlock()

	c.logger.Info("Clip saved", "path", path, "duration", details.Duration.String())
	return nil
}

func (c *Controller) publish(now time.Time, motion bool, err error) {
	memory := c.scheduler.Memory()
	cameraRecording := c.camera.IsRecording()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Phase = memory.State.Phase.String()
	c.status.Since = memory.State.Since
	c.status.Deadline = memory.State.Deadline
	c.status.LastStillAt = memory.LastStillAt
	c.status.ClipPath = c.clipPath
	c.status.CameraRecording = cameraRecording
	c.status.Motion = motion
	c.status.LastTickAt = now
	if err != nil {
		c.status.LastError = err.Error()
		c.status.LastErrorAt = now
		c.status.FailedTicks++
	}
}

// Status returns the snapshot published after the last tick. Safe for concurrent use.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
