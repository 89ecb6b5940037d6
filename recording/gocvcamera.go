package recording

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/yeti47/motioncam/ccc/logging"
	"github.com/yeti47/motioncam/config"
	"gocv.io/x/gocv"
)

// GoCVCamera captures from a USB webcam through OpenCV. A grab loop keeps the most recent
// frame; stills are encoded from it and an open clip receives every grabbed frame.
type GoCVCamera struct {
	settings RecordingSettings
	logger   logging.Logger
	webcam   *gocv.VideoCapture

	mu       sync.Mutex
	frame    gocv.Mat
	hasFrame bool
	writer   *gocv.VideoWriter
	clipPath string
	frames   int

	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewGoCVCamera opens the configured device. Start must be called before frames are available.
func NewGoCVCamera(provider config.SettingsProvider[RecordingSettings], logger logging.Logger) (*GoCVCamera, error) {
	if logger == nil {
		logger = logging.NopLogger
	}
	settings := provider.GetSettings()

	// numeric devices are indices, anything else is a device path or stream URL
	var device any = settings.Device
	if id, err := strconv.Atoi(settings.Device); err == nil {
		device = id
	}

	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open webcam %s: %w", settings.Device, err)
	}

	if !settings.Resolution.IsEmpty() {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(settings.Resolution.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(settings.Resolution.Height))
	}
	if settings.FrameRate > 0 {
		webcam.Set(gocv.VideoCaptureFPS, settings.FrameRate)
	}

	logger.Info("Webcam opened", "device", settings.Device,
		"width", int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(webcam.Get(gocv.VideoCaptureFrameHeight)))

	return &GoCVCamera{
		settings: settings,
		logger:   logger,
		webcam:   webcam,
		frame:    gocv.NewMat(),
	}, nil
}

// Start launches the grab loop. It runs until ctx is cancelled or Close is called.
func (c *GoCVCamera) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})

	go c.grabLoop(ctx)
}

func (c *GoCVCamera) grabLoop(ctx context.Context) {
	defer close(c.stopped)

	img := gocv.NewMat()
	defer img.Close()

	failures := 0
	for ctx.Err() == nil {
		if ok := c.webcam.Read(&img); !ok || img.Empty() {
			failures++
			if failures == 1 || failures%100 == 0 {
				c.logger.Warn("Failed to read frame from webcam", "consecutive_failures", failures)
			}
			time.Sleep(67 * time.Millisecond)
			continue
		}
		failures = 0

		c.mu.Lock()
		img.CopyTo(&c.frame)
		c.hasFrame = true
		if c.writer != nil {
			if err := c.writer.Write(img); err != nil {
				c.logger.Warn("Failed to write frame to clip", "path", c.clipPath, "error", err)
			} else {
				c.frames++
			}
		}
		c.mu.Unlock()
	}
}

// ReadFrame copies the latest grabbed frame into dst
func (c *GoCVCamera) ReadFrame(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasFrame {
		return false
	}
	c.frame.CopyTo(dst)
	return true
}

// CaptureStill encodes the latest frame as JPEG
func (c *GoCVCamera) CaptureStill(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasFrame {
		return NewRecoverableDeviceError(OpCaptureStill, path, errors.New("no frame grabbed yet"))
	}

	params := []int{int(gocv.IMWriteJpegQuality), c.settings.StillQuality}
	if ok := gocv.IMWriteWithParams(path, c.frame, params); !ok {
		return NewRecoverableDeviceError(OpCaptureStill, path, errors.New("failed to encode still"))
	}
	return nil
}

// StartRecording opens a video writer sized to the grabbed frames
func (c *GoCVCamera) StartRecording(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer != nil {
		return NewNonRecoverableDeviceError(OpStartRecording, path, ErrAlreadyRecording)
	}

	width, height := c.settings.Resolution.Width, c.settings.Resolution.Height
	if c.hasFrame {
		width, height = c.frame.Cols(), c.frame.Rows()
	}
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}

	writer, err := gocv.VideoWriterFile(path, c.settings.Codec, c.settings.FrameRate, width, height, true)
	if err != nil {
		return NewRecoverableDeviceError(OpStartRecording, path, err)
	}

	c.writer = writer
	c.clipPath = path
	c.frames = 0
	return nil
}

// StopRecording closes the video writer, finalizing the clip
func (c *GoCVCamera) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer == nil {
		return NewNonRecoverableDeviceError(OpStopRecording, "", ErrNotRecording)
	}

	err := c.writer.Close()
	c.logger.Debug("Clip writer closed", "path", c.clipPath, "frames", c.frames)
	c.writer = nil
	c.clipPath = ""

	if err != nil {
		return NewNonRecoverableDeviceError(OpStopRecording, "", err)
	}
	return nil
}

func (c *GoCVCamera) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writer != nil
}

// Close stops the grab loop and releases the webcam
func (c *GoCVCamera) Close() error {
	c.mu.Lock()
	cancel, stopped := c.cancel, c.stopped
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer != nil {
		c.writer.Close()
		c.writer = nil
	}
	c.frame.Close()
	return c.webcam.Close()
}
