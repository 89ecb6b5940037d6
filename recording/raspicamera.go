package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yeti47/motioncam/ccc/logging"
	"github.com/yeti47/motioncam/config"
)

// RaspiCamera drives the Raspberry Pi camera through the raspistill/raspivid tools or their
// rpicam-still/rpicam-vid successors. A clip is a running video process writing to its path;
// it is finalized by interrupting the process.
type RaspiCamera struct {
	settings RecordingSettings
	logger   logging.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	exited   chan error
	clipPath string
}

func NewRaspiCamera(provider config.SettingsProvider[RecordingSettings], logger logging.Logger) *RaspiCamera {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &RaspiCamera{
		settings: provider.GetSettings(),
		logger:   logger,
	}
}

// usesRpicamFlags reports whether command takes the libcamera style long options
func usesRpicamFlags(command string) bool {
	base := filepath.Base(command)
	return strings.HasPrefix(base, "rpicam-") || strings.HasPrefix(base, "libcamera-")
}

func stillArgs(path string, s RecordingSettings) []string {
	args := []string{"-o", path, "-n", "-t", "1", "-q", strconv.Itoa(s.StillQuality)}
	return append(args, geometryArgs(s.StillCommand, s)...)
}

func videoArgs(path string, s RecordingSettings) []string {
	// -t 0 records until interrupted
	args := []string{"-o", path, "-n", "-t", "0"}
	if s.FrameRate > 0 {
		if usesRpicamFlags(s.VideoCommand) {
			args = append(args, "--framerate", strconv.FormatFloat(s.FrameRate, 'f', -1, 64))
		} else {
			args = append(args, "-fps", strconv.Itoa(int(s.FrameRate)))
		}
	}
	return append(args, geometryArgs(s.VideoCommand, s)...)
}

func geometryArgs(command string, s RecordingSettings) []string {
	var args []string
	rpicam := usesRpicamFlags(command)

	if !s.Resolution.IsEmpty() {
		if rpicam {
			args = append(args, "--width", strconv.Itoa(s.Resolution.Width), "--height", strconv.Itoa(s.Resolution.Height))
		} else {
			args = append(args, "-w", strconv.Itoa(s.Resolution.Width), "-h", strconv.Itoa(s.Resolution.Height))
		}
	}
	if s.Rotation != 0 {
		if rpicam {
			args = append(args, "--rotation", strconv.Itoa(s.Rotation))
		} else {
			args = append(args, "-rot", strconv.Itoa(s.Rotation))
		}
	}
	return args
}

// CaptureStill runs the still command and waits for it to write path
func (c *RaspiCamera) CaptureStill(ctx context.Context, path string) error {
	args := stillArgs(path, c.settings)
	c.logger.Debug("Running still command", "command", c.settings.StillCommand, "args", strings.Join(args, " "))

	output, err := exec.CommandContext(ctx, c.settings.StillCommand, args...).CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
		}
		return NewRecoverableDeviceError(OpCaptureStill, path, err)
	}
	return nil
}

// StartRecording launches the video command. The process is given StartupGrace to fail
// (camera busy, bad arguments) before the clip counts as started.
func (c *RaspiCamera) StartRecording(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return NewNonRecoverableDeviceError(OpStartRecording, path, ErrAlreadyRecording)
	}

	args := videoArgs(path, c.settings)
	c.logger.Debug("Running video command", "command", c.settings.VideoCommand, "args", strings.Join(args, " "))

	// the clip outlives the tick that started it, so the process is not bound to ctx
	cmd := exec.Command(c.settings.VideoCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return NewNonRecoverableDeviceError(OpStartRecording, path, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	grace := time.NewTimer(c.settings.StartupGrace)
	defer grace.Stop()

	select {
	case err := <-exited:
		if err == nil {
			err = errors.New("video process exited immediately")
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return NewRecoverableDeviceError(OpStartRecording, path, err)
	case <-ctx.Done():
		stopProcess(cmd, exited, 0)
		return NewRecoverableDeviceError(OpStartRecording, path, ctx.Err())
	case <-grace.C:
	}

	c.cmd = cmd
	c.exited = exited
	c.clipPath = path
	return nil
}

// StopRecording interrupts the video process so it flushes the clip, killing it if it has
// not exited within StopTimeout.
func (c *RaspiCamera) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil {
		return NewNonRecoverableDeviceError(OpStopRecording, "", ErrNotRecording)
	}

	cmd, exited, path := c.cmd, c.exited, c.clipPath
	c.cmd, c.exited, c.clipPath = nil, nil, ""

	timeout := c.settings.StopTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	if killed := stopProcess(cmd, exited, timeout); killed {
		c.logger.Warn("Video process did not exit after interrupt, killed", "path", path, "timeout", timeout.String())
	}

	if _, err := os.Stat(path); err != nil {
		return NewNonRecoverableDeviceError(OpStopRecording, path, fmt.Errorf("clip missing after stop: %w", err))
	}
	return nil
}

// stopProcess interrupts cmd and waits up to timeout for it to exit before killing it.
// It reports whether the process had to be killed.
func stopProcess(cmd *exec.Cmd, exited <-chan error, timeout time.Duration) bool {
	select {
	case <-exited:
		return false
	default:
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
		<-exited
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-exited:
		return false
	case <-timer.C:
		cmd.Process.Kill()
		<-exited
		return true
	}
}

func (c *RaspiCamera) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmd != nil
}
