package motiondetection

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/yeti47/motioncam/ccc/logging"
	"github.com/yeti47/motioncam/config"
	"gocv.io/x/gocv"
)

// minChangedPixels is the frame difference below which a frame is not inspected for contours
const minChangedPixels = 5000

// FrameSource provides the most recent camera frame
type FrameSource interface {
	// ReadFrame copies the latest frame into dst and reports whether one was available
	ReadFrame(dst *gocv.Mat) bool
}

// GoCVMotionSensor detects motion by background subtraction on frames pulled from a
// FrameSource, one frame per reading. Contours are filtered by area, size and aspect ratio.
type GoCVMotionSensor struct {
	source   FrameSource
	settings MotionDetectionSettings
	logger   logging.Logger

	mu          sync.Mutex
	detector    gocv.BackgroundSubtractorMOG2
	img         gocv.Mat
	gray        gocv.Mat
	blurred     gocv.Mat
	prevBlurred gocv.Mat
	diff        gocv.Mat
	fgMask      gocv.Mat
	thresh      gocv.Mat
	kernel      gocv.Mat
	frameCount  int
}

func NewGoCVMotionSensor(source FrameSource, provider config.SettingsProvider[MotionDetectionSettings], logger logging.Logger) *GoCVMotionSensor {
	if logger == nil {
		logger = logging.NopLogger
	}
	settings := normalizeVisionSettings(provider.GetSettings())

	return &GoCVMotionSensor{
		source:   source,
		settings: settings,
		logger:   logger,
		detector: gocv.NewBackgroundSubtractorMOG2WithParams(
			settings.MotionMogHistory,
			settings.MotionMogVarThresh,
			false, // shadows count as motion otherwise
		),
		img:         gocv.NewMat(),
		gray:        gocv.NewMat(),
		blurred:     gocv.NewMat(),
		prevBlurred: gocv.NewMat(),
		diff:        gocv.NewMat(),
		fgMask:      gocv.NewMat(),
		thresh:      gocv.NewMat(),
		kernel:      gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
	}
}

func normalizeVisionSettings(s MotionDetectionSettings) MotionDetectionSettings {
	d := DefaultMotionDetectionSettings
	if s.MotionMinArea <= 0 {
		s.MotionMinArea = d.MotionMinArea
	}
	if s.WarmUpFrames < 0 {
		s.WarmUpFrames = d.WarmUpFrames
	}
	if s.MotionMinWidth <= 0 {
		s.MotionMinWidth = d.MotionMinWidth
	}
	if s.MotionMinHeight <= 0 {
		s.MotionMinHeight = d.MotionMinHeight
	}
	if s.MotionMinAspect <= 0 {
		s.MotionMinAspect = d.MotionMinAspect
	}
	if s.MotionMaxAspect <= 0 {
		s.MotionMaxAspect = d.MotionMaxAspect
	}
	if s.MotionMogHistory <= 0 {
		s.MotionMogHistory = d.MotionMogHistory
	}
	if s.MotionMogVarThresh <= 0 {
		s.MotionMogVarThresh = d.MotionMogVarThresh
	}
	return s
}

// MotionDetected pulls one frame and reports whether it contains a moving region that
// passes the contour filter. ErrSensorNotReady is returned until the warm-up frames have
// been fed to the background model.
func (s *GoCVMotionSensor) MotionDetected(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.source.ReadFrame(&s.img) || s.img.Empty() {
		return false, fmt.Errorf("no frame available: %w", ErrSensorNotReady)
	}

	gocv.CvtColor(s.img, &s.gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(s.gray, &s.blurred, image.Pt(21, 21), 0, 0, gocv.BorderDefault)
	s.detector.Apply(s.blurred, &s.fgMask)

	if s.frameCount < s.settings.WarmUpFrames {
		s.frameCount++
		s.blurred.CopyTo(&s.prevBlurred)
		return false, ErrSensorNotReady
	}
	s.frameCount++

	if !s.prevBlurred.Empty() {
		gocv.AbsDiff(s.blurred, s.prevBlurred, &s.diff)
		gocv.Threshold(s.diff, &s.diff, 25, 255, gocv.ThresholdBinary)
		if gocv.CountNonZero(s.diff) < minChangedPixels {
			s.blurred.CopyTo(&s.prevBlurred)
			return false, nil
		}
	}
	s.blurred.CopyTo(&s.prevBlurred)

	gocv.Threshold(s.fgMask, &s.thresh, 25, 255, gocv.ThresholdBinary)
	gocv.Dilate(s.thresh, &s.thresh, s.kernel)

	contours := gocv.FindContours(s.thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		rect := gocv.BoundingRect(contours.At(i))

		if reason := rejectContour(area, rect, s.settings); reason != "" {
			s.logger.Debug("Contour filtered out", "frame", s.frameCount, "contour", i, "reason", reason)
			continue
		}

		s.logger.Debug("Motion detected", "frame", s.frameCount, "contour", i,
			"area", area, "width", rect.Dx(), "height", rect.Dy())
		return true, nil
	}

	return false, nil
}

// rejectContour returns why a contour does not count as motion, or "" if it does
func rejectContour(area float64, rect image.Rectangle, s MotionDetectionSettings) string {
	if area < float64(s.MotionMinArea) {
		return fmt.Sprintf("area %.2f < minArea %d", area, s.MotionMinArea)
	}
	if rect.Dx() < s.MotionMinWidth {
		return fmt.Sprintf("width %d < minWidth %d", rect.Dx(), s.MotionMinWidth)
	}
	if rect.Dy() < s.MotionMinHeight {
		return fmt.Sprintf("height %d < minHeight %d", rect.Dy(), s.MotionMinHeight)
	}
	aspectRatio := float64(rect.Dx()) / float64(rect.Dy())
	if aspectRatio < s.MotionMinAspect {
		return fmt.Sprintf("aspectRatio %.2f < minAspect %.2f", aspectRatio, s.MotionMinAspect)
	}
	if aspectRatio > s.MotionMaxAspect {
		return fmt.Sprintf("aspectRatio %.2f > maxAspect %.2f", aspectRatio, s.MotionMaxAspect)
	}
	return ""
}

// Close releases the background model and frame buffers
func (s *GoCVMotionSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detector.Close()
	for _, m := range []*gocv.Mat{&s.img, &s.gray, &s.blurred, &s.prevBlurred, &s.diff, &s.fgMask, &s.thresh, &s.kernel} {
		m.Close()
	}
	return nil
}
