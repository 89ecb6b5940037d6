package motiondetection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yeti47/motioncam/ccc/logging"
	"github.com/yeti47/motioncam/config"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// levelReader is the part of gpio.PinIn the sensor samples
type levelReader interface {
	Read() gpio.Level
}

// GPIOMotionSensor reads a PIR sensor wired to a GPIO line. A background sampler feeds a
// fixed-size queue; MotionDetected only inspects the queue and never touches the pin.
type GPIOMotionSensor struct {
	pin       levelReader
	queue     *sampleQueue
	threshold float64
	interval  time.Duration
	logger    logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewGPIOMotionSensor initializes the host drivers and configures the named pin as a
// pulled-down input.
func NewGPIOMotionSensor(provider config.SettingsProvider[MotionDetectionSettings], logger logging.Logger) (*GPIOMotionSensor, error) {
	settings := provider.GetSettings()

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPIO host drivers: %w", err)
	}

	pin := gpioreg.ByName(settings.Pin)
	if pin == nil {
		return nil, fmt.Errorf("GPIO pin %q not found", settings.Pin)
	}
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure GPIO pin %s as input: %w", settings.Pin, err)
	}

	return newGPIOMotionSensor(pin, settings, logger), nil
}

func newGPIOMotionSensor(pin levelReader, settings MotionDetectionSettings, logger logging.Logger) *GPIOMotionSensor {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &GPIOMotionSensor{
		pin:       pin,
		queue:     newSampleQueue(settings.QueueLen),
		threshold: settings.Threshold,
		interval:  settings.SampleInterval(),
		logger:    logger,
	}
}

// Start launches the sampler. It runs until ctx is cancelled or Close is called.
func (s *GPIOMotionSensor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})

	s.logger.Info("Starting GPIO motion sampler", "interval", s.interval.String(), "threshold", s.threshold)

	go func() {
		defer close(s.stopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.sample()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *GPIOMotionSensor) sample() {
	s.queue.push(s.pin.Read() == gpio.High)
}

// MotionDetected reports whether the mean of the sample window exceeds the threshold
func (s *GPIOMotionSensor) MotionDetected(ctx context.Context) (bool, error) {
	mean, ok := s.queue.mean()
	if !ok {
		return false, ErrSensorNotReady
	}
	return mean > s.threshold, nil
}

// Close stops the sampler and waits for it to exit
func (s *GPIOMotionSensor) Close() error {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-stopped
	s.queue.reset()
	return nil
}
