package notifications

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/yeti47/motioncam/ccc/logging"
)

const queueSize = 8

type MotionNotifier interface {
	// NotifyMotion reports that a clip was started because of motion. It never blocks;
	// notifications that cannot be queued are dropped.
	NotifyMotion(clipPath string, at time.Time)
}

type nopMotionNotifier struct{}

var NopMotionNotifier MotionNotifier = &nopMotionNotifier{}

func (n *nopMotionNotifier) NotifyMotion(clipPath string, at time.Time) {}

type motionEvent struct {
	clipPath string
	at       time.Time
}

// EmailMotionNotifier mails the configured recipient when motion starts a clip, at most
// once per MinInterval. Mail is sent from a worker goroutine so a slow SMTP server never
// delays the capture loop.
type EmailMotionNotifier struct {
	settings NotificationSettings
	sender   EmailSender
	logger   logging.Logger
	events   chan motionEvent

	mu       sync.Mutex
	lastSent time.Time

	startOnce sync.Once
	done      chan struct{}
}

func NewEmailMotionNotifier(settings NotificationSettings, sender EmailSender, logger logging.Logger) *EmailMotionNotifier {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &EmailMotionNotifier{
		settings: settings,
		sender:   sender,
		logger:   logger,
		events:   make(chan motionEvent, queueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the send worker. It drains until ctx is cancelled.
func (n *EmailMotionNotifier) Start(ctx context.Context) {
	n.startOnce.Do(func() {
		go func() {
			defer close(n.done)
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-n.events:
					n.send(ev)
				}
			}
		}()
	})
}

// Wait blocks until the worker started by Start has exited
func (n *EmailMotionNotifier) Wait() {
	<-n.done
}

func (n *EmailMotionNotifier) NotifyMotion(clipPath string, at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.lastSent.IsZero() && at.Sub(n.lastSent) < n.settings.MinInterval {
		n.logger.Debug("Skipping motion notification due to rate limiting", "clip", clipPath)
		return
	}

	// a dropped event does not start the rate limit window
	select {
	case n.events <- motionEvent{clipPath: clipPath, at: at}:
		n.lastSent = at
	default:
		n.logger.Warn("Notification queue full, dropping motion notification", "clip", clipPath)
	}
}

func (n *EmailMotionNotifier) send(ev motionEvent) {
	subject := "motioncam: motion detected"
	body := fmt.Sprintf("Motion was detected at %s.\n\nRecording: %s\n",
		ev.at.Format("2006-01-02 15:04:05 MST"),
		filepath.Base(ev.clipPath))

	n.logger.Info("Sending motion notification", "recipient", n.settings.Recipient)
	if err := n.sender.SendEmail(n.settings.Recipient, subject, body); err != nil {
		n.logger.Error("Failed to send motion notification", "error", err)
	}
}
