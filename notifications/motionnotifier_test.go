package notifications

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu     sync.Mutex
	bodies []string
	sent   chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan struct{}, 16)}
}

func (s *recordingSender) SendEmail(to, subject, body string) error {
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()
	s.sent <- struct{}{}
	return nil
}

func waitForSend(t *testing.T, s *recordingSender) {
	t.Helper()
	select {
	case <-s.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for notification")
	}
}

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEmailMotionNotifier_RateLimited(t *testing.T) {
	sender := newRecordingSender()
	settings := NotificationSettings{Recipient: "owner@example.com", MinInterval: 10 * time.Minute}
	notifier := NewEmailMotionNotifier(settings, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	notifier.Start(ctx)

	notifier.NotifyMotion("/videos/2024-06-01-12-00-00.000000.h264", base)
	waitForSend(t, sender)

	// within the interval: dropped
	notifier.NotifyMotion("/videos/b.h264", base.Add(5*time.Minute))
	// after the interval: sent
	notifier.NotifyMotion("/videos/c.h264", base.Add(10*time.Minute))
	waitForSend(t, sender)

	cancel()
	notifier.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.bodies) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(sender.bodies))
	}
	if !strings.Contains(sender.bodies[0], "2024-06-01-12-00-00.000000.h264") {
		t.Errorf("Expected clip name in body, got %q", sender.bodies[0])
	}
	if !strings.Contains(sender.bodies[1], "c.h264") {
		t.Errorf("Expected second clip in body, got %q", sender.bodies[1])
	}
}

func TestEmailMotionNotifier_NeverBlocks(t *testing.T) {
	notifier := NewEmailMotionNotifier(NotificationSettings{Recipient: "owner@example.com"}, NopSender, nil)

	// no worker running: the queue fills and further notifications are dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*3; i++ {
			notifier.NotifyMotion("/videos/a.h264", base.Add(time.Duration(i)*time.Second))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyMotion blocked on a full queue")
	}
}

func TestEmailMotionNotifier_DroppedEventDoesNotStartInterval(t *testing.T) {
	settings := NotificationSettings{Recipient: "owner@example.com", MinInterval: 10 * time.Minute}
	notifier := NewEmailMotionNotifier(settings, NopSender, nil)

	for i := 0; i < queueSize; i++ {
		notifier.events <- motionEvent{clipPath: "/videos/queued.h264", at: base}
	}

	notifier.NotifyMotion("/videos/dropped.h264", base.Add(time.Minute))
	if len(notifier.events) != queueSize {
		t.Fatalf("Expected a full queue, got %d events", len(notifier.events))
	}

	<-notifier.events
	notifier.NotifyMotion("/videos/next.h264", base.Add(2*time.Minute))
	if len(notifier.events) != queueSize {
		t.Fatal("Expected the next event to be queued after a dropped one")
	}

	notifier.NotifyMotion("/videos/limited.h264", base.Add(3*time.Minute))
	<-notifier.events
	if len(notifier.events) != queueSize-1 {
		t.Error("Expected events within the interval of a queued one to be rate limited")
	}
}

func TestSMTPSender_SendEmail(t *testing.T) {
	original := sendMail
	defer func() { sendMail = original }()

	var gotAddr, gotFrom string
	var gotMsg []byte
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotMsg = addr, from, msg
		return nil
	}

	sender := NewSMTPSender("mail.example.com", 587, "user", "pass", "camera@example.com")
	if err := sender.SendEmail("owner@example.com", "Subject", "Body"); err != nil {
		t.Fatalf("SendEmail failed: %v", err)
	}

	if gotAddr != "mail.example.com:587" || gotFrom != "camera@example.com" {
		t.Errorf("Unexpected address or sender: %s, %s", gotAddr, gotFrom)
	}
	if !strings.Contains(string(gotMsg), "Subject: Subject\r\n") {
		t.Errorf("Expected subject header, got %q", string(gotMsg))
	}

	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}
	if err := sender.SendEmail("owner@example.com", "Subject", "Body"); err == nil {
		t.Error("Expected error to be returned")
	}
}
