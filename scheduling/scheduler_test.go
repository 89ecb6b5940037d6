package scheduling

import (
	"testing"
	"time"

	filemanagement "github.com/yeti47/motioncam/file-management"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func referenceSettings() Settings {
	return Settings{
		PictureInterval: 300 * time.Second,
		MinVideoLength:  10 * time.Second,
		MaxVideoLength:  300 * time.Second,
	}
}

func newTestScheduler(settings Settings) *Scheduler {
	layout := filemanagement.MediaLayout{PictureDir: "/pictures", VideoDir: "/videos"}
	return NewScheduler(settings, layout, nil, at(0))
}

func kinds(cmds []Command) []CommandKind {
	result := make([]CommandKind, 0, len(cmds))
	for _, c := range cmds {
		result = append(result, c.Kind)
	}
	return result
}

func expectKinds(t *testing.T, label string, cmds []Command, expected ...CommandKind) {
	t.Helper()
	got := kinds(cmds)
	if len(got) != len(expected) {
		t.Fatalf("%s: expected commands %v, got %v", label, expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("%s: expected commands %v, got %v", label, expected, got)
		}
	}
}

func expectPhase(t *testing.T, label string, s *Scheduler, expected Phase) {
	t.Helper()
	if got := s.Memory().State.Phase; got != expected {
		t.Fatalf("%s: expected phase %s, got %s", label, expected, got)
	}
}

func TestScheduler_ReferenceScenario(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	expectKinds(t, "t=0", s.Tick(at(0), false))
	expectPhase(t, "t=0", s, Idle)

	cmds := s.Tick(at(300), false)
	expectKinds(t, "t=300", cmds, CommandCaptureStill)
	if !cmds[0].UpdateLatest {
		t.Error("t=300: periodic still must update the latest pointer")
	}
	if cmds[0].Trigger != TriggerInterval {
		t.Errorf("t=300: expected interval trigger, got %s", cmds[0].Trigger)
	}

	cmds = s.Tick(at(301), true)
	expectKinds(t, "t=301", cmds, CommandCaptureStill, CommandStartRecording)
	expectPhase(t, "t=301", s, Recording)
	if !s.Memory().State.Since.Equal(at(301)) {
		t.Errorf("t=301: expected recording since t=301, got %v", s.Memory().State.Since)
	}

	expectKinds(t, "t=305", s.Tick(at(305), false))
	expectPhase(t, "t=305", s, CoolingDown)
	if !s.Memory().State.Deadline.Equal(at(311)) {
		t.Errorf("t=305: expected cooldown deadline t=311, got %v", s.Memory().State.Deadline)
	}

	cmds = s.Tick(at(311), false)
	expectKinds(t, "t=311", cmds, CommandStopRecording)
	expectPhase(t, "t=311", s, Idle)
	if !s.Memory().LastStillAt.Equal(at(311)) {
		t.Errorf("t=311: expected last still reset to t=311, got %v", s.Memory().LastStillAt)
	}
	if cmds[0].Trigger != TriggerMotionEnded {
		t.Errorf("t=311: expected motion_ended trigger, got %s", cmds[0].Trigger)
	}
}

func TestScheduler_PeriodicStillsWithoutMotion(t *testing.T) {
	settings := referenceSettings()
	settings.PictureInterval = 60 * time.Second
	s := newTestScheduler(settings)

	var stills []int
	for sec := 0; sec <= 600; sec++ {
		cmds := s.Tick(at(sec), false)
		if len(cmds) == 0 {
			continue
		}
		expectKinds(t, "periodic", cmds, CommandCaptureStill)
		stills = append(stills, sec)
	}

	expected := []int{60, 120, 180, 240, 300, 360, 420, 480, 540, 600}
	if len(stills) != len(expected) {
		t.Fatalf("Expected stills at %v, got %v", expected, stills)
	}
	for i := range expected {
		if stills[i] != expected[i] {
			t.Fatalf("Expected stills at %v, got %v", expected, stills)
		}
	}
}

func TestScheduler_PeriodicTimerMeasuredFromLastStillOfAnyKind(t *testing.T) {
	settings := referenceSettings()
	settings.PictureInterval = 100 * time.Second
	s := newTestScheduler(settings)

	// motion at t=50 takes a still; the clip ends at t=60
	expectKinds(t, "t=50", s.Tick(at(50), true), CommandCaptureStill, CommandStartRecording)
	s.Tick(at(55), false)
	expectKinds(t, "t=60", s.Tick(at(60), false), CommandStopRecording)

	// the stop resets the timer to t=60, so no still is due at t=100 or t=150
	expectKinds(t, "t=100", s.Tick(at(100), false))
	expectKinds(t, "t=159", s.Tick(at(159), false))
	expectKinds(t, "t=160", s.Tick(at(160), false), CommandCaptureStill)
}

func TestScheduler_MotionFromIdleYieldsStillThenRecording(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	cmds := s.Tick(at(7), true)
	expectKinds(t, "motion", cmds, CommandCaptureStill, CommandStartRecording)
	expectPhase(t, "motion", s, Recording)

	if cmds[0].Path != "/pictures/2024-06-01-12-00-07.000000.jpg" {
		t.Errorf("Unexpected still path %s", cmds[0].Path)
	}
	if !cmds[0].UpdateLatest {
		t.Error("Motion still must update the latest pointer")
	}
	if cmds[1].Path != "/videos/2024-06-01-12-00-07.000000.h264" {
		t.Errorf("Unexpected clip path %s", cmds[1].Path)
	}
	if !s.Memory().LastStillAt.Equal(at(7)) {
		t.Errorf("Motion still must update last still time, got %v", s.Memory().LastStillAt)
	}
}

func TestScheduler_HardCapStopsDespiteMotion(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	expectKinds(t, "t=0", s.Tick(at(0), true), CommandCaptureStill, CommandStartRecording)
	for sec := 1; sec < 300; sec++ {
		expectKinds(t, "continuous motion", s.Tick(at(sec), true))
		expectPhase(t, "continuous motion", s, Recording)
	}

	cmds := s.Tick(at(300), true)
	expectKinds(t, "t=300", cmds, CommandStopRecording)
	expectPhase(t, "t=300", s, Idle)
	if cmds[0].Trigger != TriggerMaxLength {
		t.Errorf("Expected max_length trigger, got %s", cmds[0].Trigger)
	}

	// motion still present, a new clip starts on the very next tick
	expectKinds(t, "t=301", s.Tick(at(301), true), CommandCaptureStill, CommandStartRecording)
	expectPhase(t, "t=301", s, Recording)
}

func TestScheduler_HardCapDuringCooldown(t *testing.T) {
	settings := Settings{
		PictureInterval: 300 * time.Second,
		MinVideoLength:  30 * time.Second,
		MaxVideoLength:  30 * time.Second,
	}
	s := newTestScheduler(settings)

	s.Tick(at(0), true)
	s.Tick(at(20), false)
	expectPhase(t, "t=20", s, CoolingDown)

	expectKinds(t, "t=30", s.Tick(at(30), true), CommandStopRecording)
	expectPhase(t, "t=30", s, Idle)
}

func TestScheduler_HardCapTakesPrecedenceOverCooldownEntry(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	s.Tick(at(0), true)
	s.Tick(at(299), true)

	// motion is lost exactly at the cap: the clip stops instead of entering a cooldown
	cmds := s.Tick(at(300), false)
	expectKinds(t, "t=300", cmds, CommandStopRecording)
	if cmds[0].Trigger != TriggerMaxLength {
		t.Errorf("Expected max_length trigger, got %s", cmds[0].Trigger)
	}
}

func TestScheduler_ClipNotStoppedBeforeMinimumLength(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	s.Tick(at(0), true)
	expectKinds(t, "t=2", s.Tick(at(2), false))
	expectPhase(t, "t=2", s, CoolingDown)

	for sec := 3; sec < 10; sec++ {
		expectKinds(t, "holding", s.Tick(at(sec), false))
		expectPhase(t, "holding", s, CoolingDown)
	}

	expectKinds(t, "t=10", s.Tick(at(10), false), CommandStopRecording)
}

func TestScheduler_MotionResumesDuringCooldown(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	s.Tick(at(0), true)
	s.Tick(at(3), false)
	expectPhase(t, "t=3", s, CoolingDown)

	expectKinds(t, "t=6", s.Tick(at(6), true))
	expectPhase(t, "t=6", s, Recording)
	if !s.Memory().State.Since.Equal(at(0)) {
		t.Errorf("Resumed clip must keep its original start, got %v", s.Memory().State.Since)
	}

	// past the original deadline with motion still present: the clip keeps running
	for sec := 7; sec <= 40; sec++ {
		expectKinds(t, "resumed", s.Tick(at(sec), true))
	}
	expectPhase(t, "t=40", s, Recording)

	// losing motion again re-enters the cooldown; the deadline has already passed
	expectKinds(t, "t=41", s.Tick(at(41), false))
	expectPhase(t, "t=41", s, CoolingDown)
	expectKinds(t, "t=42", s.Tick(at(42), false), CommandStopRecording)
}

func TestScheduler_IdempotentWhileIdle(t *testing.T) {
	s := newTestScheduler(referenceSettings())
	before := s.Memory()

	for i := 0; i < 50; i++ {
		expectKinds(t, "repeat", s.Tick(at(120), false))
	}

	if s.Memory() != before {
		t.Errorf("Repeated idle ticks must not mutate memory: before %+v, after %+v", before, s.Memory())
	}
}

func TestScheduler_DecideDoesNotMutate(t *testing.T) {
	s := newTestScheduler(referenceSettings())
	before := s.Memory()

	d := s.Decide(at(5), true)
	expectKinds(t, "decide", d.Commands, CommandCaptureStill, CommandStartRecording)

	if s.Memory() != before {
		t.Error("Decide must not change the scheduler state")
	}
	if d.Next().State.Phase != Recording {
		t.Errorf("Expected decision to lead to Recording, got %s", d.Next().State.Phase)
	}

	// dropping the decision (failed command) means the next tick re-fires the transition
	d2 := s.Decide(at(6), true)
	expectKinds(t, "retry", d2.Commands, CommandCaptureStill, CommandStartRecording)
	if err := s.Commit(d2); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	expectPhase(t, "after commit", s, Recording)
}

func TestScheduler_FailedStopIsRetried(t *testing.T) {
	s := newTestScheduler(referenceSettings())
	s.Tick(at(0), true)
	s.Tick(at(1), false)

	failed := s.Decide(at(10), false)
	expectKinds(t, "t=10", failed.Commands, CommandStopRecording)
	expectPhase(t, "after failed stop", s, CoolingDown)

	expectKinds(t, "t=11", s.Tick(at(11), false), CommandStopRecording)
	expectPhase(t, "t=11", s, Idle)
}

func TestScheduler_NoteStillRestartsTimerWithoutCommit(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	dropped := s.Decide(at(299), true)
	expectKinds(t, "t=299", dropped.Commands, CommandCaptureStill, CommandStartRecording)
	s.NoteStill(dropped.At())
	expectPhase(t, "after uncommitted start", s, Idle)

	expectKinds(t, "t=300", s.Decide(at(300), false).Commands)
	expectKinds(t, "t=599", s.Tick(at(599), false), CommandCaptureStill)

	s.NoteStill(at(10))
	if !s.Memory().LastStillAt.Equal(at(599)) {
		t.Errorf("An older still must not move the timer back, got %v", s.Memory().LastStillAt)
	}
}

func TestScheduler_CommitRejectsStaleDecision(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	stale := s.Decide(at(1), true)
	s.Tick(at(1), true)

	if err := s.Commit(stale); err != ErrStaleDecision {
		t.Errorf("Expected ErrStaleDecision, got %v", err)
	}
}

func TestScheduler_Shutdown(t *testing.T) {
	s := newTestScheduler(referenceSettings())

	if d := s.Shutdown(at(1)); !d.IsNone() {
		t.Errorf("Shutdown while idle should be a no-op, got %v", kinds(d.Commands))
	}

	s.Tick(at(2), true)
	d := s.Shutdown(at(3))
	expectKinds(t, "shutdown", d.Commands, CommandStopRecording)
	if d.Commands[0].Trigger != TriggerShutdown {
		t.Errorf("Expected shutdown trigger, got %s", d.Commands[0].Trigger)
	}
	if err := s.Commit(d); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	expectPhase(t, "after shutdown", s, Idle)
}

func TestScheduler_ExactlyOnePhaseAndSinceInvariant(t *testing.T) {
	s := newTestScheduler(referenceSettings())
	motion := []bool{false, true, true, false, false, true, false, false, false, false, false, false, false, false, true}

	for i, m := range motion {
		s.Tick(at(i*3), m)
		state := s.Memory().State
		if state.Phase == Idle && (!state.Since.IsZero() || !state.Deadline.IsZero()) {
			t.Fatalf("tick %d: idle state carries clip timestamps: %+v", i, state)
		}
		if state.Phase == Recording && !state.Deadline.IsZero() {
			t.Fatalf("tick %d: recording state carries a cooldown deadline: %+v", i, state)
		}
		if state.Active() && state.Since.IsZero() {
			t.Fatalf("tick %d: active state without start time: %+v", i, state)
		}
	}
}

func TestSettings_Validate(t *testing.T) {
	if err := referenceSettings().Validate(); err != nil {
		t.Errorf("Reference settings should be valid: %v", err)
	}

	bad := referenceSettings()
	bad.MinVideoLength = 400 * time.Second
	if err := bad.Validate(); err == nil {
		t.Error("Expected error when min exceeds max")
	}

	bad = referenceSettings()
	bad.PictureInterval = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for zero picture interval")
	}
}
