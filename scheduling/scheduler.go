package scheduling

import (
	"errors"
	"time"

	"github.com/yeti47/motioncam/ccc/logging"
)

// ErrStaleDecision is returned by Commit when the decision was computed against a schedule
// memory that is no longer current.
var ErrStaleDecision = errors.New("decision does not match the current schedule state")

// PathGenerator names the files produced by capture commands
type PathGenerator interface {
	StillPath(t time.Time) string
	ClipPath(t time.Time) string
}

// Decision is the outcome of evaluating one tick. It is not applied until committed, so a
// host that fails to execute the commands can drop it and the same transition fires again
// on the next tick.
type Decision struct {
	Commands []Command
	at       time.Time
	from     Memory
	next     Memory
}

// IsNone reports whether the decision carries no camera commands. A decision without
// commands may still change state, e.g. when a cooldown is entered.
func (d Decision) IsNone() bool {
	return len(d.Commands) == 0
}

// Next returns the memory the scheduler adopts when the decision is committed
func (d Decision) Next() Memory {
	return d.next
}

// At returns the tick time the decision was made for
func (d Decision) At() time.Time {
	return d.at
}

// Scheduler is the capture decision loop. It is not safe for concurrent use; the control
// loop owning it calls Decide and Commit strictly in sequence.
type Scheduler struct {
	settings Settings
	paths    PathGenerator
	logger   logging.Logger
	memory   Memory
}

// NewScheduler creates a scheduler that starts Idle with the periodic still timer
// measured from now.
func NewScheduler(settings Settings, paths PathGenerator, logger logging.Logger, now time.Time) *Scheduler {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &Scheduler{
		settings: settings,
		paths:    paths,
		logger:   logger,
		memory: Memory{
			LastStillAt: now,
			State:       IdleState(),
		},
	}
}

// Memory returns a copy of the current schedule memory
func (s *Scheduler) Memory() Memory {
	return s.memory
}

// Settings returns the settings the scheduler was built with
func (s *Scheduler) Settings() Settings {
	return s.settings
}

// Decide evaluates one tick without changing the scheduler. Rules are applied in priority order:
//  1. Idle with motion captures a still and starts a clip.
//  2. An open clip that reached MaxVideoLength stops, whatever the sensor says.
//  3. An open clip without motion first enters the cooldown, then stops once the cooldown
//     deadline has passed.
//  4. Idle long enough since the last still captures a periodic still.
//
// Motion seen while cooling down returns the clip to Recording without any command.
func (s *Scheduler) Decide(now time.Time, motionDetected bool) Decision {
	current := s.memory
	d := Decision{at: now, from: current, next: current}
	state := current.State

	switch {
	case state.Phase == Idle && motionDetected:
		d.Commands = []Command{
			{Kind: CommandCaptureStill, Path: s.paths.StillPath(now), UpdateLatest: true, Trigger: TriggerMotion},
			{Kind: CommandStartRecording, Path: s.paths.ClipPath(now), Trigger: TriggerMotion},
		}
		d.next = Memory{LastStillAt: now, State: RecordingSince(now)}

	case state.Active() && state.Elapsed(now) >= s.settings.MaxVideoLength:
		d.Commands = []Command{{Kind: CommandStopRecording, Trigger: TriggerMaxLength}}
		d.next = Memory{LastStillAt: now, State: IdleState()}

	case state.Phase == Recording && !motionDetected:
		d.next.State = CoolingDownUntil(state.Since, state.Since.Add(s.settings.MinVideoLength))

	case state.Phase == CoolingDown && !motionDetected:
		if !now.Before(state.Deadline) {
			d.Commands = []Command{{Kind: CommandStopRecording, Trigger: TriggerMotionEnded}}
			d.next = Memory{LastStillAt: now, State: IdleState()}
		}

	case state.Phase == CoolingDown && motionDetected:
		d.next.State = RecordingSince(state.Since)

	case state.Phase == Idle && now.Sub(current.LastStillAt) >= s.settings.PictureInterval:
		d.Commands = []Command{
			{Kind: CommandCaptureStill, Path: s.paths.StillPath(now), UpdateLatest: true, Trigger: TriggerInterval},
		}
		d.next.LastStillAt = now
	}

	return d
}

// Shutdown returns the decision that closes an open clip before the process exits.
// It is a no-op decision while Idle.
func (s *Scheduler) Shutdown(now time.Time) Decision {
	current := s.memory
	d := Decision{at: now, from: current, next: current}

	if current.State.Active() {
		d.Commands = []Command{{Kind: CommandStopRecording, Trigger: TriggerShutdown}}
		d.next = Memory{LastStillAt: current.LastStillAt, State: IdleState()}
	}
	return d
}

// Commit adopts the memory of a decision whose commands were all executed successfully.
func (s *Scheduler) Commit(d Decision) error {
	if d.from != s.memory {
		s.logger.Error("Refusing to commit stale schedule decision",
			"decision_state", d.from.State.Phase.String(), "current_state", s.memory.State.Phase.String())
		return ErrStaleDecision
	}

	for _, cmd := range d.Commands {
		if cmd.Kind == CommandStopRecording && !d.from.State.Active() {
			// unreachable through Decide; reported and tolerated so the loop keeps running
			s.logger.Error("Stop recording issued while idle", "trigger", string(cmd.Trigger))
		}
	}

	s.logTransition(d)
	s.memory = d.next
	return nil
}

// NoteStill records a still written at at by a decision that was not committed, so the
// periodic timer still measures from it. Earlier times are ignored.
func (s *Scheduler) NoteStill(at time.Time) {
	if at.After(s.memory.LastStillAt) {
		s.memory.LastStillAt = at
	}
}

// Tick decides and commits in one step for hosts that treat command execution as infallible.
func (s *Scheduler) Tick(now time.Time, motionDetected bool) []Command {
	d := s.Decide(now, motionDetected)
	if err := s.Commit(d); err != nil {
		return nil
	}
	return d.Commands
}

func (s *Scheduler) logTransition(d Decision) {
	from, to := d.from.State, d.next.State

	for _, cmd := range d.Commands {
		switch cmd.Kind {
		case CommandCaptureStill:
			s.logger.Info("Still captured", "path", cmd.Path, "trigger", string(cmd.Trigger))
		case CommandStartRecording:
			s.logger.Info("Recording started", "path", cmd.Path, "trigger", string(cmd.Trigger))
		case CommandStopRecording:
			s.logger.Info("Recording stopped", "trigger", string(cmd.Trigger),
				"duration", from.Elapsed(d.at).String())
		}
	}

	switch {
	case from.Phase == Recording && to.Phase == CoolingDown:
		s.logger.Debug("Motion stopped, holding clip open until minimum length",
			"remaining", to.Deadline.Sub(d.at).String(), "deadline", to.Deadline)
	case from.Phase == CoolingDown && to.Phase == Recording:
		s.logger.Info("Motion resumed during cooldown, continuing clip",
			"recording_for", to.Elapsed(d.at).String())
	}
}
