package scheduling

import "time"

// Phase is the controller's recording mode
type Phase int

const (
	// Idle means no clip is being recorded
	Idle Phase = iota
	// Recording means a clip is being recorded and motion was present on the last tick
	Recording
	// CoolingDown means motion stopped while recording and the clip is held open until
	// its minimum length is reached
	CoolingDown
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case CoolingDown:
		return "cooling_down"
	default:
		return "unknown"
	}
}

// RecordingState is a tagged variant: Since is zero while Idle, Deadline is set only while
// CoolingDown. Use the constructors below instead of building values by hand.
type RecordingState struct {
	Phase    Phase
	Since    time.Time // when the current clip started
	Deadline time.Time // earliest time a cooling down clip may stop
}

func IdleState() RecordingState {
	return RecordingState{Phase: Idle}
}

func RecordingSince(since time.Time) RecordingState {
	return RecordingState{Phase: Recording, Since: since}
}

func CoolingDownUntil(since, deadline time.Time) RecordingState {
	return RecordingState{Phase: CoolingDown, Since: since, Deadline: deadline}
}

// Active reports whether a clip is open
func (s RecordingState) Active() bool {
	return s.Phase == Recording || s.Phase == CoolingDown
}

// Elapsed returns how long the current clip has been recording at now, zero while Idle
func (s RecordingState) Elapsed(now time.Time) time.Duration {
	if !s.Active() {
		return 0
	}
	return now.Sub(s.Since)
}

// Memory is the state the scheduler carries from one tick to the next
type Memory struct {
	LastStillAt time.Time
	State       RecordingState
}
