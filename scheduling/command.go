package scheduling

// CommandKind enumerates what the host is asked to do with the camera
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandCaptureStill
	CommandStartRecording
	CommandStopRecording
)

func (k CommandKind) String() string {
	switch k {
	case CommandNone:
		return "none"
	case CommandCaptureStill:
		return "capture_still"
	case CommandStartRecording:
		return "start_recording"
	case CommandStopRecording:
		return "stop_recording"
	default:
		return "unknown"
	}
}

// Trigger records why a command was issued
type Trigger string

const (
	TriggerMotion      Trigger = "motion"
	TriggerInterval    Trigger = "interval"
	TriggerMotionEnded Trigger = "motion_ended"
	TriggerMaxLength   Trigger = "max_length"
	TriggerShutdown    Trigger = "shutdown"
)

// Command is a single instruction for the camera. Path is empty for CommandStopRecording.
type Command struct {
	Kind         CommandKind
	Path         string
	UpdateLatest bool // repoint the latest-still pointer at Path once the still exists
	Trigger      Trigger
}
