package companion

// State is the session-level interaction state.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateFlushing   State = "flushing"
	StateResponding State = "responding"
)

// Trigger moves a session between states.
type Trigger string

const (
	TriggerStart      Trigger = "start"
	TriggerStop       Trigger = "stop"
	TriggerCancel     Trigger = "cancel"
	TriggerFail       Trigger = "error"
	TriggerTranscript Trigger = "transcript"
	TriggerEmpty      Trigger = "empty"
	TriggerSubmit     Trigger = "submit"
	TriggerSettled    Trigger = "settled"
)

var transitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerStart:  StateRecording,
		TriggerSubmit: StateResponding,
	},
	StateRecording: {
		TriggerStop:   StateFlushing,
		TriggerCancel: StateIdle,
		TriggerFail:   StateIdle,
	},
	StateFlushing: {
		TriggerTranscript: StateResponding,
		TriggerEmpty:      StateIdle,
		TriggerFail:       StateIdle,
	},
	StateResponding: {
		TriggerSettled: StateIdle,
	},
}

// Next returns the state reached from s on t. ok is false when the
// transition is not allowed.
func Next(s State, t Trigger) (next State, ok bool) {
	next, ok = transitions[s][t]
	return next, ok
}
