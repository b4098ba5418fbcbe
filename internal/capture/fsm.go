// Package capture orchestrates the push-to-talk cycle. A single
// goroutine owns the state machine and consumes key events and
// transcription results through one ordered inbox, so state is never
// read or mutated from two goroutines at once.
package capture

import "fmt"

// State is the machine's current phase.
type State string

// Event drives a state transition.
type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
)

const (
	// EventPressed starts a recording.
	EventPressed Event = "pressed"
	// EventReleased ends a recording and hands the buffer to transcription.
	EventReleased Event = "released"
	// EventDiscard ends a recording without transcribing it.
	EventDiscard Event = "discard"
	// EventJobDone reports a transcription result, success or failure.
	EventJobDone Event = "job_done"
)

// Transition returns the state that follows event. Invalid pairings
// return the current state unchanged with an error; the machine logs
// and ignores those rather than crashing.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventPressed:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventReleased:
			return StateTranscribing, nil
		case EventDiscard:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventJobDone:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("capture: unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("capture: invalid transition %s --(%s)-->", state, event)
}
