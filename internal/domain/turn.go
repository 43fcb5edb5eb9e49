package domain

import "time"

type TurnState int

const (
	StateIdle TurnState = iota
	StateCapturing
	StateNormalizing
	StateTranscribing
	StateGenerating
	StateSynthesizing
	StatePlaying
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateNormalizing:
		return "normalizing"
	case StateTranscribing:
		return "transcribing"
	case StateGenerating:
		return "generating"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Command is what a trigger source asks the controller to do next.
type Command int

const (
	CommandNone Command = iota
	CommandRun
	CommandExit
)

func (c Command) String() string {
	switch c {
	case CommandRun:
		return "run"
	case CommandExit:
		return "exit"
	default:
		return "none"
	}
}

// Turn summarizes one completed turn.
type Turn struct {
	Transcript Transcript
	Response   string
	Audio      *SynthesizedAudio
	Duration   time.Duration
}
