package model

import "time"

type Mode string

const (
	ModeRun   Mode = "run"
	ModeRest  Mode = "rest"
	ModePurge Mode = "purge"
	ModeBurp  Mode = "burp"
	ModeBleed Mode = "bleed"
	ModeLeak  Mode = "leak"

	// ModeComplete is reported after a sequence finishes; it is not an
	// applicable mode and has no pin assignment.
	ModeComplete Mode = "complete"
)

// Output and input line names on the expander.
const (
	PinMotor      = "motor"
	PinV1         = "v1"
	PinV2         = "v2"
	PinV5         = "v5"
	PinShutdown   = "shutdown"
	PinTLS        = "tls"
	PinPanelPower = "panel_power"
)

// PinLevel is one entry of a mode's pin assignment.
type PinLevel struct {
	Pin   string
	Level bool
}

// ModeAssignments maps each applicable mode to its pin levels. Order is the
// order the levels are driven onto the hardware, so it is a slice, not a map.
var ModeAssignments = map[Mode][]PinLevel{
	ModeRun:   {{PinMotor, true}, {PinV1, true}, {PinV2, false}, {PinV5, true}},
	ModeRest:  {{PinMotor, false}, {PinV1, false}, {PinV2, false}, {PinV5, false}},
	ModePurge: {{PinMotor, true}, {PinV1, false}, {PinV2, true}, {PinV5, false}},
	ModeBurp:  {{PinMotor, false}, {PinV1, false}, {PinV2, false}, {PinV5, true}},
	ModeBleed: {{PinMotor, false}, {PinV1, false}, {PinV2, true}, {PinV5, true}},
	ModeLeak:  {{PinMotor, false}, {PinV1, true}, {PinV2, true}, {PinV5, true}},
}

// SequenceStep runs one mode and then holds it for a duration.
type SequenceStep struct {
	Mode     Mode
	Duration time.Duration
}

// Sequence is an ordered list of steps; order defines execution order.
type Sequence []SequenceStep

// PinValues is the live state of the four primary output lines, for display.
type PinValues struct {
	Motor bool `json:"motor"`
	V1    bool `json:"v1"`
	V2    bool `json:"v2"`
	V5    bool `json:"v5"`
}
