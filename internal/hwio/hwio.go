// Package hwio abstracts the byte-level hardware drivers: the MCP23017 GPIO
// expander carrying the relay and status lines, and the ADS1115 ADC carrying
// the pressure transducer. The real implementations are linux-only; tests and
// safe mode use the fake driver.
package hwio

import "errors"

// ErrUnavailable is returned by the stub driver and by constructors when the
// underlying bus could not be opened.
var ErrUnavailable = errors.New("hwio: hardware unavailable")

type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// LineDriver is the digital side of the expander. Implementations may return
// transient I/O faults; callers do not retry.
type LineDriver interface {
	SetDirection(line int, dir Direction) error
	WriteLine(line int, level bool) error
	ReadLine(line int) (bool, error)
	Close() error
}

// ADCReader reads raw counts from the pressure transducer channel.
type ADCReader interface {
	ReadChannel() (int, error)
	Close() error
}
