//go:build !linux

package hwio

// The real drivers talk to /dev/i2c devices and only build on linux.
// Non-linux builds get constructors that report the hardware as unavailable,
// which drops the controller into the same degraded path as a missing bus.

func NewMCP23017(bus, devNo uint8) (LineDriver, error) {
	return nil, ErrUnavailable
}

func NewADS1115(busName string, addr uint16, channel int) (ADCReader, error) {
	return nil, ErrUnavailable
}
