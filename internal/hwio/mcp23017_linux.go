//go:build linux

package hwio

import (
	"fmt"

	"github.com/racerxdl/go-mcp23017"
)

type mcpDriver struct {
	device *mcp23017.Device
}

// NewMCP23017 opens the GPIO expander on the given I2C bus and device number.
func NewMCP23017(bus, devNo uint8) (LineDriver, error) {
	device, err := mcp23017.Open(bus, devNo)
	if err != nil {
		return nil, fmt.Errorf("open mcp23017 on bus %d dev %d: %w", bus, devNo, err)
	}
	return &mcpDriver{device: device}, nil
}

func (m *mcpDriver) SetDirection(line int, dir Direction) error {
	if line < 0 || line > 255 {
		return fmt.Errorf("line %d out of range for mcp23017", line)
	}
	var mode mcp23017.PinMode = mcp23017.OUTPUT
	if dir == Input {
		mode = mcp23017.INPUT
	}
	if err := m.device.PinMode(uint8(line), mode); err != nil {
		return fmt.Errorf("set direction %s on line %d: %w", dir, line, err)
	}
	if dir == Input {
		if err := m.device.SetPullUp(uint8(line), true); err != nil {
			return fmt.Errorf("set pull-up on line %d: %w", line, err)
		}
	}
	return nil
}

func (m *mcpDriver) WriteLine(line int, level bool) error {
	if err := m.device.DigitalWrite(uint8(line), mcp23017.PinLevel(level)); err != nil {
		return fmt.Errorf("write line %d: %w", line, err)
	}
	return nil
}

func (m *mcpDriver) ReadLine(line int) (bool, error) {
	level, err := m.device.DigitalRead(uint8(line))
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", line, err)
	}
	return bool(level), nil
}

func (m *mcpDriver) Close() error {
	return m.device.Close()
}
