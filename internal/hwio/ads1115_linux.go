//go:build linux

package hwio

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

type adsDriver struct {
	bus i2c.BusCloser
	pin ads1x15.PinADC
}

var adsChannels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// NewADS1115 opens the pressure transducer channel on the named I2C bus.
func NewADS1115(busName string, addr uint16, channel int) (ADCReader, error) {
	if channel < 0 || channel >= len(adsChannels) {
		return nil, fmt.Errorf("ads1115 channel %d out of range", channel)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	opts := ads1x15.DefaultOpts
	opts.I2cAddress = addr
	adc, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("open ads1115 at %#x: %w", addr, err)
	}
	pin, err := adc.PinForChannel(adsChannels[channel], 4096*physic.MilliVolt, 128*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure ads1115 channel %d: %w", channel, err)
	}
	return &adsDriver{bus: bus, pin: pin}, nil
}

func (a *adsDriver) ReadChannel() (int, error) {
	sample, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read ads1115: %w", err)
	}
	return int(sample.Raw), nil
}

func (a *adsDriver) Close() error {
	if err := a.pin.Halt(); err != nil {
		a.bus.Close()
		return err
	}
	return a.bus.Close()
}
