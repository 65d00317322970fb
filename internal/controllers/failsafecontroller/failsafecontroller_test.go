package failsafecontroller

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vst-systems/gm-controller/internal/hwio"
	"github.com/vst-systems/gm-controller/internal/model"
	"github.com/vst-systems/gm-controller/internal/pinset"
)

const (
	shutdownLine   = 4
	tlsLine        = 8
	panelPowerLine = 10
)

type fakeStopper struct {
	stops atomic.Int32
}

func (f *fakeStopper) Stop() {
	f.stops.Add(1)
}

func newTestController(t *testing.T) (*Controller, *hwio.FakeLineDriver, *fakeStopper) {
	t.Helper()
	driver := hwio.NewFakeLineDriver()
	pins, err := pinset.New(driver, []pinset.Pin{
		{Name: model.PinShutdown, Line: shutdownLine, Direction: hwio.Output},
		{Name: model.PinTLS, Line: tlsLine, Direction: hwio.Input},
		{Name: model.PinPanelPower, Line: panelPowerLine, Direction: hwio.Input},
	})
	require.NoError(t, err)
	// healthy panel: power present, level switch not tripped
	driver.SetLevel(panelPowerLine, true)
	stopper := &fakeStopper{}
	return New(pins, stopper, time.Millisecond), driver, stopper
}

func TestHealthyInputsDoNotTrip(t *testing.T) {
	c, driver, stopper := newTestController(t)

	c.Start()
	defer c.Stop()
	time.Sleep(20 * time.Millisecond)

	assert.False(t, c.Tripped())
	assert.False(t, driver.Level(shutdownLine))
	assert.Equal(t, int32(0), stopper.stops.Load())
}

func TestPowerLossTripsOnce(t *testing.T) {
	c, driver, stopper := newTestController(t)

	c.Start()
	defer c.Stop()

	driver.SetLevel(panelPowerLine, false)
	assert.Eventually(t, func() bool {
		return c.Tripped() && driver.Level(shutdownLine)
	}, time.Second, time.Millisecond)

	// stays tripped without re-firing the stop
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), stopper.stops.Load())
}

func TestTankLevelSwitchTrips(t *testing.T) {
	c, driver, stopper := newTestController(t)

	c.Start()
	defer c.Stop()

	driver.SetLevel(tlsLine, true)
	assert.Eventually(t, func() bool {
		return driver.Level(shutdownLine) && stopper.stops.Load() == 1
	}, time.Second, time.Millisecond)
	assert.True(t, c.Tripped())
}

func TestRecoveryReleasesShutdownLine(t *testing.T) {
	c, driver, _ := newTestController(t)

	c.Start()
	defer c.Stop()

	driver.SetLevel(panelPowerLine, false)
	assert.Eventually(t, func() bool {
		return c.Tripped()
	}, time.Second, time.Millisecond)

	driver.SetLevel(panelPowerLine, true)
	assert.Eventually(t, func() bool {
		return !c.Tripped() && !driver.Level(shutdownLine)
	}, time.Second, time.Millisecond)
}

func TestReadFaultSkipsEvaluation(t *testing.T) {
	c, driver, stopper := newTestController(t)

	driver.SetLevel(panelPowerLine, false)
	driver.ReadErr = errors.New("i2c timeout")

	c.Start()
	defer c.Stop()

	// the faulted poll must not trip; the next one does
	assert.Eventually(t, func() bool {
		return stopper.stops.Load() == 1
	}, time.Second, time.Millisecond)
	assert.True(t, c.Tripped())
}

func TestTripMessage(t *testing.T) {
	assert.Equal(t, "panel power lost", tripMessage(false, false))
	assert.Equal(t, "tank level switch tripped", tripMessage(true, true))
	assert.Equal(t, "panel power lost; tank level switch tripped", tripMessage(false, true))
}
