package pressure

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vst-systems/gm-controller/internal/hwio"
)

type fakeSettings struct {
	values map[string]string
	putErr error
	puts   []string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{}}
}

func (f *fakeSettings) GetSetting(key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeSettings) PutSetting(key, value string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.values[key] = value
	f.puts = append(f.puts, key)
	return nil
}

func TestMapValueEndpoints(t *testing.T) {
	zero := DefaultADCZero
	assert.InDelta(t, 0.0, MapValue(zero, zero, 22864.0, 0.0, 20.8), 1e-9)
	assert.InDelta(t, 20.8, MapValue(22864.0, zero, 22864.0, 0.0, 20.8), 1e-9)
}

func TestTrimmedMeanDropsExtremes(t *testing.T) {
	assert.InDelta(t, 2.5, trimmedMean([]float64{1, 2, 3, 100}), 1e-9)
}

func TestTrimmedMeanSmallWindows(t *testing.T) {
	assert.InDelta(t, 5.0, trimmedMean([]float64{5}), 1e-9)
	assert.InDelta(t, 1.5, trimmedMean([]float64{1, 2}), 1e-9)
}

func TestSampleConvertsRawCounts(t *testing.T) {
	// 15422 + 3721 counts is exactly half the 7442-count span: 10.4
	adc := hwio.NewFakeADC(19143)
	s := NewSensor(adc, newFakeSettings())

	assert.InDelta(t, 10.4, s.Sample(), 1e-9)
}

func TestSampleNormalizesNegativeZero(t *testing.T) {
	// one count below zero rounds to -0.00; the result must be plain zero
	adc := hwio.NewFakeADC(int(DefaultADCZero) - 1)
	s := NewSensor(adc, newFakeSettings())

	result := s.Sample()
	assert.Equal(t, 0.0, result)
	assert.False(t, math.Signbit(result))
}

func TestSampleUnavailableWithoutHardware(t *testing.T) {
	s := NewSensor(nil, newFakeSettings())
	assert.Equal(t, SensorUnavailable, s.Sample())
}

func TestSampleFaultLeavesWindowUntouched(t *testing.T) {
	adc := hwio.NewFakeADC(19143)
	s := NewSensor(adc, newFakeSettings())

	assert.InDelta(t, 10.4, s.Sample(), 1e-9)

	adc.ReadErr = errors.New("i2c timeout")
	assert.Equal(t, SensorUnavailable, s.Sample())

	// window still holds the earlier samples, so the next good burst
	// averages with them rather than starting over
	adc.ReadErr = nil
	assert.InDelta(t, 10.4, s.Sample(), 1e-9)
}

func TestNewSensorLoadsPersistedZero(t *testing.T) {
	settings := newFakeSettings()
	settings.values["adc_zero"] = "16000"
	s := NewSensor(hwio.NewFakeADC(16000), settings)

	assert.InDelta(t, 16000.0, s.ADCZero(), 1e-9)
	assert.Equal(t, 0.0, s.Sample())
}

func TestNewSensorFallsBackToDefaultZero(t *testing.T) {
	settings := newFakeSettings()
	settings.values["adc_zero"] = "not a number"
	s := NewSensor(hwio.NewFakeADC(1), settings)
	assert.InDelta(t, DefaultADCZero, s.ADCZero(), 1e-9)
}

func TestCalibrateUnavailableHardware(t *testing.T) {
	s := NewSensor(nil, newFakeSettings())

	_, err := s.Calibrate()
	assert.ErrorIs(t, err, ErrHardwareUnavailable)
	assert.InDelta(t, DefaultADCZero, s.ADCZero(), 1e-9)
}

func TestCalibratePersistsAndClearsWindow(t *testing.T) {
	adc := hwio.NewFakeADC(16000)
	settings := newFakeSettings()
	s := NewSensor(adc, settings)

	// readings against the stale zero
	assert.Greater(t, s.Sample(), 0.0)

	zero, err := s.Calibrate()
	assert.NoError(t, err)
	assert.InDelta(t, 16000.0, zero, 1e-9)
	assert.Equal(t, "16000", settings.values["adc_zero"])

	// stale window was cleared: fresh samples read as zero
	assert.Equal(t, 0.0, s.Sample())
}

func TestCalibratePersistenceFailureKeepsZero(t *testing.T) {
	adc := hwio.NewFakeADC(16000)
	settings := newFakeSettings()
	settings.putErr = errors.New("disk full")
	s := NewSensor(adc, settings)

	zero, err := s.Calibrate()
	assert.NoError(t, err)
	assert.InDelta(t, 16000.0, zero, 1e-9)
	assert.InDelta(t, 16000.0, s.ADCZero(), 1e-9)
}

func TestCalibrateReadFault(t *testing.T) {
	adc := hwio.NewFakeADC(16000)
	adc.ReadErr = errors.New("i2c timeout")
	s := NewSensor(adc, newFakeSettings())

	_, err := s.Calibrate()
	assert.Error(t, err)
	assert.InDelta(t, DefaultADCZero, s.ADCZero(), 1e-9)
}
