// Package pressure reads the panel vacuum transducer through the ADC,
// filters readings through a trimmed-mean window, and manages the persisted
// zero-point calibration.
package pressure

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/hwio"
)

const (
	// DefaultADCZero is the factory zero-point count, used until a
	// calibration has been persisted.
	DefaultADCZero = 15422.0

	// SensorUnavailable is returned when no valid reading could be taken.
	// Callers must treat it as "no reading", never as a pressure value.
	SensorUnavailable = -99.9

	// Transducer span: adcSpanMax counts corresponds to spanMaxPressure
	// inches of water column above the calibrated zero.
	adcSpanMax      = 22864.0
	spanMaxPressure = 20.8

	samplesPerRead = 30
	windowSize     = 60

	adcZeroKey = "adc_zero"
)

// ErrHardwareUnavailable is returned by Calibrate when the ADC was never
// initialized.
var ErrHardwareUnavailable = errors.New("pressure: hardware not initialized")

// Settings is the persisted key-value capability the sensor needs for its
// calibration zero point.
type Settings interface {
	GetSetting(key string) (value string, ok bool, err error)
	PutSetting(key, value string) error
}

type Sensor struct {
	mu       sync.Mutex
	adc      hwio.ADCReader
	settings Settings
	adcZero  float64
	window   []float64
}

// NewSensor builds a sensor over adc. A nil adc puts the sensor in the
// degraded path where Sample returns SensorUnavailable and Calibrate errors.
// The zero point loads from settings when present, else the factory default.
func NewSensor(adc hwio.ADCReader, settings Settings) *Sensor {
	s := &Sensor{
		adc:      adc,
		settings: settings,
		adcZero:  DefaultADCZero,
		window:   make([]float64, 0, windowSize),
	}
	if settings != nil {
		raw, ok, err := settings.GetSetting(adcZeroKey)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load adc_zero from settings, using default")
		} else if ok {
			zero, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				log.Warn().Err(err).Str("value", raw).Msg("Invalid persisted adc_zero, using default")
			} else {
				s.adcZero = zero
			}
		}
	}
	return s
}

// MapValue scales x from the range [inMin, inMax] to [outMin, outMax].
func MapValue(x, inMin, inMax, outMin, outMax float64) float64 {
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// Sample takes a burst of raw reads, pushes the converted values into the
// rolling window and returns the trimmed mean of the window. A read fault
// leaves the window untouched and returns SensorUnavailable.
func (s *Sensor) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adc == nil {
		return SensorUnavailable
	}

	raws := make([]int, 0, samplesPerRead)
	for i := 0; i < samplesPerRead; i++ {
		raw, err := s.adc.ReadChannel()
		if err != nil {
			log.Warn().Err(err).Msg("ADC read failed, reporting sensor unavailable")
			return SensorUnavailable
		}
		raws = append(raws, raw)
	}

	for _, raw := range raws {
		converted := round2(MapValue(float64(raw), s.adcZero, adcSpanMax, 0.0, spanMaxPressure))
		if len(s.window) >= windowSize {
			s.window = s.window[1:]
		}
		s.window = append(s.window, converted)
	}

	result := round2(trimmedMean(s.window))
	if result == 0 {
		return 0 // collapses the -0.00 rounding artifact
	}
	return result
}

// Calibrate takes one raw reading as the new zero point, clears the window
// (old readings were computed against the stale zero) and persists the value.
// A persistence failure is logged; the in-memory zero stays authoritative.
func (s *Sensor) Calibrate() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adc == nil {
		return 0, ErrHardwareUnavailable
	}
	raw, err := s.adc.ReadChannel()
	if err != nil {
		return 0, fmt.Errorf("calibration read: %w", err)
	}

	s.adcZero = float64(raw)
	s.window = s.window[:0]

	if s.settings != nil {
		value := strconv.FormatFloat(s.adcZero, 'f', -1, 64)
		if err := s.settings.PutSetting(adcZeroKey, value); err != nil {
			log.Warn().Err(err).Float64("adc_zero", s.adcZero).
				Msg("Failed to persist adc_zero, calibration active for this session only")
		}
	}

	log.Info().Float64("adc_zero", s.adcZero).Msg("Pressure sensor calibrated")
	return s.adcZero, nil
}

// ADCZero reports the current calibration zero point.
func (s *Sensor) ADCZero() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adcZero
}

// trimmedMean averages samples after dropping the single lowest and highest
// value; with 2 or fewer samples it averages everything.
func trimmedMean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	values := samples
	if len(samples) > 2 {
		sorted := append([]float64(nil), samples...)
		sort.Float64s(sorted)
		values = sorted[1 : len(sorted)-1]
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
