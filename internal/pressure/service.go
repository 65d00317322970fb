package pressure

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/datadog"
)

// Service polls the sensor on an interval and publishes the latest filtered
// reading for the API layer, so display reads never block on the I2C bus.
type Service struct {
	sensor   *Sensor
	interval time.Duration

	mu     sync.RWMutex
	latest float64
	valid  bool

	stop chan struct{}
	done chan struct{}
}

func NewService(sensor *Sensor, pollIntervalSeconds int) *Service {
	return &Service{
		sensor:   sensor,
		interval: time.Duration(pollIntervalSeconds) * time.Second,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	go func() {
		defer close(s.done)
		log.Info().Dur("interval", s.interval).Msg("Starting pressure polling service")
		for {
			reading := s.sensor.Sample()
			if reading == SensorUnavailable {
				log.Warn().Msg("Pressure sensor unavailable")
				s.mu.Lock()
				s.valid = false
				s.mu.Unlock()
			} else {
				datadog.Gauge("pressure.reading", reading, "component:sensor")
				s.mu.Lock()
				s.latest = reading
				s.valid = true
				s.mu.Unlock()
			}

			select {
			case <-s.stop:
				return
			case <-time.After(s.interval):
			}
		}
	}()
}

func (s *Service) Stop() {
	close(s.stop)
	<-s.done
}

// Latest returns the most recent filtered reading; ok is false when the
// sensor has not produced a valid reading yet or has gone unavailable.
func (s *Service) Latest() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.valid
}
